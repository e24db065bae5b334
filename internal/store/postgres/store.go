package postgres

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gosuda/escrow-admin/internal/domain"
)

//go:embed schema.sql
var schema string

type Store struct {
	pool               *pgxpool.Pool
	accounts           *AccountRepo
	transactions       *TransactionRepo
	escrowTransactions *TransactionRepo
	disputes           *RowRepo
	verificationQueue  *RowRepo
	audit              *AuditRepo
}

func New(ctx context.Context, dsn string, maxConns int32) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres.New: parse config: %w", err)
	}

	cfg.MaxConns = maxConns

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("postgres.New: connect: %w", err)
	}

	err = pool.Ping(ctx)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres.New: ping: %w", err)
	}

	return &Store{
		pool:               pool,
		accounts:           NewAccountRepo(pool),
		transactions:       NewTransactionRepo(pool, domain.KindTransactions),
		escrowTransactions: NewTransactionRepo(pool, domain.KindEscrowTransactions),
		disputes:           NewRowRepo(pool, domain.KindDisputes),
		verificationQueue:  NewRowRepo(pool, domain.KindVerificationQueue),
		audit:              NewAuditRepo(pool),
	}, nil
}

// Migrate applies the embedded schema. Every statement is idempotent.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("postgres.Migrate: %w", err)
	}
	return nil
}

// Ping reports whether the database answers.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("postgres.Ping: %w", err)
	}
	return nil
}

func (s *Store) Close() {
	s.pool.Close()
}

func (s *Store) Accounts() domain.AccountRepository { return s.accounts }
func (s *Store) Audit() domain.AuditRepository      { return s.audit }

// Transactions returns the repository for one of the two transaction tables.
func (s *Store) Transactions(kind domain.EntityKind) domain.TransactionRepository {
	if kind == domain.KindTransactions {
		return s.transactions
	}
	return s.escrowTransactions
}

// Rows returns pass-through access for disputes or the verification queue.
func (s *Store) Rows(kind domain.EntityKind) domain.RowRepository {
	if kind == domain.KindDisputes {
		return s.disputes
	}
	return s.verificationQueue
}
