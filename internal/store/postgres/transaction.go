package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gosuda/escrow-admin/internal/domain"
)

const transactionColumns = `t.id, t.amount, COALESCE(t.description, ''), t.status,
	t.buyer_id, t.seller_id, t.created_at, t.updated_at`

var transactionWritable = columnSet( //nolint:gochecknoglobals // column allow-list
	domain.FieldAmount, domain.FieldDescription, domain.FieldStatus,
	domain.FieldBuyerID, domain.FieldSellerID, domain.FieldUpdatedAt,
)

// TransactionRepo stores escrow transactions in one of the two transaction
// tables; both share a schema.
type TransactionRepo struct {
	pool  *pgxpool.Pool
	table string
}

func NewTransactionRepo(pool *pgxpool.Pool, kind domain.EntityKind) *TransactionRepo {
	return &TransactionRepo{pool: pool, table: string(kind)}
}

func (r *TransactionRepo) Create(ctx context.Context, t *domain.Transaction) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO `+pgx.Identifier{r.table}.Sanitize()+` (id, amount, description, status, buyer_id, seller_id, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		t.ID, t.Amount, t.Description, t.Status, t.BuyerID, t.SellerID, t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("transactionRepo.Create: %w: %w", domain.ErrPersistence, err)
	}

	return nil
}

func (r *TransactionRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	t, err := scanTransaction(r.pool.QueryRow(ctx,
		`SELECT `+transactionColumns+` FROM `+pgx.Identifier{r.table}.Sanitize()+` AS t WHERE t.id = $1`, id,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("transactionRepo.GetByID: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("transactionRepo.GetByID: %w: %w", domain.ErrPersistence, err)
	}

	return t, nil
}

func (r *TransactionRepo) UpdateFields(ctx context.Context, id uuid.UUID, f domain.Fields) (*domain.Transaction, error) {
	sql, args, err := buildUpdate(r.table, transactionWritable, id, f, transactionColumns)
	if err != nil {
		return nil, fmt.Errorf("transactionRepo.UpdateFields: %w", err)
	}

	t, err := scanTransaction(r.pool.QueryRow(ctx, sql, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("transactionRepo.UpdateFields: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("transactionRepo.UpdateFields: %w: %w", domain.ErrPersistence, err)
	}

	return t, nil
}

func (r *TransactionRepo) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM `+pgx.Identifier{r.table}.Sanitize()+` WHERE id = $1`, id,
	)
	if err != nil {
		return fmt.Errorf("transactionRepo.Delete: %w: %w", domain.ErrPersistence, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("transactionRepo.Delete: %w", domain.ErrNotFound)
	}

	return nil
}

func scanTransaction(row pgx.Row) (*domain.Transaction, error) {
	var t domain.Transaction
	if err := row.Scan(
		&t.ID, &t.Amount, &t.Description, &t.Status,
		&t.BuyerID, &t.SellerID, &t.CreatedAt, &t.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &t, nil
}
