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

// RowRepo is pass-through single-row access for tables without business
// rules. Rows are read as jsonb so any column set round-trips.
type RowRepo struct {
	pool     *pgxpool.Pool
	table    string
	writable map[string]struct{}
}

func NewRowRepo(pool *pgxpool.Pool, kind domain.EntityKind) *RowRepo {
	return &RowRepo{
		pool:     pool,
		table:    string(kind),
		writable: columnSet(append(domain.RowColumns(kind), domain.FieldUpdatedAt)...),
	}
}

func (r *RowRepo) Get(ctx context.Context, id uuid.UUID) (domain.Snapshot, error) {
	var snap domain.Snapshot
	err := r.pool.QueryRow(ctx,
		`SELECT to_jsonb(t.*) FROM `+pgx.Identifier{r.table}.Sanitize()+` AS t WHERE t.id = $1`, id,
	).Scan(&snap)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("rowRepo.Get(%s): %w", r.table, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("rowRepo.Get(%s): %w: %w", r.table, domain.ErrPersistence, err)
	}

	return snap, nil
}

func (r *RowRepo) UpdateFields(ctx context.Context, id uuid.UUID, f domain.Fields) (domain.Snapshot, error) {
	sql, args, err := buildUpdate(r.table, r.writable, id, f, "to_jsonb(t.*)")
	if err != nil {
		return nil, fmt.Errorf("rowRepo.UpdateFields(%s): %w", r.table, err)
	}

	var snap domain.Snapshot
	err = r.pool.QueryRow(ctx, sql, args...).Scan(&snap)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("rowRepo.UpdateFields(%s): %w", r.table, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("rowRepo.UpdateFields(%s): %w: %w", r.table, domain.ErrPersistence, err)
	}

	return snap, nil
}

func (r *RowRepo) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM `+pgx.Identifier{r.table}.Sanitize()+` WHERE id = $1`, id,
	)
	if err != nil {
		return fmt.Errorf("rowRepo.Delete(%s): %w: %w", r.table, domain.ErrPersistence, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("rowRepo.Delete(%s): %w", r.table, domain.ErrNotFound)
	}

	return nil
}
