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

const accountColumns = `t.id, t.role, t.status, t.verification_status,
	COALESCE(t.full_name, ''), COALESCE(t.email, ''), COALESCE(t.phone, ''),
	t.created_at, t.updated_at`

var accountWritable = columnSet( //nolint:gochecknoglobals // column allow-list
	domain.FieldRole, domain.FieldStatus, domain.FieldVerificationStatus,
	domain.FieldFullName, domain.FieldEmail, domain.FieldPhone, domain.FieldUpdatedAt,
)

type AccountRepo struct {
	pool *pgxpool.Pool
}

func NewAccountRepo(pool *pgxpool.Pool) *AccountRepo {
	return &AccountRepo{pool: pool}
}

func (r *AccountRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	a, err := scanAccount(r.pool.QueryRow(ctx,
		`SELECT `+accountColumns+` FROM profiles AS t WHERE t.id = $1`, id,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("accountRepo.GetByID: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("accountRepo.GetByID: %w: %w", domain.ErrPersistence, err)
	}

	return a, nil
}

func (r *AccountRepo) UpdateFields(ctx context.Context, id uuid.UUID, f domain.Fields) (*domain.Account, error) {
	sql, args, err := buildUpdate("profiles", accountWritable, id, f, accountColumns)
	if err != nil {
		return nil, fmt.Errorf("accountRepo.UpdateFields: %w", err)
	}

	a, err := scanAccount(r.pool.QueryRow(ctx, sql, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("accountRepo.UpdateFields: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("accountRepo.UpdateFields: %w: %w", domain.ErrPersistence, err)
	}

	return a, nil
}

// RoleOf resolves the role of an active account. Inactive, suspended and
// pending accounts resolve to ErrNotFound so that they are never authorized.
func (r *AccountRepo) RoleOf(ctx context.Context, id uuid.UUID) (domain.Role, error) {
	var role domain.Role
	err := r.pool.QueryRow(ctx,
		`SELECT role FROM profiles WHERE id = $1 AND status = $2`,
		id, domain.AccountStatusActive,
	).Scan(&role)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", fmt.Errorf("accountRepo.RoleOf: %w", domain.ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("accountRepo.RoleOf: %w: %w", domain.ErrPersistence, err)
	}

	return role, nil
}

func scanAccount(row pgx.Row) (*domain.Account, error) {
	var a domain.Account
	if err := row.Scan(
		&a.ID, &a.Role, &a.Status, &a.VerificationStatus,
		&a.FullName, &a.Email, &a.Phone,
		&a.CreatedAt, &a.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &a, nil
}
