package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gosuda/escrow-admin/internal/domain"
)

const auditColumns = `id, action, entity_type, entity_id, old_data, new_data, performed_by,
	COALESCE(ip_address, ''), COALESCE(user_agent, ''), digest, created_at`

// AuditRepo appends to audit_logs. The table rejects UPDATE and DELETE at the
// database level (see schema.sql); this type exposes neither.
type AuditRepo struct {
	pool *pgxpool.Pool
}

func NewAuditRepo(pool *pgxpool.Pool) *AuditRepo {
	return &AuditRepo{pool: pool}
}

func (r *AuditRepo) Append(ctx context.Context, rec *domain.AuditRecord) error {
	before, err := marshalSnapshot(rec.Before)
	if err != nil {
		return fmt.Errorf("auditRepo.Append: marshal old_data: %w", err)
	}
	after, err := marshalSnapshot(rec.After)
	if err != nil {
		return fmt.Errorf("auditRepo.Append: marshal new_data: %w", err)
	}

	_, err = r.pool.Exec(ctx,
		`INSERT INTO audit_logs (id, action, entity_type, entity_id, old_data, new_data, performed_by, ip_address, user_agent, digest, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, NULLIF($8, ''), NULLIF($9, ''), $10, $11)`,
		rec.ID, rec.Action, rec.EntityKind, rec.EntityID,
		before, after, rec.PerformedBy,
		rec.Origin.IPAddress, rec.Origin.UserAgent,
		rec.Digest, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("auditRepo.Append: %w", err)
	}

	return nil
}

func (r *AuditRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.AuditRecord, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+auditColumns+` FROM audit_logs WHERE id = $1`, id,
	)
	if err != nil {
		return nil, fmt.Errorf("auditRepo.GetByID: %w: %w", domain.ErrPersistence, err)
	}
	defer rows.Close()

	recs, err := scanAuditRecords(rows, "auditRepo.GetByID")
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, fmt.Errorf("auditRepo.GetByID: %w", domain.ErrNotFound)
	}

	return recs[0], nil
}

func (r *AuditRepo) ListByEntity(ctx context.Context, kind domain.EntityKind, entityID uuid.UUID, limit int) ([]*domain.AuditRecord, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+auditColumns+` FROM audit_logs
		 WHERE entity_type = $1 AND entity_id = $2
		 ORDER BY created_at DESC
		 LIMIT $3`,
		kind, entityID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("auditRepo.ListByEntity: %w: %w", domain.ErrPersistence, err)
	}
	defer rows.Close()

	return scanAuditRecords(rows, "auditRepo.ListByEntity")
}

func (r *AuditRepo) List(ctx context.Context, limit, offset int) ([]*domain.AuditRecord, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+auditColumns+` FROM audit_logs
		 ORDER BY created_at DESC
		 LIMIT $1 OFFSET $2`,
		limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("auditRepo.List: %w: %w", domain.ErrPersistence, err)
	}
	defer rows.Close()

	return scanAuditRecords(rows, "auditRepo.List")
}

func marshalSnapshot(s domain.Snapshot) ([]byte, error) {
	if s == nil {
		return nil, nil
	}
	return json.Marshal(s)
}

func scanAuditRecords(rows pgx.Rows, caller string) ([]*domain.AuditRecord, error) {
	var recs []*domain.AuditRecord
	for rows.Next() {
		var rec domain.AuditRecord
		var before, after []byte

		if err := rows.Scan(
			&rec.ID, &rec.Action, &rec.EntityKind, &rec.EntityID,
			&before, &after, &rec.PerformedBy,
			&rec.Origin.IPAddress, &rec.Origin.UserAgent,
			&rec.Digest, &rec.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("%s: scan: %w: %w", caller, domain.ErrPersistence, err)
		}
		if err := unmarshalSnapshot(before, &rec.Before); err != nil {
			return nil, fmt.Errorf("%s: unmarshal old_data: %w", caller, err)
		}
		if err := unmarshalSnapshot(after, &rec.After); err != nil {
			return nil, fmt.Errorf("%s: unmarshal new_data: %w", caller, err)
		}
		recs = append(recs, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: rows: %w: %w", caller, domain.ErrPersistence, err)
	}

	return recs, nil
}

func unmarshalSnapshot(b []byte, dst *domain.Snapshot) error {
	if len(b) == 0 {
		return nil
	}
	if err := json.Unmarshal(b, dst); err != nil {
		return errors.Join(domain.ErrPersistence, err)
	}
	return nil
}
