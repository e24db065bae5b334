package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Origin describes where a privileged request came from.
type Origin struct {
	IPAddress string `json:"ip_address,omitempty"`
	UserAgent string `json:"user_agent,omitempty"`
}

// AuditRecord is an append-only ledger entry for one privileged mutation.
// Before is nil for creations and After is nil for deletions.
type AuditRecord struct {
	ID          uuid.UUID  `json:"id"`
	Action      string     `json:"action"`
	EntityKind  EntityKind `json:"entity_type"`
	EntityID    *uuid.UUID `json:"entity_id"`
	Before      Snapshot   `json:"old_data"`
	After       Snapshot   `json:"new_data"`
	PerformedBy uuid.UUID  `json:"performed_by"`
	Origin      Origin     `json:"origin"`
	Digest      string     `json:"digest"`
	CreatedAt   time.Time  `json:"created_at"`
}

// AuditRepository persists audit records. There is no update or delete.
type AuditRepository interface {
	Append(ctx context.Context, rec *AuditRecord) error
	GetByID(ctx context.Context, id uuid.UUID) (*AuditRecord, error)
	ListByEntity(ctx context.Context, kind EntityKind, entityID uuid.UUID, limit int) ([]*AuditRecord, error)
	List(ctx context.Context, limit, offset int) ([]*AuditRecord, error)
}

// RowRepository gives pass-through single-row access to tables that carry no
// business rules beyond the entity allow-list.
type RowRepository interface {
	Get(ctx context.Context, id uuid.UUID) (Snapshot, error)
	UpdateFields(ctx context.Context, id uuid.UUID, f Fields) (Snapshot, error)
	Delete(ctx context.Context, id uuid.UUID) error
}
