package domain

import (
	"fmt"
	"slices"
	"time"
)

// EntityKind identifies a table that administrative actions may target.
type EntityKind string

const (
	KindProfiles           EntityKind = "profiles"
	KindTransactions       EntityKind = "transactions"
	KindEscrowTransactions EntityKind = "escrow_transactions"
	KindDisputes           EntityKind = "disputes"
	KindAuditLogs          EntityKind = "audit_logs"
	KindVerificationQueue  EntityKind = "verification_queue"
)

// ParseEntityKind checks s against the fixed allow-list.
func ParseEntityKind(s string) (EntityKind, error) {
	switch k := EntityKind(s); k {
	case KindProfiles, KindTransactions, KindEscrowTransactions,
		KindDisputes, KindAuditLogs, KindVerificationQueue:
		return k, nil
	default:
		return "", fmt.Errorf("entity kind %q: %w", s, ErrInvalidInput)
	}
}

// IsTransaction reports whether k holds escrow transactions.
func (k EntityKind) IsTransaction() bool {
	return k == KindTransactions || k == KindEscrowTransactions
}

// RowColumns lists the editable columns of a pass-through table. It returns
// nil for kinds with their own models.
func RowColumns(k EntityKind) []string {
	switch k {
	case KindDisputes:
		return []string{"transaction_id", "raised_by", "reason", "status", "resolution"}
	case KindVerificationQueue:
		return []string{"profile_id", "document_url", "status", "notes"}
	default:
		return nil
	}
}

// CheckRowColumns rejects fields that are not editable columns of k.
func CheckRowColumns(k EntityKind, f Fields) error {
	cols := RowColumns(k)
	for name := range f {
		if !slices.Contains(cols, name) {
			return fmt.Errorf("field %q is not editable on %s: %w", name, k, ErrInvalidInput)
		}
	}
	return nil
}

// Snapshot is the structured state of an entity as returned to callers and
// recorded in the audit ledger.
type Snapshot map[string]any

// Fields is a proposed partial update keyed by column name.
type Fields map[string]any

// System-owned columns.
const (
	FieldID        = "id"
	FieldCreatedAt = "created_at"
	FieldUpdatedAt = "updated_at"
)

// StripSystemFields returns a copy of f without id, created_at and updated_at.
func StripSystemFields(f Fields) Fields {
	out := make(Fields, len(f))
	for k, v := range f {
		switch k {
		case FieldID, FieldCreatedAt, FieldUpdatedAt:
			continue
		}
		out[k] = v
	}
	return out
}

// Stamp sets updated_at on f.
func (f Fields) Stamp(now time.Time) Fields {
	f[FieldUpdatedAt] = now
	return f
}
