package admin

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/gosuda/escrow-admin/internal/domain"
)

// Op is the kind of access a request makes to an entity.
type Op int

const (
	OpRead Op = iota
	OpUpdate
	OpDelete
)

// Entity is anything that can be captured as a snapshot.
type Entity interface {
	Snapshot() domain.Snapshot
}

// Policy is the per-kind strategy the Service drives. It names the
// permissions an operation needs, validates proposed changes against the
// current state, and performs the single-row write.
type Policy interface {
	Kind() domain.EntityKind
	// Required lists the permissions for op with the given input. It returns
	// an error wrapping domain.ErrInvalidInput when the kind refuses op.
	Required(op Op, f domain.Fields) ([]domain.Permission, error)
	Load(ctx context.Context, id uuid.UUID) (Entity, error)
	PlanUpdate(actor domain.Actor, current Entity, f domain.Fields) (domain.Fields, error)
	// PlanDelete returns the field update that stands in for a deletion, or
	// nil when the row is removed.
	PlanDelete(actor domain.Actor, current Entity) (domain.Fields, error)
	Update(ctx context.Context, id uuid.UUID, f domain.Fields) (Entity, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// ---------------------------------------------------------------------------
// Accounts
// ---------------------------------------------------------------------------

// AccountPolicy governs profiles. Deleting a profile deactivates it.
type AccountPolicy struct {
	repo    domain.AccountRepository
	topRole domain.Role
}

func NewAccountPolicy(repo domain.AccountRepository, topRole domain.Role) *AccountPolicy {
	return &AccountPolicy{repo: repo, topRole: topRole}
}

func (p *AccountPolicy) Kind() domain.EntityKind { return domain.KindProfiles }

func (p *AccountPolicy) Required(op Op, f domain.Fields) ([]domain.Permission, error) {
	switch op {
	case OpRead:
		return []domain.Permission{domain.PermViewUsers}, nil
	case OpDelete:
		return []domain.Permission{domain.PermDeactivateUsers}, nil
	}

	perms := []domain.Permission{domain.PermEditUsers}
	if _, ok := f[domain.FieldRole]; ok {
		perms = append(perms, domain.PermManageRoles)
	}
	if _, ok := f[domain.FieldStatus]; ok {
		perms = append(perms, domain.PermDeactivateUsers)
	}
	return perms, nil
}

func (p *AccountPolicy) Load(ctx context.Context, id uuid.UUID) (Entity, error) {
	return p.repo.GetByID(ctx, id)
}

func (p *AccountPolicy) PlanUpdate(actor domain.Actor, current Entity, f domain.Fields) (domain.Fields, error) {
	target, ok := current.(*domain.Account)
	if !ok {
		return nil, fmt.Errorf("admin.AccountPolicy: unexpected entity %T", current)
	}

	out, err := domain.NormalizeAccountFields(f)
	if err != nil {
		return nil, err
	}
	if err := domain.CheckSelfAction(actor, target, out); err != nil {
		return nil, err
	}
	if role, ok := out[domain.FieldRole].(domain.Role); ok && role == p.topRole && actor.Role != p.topRole {
		return nil, fmt.Errorf("only %s may grant the %s role: %w", p.topRole, role, domain.ErrForbidden)
	}
	return out, nil
}

func (p *AccountPolicy) PlanDelete(actor domain.Actor, current Entity) (domain.Fields, error) {
	return p.PlanUpdate(actor, current, domain.Fields{domain.FieldStatus: string(domain.AccountStatusInactive)})
}

func (p *AccountPolicy) Update(ctx context.Context, id uuid.UUID, f domain.Fields) (Entity, error) {
	return p.repo.UpdateFields(ctx, id, f)
}

func (p *AccountPolicy) Delete(_ context.Context, _ uuid.UUID) error {
	return fmt.Errorf("profiles are never removed: %w", domain.ErrInvalidInput)
}

// ---------------------------------------------------------------------------
// Escrow transactions
// ---------------------------------------------------------------------------

// TransactionPolicy governs one of the transaction tables.
type TransactionPolicy struct {
	kind domain.EntityKind
	repo domain.TransactionRepository
}

func NewTransactionPolicy(kind domain.EntityKind, repo domain.TransactionRepository) *TransactionPolicy {
	return &TransactionPolicy{kind: kind, repo: repo}
}

func (p *TransactionPolicy) Kind() domain.EntityKind { return p.kind }

func (p *TransactionPolicy) Required(op Op, _ domain.Fields) ([]domain.Permission, error) {
	switch op {
	case OpRead:
		return []domain.Permission{domain.PermViewTransactions}, nil
	case OpDelete:
		return []domain.Permission{domain.PermDeleteTransactions}, nil
	default:
		return []domain.Permission{domain.PermEditTransactions}, nil
	}
}

func (p *TransactionPolicy) Load(ctx context.Context, id uuid.UUID) (Entity, error) {
	return p.repo.GetByID(ctx, id)
}

func (p *TransactionPolicy) PlanUpdate(actor domain.Actor, current Entity, f domain.Fields) (domain.Fields, error) {
	tx, err := asTransaction(current)
	if err != nil {
		return nil, err
	}
	return domain.PlanTransactionEdit(tx, f, actor.Role)
}

// PlanDelete only lets rows go that hold no money: pending or cancelled.
func (p *TransactionPolicy) PlanDelete(_ domain.Actor, current Entity) (domain.Fields, error) {
	tx, err := asTransaction(current)
	if err != nil {
		return nil, err
	}
	if tx.Status != domain.TxStatusPending && tx.Status != domain.TxStatusCancelled {
		return nil, fmt.Errorf("cannot delete a %s transaction: %w", tx.Status, domain.ErrInvalidTransition)
	}
	return nil, nil
}

func (p *TransactionPolicy) Update(ctx context.Context, id uuid.UUID, f domain.Fields) (Entity, error) {
	return p.repo.UpdateFields(ctx, id, f)
}

func (p *TransactionPolicy) Delete(ctx context.Context, id uuid.UUID) error {
	return p.repo.Delete(ctx, id)
}

func (p *TransactionPolicy) Create(ctx context.Context, tx *domain.Transaction) error {
	return p.repo.Create(ctx, tx)
}

func asTransaction(e Entity) (*domain.Transaction, error) {
	tx, ok := e.(*domain.Transaction)
	if !ok {
		return nil, fmt.Errorf("admin.TransactionPolicy: unexpected entity %T", e)
	}
	return tx, nil
}

// ---------------------------------------------------------------------------
// Pass-through rows
// ---------------------------------------------------------------------------

type row domain.Snapshot

func (r row) Snapshot() domain.Snapshot { return domain.Snapshot(r) }

// RowPolicy governs tables with no rules beyond the allow-list and a single
// permission for reads and writes.
type RowPolicy struct {
	kind domain.EntityKind
	repo domain.RowRepository
	read domain.Permission
	edit domain.Permission
}

func NewRowPolicy(kind domain.EntityKind, repo domain.RowRepository, read, edit domain.Permission) *RowPolicy {
	return &RowPolicy{kind: kind, repo: repo, read: read, edit: edit}
}

func (p *RowPolicy) Kind() domain.EntityKind { return p.kind }

func (p *RowPolicy) Required(op Op, _ domain.Fields) ([]domain.Permission, error) {
	if op == OpRead {
		return []domain.Permission{p.read}, nil
	}
	return []domain.Permission{p.edit}, nil
}

func (p *RowPolicy) Load(ctx context.Context, id uuid.UUID) (Entity, error) {
	snap, err := p.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return row(snap), nil
}

func (p *RowPolicy) PlanUpdate(_ domain.Actor, _ Entity, f domain.Fields) (domain.Fields, error) {
	if err := domain.CheckRowColumns(p.kind, f); err != nil {
		return nil, err
	}
	return f, nil
}

func (p *RowPolicy) PlanDelete(_ domain.Actor, _ Entity) (domain.Fields, error) {
	return nil, nil
}

func (p *RowPolicy) Update(ctx context.Context, id uuid.UUID, f domain.Fields) (Entity, error) {
	snap, err := p.repo.UpdateFields(ctx, id, f)
	if err != nil {
		return nil, err
	}
	return row(snap), nil
}

func (p *RowPolicy) Delete(ctx context.Context, id uuid.UUID) error {
	return p.repo.Delete(ctx, id)
}

// ---------------------------------------------------------------------------
// Audit ledger
// ---------------------------------------------------------------------------

// AuditReader is the read side of the audit ledger.
type AuditReader interface {
	Get(ctx context.Context, id uuid.UUID) (*domain.AuditRecord, error)
}

type auditEntity struct{ *domain.AuditRecord }

func (a auditEntity) Snapshot() domain.Snapshot {
	var entityID any
	if a.EntityID != nil {
		entityID = a.EntityID.String()
	}
	return domain.Snapshot{
		domain.FieldID:        a.ID.String(),
		"action":              a.Action,
		"entity_type":         string(a.EntityKind),
		"entity_id":           entityID,
		"old_data":            map[string]any(a.Before),
		"new_data":            map[string]any(a.After),
		"performed_by":        a.PerformedBy.String(),
		"ip_address":          a.Origin.IPAddress,
		"user_agent":          a.Origin.UserAgent,
		"digest":              a.Digest,
		domain.FieldCreatedAt: a.CreatedAt,
	}
}

// AuditPolicy exposes audit_logs for reading only.
type AuditPolicy struct {
	reader AuditReader
}

func NewAuditPolicy(reader AuditReader) *AuditPolicy {
	return &AuditPolicy{reader: reader}
}

func (p *AuditPolicy) Kind() domain.EntityKind { return domain.KindAuditLogs }

func (p *AuditPolicy) Required(op Op, _ domain.Fields) ([]domain.Permission, error) {
	if op != OpRead {
		return nil, fmt.Errorf("audit_logs is append-only: %w", domain.ErrInvalidInput)
	}
	return []domain.Permission{domain.PermViewAuditLogs}, nil
}

func (p *AuditPolicy) Load(ctx context.Context, id uuid.UUID) (Entity, error) {
	rec, err := p.reader.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return auditEntity{rec}, nil
}

func (p *AuditPolicy) PlanUpdate(domain.Actor, Entity, domain.Fields) (domain.Fields, error) {
	return nil, fmt.Errorf("audit_logs is append-only: %w", domain.ErrInvalidInput)
}

func (p *AuditPolicy) PlanDelete(domain.Actor, Entity) (domain.Fields, error) {
	return nil, fmt.Errorf("audit_logs is append-only: %w", domain.ErrInvalidInput)
}

func (p *AuditPolicy) Update(context.Context, uuid.UUID, domain.Fields) (Entity, error) {
	return nil, fmt.Errorf("audit_logs is append-only: %w", domain.ErrInvalidInput)
}

func (p *AuditPolicy) Delete(context.Context, uuid.UUID) error {
	return fmt.Errorf("audit_logs is append-only: %w", domain.ErrInvalidInput)
}
