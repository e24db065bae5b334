package v1

import (
	"context"

	"github.com/google/uuid"

	"github.com/gosuda/escrow-admin/internal/admin"
	"github.com/gosuda/escrow-admin/internal/domain"
)

// AdminService abstracts privileged actions for handler testing.
// *admin.Service satisfies this interface.
type AdminService interface {
	GetEntity(ctx context.Context, req admin.Request) (domain.Snapshot, error)
	UpdateEntity(ctx context.Context, req admin.Request, f domain.Fields) (*admin.Result, error)
	DeleteEntity(ctx context.Context, req admin.Request) (*admin.Result, error)
	TransitionTransaction(ctx context.Context, req admin.Request, action domain.TransactionAction) (*admin.Result, error)
	CancelTransaction(ctx context.Context, req admin.Request) (*admin.Result, error)
	PartyTransition(ctx context.Context, req admin.Request, action domain.TransactionAction) (*admin.Result, error)
	JoinTransaction(ctx context.Context, req admin.Request) (*admin.Result, error)
	CreateTransaction(ctx context.Context, req admin.Request, in admin.NewTransactionInput) (*admin.Result, error)
	SetAccountRole(ctx context.Context, req admin.Request, role domain.Role) (*admin.Result, error)
	DeactivateAccount(ctx context.Context, req admin.Request) (*admin.Result, error)
}

// AuditReader abstracts the audit ledger read side.
// *audit.Log satisfies this interface.
type AuditReader interface {
	Get(ctx context.Context, id uuid.UUID) (*domain.AuditRecord, error)
	ListByEntity(ctx context.Context, kind domain.EntityKind, entityID uuid.UUID, limit int) ([]*domain.AuditRecord, error)
	List(ctx context.Context, limit, offset int) ([]*domain.AuditRecord, error)
}

// PermissionChecker abstracts the authorization guard.
// *authz.Guard satisfies this interface.
type PermissionChecker interface {
	RequirePermission(ctx context.Context, actorID uuid.UUID, perm domain.Permission) (domain.Actor, error)
}
