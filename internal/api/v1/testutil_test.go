package v1_test

import (
	"context"

	"github.com/google/uuid"

	"github.com/gosuda/escrow-admin/internal/admin"
	"github.com/gosuda/escrow-admin/internal/domain"
	"github.com/gosuda/escrow-admin/internal/server/middleware"
)

// ---------------------------------------------------------------------------
// Context helpers: inject the actor and origin for DoCtx
// ---------------------------------------------------------------------------

func actorCtx(actorID uuid.UUID) context.Context {
	ctx := middleware.WithActorID(context.Background(), actorID)
	return context.WithValue(ctx, middleware.ContextKeyOrigin, domain.Origin{IPAddress: "192.0.2.10", UserAgent: "humatest"})
}

// ---------------------------------------------------------------------------
// Mock AdminService
// ---------------------------------------------------------------------------

type mockAdminService struct {
	getEntityFunc             func(ctx context.Context, req admin.Request) (domain.Snapshot, error)
	updateEntityFunc          func(ctx context.Context, req admin.Request, f domain.Fields) (*admin.Result, error)
	deleteEntityFunc          func(ctx context.Context, req admin.Request) (*admin.Result, error)
	transitionTransactionFunc func(ctx context.Context, req admin.Request, action domain.TransactionAction) (*admin.Result, error)
	cancelTransactionFunc     func(ctx context.Context, req admin.Request) (*admin.Result, error)
	partyTransitionFunc       func(ctx context.Context, req admin.Request, action domain.TransactionAction) (*admin.Result, error)
	joinTransactionFunc       func(ctx context.Context, req admin.Request) (*admin.Result, error)
	createTransactionFunc     func(ctx context.Context, req admin.Request, in admin.NewTransactionInput) (*admin.Result, error)
	setAccountRoleFunc        func(ctx context.Context, req admin.Request, role domain.Role) (*admin.Result, error)
	deactivateAccountFunc     func(ctx context.Context, req admin.Request) (*admin.Result, error)
}

func (m *mockAdminService) GetEntity(ctx context.Context, req admin.Request) (domain.Snapshot, error) {
	return m.getEntityFunc(ctx, req)
}

func (m *mockAdminService) UpdateEntity(ctx context.Context, req admin.Request, f domain.Fields) (*admin.Result, error) {
	return m.updateEntityFunc(ctx, req, f)
}

func (m *mockAdminService) DeleteEntity(ctx context.Context, req admin.Request) (*admin.Result, error) {
	return m.deleteEntityFunc(ctx, req)
}

func (m *mockAdminService) TransitionTransaction(ctx context.Context, req admin.Request, action domain.TransactionAction) (*admin.Result, error) {
	return m.transitionTransactionFunc(ctx, req, action)
}

func (m *mockAdminService) CancelTransaction(ctx context.Context, req admin.Request) (*admin.Result, error) {
	return m.cancelTransactionFunc(ctx, req)
}

func (m *mockAdminService) PartyTransition(ctx context.Context, req admin.Request, action domain.TransactionAction) (*admin.Result, error) {
	return m.partyTransitionFunc(ctx, req, action)
}

func (m *mockAdminService) JoinTransaction(ctx context.Context, req admin.Request) (*admin.Result, error) {
	return m.joinTransactionFunc(ctx, req)
}

func (m *mockAdminService) CreateTransaction(ctx context.Context, req admin.Request, in admin.NewTransactionInput) (*admin.Result, error) {
	return m.createTransactionFunc(ctx, req, in)
}

func (m *mockAdminService) SetAccountRole(ctx context.Context, req admin.Request, role domain.Role) (*admin.Result, error) {
	return m.setAccountRoleFunc(ctx, req, role)
}

func (m *mockAdminService) DeactivateAccount(ctx context.Context, req admin.Request) (*admin.Result, error) {
	return m.deactivateAccountFunc(ctx, req)
}

// ---------------------------------------------------------------------------
// Mock AuditReader
// ---------------------------------------------------------------------------

type mockAuditReader struct {
	getFunc          func(ctx context.Context, id uuid.UUID) (*domain.AuditRecord, error)
	listByEntityFunc func(ctx context.Context, kind domain.EntityKind, entityID uuid.UUID, limit int) ([]*domain.AuditRecord, error)
	listFunc         func(ctx context.Context, limit, offset int) ([]*domain.AuditRecord, error)
}

func (m *mockAuditReader) Get(ctx context.Context, id uuid.UUID) (*domain.AuditRecord, error) {
	return m.getFunc(ctx, id)
}

func (m *mockAuditReader) ListByEntity(ctx context.Context, kind domain.EntityKind, entityID uuid.UUID, limit int) ([]*domain.AuditRecord, error) {
	return m.listByEntityFunc(ctx, kind, entityID, limit)
}

func (m *mockAuditReader) List(ctx context.Context, limit, offset int) ([]*domain.AuditRecord, error) {
	return m.listFunc(ctx, limit, offset)
}

// ---------------------------------------------------------------------------
// Mock PermissionChecker
// ---------------------------------------------------------------------------

type mockGuard struct {
	requirePermissionFunc func(ctx context.Context, actorID uuid.UUID, perm domain.Permission) (domain.Actor, error)
}

func (m *mockGuard) RequirePermission(ctx context.Context, actorID uuid.UUID, perm domain.Permission) (domain.Actor, error) {
	return m.requirePermissionFunc(ctx, actorID, perm)
}

func allowAll() *mockGuard {
	return &mockGuard{requirePermissionFunc: func(_ context.Context, id uuid.UUID, _ domain.Permission) (domain.Actor, error) {
		return domain.Actor{ID: id, Role: domain.RoleModerator}, nil
	}}
}

func denyAll() *mockGuard {
	return &mockGuard{requirePermissionFunc: func(_ context.Context, _ uuid.UUID, _ domain.Permission) (domain.Actor, error) {
		return domain.Actor{}, domain.ErrForbidden
	}}
}
