package domain

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// Role is a named bundle of permissions assigned to an account.
type Role string

const (
	// RoleSuperAdmin is recognised for compatibility with existing rows but is
	// never assigned and carries no permissions. RoleAdmin is the top-level role.
	RoleSuperAdmin Role = "superAdmin"
	RoleAdmin      Role = "admin"
	RoleModerator  Role = "moderator"
	RoleUser       Role = "user"
)

// Valid reports whether r is a known role identifier.
func (r Role) Valid() bool {
	switch r {
	case RoleSuperAdmin, RoleAdmin, RoleModerator, RoleUser:
		return true
	default:
		return false
	}
}

// Assignable reports whether r may be written to an account. The superAdmin
// tier is only read back from existing rows.
func (r Role) Assignable() bool {
	return r.Valid() && r != RoleSuperAdmin
}

// ParseAssignableRole validates a role supplied as an update target.
func ParseAssignableRole(s string) (Role, error) {
	r := Role(s)
	if !r.Assignable() {
		return "", fmt.Errorf("role %q cannot be assigned: %w", s, ErrInvalidInput)
	}
	return r, nil
}

// Permission names an allowed action on a resource, e.g. "edit_transactions".
type Permission string

const (
	PermViewUsers               Permission = "view_users"
	PermEditUsers               Permission = "edit_users"
	PermManageRoles             Permission = "manage_roles"
	PermDeactivateUsers         Permission = "deactivate_users"
	PermViewTransactions        Permission = "view_transactions"
	PermCreateTransactions      Permission = "create_transactions"
	PermEditTransactions        Permission = "edit_transactions"
	PermDeleteTransactions      Permission = "delete_transactions"
	PermParticipateTransactions Permission = "participate_transactions"
	PermViewDisputes            Permission = "view_disputes"
	PermResolveDisputes         Permission = "resolve_disputes"
	PermManageVerification      Permission = "manage_verification"
	PermViewAuditLogs           Permission = "view_audit_logs"
	PermManageContent           Permission = "manage_content"
)

// Actor is the identity performing a request, with its role resolved from
// storage for the lifetime of that request.
type Actor struct {
	ID   uuid.UUID
	Role Role
}

// ActorLookup resolves the stored role of an actor.
type ActorLookup interface {
	RoleOf(ctx context.Context, actorID uuid.UUID) (Role, error)
}
