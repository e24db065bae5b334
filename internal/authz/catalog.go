package authz

import (
	"maps"
	"slices"

	"github.com/gosuda/escrow-admin/internal/domain"
)

// Catalog maps roles to their ordered permission sets. It is built once at
// startup and never mutated; unknown roles have no permissions.
type Catalog struct {
	top   domain.Role
	roles map[domain.Role][]domain.Permission
	index map[domain.Role]map[domain.Permission]struct{}
}

// NewCatalog copies entries into an immutable catalog. top names the role
// that the Guard allows unconditionally; it needs no entry of its own.
func NewCatalog(top domain.Role, entries map[domain.Role][]domain.Permission) *Catalog {
	c := &Catalog{
		top:   top,
		roles: make(map[domain.Role][]domain.Permission, len(entries)),
		index: make(map[domain.Role]map[domain.Permission]struct{}, len(entries)),
	}
	for role, perms := range entries {
		set := make(map[domain.Permission]struct{}, len(perms))
		ordered := make([]domain.Permission, 0, len(perms))
		for _, p := range perms {
			if _, dup := set[p]; dup {
				continue
			}
			set[p] = struct{}{}
			ordered = append(ordered, p)
		}
		c.roles[role] = ordered
		c.index[role] = set
	}
	return c
}

// DefaultCatalog returns the marketplace role table. The admin role is the
// top-level role and is deliberately absent from the table.
func DefaultCatalog() *Catalog {
	return NewCatalog(domain.RoleAdmin, map[domain.Role][]domain.Permission{
		domain.RoleModerator: {
			domain.PermViewUsers,
			domain.PermViewTransactions,
			domain.PermEditTransactions,
			domain.PermViewDisputes,
			domain.PermResolveDisputes,
			domain.PermManageVerification,
			domain.PermViewAuditLogs,
			domain.PermManageContent,
		},
		domain.RoleUser: {
			domain.PermCreateTransactions,
			domain.PermParticipateTransactions,
		},
	})
}

// TopRole returns the role that bypasses the catalog.
func (c *Catalog) TopRole() domain.Role {
	return c.top
}

// PermissionsFor returns a copy of role's permissions in catalog order.
func (c *Catalog) PermissionsFor(role domain.Role) []domain.Permission {
	return slices.Clone(c.roles[role])
}

// RoleHasPermission reports whether role's catalog entry contains perm.
func (c *Catalog) RoleHasPermission(role domain.Role, perm domain.Permission) bool {
	_, ok := c.index[role][perm]
	return ok
}

// Roles lists the roles with a catalog entry, sorted.
func (c *Catalog) Roles() []domain.Role {
	return slices.Sorted(maps.Keys(c.roles))
}
