package authz

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/gosuda/escrow-admin/internal/domain"
)

// Decision is the outcome of an authorization check.
type Decision int

const (
	Deny Decision = iota
	Allow
)

func (d Decision) String() string {
	if d == Allow {
		return "allow"
	}
	return "deny"
}

// Guard answers whether an actor may use a permission. The actor's role is
// resolved from storage on every call; the top-level role is allowed for
// every permission, including ones added to the catalog later.
type Guard struct {
	catalog *Catalog
	actors  domain.ActorLookup
}

func NewGuard(catalog *Catalog, actors domain.ActorLookup) *Guard {
	return &Guard{catalog: catalog, actors: actors}
}

// Authorize fails closed: a lookup error or an unknown role is a deny.
func (g *Guard) Authorize(ctx context.Context, actorID uuid.UUID, perm domain.Permission) Decision {
	_, d := g.decide(ctx, actorID, perm)
	return d
}

// RequirePermission returns the resolved actor when allowed, and an error
// wrapping domain.ErrForbidden otherwise.
func (g *Guard) RequirePermission(ctx context.Context, actorID uuid.UUID, perm domain.Permission) (domain.Actor, error) {
	actor, d := g.decide(ctx, actorID, perm)
	if d == Allow {
		return actor, nil
	}

	log.Warn().
		Str("actor_id", actorID.String()).
		Str("role", string(actor.Role)).
		Str("permission", string(perm)).
		Msg("authz: permission denied")

	return domain.Actor{}, fmt.Errorf("authz.RequirePermission: actor %s lacks %s: %w", actorID, perm, domain.ErrForbidden)
}

func (g *Guard) decide(ctx context.Context, actorID uuid.UUID, perm domain.Permission) (domain.Actor, Decision) {
	if actorID == uuid.Nil {
		return domain.Actor{}, Deny
	}

	role, err := g.actors.RoleOf(ctx, actorID)
	if err != nil {
		log.Debug().Err(err).Str("actor_id", actorID.String()).Msg("authz: role lookup failed")
		return domain.Actor{ID: actorID}, Deny
	}

	actor := domain.Actor{ID: actorID, Role: role}
	if role == g.catalog.TopRole() {
		return actor, Allow
	}
	if g.catalog.RoleHasPermission(role, perm) {
		return actor, Allow
	}
	return actor, Deny
}
