package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/gosuda/escrow-admin/internal/domain"
)

// PermissionChecker is satisfied by authz.Guard.
type PermissionChecker interface {
	RequirePermission(ctx context.Context, actorID uuid.UUID, perm domain.Permission) (domain.Actor, error)
}

// RequirePermission returns middleware that lets the request through only when
// the authenticated actor holds perm. It must be chained after Auth.
//
// Returns 401 Unauthorized when no actor is found in context and 403 Forbidden
// when the guard denies the permission.
func RequirePermission(guard PermissionChecker, perm domain.Permission) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actorID, ok := ActorIDFromContext(r.Context())
			if !ok || actorID == uuid.Nil {
				http.Error(w, `{"title":"Unauthorized","status":401,"detail":"authentication required"}`, http.StatusUnauthorized)
				return
			}

			if _, err := guard.RequirePermission(r.Context(), actorID, perm); err != nil {
				http.Error(w, `{"title":"Forbidden","status":403,"detail":"insufficient permissions"}`, http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
