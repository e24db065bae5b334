package v1

import (
	"context"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/gosuda/escrow-admin/internal/admin"
	"github.com/gosuda/escrow-admin/internal/domain"
	"github.com/gosuda/escrow-admin/internal/server/middleware"
)

// actionError maps a domain failure onto an HTTP problem. The error kind is
// always the first word of the detail so clients can branch on it.
func actionError(err error) error {
	kind := domain.KindOf(err)
	msg := string(kind) + ": " + err.Error()

	switch kind {
	case domain.KindUnauthenticated:
		return huma.Error401Unauthorized(string(kind))
	case domain.KindAuthorizationDenied:
		return huma.Error403Forbidden(msg)
	case domain.KindSelfActionForbidden:
		return huma.Error403Forbidden(msg)
	case domain.KindNotFound:
		return huma.Error404NotFound(string(kind))
	case domain.KindInvalidTransition, domain.KindInvalidInput:
		return huma.Error400BadRequest(msg)
	default:
		log.Error().Err(err).Str("kind", string(kind)).Msg("api: action failed")
		return huma.Error500InternalServerError(string(kind))
	}
}

// actorRequest builds an admin request for the authenticated actor.
func actorRequest(ctx context.Context, kind domain.EntityKind, id uuid.UUID) (admin.Request, error) {
	actorID, ok := middleware.ActorIDFromContext(ctx)
	if !ok || actorID == uuid.Nil {
		return admin.Request{}, huma.Error401Unauthorized(string(domain.KindUnauthenticated))
	}
	return admin.Request{
		ActorID:  actorID,
		Kind:     kind,
		EntityID: id,
		Origin:   middleware.OriginFromContext(ctx),
	}, nil
}

// ActionResult is the body returned by every mutating operation.
type ActionResult struct {
	Entity  domain.Snapshot `json:"entity" doc:"Entity state after the action; null when removed"`
	AuditID *uuid.UUID      `json:"audit_id,omitempty" doc:"Audit record written for the action"`
	Warning string          `json:"warning,omitempty" doc:"Set when the change was saved but could not be audited"`
}

type ActionOutput struct {
	Body ActionResult
}

func actionOutput(res *admin.Result) *ActionOutput {
	out := &ActionOutput{Body: ActionResult{Entity: res.Entity}}
	if res.AuditID != uuid.Nil {
		id := res.AuditID
		out.Body.AuditID = &id
	}
	if res.Warning != nil {
		out.Body.Warning = string(domain.KindAuditWriteFailure)
	}
	return out
}
