package middleware

import (
	"context"

	"github.com/google/uuid"

	"github.com/gosuda/escrow-admin/internal/domain"
)

type contextKey string

const (
	ContextKeyActorID contextKey = "actor_id"
	ContextKeyOrigin  contextKey = "origin"
)

func ActorIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	v, ok := ctx.Value(ContextKeyActorID).(uuid.UUID)
	return v, ok
}

func OriginFromContext(ctx context.Context) domain.Origin {
	v, _ := ctx.Value(ContextKeyOrigin).(domain.Origin)
	return v
}

// WithActorID returns a copy of ctx carrying the authenticated actor.
func WithActorID(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, ContextKeyActorID, id)
}
