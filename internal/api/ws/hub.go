// Package ws streams audit records to operators as they are appended.
package ws

import (
	"context"
	"net/http"

	"github.com/coder/websocket"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/gosuda/escrow-admin/internal/domain"
	redisstore "github.com/gosuda/escrow-admin/internal/store/redis"
)

// Subscriber is the subscribe side of the pub/sub backend.
// *redisstore.PubSub satisfies this interface.
type Subscriber interface {
	Subscribe(ctx context.Context, channel string) (<-chan []byte, func(), error)
	SubscribePattern(ctx context.Context, pattern string) (<-chan []byte, func(), error)
}

type subscribeFunc func(ctx context.Context, name string) (<-chan []byte, func(), error)

// Hub manages WebSocket connections backed by Redis pub/sub.
type Hub struct {
	pubsub Subscriber
}

// NewHub creates a new WebSocket hub.
func NewHub(pubsub Subscriber) *Hub {
	return &Hub{pubsub: pubsub}
}

// ServeAudit streams every audit record. Subscribes to "audit:records".
func (h *Hub) ServeAudit(w http.ResponseWriter, r *http.Request) {
	h.stream(w, r, h.pubsub.Subscribe, redisstore.AuditChannel())
}

// ServeKind streams audit records for every entity of one kind. Subscribes to
// "audit:<kind>:*".
func (h *Hub) ServeKind(w http.ResponseWriter, r *http.Request) {
	kind, err := domain.ParseEntityKind(chi.URLParam(r, "kind"))
	if err != nil {
		http.Error(w, "invalid entity kind", http.StatusBadRequest)
		return
	}

	h.stream(w, r, h.pubsub.SubscribePattern, redisstore.KindAuditPattern(string(kind)))
}

// ServeEntity streams audit records for one entity. Subscribes to
// "audit:<kind>:<id>".
func (h *Hub) ServeEntity(w http.ResponseWriter, r *http.Request) {
	kind, err := domain.ParseEntityKind(chi.URLParam(r, "kind"))
	if err != nil {
		http.Error(w, "invalid entity kind", http.StatusBadRequest)
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid entity id", http.StatusBadRequest)
		return
	}

	h.stream(w, r, h.pubsub.Subscribe, redisstore.EntityAuditChannel(string(kind), id))
}

func (h *Hub) stream(w http.ResponseWriter, r *http.Request, subscribe subscribeFunc, channel string) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("websocket accept")
		return
	}
	defer conn.CloseNow()

	// The feed is one-way; CloseRead handles control frames and cancels ctx
	// when the client goes away.
	ctx := conn.CloseRead(r.Context())

	messages, cleanup, err := subscribe(ctx, channel)
	if err != nil {
		log.Error().Err(err).Str("channel", channel).Msg("websocket subscribe")
		_ = conn.Close(websocket.StatusInternalError, "subscribe failed")
		return
	}
	defer cleanup()

	for {
		select {
		case <-ctx.Done():
			_ = conn.Close(websocket.StatusNormalClosure, "connection closed")
			return
		case msg, msgOK := <-messages:
			if !msgOK {
				_ = conn.Close(websocket.StatusNormalClosure, "channel closed")
				return
			}
			if writeErr := conn.Write(ctx, websocket.MessageText, msg); writeErr != nil {
				log.Debug().Err(writeErr).Msg("websocket write")
				return
			}
		}
	}
}
