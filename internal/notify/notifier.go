package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/gosuda/escrow-admin/internal/domain"
)

// EventKind classifies operator alerts.
type EventKind string

const (
	EventAuditDegraded   EventKind = "audit_degraded"
	EventDisputeRaised   EventKind = "dispute_raised"
	EventDisputeResolved EventKind = "dispute_resolved"
)

// Event is an operator-facing alert about a completed action.
type Event struct {
	Kind       EventKind
	Action     string
	EntityKind domain.EntityKind
	EntityID   uuid.UUID
	ActorID    uuid.UUID
	Detail     string
}

// Text renders the event as a single plain-text line.
func (e Event) Text() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s on %s/%s by %s", e.Kind, e.Action, e.EntityKind, e.EntityID, e.ActorID)
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	return b.String()
}

// Sink delivers alert text to one destination.
type Sink interface {
	Send(ctx context.Context, text string) error
	Name() string
}

// Notifier dispatches alerts to every configured sink.
type Notifier struct {
	sinks []Sink
}

func New(sinks ...Sink) *Notifier {
	return &Notifier{sinks: sinks}
}

// Notify sends ev to all sinks and returns the joined delivery errors. With no
// sinks configured the event is only logged.
func (n *Notifier) Notify(ctx context.Context, ev Event) error {
	text := ev.Text()
	if len(n.sinks) == 0 {
		log.Info().Str("event", string(ev.Kind)).Msg("notify: " + text)
		return nil
	}

	var errs []error
	for _, s := range n.sinks {
		if err := s.Send(ctx, text); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("notify.Notifier.Notify: %w", errors.Join(errs...))
	}
	return nil
}
