// Package admin carries out privileged actions on marketplace entities. Every
// action is authorized first, validated against the current state, persisted
// as a single-row write, and then recorded in the audit ledger.
//
// Writes are last-writer-wins: the state an action is validated against may be
// stale by the time the row is written, since no version check is made.
package admin

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/gosuda/escrow-admin/internal/domain"
	"github.com/gosuda/escrow-admin/internal/notify"
)

const alertTimeout = 10 * time.Second

// Authorizer resolves an actor and checks a single permission.
type Authorizer interface {
	RequirePermission(ctx context.Context, actorID uuid.UUID, perm domain.Permission) (domain.Actor, error)
}

// AuditAppender writes to the audit ledger.
type AuditAppender interface {
	Append(ctx context.Context, rec *domain.AuditRecord) error
}

// Alerter forwards operational events to humans.
type Alerter interface {
	Notify(ctx context.Context, ev notify.Event) error
}

// Request identifies who acts on which entity, and from where.
type Request struct {
	ActorID  uuid.UUID
	Kind     domain.EntityKind
	EntityID uuid.UUID
	Origin   domain.Origin
}

// Result is the outcome of a successful action. Warning is set, wrapping
// domain.ErrAuditWrite, when the change was persisted but its audit record
// could not be written.
type Result struct {
	Entity  domain.Snapshot
	AuditID uuid.UUID
	Warning error
}

// Service is the admin action service.
type Service struct {
	guard    Authorizer
	audit    AuditAppender
	alerts   Alerter
	policies map[domain.EntityKind]Policy
	now      func() time.Time
}

// NewService builds a Service. alerts may be nil.
func NewService(guard Authorizer, audit AuditAppender, alerts Alerter, policies ...Policy) *Service {
	s := &Service{
		guard:    guard,
		audit:    audit,
		alerts:   alerts,
		policies: make(map[domain.EntityKind]Policy, len(policies)),
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, p := range policies {
		s.policies[p.Kind()] = p
	}
	return s
}

// SetClock overrides the time source used for updated_at stamps.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

func (s *Service) policy(kind domain.EntityKind) (Policy, error) {
	p, ok := s.policies[kind]
	if !ok {
		return nil, fmt.Errorf("entity kind %q is not managed: %w", kind, domain.ErrInvalidInput)
	}
	return p, nil
}

func (s *Service) authorize(ctx context.Context, actorID uuid.UUID, perms []domain.Permission) (domain.Actor, error) {
	if len(perms) == 0 {
		return domain.Actor{}, fmt.Errorf("no permission defined for this action: %w", domain.ErrForbidden)
	}
	var actor domain.Actor
	for _, perm := range perms {
		a, err := s.guard.RequirePermission(ctx, actorID, perm)
		if err != nil {
			return domain.Actor{}, err
		}
		actor = a
	}
	return actor, nil
}

// GetEntity returns the current snapshot of an entity.
func (s *Service) GetEntity(ctx context.Context, req Request) (domain.Snapshot, error) {
	p, err := s.policy(req.Kind)
	if err != nil {
		return nil, err
	}
	perms, err := p.Required(OpRead, nil)
	if err != nil {
		return nil, err
	}
	if _, err := s.authorize(ctx, req.ActorID, perms); err != nil {
		return nil, err
	}
	current, err := p.Load(ctx, req.EntityID)
	if err != nil {
		return nil, err
	}
	return current.Snapshot(), nil
}

// UpdateEntity applies a partial field update. System columns are ignored.
func (s *Service) UpdateEntity(ctx context.Context, req Request, f domain.Fields) (*Result, error) {
	f = domain.StripSystemFields(f)
	p, err := s.policy(req.Kind)
	if err != nil {
		return nil, err
	}
	perms, err := p.Required(OpUpdate, f)
	if err != nil {
		return nil, err
	}
	return s.execute(ctx, req, "update", p, perms, func(actor domain.Actor, current Entity) (*mutation, error) {
		if len(f) == 0 {
			return nil, fmt.Errorf("no editable fields supplied: %w", domain.ErrInvalidInput)
		}
		planned, err := p.PlanUpdate(actor, current, f)
		if err != nil {
			return nil, err
		}
		return &mutation{fields: planned}, nil
	})
}

// DeleteEntity removes an entity, or deactivates it where the kind keeps rows.
func (s *Service) DeleteEntity(ctx context.Context, req Request) (*Result, error) {
	p, err := s.policy(req.Kind)
	if err != nil {
		return nil, err
	}
	perms, err := p.Required(OpDelete, nil)
	if err != nil {
		return nil, err
	}
	return s.execute(ctx, req, "delete", p, perms, func(actor domain.Actor, current Entity) (*mutation, error) {
		soft, err := p.PlanDelete(actor, current)
		if err != nil {
			return nil, err
		}
		if soft != nil {
			return &mutation{fields: soft}, nil
		}
		return &mutation{remove: true}, nil
	})
}

// SetAccountRole changes the role of an account.
func (s *Service) SetAccountRole(ctx context.Context, req Request, role domain.Role) (*Result, error) {
	req.Kind = domain.KindProfiles
	return s.UpdateEntity(ctx, req, domain.Fields{domain.FieldRole: string(role)})
}

// DeactivateAccount marks an account inactive.
func (s *Service) DeactivateAccount(ctx context.Context, req Request) (*Result, error) {
	req.Kind = domain.KindProfiles
	return s.DeleteEntity(ctx, req)
}

// TransitionTransaction drives a transaction through the state machine with
// staff authority. Resolution actions additionally need resolve_disputes.
func (s *Service) TransitionTransaction(ctx context.Context, req Request, action domain.TransactionAction) (*Result, error) {
	p, err := s.transactionPolicy(req.Kind)
	if err != nil {
		return nil, err
	}
	perms := []domain.Permission{domain.PermEditTransactions}
	if action.IsResolution() {
		perms = append(perms, domain.PermResolveDisputes)
	}
	res, err := s.execute(ctx, req, string(action), p, perms, func(actor domain.Actor, current Entity) (*mutation, error) {
		tx, err := asTransaction(current)
		if err != nil {
			return nil, err
		}
		next, err := tx.Next(action, actor.Role)
		if err != nil {
			return nil, err
		}
		return &mutation{fields: domain.Fields{domain.FieldStatus: next}}, nil
	})
	if err == nil {
		s.alertTransition(ctx, req, action)
	}
	return res, err
}

// CancelTransaction cancels a transaction with staff authority.
func (s *Service) CancelTransaction(ctx context.Context, req Request) (*Result, error) {
	return s.TransitionTransaction(ctx, req, domain.ActionCancel)
}

// PartyTransition lets a buyer or seller drive their side of the agreement.
func (s *Service) PartyTransition(ctx context.Context, req Request, action domain.TransactionAction) (*Result, error) {
	p, err := s.transactionPolicy(req.Kind)
	if err != nil {
		return nil, err
	}
	perms := []domain.Permission{domain.PermParticipateTransactions}
	res, err := s.execute(ctx, req, string(action), p, perms, func(actor domain.Actor, current Entity) (*mutation, error) {
		tx, err := asTransaction(current)
		if err != nil {
			return nil, err
		}
		if err := tx.CheckPartyAction(actor.ID, action); err != nil {
			return nil, err
		}
		next, err := tx.Next(action, actor.Role)
		if err != nil {
			return nil, err
		}
		return &mutation{fields: domain.Fields{domain.FieldStatus: next}}, nil
	})
	if err == nil {
		s.alertTransition(ctx, req, action)
	}
	return res, err
}

// JoinTransaction assigns the actor to the open side of a pending transaction.
func (s *Service) JoinTransaction(ctx context.Context, req Request) (*Result, error) {
	p, err := s.transactionPolicy(req.Kind)
	if err != nil {
		return nil, err
	}
	perms := []domain.Permission{domain.PermParticipateTransactions}
	return s.execute(ctx, req, "join", p, perms, func(actor domain.Actor, current Entity) (*mutation, error) {
		tx, err := asTransaction(current)
		if err != nil {
			return nil, err
		}
		f, err := tx.Join(actor.ID)
		if err != nil {
			return nil, err
		}
		return &mutation{fields: f}, nil
	})
}

// NewTransactionInput describes a transaction to open.
type NewTransactionInput struct {
	Amount      int64
	Description string
	BuyerID     *uuid.UUID
	SellerID    *uuid.UUID
}

// CreateTransaction opens a pending transaction. Actors holding the user role
// must be one of its parties.
func (s *Service) CreateTransaction(ctx context.Context, req Request, in NewTransactionInput) (*Result, error) {
	p, err := s.transactionPolicy(req.Kind)
	if err != nil {
		return nil, err
	}
	actor, err := s.authorize(ctx, req.ActorID, []domain.Permission{domain.PermCreateTransactions})
	if err != nil {
		return nil, err
	}

	tx, err := domain.NewTransaction(in.Amount, in.Description, in.BuyerID, in.SellerID, s.now())
	if err != nil {
		return nil, err
	}
	if actor.Role == domain.RoleUser && !tx.IsParty(actor.ID) {
		return nil, fmt.Errorf("users may only open transactions they take part in: %w", domain.ErrForbidden)
	}
	if err := p.Create(ctx, tx); err != nil {
		return nil, err
	}

	req.EntityID = tx.ID
	return s.record(ctx, req, actor, "create", nil, tx.Snapshot()), nil
}

func (s *Service) transactionPolicy(kind domain.EntityKind) (*TransactionPolicy, error) {
	if !kind.IsTransaction() {
		return nil, fmt.Errorf("entity kind %q is not a transaction: %w", kind, domain.ErrInvalidInput)
	}
	p, err := s.policy(kind)
	if err != nil {
		return nil, err
	}
	tp, ok := p.(*TransactionPolicy)
	if !ok {
		return nil, fmt.Errorf("entity kind %q has no transaction policy: %w", kind, domain.ErrInvalidInput)
	}
	return tp, nil
}

// ---------------------------------------------------------------------------
// Execution
// ---------------------------------------------------------------------------

type mutation struct {
	fields domain.Fields
	remove bool
}

type planFunc func(actor domain.Actor, current Entity) (*mutation, error)

// execute runs authorize, load, plan, persist and audit in that order. Any
// failure before persisting leaves no trace.
func (s *Service) execute(ctx context.Context, req Request, verb string, p Policy, perms []domain.Permission, plan planFunc) (*Result, error) {
	actor, err := s.authorize(ctx, req.ActorID, perms)
	if err != nil {
		return nil, err
	}

	current, err := p.Load(ctx, req.EntityID)
	if err != nil {
		return nil, err
	}
	before := current.Snapshot()

	m, err := plan(actor, current)
	if err != nil {
		return nil, err
	}

	if m.remove {
		if err := p.Delete(ctx, req.EntityID); err != nil {
			return nil, err
		}
		return s.record(ctx, req, actor, verb, before, nil), nil
	}

	if len(m.fields) == 0 {
		// Nothing changes, so nothing is written or recorded.
		return &Result{Entity: before}, nil
	}

	updated, err := p.Update(ctx, req.EntityID, m.fields.Stamp(s.now()))
	if err != nil {
		return nil, err
	}
	return s.record(ctx, req, actor, verb, before, updated.Snapshot()), nil
}

// record appends the audit record for a persisted change. A ledger failure is
// reported on the result rather than undoing the change.
func (s *Service) record(ctx context.Context, req Request, actor domain.Actor, verb string, before, after domain.Snapshot) *Result {
	entityID := req.EntityID
	rec := &domain.AuditRecord{
		Action:      string(req.Kind) + "." + verb,
		EntityKind:  req.Kind,
		EntityID:    &entityID,
		Before:      before,
		After:       after,
		PerformedBy: actor.ID,
		Origin:      req.Origin,
	}

	res := &Result{Entity: after}
	if err := s.audit.Append(ctx, rec); err != nil {
		log.Error().Err(err).
			Str("action", rec.Action).
			Str("entity_id", entityID.String()).
			Str("actor_id", actor.ID.String()).
			Msg("admin: change persisted without audit record")
		res.Warning = err
		s.alert(ctx, notify.Event{
			Kind:       notify.EventAuditDegraded,
			Action:     rec.Action,
			EntityKind: req.Kind,
			EntityID:   entityID,
			ActorID:    actor.ID,
			Detail:     err.Error(),
		})
		return res
	}
	res.AuditID = rec.ID
	return res
}

func (s *Service) alertTransition(ctx context.Context, req Request, action domain.TransactionAction) {
	var kind notify.EventKind
	switch {
	case action == domain.ActionRaiseDispute:
		kind = notify.EventDisputeRaised
	case action.IsResolution():
		kind = notify.EventDisputeResolved
	default:
		return
	}
	s.alert(ctx, notify.Event{
		Kind:       kind,
		Action:     string(action),
		EntityKind: req.Kind,
		EntityID:   req.EntityID,
		ActorID:    req.ActorID,
	})
}

func (s *Service) alert(ctx context.Context, ev notify.Event) {
	if s.alerts == nil {
		return
	}
	go func() {
		actx, cancel := context.WithTimeout(context.WithoutCancel(ctx), alertTimeout)
		defer cancel()
		if err := s.alerts.Notify(actx, ev); err != nil && !errors.Is(err, context.Canceled) {
			log.Warn().Err(err).Str("event", string(ev.Kind)).Msg("admin: alert delivery failed")
		}
	}()
}
