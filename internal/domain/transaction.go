package domain

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
)

type TransactionStatus string

const (
	TxStatusPending    TransactionStatus = "pending"
	TxStatusInProgress TransactionStatus = "in_progress"
	TxStatusDelivered  TransactionStatus = "delivered"
	TxStatusDisputed   TransactionStatus = "disputed"
	TxStatusCompleted  TransactionStatus = "completed"
	TxStatusCancelled  TransactionStatus = "cancelled"
)

// ParseTransactionStatus accepts the canonical status names plus "accepted",
// which older clients send for in_progress.
func ParseTransactionStatus(s string) (TransactionStatus, error) {
	if s == "accepted" {
		return TxStatusInProgress, nil
	}
	st := TransactionStatus(s)
	if !st.Valid() {
		return "", fmt.Errorf("unknown transaction status %q: %w", s, ErrInvalidTransition)
	}
	return st, nil
}

func (s TransactionStatus) Valid() bool {
	switch s {
	case TxStatusPending, TxStatusInProgress, TxStatusDelivered,
		TxStatusDisputed, TxStatusCompleted, TxStatusCancelled:
		return true
	default:
		return false
	}
}

// Terminal reports whether money movement for s has settled.
func (s TransactionStatus) Terminal() bool {
	return s == TxStatusCompleted || s == TxStatusCancelled
}

type TransactionAction string

const (
	ActionAccept         TransactionAction = "accept"
	ActionDeliver        TransactionAction = "deliver"
	ActionConfirmReceipt TransactionAction = "confirm_receipt"
	ActionCancel         TransactionAction = "cancel"
	ActionRaiseDispute   TransactionAction = "raise_dispute"
	// Dispute resolutions: release funds to the seller or refund the buyer.
	ActionResolveComplete TransactionAction = "resolve_complete"
	ActionResolveCancel   TransactionAction = "resolve_cancel"
)

var transactionActions = []TransactionAction{ //nolint:gochecknoglobals // fixed transition alphabet
	ActionAccept, ActionDeliver, ActionConfirmReceipt, ActionCancel,
	ActionRaiseDispute, ActionResolveComplete, ActionResolveCancel,
}

// ParseTransactionAction validates a client-supplied action name.
func ParseTransactionAction(s string) (TransactionAction, error) {
	for _, a := range transactionActions {
		if string(a) == s {
			return a, nil
		}
	}
	return "", fmt.Errorf("unknown transaction action %q: %w", s, ErrInvalidInput)
}

// IsResolution reports whether a settles a dispute.
func (a TransactionAction) IsResolution() bool {
	return a == ActionResolveComplete || a == ActionResolveCancel
}

// ApplyTransition returns the status reached by performing action on a
// transaction in status current. Terminal statuses never transition, for any
// role. Dispute resolutions require a non-party role.
func ApplyTransition(current TransactionStatus, action TransactionAction, role Role) (TransactionStatus, error) {
	if !current.Valid() {
		return "", fmt.Errorf("current status %q: %w", current, ErrInvalidTransition)
	}
	if current.Terminal() {
		return "", fmt.Errorf("transaction is %s and cannot %s: %w", current, action, ErrInvalidTransition)
	}

	switch action {
	case ActionAccept:
		if current == TxStatusPending {
			return TxStatusInProgress, nil
		}
	case ActionDeliver:
		if current == TxStatusInProgress {
			return TxStatusDelivered, nil
		}
	case ActionConfirmReceipt:
		if current == TxStatusDelivered {
			return TxStatusCompleted, nil
		}
	case ActionCancel:
		switch current {
		case TxStatusPending, TxStatusInProgress, TxStatusDelivered:
			return TxStatusCancelled, nil
		}
	case ActionRaiseDispute:
		if current != TxStatusDisputed {
			return TxStatusDisputed, nil
		}
	case ActionResolveComplete, ActionResolveCancel:
		if current != TxStatusDisputed {
			break
		}
		if role == RoleUser || !role.Valid() {
			return "", fmt.Errorf("dispute resolution requires an administrative role, got %q: %w", role, ErrInvalidTransition)
		}
		if action == ActionResolveComplete {
			return TxStatusCompleted, nil
		}
		return TxStatusCancelled, nil
	default:
		return "", fmt.Errorf("unknown transaction action %q: %w", action, ErrInvalidTransition)
	}

	return "", fmt.Errorf("cannot %s a %s transaction: %w", action, current, ErrInvalidTransition)
}

// TransitionTo validates a direct status overwrite by finding the action that
// moves current to target. Values outside the transition table are rejected.
func TransitionTo(current, target TransactionStatus, role Role) (TransactionAction, error) {
	if !target.Valid() {
		return "", fmt.Errorf("unknown transaction status %q: %w", target, ErrInvalidTransition)
	}
	if current.Terminal() {
		return "", fmt.Errorf("transaction is %s and cannot move to %s: %w", current, target, ErrInvalidTransition)
	}
	for _, a := range transactionActions {
		next, err := ApplyTransition(current, a, role)
		if err == nil && next == target {
			return a, nil
		}
	}
	return "", fmt.Errorf("no transition from %s to %s: %w", current, target, ErrInvalidTransition)
}

// Transaction is an escrow agreement between a buyer and a seller. Amount is
// in minor currency units. Either party may be unassigned while pending.
type Transaction struct {
	ID          uuid.UUID         `json:"id"`
	Amount      int64             `json:"amount"`
	Description string            `json:"description"`
	Status      TransactionStatus `json:"status"`
	BuyerID     *uuid.UUID        `json:"buyer_id"`
	SellerID    *uuid.UUID        `json:"seller_id"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// Transaction columns accepted in an update.
const (
	FieldAmount      = "amount"
	FieldDescription = "description"
	FieldBuyerID     = "buyer_id"
	FieldSellerID    = "seller_id"
)

// MaxAmount bounds amounts to integers a float64 holds exactly, so snapshots
// keep their value through JSON and jsonb.
const MaxAmount = 1<<53 - 1

// NewTransaction builds a pending transaction. At least one party must be set.
func NewTransaction(amount int64, description string, buyerID, sellerID *uuid.UUID, now time.Time) (*Transaction, error) {
	if amount <= 0 || amount > MaxAmount {
		return nil, fmt.Errorf("amount must be between 1 and %d, got %d: %w", int64(MaxAmount), amount, ErrInvalidInput)
	}
	if buyerID == nil && sellerID == nil {
		return nil, fmt.Errorf("a transaction needs at least one party: %w", ErrInvalidInput)
	}
	if buyerID != nil && sellerID != nil && *buyerID == *sellerID {
		return nil, fmt.Errorf("buyer and seller must differ: %w", ErrInvalidInput)
	}
	return &Transaction{
		ID:          uuid.New(),
		Amount:      amount,
		Description: description,
		Status:      TxStatusPending,
		BuyerID:     buyerID,
		SellerID:    sellerID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// AwaitingCounterparty reports whether one side of the agreement is still open.
func (t *Transaction) AwaitingCounterparty() bool {
	return t.BuyerID == nil || t.SellerID == nil
}

// allowsOpenParty reports whether a transaction in s may lack a party. Only
// pending agreements wait for a counterparty; cancelled ones keep whatever
// they had.
func allowsOpenParty(s TransactionStatus) bool {
	return s == TxStatusPending || s == TxStatusCancelled
}

// IsParty reports whether id is the buyer or the seller.
func (t *Transaction) IsParty(id uuid.UUID) bool {
	return (t.BuyerID != nil && *t.BuyerID == id) || (t.SellerID != nil && *t.SellerID == id)
}

// Next validates action against the state machine and the party assignment.
func (t *Transaction) Next(action TransactionAction, role Role) (TransactionStatus, error) {
	next, err := ApplyTransition(t.Status, action, role)
	if err != nil {
		return "", err
	}
	if t.AwaitingCounterparty() && !allowsOpenParty(next) {
		return "", fmt.Errorf("cannot %s while awaiting a counterparty: %w", action, ErrInvalidTransition)
	}
	return next, nil
}

// CheckPartyAction enforces which side of the agreement may drive an action.
// The seller accepts and delivers, the buyer confirms receipt, and either may
// cancel or raise a dispute.
func (t *Transaction) CheckPartyAction(actorID uuid.UUID, action TransactionAction) error {
	isBuyer := t.BuyerID != nil && *t.BuyerID == actorID
	isSeller := t.SellerID != nil && *t.SellerID == actorID
	if !isBuyer && !isSeller {
		return fmt.Errorf("actor is not a party to transaction %s: %w", t.ID, ErrForbidden)
	}

	switch action {
	case ActionAccept, ActionDeliver:
		if isSeller {
			return nil
		}
	case ActionConfirmReceipt:
		if isBuyer {
			return nil
		}
	case ActionCancel, ActionRaiseDispute:
		return nil
	}
	return fmt.Errorf("party may not %s transaction %s: %w", action, t.ID, ErrForbidden)
}

// Join assigns actorID to the open side of a pending transaction.
func (t *Transaction) Join(actorID uuid.UUID) (Fields, error) {
	if t.Status != TxStatusPending {
		return nil, fmt.Errorf("only pending transactions can be joined, status is %s: %w", t.Status, ErrInvalidTransition)
	}
	if t.IsParty(actorID) {
		return nil, fmt.Errorf("actor already a party to transaction %s: %w", t.ID, ErrInvalidInput)
	}
	switch {
	case t.BuyerID == nil:
		return Fields{FieldBuyerID: &actorID}, nil
	case t.SellerID == nil:
		return Fields{FieldSellerID: &actorID}, nil
	default:
		return nil, fmt.Errorf("transaction %s has both parties assigned: %w", t.ID, ErrInvalidInput)
	}
}

func (t *Transaction) Snapshot() Snapshot {
	return Snapshot{
		FieldID:          t.ID.String(),
		FieldAmount:      t.Amount,
		FieldDescription: t.Description,
		FieldStatus:      string(t.Status),
		FieldBuyerID:     uuidOrNil(t.BuyerID),
		FieldSellerID:    uuidOrNil(t.SellerID),
		FieldCreatedAt:   t.CreatedAt,
		FieldUpdatedAt:   t.UpdatedAt,
	}
}

// PlanTransactionEdit type-checks a proposed field edit and validates it
// against the current transaction. A status value is routed through the
// state machine; amount, parties and status are frozen once terminal.
func PlanTransactionEdit(t *Transaction, f Fields, role Role) (Fields, error) {
	out := make(Fields, len(f))
	for k, v := range f {
		switch k {
		case FieldAmount:
			amount, err := toMinorUnits(v)
			if err != nil {
				return nil, err
			}
			out[k] = amount
		case FieldDescription:
			s, ok := v.(string)
			if !ok {
				return nil, fmt.Errorf("field %q must be a string: %w", k, ErrInvalidInput)
			}
			out[k] = s
		case FieldBuyerID, FieldSellerID:
			id, err := toOptionalUUID(k, v)
			if err != nil {
				return nil, err
			}
			out[k] = id
		case FieldStatus:
			s, ok := v.(string)
			if !ok {
				return nil, fmt.Errorf("field %q must be a string: %w", k, ErrInvalidTransition)
			}
			st, err := ParseTransactionStatus(s)
			if err != nil {
				return nil, err
			}
			out[k] = st
		default:
			return nil, fmt.Errorf("field %q is not editable on transactions: %w", k, ErrInvalidInput)
		}
	}

	if t.Status.Terminal() {
		for _, k := range []string{FieldAmount, FieldBuyerID, FieldSellerID, FieldStatus} {
			if _, ok := out[k]; ok {
				return nil, fmt.Errorf("transaction is %s, %s is frozen: %w", t.Status, k, ErrInvalidTransition)
			}
		}
	}

	if target, ok := out[FieldStatus].(TransactionStatus); ok {
		if target == t.Status {
			delete(out, FieldStatus)
		} else if _, err := TransitionTo(t.Status, target, role); err != nil {
			return nil, err
		}
	}

	buyer, seller := t.BuyerID, t.SellerID
	if v, ok := out[FieldBuyerID]; ok {
		buyer, _ = v.(*uuid.UUID)
	}
	if v, ok := out[FieldSellerID]; ok {
		seller, _ = v.(*uuid.UUID)
	}
	if buyer != nil && seller != nil && *buyer == *seller {
		return nil, fmt.Errorf("buyer and seller must differ: %w", ErrInvalidInput)
	}
	if buyer == nil && seller == nil {
		return nil, fmt.Errorf("a transaction needs at least one party: %w", ErrInvalidInput)
	}

	// Past pending both parties are committed; a side can be reassigned but
	// not emptied.
	if t.Status != TxStatusPending && (buyer == nil || seller == nil) {
		for _, k := range []string{FieldBuyerID, FieldSellerID} {
			if v, ok := out[k]; ok && v.(*uuid.UUID) == nil {
				return nil, fmt.Errorf("transaction is %s, %s cannot be cleared: %w", t.Status, k, ErrInvalidTransition)
			}
		}
	}

	target := t.Status
	if st, ok := out[FieldStatus].(TransactionStatus); ok {
		target = st
	}
	if (buyer == nil || seller == nil) && !allowsOpenParty(target) {
		return nil, fmt.Errorf("cannot move to %s while awaiting a counterparty: %w", target, ErrInvalidTransition)
	}

	return out, nil
}

func toMinorUnits(v any) (int64, error) {
	var n int64
	switch x := v.(type) {
	case int:
		n = int64(x)
	case int64:
		n = x
	case float64:
		if x != math.Trunc(x) || x >= 1<<63 || x < -(1<<63) {
			return 0, fmt.Errorf("amount %v is not a whole number of minor units: %w", x, ErrInvalidInput)
		}
		n = int64(x)
	case json.Number:
		i, err := x.Int64()
		if err != nil {
			return 0, fmt.Errorf("amount %q: %w", x, ErrInvalidInput)
		}
		n = i
	default:
		return 0, fmt.Errorf("amount must be a number: %w", ErrInvalidInput)
	}
	if n <= 0 || n > MaxAmount {
		return 0, fmt.Errorf("amount must be between 1 and %d, got %d: %w", int64(MaxAmount), n, ErrInvalidInput)
	}
	return n, nil
}

func toOptionalUUID(field string, v any) (*uuid.UUID, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case *uuid.UUID:
		return x, nil
	case uuid.UUID:
		return &x, nil
	case string:
		id, err := uuid.Parse(x)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", field, ErrInvalidInput)
		}
		return &id, nil
	default:
		return nil, fmt.Errorf("field %q must be a UUID string or null: %w", field, ErrInvalidInput)
	}
}

func uuidOrNil(id *uuid.UUID) any {
	if id == nil {
		return nil
	}
	return id.String()
}

type TransactionRepository interface {
	Create(ctx context.Context, t *Transaction) error
	GetByID(ctx context.Context, id uuid.UUID) (*Transaction, error)
	UpdateFields(ctx context.Context, id uuid.UUID, f Fields) (*Transaction, error)
	Delete(ctx context.Context, id uuid.UUID) error
}
