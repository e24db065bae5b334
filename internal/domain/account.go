package domain

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type AccountStatus string

const (
	AccountStatusActive    AccountStatus = "active"
	AccountStatusInactive  AccountStatus = "inactive"
	AccountStatusSuspended AccountStatus = "suspended"
	AccountStatusPending   AccountStatus = "pending"
)

func (s AccountStatus) Valid() bool {
	switch s {
	case AccountStatusActive, AccountStatusInactive, AccountStatusSuspended, AccountStatusPending:
		return true
	default:
		return false
	}
}

type VerificationStatus string

const (
	VerificationUnverified VerificationStatus = "unverified"
	VerificationPending    VerificationStatus = "pending"
	VerificationVerified   VerificationStatus = "verified"
	VerificationRejected   VerificationStatus = "rejected"
)

func (s VerificationStatus) Valid() bool {
	switch s {
	case VerificationUnverified, VerificationPending, VerificationVerified, VerificationRejected:
		return true
	default:
		return false
	}
}

// Account is a marketplace user profile. Accounts are created at
// registration elsewhere and are never hard-deleted here.
type Account struct {
	ID                 uuid.UUID          `json:"id"`
	Role               Role               `json:"role"`
	Status             AccountStatus      `json:"status"`
	VerificationStatus VerificationStatus `json:"verification_status"`
	FullName           string             `json:"full_name"`
	Email              string             `json:"email"`
	Phone              string             `json:"phone"`
	CreatedAt          time.Time          `json:"created_at"`
	UpdatedAt          time.Time          `json:"updated_at"`
}

// Account columns accepted in an update.
const (
	FieldRole               = "role"
	FieldStatus             = "status"
	FieldVerificationStatus = "verification_status"
	FieldFullName           = "full_name"
	FieldEmail              = "email"
	FieldPhone              = "phone"
)

func (a *Account) Snapshot() Snapshot {
	return Snapshot{
		FieldID:                 a.ID.String(),
		FieldRole:               string(a.Role),
		FieldStatus:             string(a.Status),
		FieldVerificationStatus: string(a.VerificationStatus),
		FieldFullName:           a.FullName,
		FieldEmail:              a.Email,
		FieldPhone:              a.Phone,
		FieldCreatedAt:          a.CreatedAt,
		FieldUpdatedAt:          a.UpdatedAt,
	}
}

// NormalizeAccountFields type-checks a proposed account update and converts
// enum values to their domain types. Unknown columns are rejected.
func NormalizeAccountFields(f Fields) (Fields, error) {
	out := make(Fields, len(f))
	for k, v := range f {
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("field %q must be a string: %w", k, ErrInvalidInput)
		}
		switch k {
		case FieldRole:
			role, err := ParseAssignableRole(s)
			if err != nil {
				return nil, err
			}
			out[k] = role
		case FieldStatus:
			if !AccountStatus(s).Valid() {
				return nil, fmt.Errorf("unknown account status %q: %w", s, ErrInvalidInput)
			}
			out[k] = AccountStatus(s)
		case FieldVerificationStatus:
			if !VerificationStatus(s).Valid() {
				return nil, fmt.Errorf("unknown verification status %q: %w", s, ErrInvalidInput)
			}
			out[k] = VerificationStatus(s)
		case FieldFullName, FieldEmail, FieldPhone:
			out[k] = s
		default:
			return nil, fmt.Errorf("field %q is not editable on profiles: %w", k, ErrInvalidInput)
		}
	}
	return out, nil
}

// CheckSelfAction rejects updates where an actor targets their own account
// to change its role or take it out of the active status.
func CheckSelfAction(actor Actor, target *Account, f Fields) error {
	if actor.ID != target.ID {
		return nil
	}
	if role, ok := f[FieldRole].(Role); ok && role != target.Role {
		return fmt.Errorf("cannot change own role from %s to %s: %w", target.Role, role, ErrSelfAction)
	}
	if status, ok := f[FieldStatus].(AccountStatus); ok && status != AccountStatusActive {
		return fmt.Errorf("cannot set own account status to %s: %w", status, ErrSelfAction)
	}
	return nil
}

type AccountRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Account, error)
	UpdateFields(ctx context.Context, id uuid.UUID, f Fields) (*Account, error)
	RoleOf(ctx context.Context, id uuid.UUID) (Role, error)
}
