package domain

import "errors"

// Sentinel errors for the domain layer. Each one maps to a stable error kind
// reported to API callers.
var (
	ErrNotFound          = errors.New("domain: not found")
	ErrUnauthorized      = errors.New("domain: unauthorized")
	ErrForbidden         = errors.New("domain: authorization denied")
	ErrInvalidTransition = errors.New("domain: invalid transition")
	ErrSelfAction        = errors.New("domain: self action forbidden")
	ErrInvalidInput      = errors.New("domain: invalid input")
	ErrPersistence       = errors.New("domain: persistence failure")
	ErrAuditWrite        = errors.New("domain: audit write failure")
)

// ErrorKind is the machine-readable classification of a failed action.
type ErrorKind string

const (
	KindAuthorizationDenied ErrorKind = "AuthorizationDenied"
	KindUnauthenticated     ErrorKind = "Unauthenticated"
	KindNotFound            ErrorKind = "NotFound"
	KindInvalidTransition   ErrorKind = "InvalidTransition"
	KindSelfActionForbidden ErrorKind = "SelfActionForbidden"
	KindInvalidInput        ErrorKind = "InvalidInput"
	KindPersistenceFailure  ErrorKind = "PersistenceFailure"
	KindAuditWriteFailure   ErrorKind = "AuditWriteFailure"
)

// KindOf classifies err. Errors that match no sentinel are reported as
// persistence failures so that nothing unknown is surfaced as success.
func KindOf(err error) ErrorKind {
	switch {
	case errors.Is(err, ErrForbidden):
		return KindAuthorizationDenied
	case errors.Is(err, ErrUnauthorized):
		return KindUnauthenticated
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrInvalidTransition):
		return KindInvalidTransition
	case errors.Is(err, ErrSelfAction):
		return KindSelfActionForbidden
	case errors.Is(err, ErrInvalidInput):
		return KindInvalidInput
	case errors.Is(err, ErrAuditWrite):
		return KindAuditWriteFailure
	default:
		return KindPersistenceFailure
	}
}
