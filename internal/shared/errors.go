package shared

import (
	"errors"
	"time"
)

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrDuplicate indicates a uniqueness rule would be violated.
	ErrDuplicate = errors.New("duplicate entry")
	// ErrRequiredField indicates a mandatory field is empty.
	ErrRequiredField = errors.New("field is required")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrCancelled indicates the user declined a confirmation prompt.
	ErrCancelled = errors.New("cancelled by user")
	// ErrNotConfigured indicates the remote store has no credentials.
	ErrNotConfigured = errors.New("remote store not configured")
)

// Kind classifies failures so callers can pick a reaction without string matching.
type Kind string

const (
	KindValidation   Kind = "validation"
	KindRemoteWrite  Kind = "remote_write"
	KindRemoteRead   Kind = "remote_read"
	KindConnectivity Kind = "connectivity"
	KindFileParse    Kind = "file_parse"
	KindNotFound     Kind = "not_found"
	KindDuplicate    Kind = "duplicate"
	KindUnauthorized Kind = "unauthorized"
	KindCancelled    Kind = "cancelled"
	KindInternal     Kind = "internal"
)

// SuccessDismiss is how long a success banner stays visible.
const SuccessDismiss = 2 * time.Second

// Dismiss returns how long a banner for this kind stays visible.
func (k Kind) Dismiss() time.Duration {
	switch k {
	case KindRemoteWrite, KindFileParse:
		return 5 * time.Second
	default:
		return 3 * time.Second
	}
}

// Retryable reports whether an operation failing with this kind may be retried.
func (k Kind) Retryable() bool {
	return k == KindRemoteRead || k == KindRemoteWrite || k == KindConnectivity
}

// Error is the typed error crossing package boundaries.
type Error struct {
	Kind   Kind
	Op     string
	Entity string
	Err    error
}

func (e *Error) Error() string {
	msg := string(e.Kind)
	if e.Entity != "" {
		msg = e.Entity + ": " + msg
	}
	if e.Op != "" {
		msg = e.Op + " " + msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// E builds an *Error.
func E(kind Kind, op, entity string, err error) *Error {
	return &Error{Kind: kind, Op: op, Entity: entity, Err: err}
}

// KindOf extracts the kind of err. Bare sentinels map to their natural kind and
// anything else is internal.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var typed *Error
	if errors.As(err, &typed) {
		return typed.Kind
	}
	switch {
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrDuplicate):
		return KindDuplicate
	case errors.Is(err, ErrRequiredField):
		return KindValidation
	case errors.Is(err, ErrInvalidCredentials):
		return KindUnauthorized
	case errors.Is(err, ErrCancelled):
		return KindCancelled
	case errors.Is(err, ErrNotConfigured):
		return KindConnectivity
	}
	return KindInternal
}

// IsKind reports whether err is of the given kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// UserSafeMessage returns a message suitable for a banner.
func UserSafeMessage(err error) string {
	switch KindOf(err) {
	case KindValidation, KindDuplicate, KindFileParse:
		return err.Error()
	case KindNotFound:
		return "Niet gevonden"
	case KindUnauthorized:
		return "Inloggen mislukt"
	case KindCancelled:
		return "Geannuleerd"
	case KindConnectivity:
		return "Geen verbinding met de database"
	case KindRemoteWrite:
		return "Fout bij opslaan"
	case KindRemoteRead:
		return "Fout bij laden"
	}
	return "Er ging iets mis"
}
