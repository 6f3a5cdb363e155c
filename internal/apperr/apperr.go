// Package apperr defines the closed error taxonomy of the registration
// core. Every rejection carries a Kind so callers can render a specific
// message instead of a generic failure.
package apperr

import (
	"errors"
	"fmt"
)

type Kind string

const (
	Validation        Kind = "validation"
	Authorization     Kind = "authorization"
	IllegalTransition Kind = "illegal_transition"
	EventNotOpen      Kind = "event_not_open"
	DeadlinePassed    Kind = "deadline_passed"
	AlreadyRegistered Kind = "already_registered"
	EventFull         Kind = "event_full"
	NotFound          Kind = "not_found"
	StoreUnavailable  Kind = "store_unavailable"
)

type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap attaches a kind to an underlying error, typically a store failure.
func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// KindOf extracts the kind from err, or "" if err carries none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsKind reports whether err carries kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// Retryable reports whether a caller-initiated retry is appropriate.
// Only store unavailability qualifies; admission rejections are final
// until the user addresses the reason.
func Retryable(err error) bool {
	return IsKind(err, StoreUnavailable)
}
