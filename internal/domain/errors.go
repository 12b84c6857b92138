package domain

import (
	"errors"
	"fmt"
)

// ErrorKind categorizes engine errors. Only ErrorKindTransport changes
// session-wide mode; the rest are local to a single turn or event.
type ErrorKind string

const (
	// ErrorKindValidation indicates bad or policy-violating user input,
	// rejected before any state mutation.
	ErrorKindValidation ErrorKind = "validation"

	// ErrorKindInteractivePayload indicates a malformed interactive event,
	// dropped with a logged warning while the turn continues.
	ErrorKindInteractivePayload ErrorKind = "interactive_payload"

	// ErrorKindTransport indicates a network or protocol failure; the
	// session degrades to offline mode.
	ErrorKindTransport ErrorKind = "transport"

	// ErrorKindPersistence indicates the durable store was unavailable.
	// Persistence is best-effort: these are logged and never roll back
	// conversation state.
	ErrorKindPersistence ErrorKind = "persistence"

	// ErrorKindCancelled is the expected outcome of an explicit user
	// cancellation, not a true failure.
	ErrorKindCancelled ErrorKind = "cancelled"
)

// Error is the engine's canonical error carrying a taxonomy kind.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates a categorized engine error.
func NewError(kind ErrorKind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// WrapError wraps an underlying error with a taxonomy kind.
func WrapError(kind ErrorKind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// IsKind reports whether err (or anything it wraps) is an engine error of
// the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}
