package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error so callers can pick a recovery path without string matching.
type Kind string

const (
	KindNotFound          Kind = "NOT_FOUND"
	KindTransport         Kind = "TRANSPORT_ERROR"
	KindPermissionDenied  Kind = "PERMISSION_DENIED"
	KindTransientPosition Kind = "TRANSIENT_POSITION_ERROR"
	KindRender            Kind = "RENDER_ERROR"
	KindValidation        Kind = "VALIDATION_ERROR"
	KindConflict          Kind = "CONFLICT"
	KindForbidden         Kind = "FORBIDDEN"
	KindInvalidState      Kind = "INVALID_STATE"
	KindUnauthorized      Kind = "UNAUTHORIZED"
	KindInternal          Kind = "INTERNAL_ERROR"
)

// Error is the service-wide error type.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// New creates an Error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap creates an Error of the given kind carrying a cause.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// NewValidationError reports malformed input.
func NewValidationError(message string) *Error {
	return New(KindValidation, message)
}

// NewNotFoundError reports a missing entity.
func NewNotFoundError(entity, id string) *Error {
	return New(KindNotFound, fmt.Sprintf("%s not found: %s", entity, id))
}

// NewInvalidStateError reports a forbidden state transition.
func NewInvalidStateError(from, to string) *Error {
	return New(KindInvalidState, fmt.Sprintf("cannot transition from %s to %s", from, to))
}

// NewConflictError reports a concurrent modification.
func NewConflictError(message string) *Error {
	return New(KindConflict, message)
}

// NewForbiddenError reports an authenticated caller acting outside their rights.
func NewForbiddenError(message string) *Error {
	return New(KindForbidden, message)
}

// NewTransportError reports a failed call to a remote service.
func NewTransportError(op string, err error) *Error {
	return Wrap(KindTransport, op+" failed", err)
}

// NewRenderError reports a document that could not be assembled.
func NewRenderError(message string, err error) *Error {
	return Wrap(KindRender, message, err)
}

// KindOf returns the kind of the first *Error in err's chain, or KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	if err == nil {
		return false
	}
	return KindOf(err) == kind
}
