package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error for the HTTP boundary.
type Kind int

const (
	// Validation marks malformed or missing request input.
	Validation Kind = iota
	// DuplicateResource marks a uniqueness violation at registration.
	DuplicateResource
	// InvalidCredentials marks a failed login attempt.
	InvalidCredentials
	// Unauthorized marks a missing, invalid or expired token.
	Unauthorized
	// NotFound marks a reference to a user that no longer exists.
	NotFound
	// Internal marks store/hashing/signing failures not caused by the caller.
	Internal
)

// Error is the single structured error type crossing the service boundary.
// Message is safe to show to clients; Err carries the internal cause and is
// never serialized.
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

// New builds an Error without an underlying cause.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap builds an Error around an underlying cause.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf extracts the Kind from err, defaulting to Internal for anything
// outside the taxonomy.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return Internal
}

// Status maps a Kind to its HTTP status code.
func (k Kind) Status() int {
	switch k {
	case Validation, DuplicateResource, InvalidCredentials:
		return http.StatusBadRequest
	case Unauthorized:
		return http.StatusUnauthorized
	case NotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
