// Package apperr defines the closed set of failure kinds that domain services
// return to the transport layer.
//
// Services never pick HTTP status codes. They return an *Error carrying a Kind
// and a client-safe message, and the API boundary maps the Kind to a status
// per route. Internal failures keep their cause for logging only.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies a failure.
type Kind int

const (
	// Internal is a persistence or infrastructure failure. Its detail is never
	// shown to clients.
	Internal Kind = iota

	// Validation means missing or malformed input.
	Validation

	// Conflict means a uniqueness rule would be violated.
	Conflict

	// NotFound means the addressed entity does not exist.
	NotFound

	// Unauthorized means bad credentials or a bad token.
	Unauthorized
)

// String returns the lower-case name of the kind, used in logs and metrics.
func (k Kind) String() string {
	switch k {
	case Validation:
		return "validation"
	case Conflict:
		return "conflict"
	case NotFound:
		return "not_found"
	case Unauthorized:
		return "unauthorized"
	default:
		return "internal"
	}
}

// Error is a typed domain failure.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

// Sentinels for errors.Is checks. They match any *Error of the same Kind.
var (
	ErrInternal     = &Error{Kind: Internal}
	ErrValidation   = &Error{Kind: Validation}
	ErrConflict     = &Error{Kind: Conflict}
	ErrNotFound     = &Error{Kind: NotFound}
	ErrUnauthorized = &Error{Kind: Unauthorized}
)

// New creates an error of the given kind with a client-safe message.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap creates an error of the given kind around a cause. It returns nil when
// err is nil.
func Wrap(kind Kind, message string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Message: message, Err: err}
}

// Internalf wraps err as an Internal failure with a formatted context message.
func Internalf(err error, format string, args ...any) error {
	return Wrap(Internal, fmt.Sprintf(format, args...), err)
}

func (e *Error) Error() string {
	if e.Err != nil {
		if e.Message == "" {
			return fmt.Sprintf("%s: %v", e.Kind, e.Err)
		}
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	if e.Message == "" {
		return e.Kind.String()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error of the same Kind. A target with a
// message only matches an error with the same message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	return t.Message == "" || t.Message == e.Message
}

// KindOf returns the Kind of the first *Error in err's chain, or Internal if
// there is none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

// MessageOf returns the client-safe message for err. Internal failures and
// foreign errors yield fallback.
func MessageOf(err error, fallback string) string {
	var e *Error
	if !errors.As(err, &e) || e.Kind == Internal || e.Message == "" {
		return fallback
	}
	return e.Message
}
