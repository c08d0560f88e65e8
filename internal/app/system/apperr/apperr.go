// Package apperr defines the error taxonomy shared by services and handlers.
//
// Services return *Error values with a Kind; handlers map the Kind to an HTTP
// status via jsonutil.Error so the status code and the JSON "success" flag
// always agree.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error for transport mapping.
type Kind int

const (
	Internal Kind = iota
	Unauthorized
	Forbidden
	NotFound
	Validation
	Conflict
	RateLimited
)

func (k Kind) String() string {
	switch k {
	case Unauthorized:
		return "unauthorized"
	case Forbidden:
		return "forbidden"
	case NotFound:
		return "not_found"
	case Validation:
		return "validation"
	case Conflict:
		return "conflict"
	case RateLimited:
		return "rate_limited"
	default:
		return "internal"
	}
}

// Error carries a Kind, a client-safe message, and an optional cause.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// New returns an *Error of kind k.
func New(k Kind, msg string) *Error {
	return &Error{Kind: k, Message: msg}
}

// Wrap returns an *Error of kind k with cause err.
func Wrap(k Kind, msg string, err error) *Error {
	return &Error{Kind: k, Message: msg, Err: err}
}

// Shorthand constructors.
func NotFoundf(format string, args ...any) *Error {
	return New(NotFound, fmt.Sprintf(format, args...))
}

func Validationf(format string, args ...any) *Error {
	return New(Validation, fmt.Sprintf(format, args...))
}

func Conflictf(format string, args ...any) *Error {
	return New(Conflict, fmt.Sprintf(format, args...))
}

func Forbiddenf(format string, args ...any) *Error {
	return New(Forbidden, fmt.Sprintf(format, args...))
}

// KindOf returns the Kind of err, or Internal when err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

// Is reports whether err is an *Error of kind k.
func Is(err error, k Kind) bool {
	if err == nil {
		return false
	}
	return KindOf(err) == k
}

// MessageOf returns the client-safe message for err. Internal errors get a
// generic message so causes never leak to clients.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Kind != Internal {
		return e.Message
	}
	return "internal server error"
}
