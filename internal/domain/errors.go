package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for domain-level error discrimination.
// Services wrap these so handlers can map to HTTP status codes without leaking infrastructure details.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrBadRequest   = errors.New("bad request")
)

// Error carries a user-facing message on top of a sentinel. Error() returns
// the message verbatim, so it can be placed in a response envelope without
// leaking the sentinel chain; errors.Is still matches the sentinel.
type Error struct {
	msg  string
	kind error
}

func (e *Error) Error() string { return e.msg }
func (e *Error) Unwrap() error { return e.kind }

// Errorf builds a user-facing *Error wrapping the given sentinel.
func Errorf(kind error, format string, args ...interface{}) *Error {
	return &Error{msg: fmt.Sprintf(format, args...), kind: kind}
}
