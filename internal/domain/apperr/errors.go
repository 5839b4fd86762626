package apperr

import (
	"errors"
	"fmt"
)

// Sentinel kinds. The router maps them to HTTP status codes.
var (
	ErrInvalidInput  = errors.New("invalid input")
	ErrNotFound      = errors.New("not found")
	ErrNotConfigured = errors.New("not configured")
)

// Error carries a user-facing message together with its kind.
type Error struct {
	Kind error
	Msg  string
}

func (e *Error) Error() string { return e.Msg }

func (e *Error) Unwrap() error { return e.Kind }

// Invalid builds an ErrInvalidInput error with a formatted message.
func Invalid(format string, args ...any) error {
	return &Error{Kind: ErrInvalidInput, Msg: fmt.Sprintf(format, args...)}
}

// NotFound builds an ErrNotFound error with a formatted message.
func NotFound(format string, args ...any) error {
	return &Error{Kind: ErrNotFound, Msg: fmt.Sprintf(format, args...)}
}

// NotConfigured builds an ErrNotConfigured error with a formatted message.
func NotConfigured(format string, args ...any) error {
	return &Error{Kind: ErrNotConfigured, Msg: fmt.Sprintf(format, args...)}
}
