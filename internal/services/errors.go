package services

import (
	"errors"
	"fmt"

	"github.com/jobfinder/apiserver/internal/store"
)

// Error kinds. Handlers map each kind to an HTTP status.
var (
	ErrValidation            = errors.New("validation failed")
	ErrMissingToken          = errors.New("missing token")
	ErrInvalidOrExpiredToken = errors.New("invalid or expired reset token")
	ErrInvalidCredentials    = errors.New("invalid credentials")
	ErrUnauthenticated       = errors.New("unauthenticated")
	ErrUnauthorized          = errors.New("unauthorized")
	ErrInvalidToken          = errors.New("invalid token")
	ErrTokenMismatch         = errors.New("refresh token mismatch")
	ErrForbidden             = errors.New("forbidden")
	ErrNotFound              = store.ErrNotFound
	ErrConflict              = store.ErrConflict
	ErrDelivery              = errors.New("delivery failed")
	ErrUpload                = errors.New("upload failed")
)

// Error is a failure of a given kind carrying a client-facing message and,
// for infrastructure failures, the underlying cause.
type Error struct {
	Kind    error
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() []error {
	if e.Err != nil {
		return []error{e.Kind, e.Err}
	}
	return []error{e.Kind}
}

func newError(kind error, message string) error {
	return &Error{Kind: kind, Message: message}
}

func wrapError(kind error, message string, err error) error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func invalid(format string, args ...any) error {
	return newError(ErrValidation, fmt.Sprintf(format, args...))
}

// notFoundOr converts store.ErrNotFound into a not-found error with message
// and passes other errors through.
func notFoundOr(err error, message string) error {
	if errors.Is(err, store.ErrNotFound) {
		return newError(ErrNotFound, message)
	}
	return err
}
