package domain

import (
	"errors"
	"fmt"
)

// Error categories. Every specific error below wraps exactly one of these so
// the transport layer can classify with errors.Is without knowing the detail.
var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrForbidden       = errors.New("access forbidden")
	ErrValidation      = errors.New("validation failed")
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
)

// Authentication failures. They are distinct internally but rendered
// identically to callers.
var (
	ErrMissingToken       = fmt.Errorf("%w: missing token", ErrUnauthenticated)
	ErrMalformedToken     = fmt.Errorf("%w: malformed token", ErrUnauthenticated)
	ErrBadSignature       = fmt.Errorf("%w: bad signature", ErrUnauthenticated)
	ErrTokenExpired       = fmt.Errorf("%w: token expired", ErrUnauthenticated)
	ErrInvalidCredentials = fmt.Errorf("%w: invalid credentials", ErrUnauthenticated)
)

var (
	ErrDueDateInPast        = fmt.Errorf("%w: due date cannot be in the past", ErrValidation)
	ErrPasswordMismatch     = fmt.Errorf("%w: passwords do not match", ErrValidation)
	ErrMissingRequiredField = fmt.Errorf("%w: missing required field", ErrValidation)
	ErrInvalidField         = fmt.Errorf("%w: invalid field value", ErrValidation)

	// ErrInvalidOrExpiredResetToken covers wrong, expired and already used
	// reset tokens alike.
	ErrInvalidOrExpiredResetToken = fmt.Errorf("%w: invalid or expired reset token", ErrValidation)
)

var (
	ErrTaskNotFound = fmt.Errorf("%w: task", ErrNotFound)
	ErrUserNotFound = fmt.Errorf("%w: user", ErrNotFound)
)

var ErrEmailAlreadyRegistered = fmt.Errorf("%w: email already registered", ErrConflict)

// FieldError attaches the offending field name to a validation error.
func FieldError(base error, field string) error {
	return fmt.Errorf("%w: %s", base, field)
}
