package provider

import (
	"errors"
	"fmt"
)

// ErrNotFound indicates the provider no longer knows the referenced
// message, folder or attachment.
var ErrNotFound = errors.New("not found on provider")

// ConnectionError is returned when a connect cycle exhausts its
// attempts. It wraps the error of the last attempt.
type ConnectionError struct {
	Kind     Kind
	Attempts int
	Err      error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("%s: connection failed after %d attempts: %v", e.Kind, e.Attempts, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// AuthError indicates the provider rejected the account's credentials.
type AuthError struct {
	Kind Kind
	Err  error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("%s: authentication failed: %v", e.Kind, e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

// OpError wraps a provider failure during a named operation.
type OpError struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *OpError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Op, e.Err)
}

func (e *OpError) Unwrap() error { return e.Err }

// ValidationError indicates an account is misconfigured for its
// provider kind, detected before any provider call is made.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid account configuration: %s %s", e.Field, e.Reason)
}

// IsAuthError reports whether err is, or wraps, an AuthError.
func IsAuthError(err error) bool {
	var authErr *AuthError
	return errors.As(err, &authErr)
}

// IsConnectionError reports whether err is, or wraps, a ConnectionError.
func IsConnectionError(err error) bool {
	var connErr *ConnectionError
	return errors.As(err, &connErr)
}

// IsValidationError reports whether err is, or wraps, a ValidationError.
func IsValidationError(err error) bool {
	var valErr *ValidationError
	return errors.As(err, &valErr)
}
