// Package apperr defines the error taxonomy shared by services and handlers.
package apperr

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks a missing or malformed user-supplied field.
	ErrValidation = errors.New("validation failed")
	// ErrGateway marks any failure talking to an external AI backend.
	ErrGateway = errors.New("gateway unavailable")
	// ErrPermissionDenied marks a notification permission that was refused.
	ErrPermissionDenied = errors.New("notification permission denied")
	// ErrStaleHandle marks a reminder handle that no longer refers to an armed timer.
	ErrStaleHandle = errors.New("stale reminder handle")
	// ErrNotFound marks a missing profile record.
	ErrNotFound = errors.New("not found")
	// ErrConflict marks a request that clashes with work in flight.
	ErrConflict = errors.New("conflict")
	// ErrUnauthenticated marks a missing or closed session.
	ErrUnauthenticated = errors.New("unauthenticated")
)

// Validation wraps ErrValidation with a field-specific reason.
func Validation(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// Gateway wraps ErrGateway around the underlying cause.
func Gateway(name string, cause error) error {
	if cause == nil {
		return fmt.Errorf("%w: %s", ErrGateway, name)
	}
	return fmt.Errorf("%w: %s: %w", ErrGateway, name, cause)
}
