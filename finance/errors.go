/*
errors.go - Centralized error types for the planning engine

PURPOSE:
  All domain error types in one place. The taxonomy is deliberately small:

  1. Validation errors - malformed or out-of-range input
  2. Conflict errors   - duplicate assignment for a (user, phase) pair
  3. Not-found errors  - referenced project/phase/user absent

  All are deterministic given the same input, so none are retried; they are
  reported synchronously with enough context to render a user-facing message.

USAGE:
  Callers branch with errors.Is:

    if errors.Is(err, finance.ErrConflict) {
        // 409 to the client
    }

SEE ALSO:
  - ledger.go: produces these errors on assignment writes
  - api/handlers.go: maps them onto HTTP status codes
*/
package finance

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrValidation is returned for malformed or out-of-range input
	// (non-positive planned hours, inverted date range, unknown stage).
	ErrValidation = errors.New("validation failed")

	// ErrConflict is returned when an assignment already exists for a
	// (user, phase) pair. New requests for an assigned pair are rejected,
	// never silently merged.
	ErrConflict = errors.New("assignment already exists")

	// ErrNotFound is returned when a referenced project, phase, or user
	// does not exist.
	ErrNotFound = errors.New("not found")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ValidationError reports which field failed and why.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// ConflictError reports a duplicate (user, phase) assignment.
type ConflictError struct {
	UserID  UserID
	PhaseID PhaseID
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("user %s is already assigned to phase %s", e.UserID, e.PhaseID)
}

func (e *ConflictError) Unwrap() error { return ErrConflict }

// NotFoundError reports a missing referenced entity.
type NotFoundError struct {
	Kind string // "project", "phase", "user"
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation) || errors.Is(err, ErrConflict)
}

// IsNotFound returns true if the error indicates a missing entity.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
