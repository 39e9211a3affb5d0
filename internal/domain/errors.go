package domain

import "errors"

var (
	ErrNotFound     = errors.New("resource not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrInvalidInput = errors.New("invalid input")
	ErrConflict     = errors.New("resource conflict")

	// ErrTransient marks infrastructure failures (timeouts, dropped
	// connections) that are safe to retry for idempotent reads.
	ErrTransient = errors.New("transient infrastructure error")
)

// ValidationError represents a field-level validation failure.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

// InconsistentReferenceError reports a match event referencing a team
// or player that is not part of the match it belongs to.
type InconsistentReferenceError struct {
	EventID string
	Ref     string
	Message string
}

func (e *InconsistentReferenceError) Error() string {
	return "inconsistent reference " + e.Ref + ": " + e.Message
}
