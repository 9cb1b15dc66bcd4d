package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for wiring input failures. All are recoverable: the caller
// re-prompts the user for corrected input.
var (
	ErrUnknownPreset     = errors.New("unknown preset")
	ErrInvalidAssignment = errors.New("invalid color assignment")
	ErrAmbiguousPhase    = errors.New("ambiguous phase")
	ErrPolarityMismatch  = errors.New("polarity mismatch")
)

// ValidationError wraps a sentinel with the offending field and value.
type ValidationError struct {
	Field   string
	Value   string
	Wrapped error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s: %s (value=%q)", e.Wrapped, e.Field, e.Value)
}

func (e *ValidationError) Unwrap() error { return e.Wrapped }

// NewValidationError creates a ValidationError.
func NewValidationError(field, value string, wrapped error) *ValidationError {
	return &ValidationError{Field: field, Value: value, Wrapped: wrapped}
}

// Kind returns a short machine-readable name for a wiring error, or "" when
// err is not one of the wiring sentinels.
func Kind(err error) string {
	switch {
	case errors.Is(err, ErrUnknownPreset):
		return "unknown_preset"
	case errors.Is(err, ErrInvalidAssignment):
		return "invalid_assignment"
	case errors.Is(err, ErrAmbiguousPhase):
		return "ambiguous_phase"
	case errors.Is(err, ErrPolarityMismatch):
		return "polarity_mismatch"
	}
	return ""
}
