// Package errs defines the error taxonomy shared by the governance
// components. Callers wrap the sentinels with %w and test with errors.Is.
package errs

import (
	"errors"
	"strings"
)

var (
	// ErrValidation marks caller-correctable input problems.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound marks a missing workflow, version or approval.
	ErrNotFound = errors.New("not found")
	// ErrStateConflict marks an operation not allowed in the current state.
	ErrStateConflict = errors.New("state conflict")
	// ErrStorage marks a failure of the underlying document store.
	ErrStorage = errors.New("storage failure")
)

// ValidationError carries the individual messages of a validation failure.
type ValidationError struct {
	Messages []string
}

func (e *ValidationError) Error() string {
	if len(e.Messages) == 0 {
		return ErrValidation.Error()
	}
	return ErrValidation.Error() + ": " + strings.Join(e.Messages, "; ")
}

// Unwrap lets errors.Is match ErrValidation.
func (e *ValidationError) Unwrap() error { return ErrValidation }

// Validation builds a ValidationError from msgs.
func Validation(msgs ...string) error {
	return &ValidationError{Messages: msgs}
}

// Messages extracts the validation messages from err, if any.
func Messages(err error) []string {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Messages
	}
	return nil
}
