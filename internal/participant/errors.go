package participant

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrValidation   = errors.New("validation failed")
	ErrUnauthorized = errors.New("unauthorized")
	ErrNotFound     = errors.New("participant not found")
	ErrConflict     = errors.New("participant was modified concurrently")
	ErrIntegrity    = errors.New("data integrity violation")
	ErrStore        = errors.New("record store failure")
)

// ValidationError reports a rejected input field. Row is the 1-based data
// row of a bulk import, or 0 outside imports.
type ValidationError struct {
	Field  string
	Reason string
	Row    int
}

func (e *ValidationError) Error() string {
	if e.Row > 0 {
		return fmt.Sprintf("row %d: %s %s", e.Row, e.Field, e.Reason)
	}
	return e.Field + " " + e.Reason
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

func invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// DeniedError is returned when the guard rejects a request.
type DeniedError struct {
	Actor  string
	Reason string
}

func (e *DeniedError) Error() string {
	return fmt.Sprintf("%s denied: %s", e.Actor, e.Reason)
}

func (e *DeniedError) Unwrap() error { return ErrUnauthorized }

func integrityError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrIntegrity, fmt.Sprintf(format, args...))
}

// storeError wraps a failure from the record store. Domain outcomes that the
// store already classified pass through untouched.
func storeError(op string, err error) error {
	if err == nil {
		return nil
	}
	for _, known := range []error{ErrNotFound, ErrConflict, ErrIntegrity, ErrValidation, ErrStore} {
		if errors.Is(err, known) {
			return fmt.Errorf("%s: %w", op, err)
		}
	}
	return fmt.Errorf("%s: %w: %w", op, ErrStore, err)
}

// Canceled reports whether err came from a cancelled or timed out context.
func Canceled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
