package numerator

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned by Store.Get when the counter does not exist.
	ErrNotFound = errors.New("counter not found")

	// ErrConflict reports that the counter changed between read and write.
	ErrConflict = errors.New("counter transaction conflict")

	// ErrUnavailable wraps transport, permission and driver failures.
	ErrUnavailable = errors.New("counter store unavailable")

	// ErrInitialization reports that a counter could not be created or verified.
	ErrInitialization = errors.New("counter initialization failed")

	// ErrExhausted reports that every allocation attempt failed.
	ErrExhausted = errors.New("counter allocation exhausted")
)

// Unavailable wraps a store failure so errors.Is(err, ErrUnavailable) holds.
// Context errors are returned unchanged.
func Unavailable(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%s: %w: %w", op, ErrUnavailable, err)
}

// Conflict returns ErrConflict annotated with the key.
func Conflict(key string) error {
	return fmt.Errorf("counter %q: %w", key, ErrConflict)
}

// IsRetryable reports whether another allocation attempt may succeed.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConflict) || errors.Is(err, ErrUnavailable)
}
