// Package apperr holds the error taxonomy shared by the order core and its transports.
// Callers classify failures with errors.Is against the sentinels below.
package apperr

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidTransition: the requested status is not reachable from the current one.
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrForbidden: the actor may not perform the operation.
	ErrForbidden = errors.New("forbidden")
	// ErrStaleState: the row changed underneath us; refresh and retry.
	ErrStaleState = errors.New("order changed concurrently, refresh and retry")
	// ErrValidation: the request was rejected before touching the store.
	ErrValidation = errors.New("validation failed")
	// ErrStoreUnavailable: a fetch/insert/update against the store failed.
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrNotFound: the referenced record does not exist.
	ErrNotFound = errors.New("not found")
)

// Validation returns an ErrValidation carrying a human readable reason.
func Validation(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// Store wraps a store failure so it matches both ErrStoreUnavailable and the cause.
// A nil err yields nil.
func Store(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrStoreUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %s: %w", ErrStoreUnavailable, op, err)
}
