package apperr

import (
	"database/sql"
	"errors"
	"testing"
)

func TestStoreWrapsBoth(t *testing.T) {
	err := Store("query orders", sql.ErrConnDone)
	if !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
	if !errors.Is(err, sql.ErrConnDone) {
		t.Fatalf("cause lost: %v", err)
	}
	if again := Store("outer", err); again != err {
		t.Fatalf("double wrap: %v", again)
	}
	if Store("noop", nil) != nil {
		t.Fatalf("nil error must stay nil")
	}
}

func TestValidationMessage(t *testing.T) {
	err := Validation("quantity %d must be positive", 0)
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if err.Error() != "validation failed: quantity 0 must be positive" {
		t.Fatalf("message: %q", err.Error())
	}
}
