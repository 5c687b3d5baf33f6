package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestConstructors(t *testing.T) {
	tests := []struct {
		name    string
		err     *Error
		kind    Kind
		message string
	}{
		{"NotFound", NotFound("voter not found"), ErrNotFound, "voter not found"},
		{"NotFoundf", NotFoundf("voter %s not found", "v-1"), ErrNotFound, "voter v-1 not found"},
		{"Validation", Validation("date of birth is required"), ErrValidation, "date of birth is required"},
		{"Validationf", Validationf("year must be between %d and %d", 1920, 2008), ErrValidation, "year must be between 1920 and 2008"},
		{"Conflict", Conflict("cannot delete the last admin"), ErrConflict, "cannot delete the last admin"},
		{"Conflictf", Conflictf("admin %s busy", "root"), ErrConflict, "admin root busy"},
		{"InvalidInput", InvalidInput("bad id"), ErrInvalidInput, "bad id"},
		{"Duplicate", Duplicate("email already registered"), ErrDuplicate, "email already registered"},
		{"Duplicatef", Duplicatef("admin %q exists", "root"), ErrDuplicate, `admin "root" exists`},
		{"Unauthorized", Unauthorized("invalid credentials"), ErrUnauthorized, "invalid credentials"},
		{"Remotef", Remotef("store returned %d", 503), ErrRemote, "store returned 503"},
		{"Internalf", Internalf("unexpected %s", "state"), ErrInternal, "unexpected state"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Kind != tt.kind {
				t.Errorf("expected kind %v, got %v", tt.kind, tt.err.Kind)
			}
			if tt.err.Message != tt.message {
				t.Errorf("expected message %q, got %q", tt.message, tt.err.Message)
			}
			if tt.err.Err != nil {
				t.Errorf("expected no wrapped error, got %v", tt.err.Err)
			}
		})
	}
}

func TestWrappingConstructors(t *testing.T) {
	cause := errors.New("connection refused")

	tests := []struct {
		name string
		err  *Error
		kind Kind
	}{
		{"Remote", Remote(cause, "insert failed"), ErrRemote},
		{"Storage", Storage(cause, "backup write failed"), ErrStorage},
		{"Internal", Internal(cause), ErrInternal},
		{"Wrap", Wrap(cause, ErrConflict, "conflict"), ErrConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Kind != tt.kind {
				t.Errorf("expected kind %v, got %v", tt.kind, tt.err.Kind)
			}
			if !errors.Is(tt.err, cause) {
				t.Error("expected errors.Is to find the cause")
			}
		})
	}
}

func TestError_Error(t *testing.T) {
	plain := Validation("email is required")
	if plain.Error() != "email is required" {
		t.Errorf("unexpected message %q", plain.Error())
	}

	wrapped := Remote(errors.New("timeout"), "insert failed")
	if wrapped.Error() != "insert failed: timeout" {
		t.Errorf("unexpected message %q", wrapped.Error())
	}
}

func TestKindOf(t *testing.T) {
	wrapped := fmt.Errorf("submitting: %w", Duplicate("email already registered"))

	if got := KindOf(wrapped); got != ErrDuplicate {
		t.Errorf("expected ErrDuplicate, got %v", got)
	}
	if got := KindOf(errors.New("plain")); got != ErrInternal {
		t.Errorf("expected ErrInternal for plain error, got %v", got)
	}
	if Is(nil, ErrInternal) {
		t.Error("nil error should not match any kind")
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"remote", Remotef("503"), true},
		{"wrapped remote", fmt.Errorf("attempt 2: %w", Remote(errors.New("eof"), "insert")), true},
		{"duplicate", Duplicate("dup"), false},
		{"validation", Validation("bad"), false},
		{"storage", Storage(errors.New("disk full"), "backup"), false},
		{"plain", errors.New("plain"), false},
		{"nil", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetryable(tt.err); got != tt.want {
				t.Errorf("IsRetryable() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestKind_String(t *testing.T) {
	if ErrDuplicate.String() != "duplicate" {
		t.Errorf("unexpected name %q", ErrDuplicate.String())
	}
	if Kind(99).String() != "kind(99)" {
		t.Errorf("unexpected name %q", Kind(99).String())
	}
}
