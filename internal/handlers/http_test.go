package handlers_test

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/abrezinsky/voterreg/internal/errors"
	"github.com/abrezinsky/voterreg/internal/handlers"
	"github.com/abrezinsky/voterreg/internal/services"
)

func TestAPIError_Error(t *testing.T) {
	err := handlers.NewAPIError(http.StatusBadRequest, "BAD_REQUEST", "test message")

	if err.Error() != "test message" {
		t.Errorf("expected 'test message', got %q", err.Error())
	}
	if err.Code != "BAD_REQUEST" {
		t.Errorf("expected code 'BAD_REQUEST', got %q", err.Code)
	}
}

func TestBadRequest_AssignsValidationCode(t *testing.T) {
	if got := handlers.BadRequest("Missing id parameter").Code; got != handlers.ErrCodeBadRequest {
		t.Errorf("expected BAD_REQUEST, got %q", got)
	}
	if got := handlers.BadRequest("Invalid page parameter").Code; got != handlers.ErrCodeValidation {
		t.Errorf("expected VALIDATION_ERROR, got %q", got)
	}
}

func TestToAPIError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
		wantMsg    string
	}{
		{"not found", errors.NotFound("voter not found"), http.StatusNotFound, handlers.ErrCodeNotFound, "voter not found"},
		{"validation", errors.Validation("full name is required"), http.StatusBadRequest, handlers.ErrCodeValidation, "full name is required"},
		{"invalid input", errors.InvalidInput("bad"), http.StatusBadRequest, handlers.ErrCodeValidation, "bad"},
		{"conflict", errors.Conflict("cannot delete the last admin"), http.StatusConflict, handlers.ErrCodeConflict, "cannot delete the last admin"},
		{"duplicate", errors.Duplicate("email already registered"), http.StatusConflict, handlers.ErrCodeDuplicate, "email already registered"},
		{"unauthorized", errors.Unauthorized("invalid email or password"), http.StatusUnauthorized, handlers.ErrCodeUnauthorized, "invalid email or password"},
		{"remote", errors.Remote(fmt.Errorf("dial tcp: refused"), "failed to reach record store"), http.StatusServiceUnavailable, handlers.ErrCodeUnavailable, "failed to reach record store"},
		{"recovery running", services.ErrRecoveryInProgress, http.StatusConflict, handlers.ErrCodeRecoveryRunning, "recovery already in progress"},
		{"wrapped", fmt.Errorf("lookup: %w", errors.NotFound("gone")), http.StatusNotFound, handlers.ErrCodeNotFound, "gone"},
		{"storage", errors.Storage(fmt.Errorf("disk full"), "ledger write failed"), http.StatusInternalServerError, handlers.ErrCodeInternalServer, "Internal server error"},
		{"plain", fmt.Errorf("boom"), http.StatusInternalServerError, handlers.ErrCodeInternalServer, "Internal server error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			apiErr := handlers.ToAPIError(tt.err)

			if apiErr.Status != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, apiErr.Status)
			}
			if apiErr.Code != tt.wantCode {
				t.Errorf("expected code %q, got %q", tt.wantCode, apiErr.Code)
			}
			if apiErr.Message != tt.wantMsg {
				t.Errorf("expected message %q, got %q", tt.wantMsg, apiErr.Message)
			}
		})
	}
}
