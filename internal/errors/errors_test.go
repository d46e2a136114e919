package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"
)

func TestValidation(t *testing.T) {
	t.Run("first_error_becomes_message", func(t *testing.T) {
		err := Validation("Amount must be a valid number", "Category is required")
		if err.Message != "Amount must be a valid number" {
			t.Errorf("unexpected message %q", err.Message)
		}
		if len(err.Errors) != 2 {
			t.Fatalf("expected 2 errors, got %d", len(err.Errors))
		}
		if err.StatusCode != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", err.StatusCode)
		}
	})

	t.Run("empty_list_uses_default", func(t *testing.T) {
		err := Validation()
		if err.Message != ErrValidation.Message || err.Errors != nil {
			t.Errorf("unexpected error %+v", err)
		}
	})
}

func TestWithFields_does_not_mutate_sentinel(t *testing.T) {
	got := Locked("locked", time.Now())
	if got.Fields["lockUntil"] == nil {
		t.Fatal("expected lockUntil field")
	}
	if ErrAccountLocked.Fields != nil {
		t.Error("sentinel should not gain fields")
	}

	rl := RateLimited("slow down", 15)
	if rl.Fields["retryAfter"] != 15 || rl.StatusCode != http.StatusTooManyRequests {
		t.Errorf("unexpected rate limit error %+v", rl)
	}
}

func TestWrap_unwraps_internal(t *testing.T) {
	cause := fmt.Errorf("connection reset")
	err := Wrap(ErrInternalServer, cause)
	if !errors.Is(err, cause) {
		t.Error("expected wrapped cause to be reachable via errors.Is")
	}
	if err.Code != "INTERNAL_ERROR" {
		t.Errorf("unexpected code %s", err.Code)
	}
}

func TestInsufficientFunds(t *testing.T) {
	err := InsufficientFunds("Insufficient balance", 12.5)
	if err.Code != "INSUFFICIENT_FUNDS" || err.StatusCode != http.StatusBadRequest {
		t.Errorf("unexpected error %+v", err)
	}
	if err.Fields["balance"] != 12.5 {
		t.Errorf("expected balance field, got %v", err.Fields["balance"])
	}
}

func TestAppError_Response(t *testing.T) {
	t.Run("includes_fields_and_errors", func(t *testing.T) {
		err := WithFields(Validation("Category is required", "Date is not valid"), map[string]any{"attemptsLeft": 2})
		body := err.Response()

		if body["success"] != false || body["code"] != "VALIDATION_ERROR" {
			t.Errorf("unexpected envelope %+v", body)
		}
		if body["message"] != "Category is required" {
			t.Errorf("unexpected message %v", body["message"])
		}
		if errs, ok := body["errors"].([]string); !ok || len(errs) != 2 {
			t.Errorf("expected errors list, got %v", body["errors"])
		}
		if body["attemptsLeft"] != 2 {
			t.Errorf("expected attemptsLeft, got %v", body["attemptsLeft"])
		}
	})

	t.Run("omits_empty_errors", func(t *testing.T) {
		body := ErrCardNotFound.Response()
		if _, ok := body["errors"]; ok {
			t.Error("errors should be omitted")
		}
	})

	t.Run("fields_cannot_override_envelope", func(t *testing.T) {
		body := WithFields(ErrNotFound, map[string]any{"success": true}).Response()
		if body["success"] != false {
			t.Error("success must stay false")
		}
	})
}
