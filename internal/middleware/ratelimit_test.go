package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"spendify/internal/ratelimit"
)

type failingStore struct{}

func (failingStore) Hit(context.Context, string, time.Duration) (int, string, error) {
	return 0, "", errors.New("redis: connection refused")
}

func (failingStore) Undo(context.Context, string, string) error { return nil }

func setupLimitedRouter(store ratelimit.Store, policy RateLimitPolicy, status *int) *gin.Engine {
	r := gin.New()
	r.POST("/limited", RateLimit(store, policy), func(c *gin.Context) {
		c.JSON(*status, gin.H{"success": *status < 400})
	})
	return r
}

func hitFrom(r http.Handler, ip string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/limited", http.NoBody)
	req.RemoteAddr = ip + ":1234"
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestRateLimit_register_counts_everything(t *testing.T) {
	status := http.StatusCreated
	r := setupLimitedRouter(ratelimit.NewMemoryStore(), RegisterPolicy, &status)

	for i := 0; i < 3; i++ {
		if rec := hitFrom(r, "10.0.0.1"); rec.Code != http.StatusCreated {
			t.Fatalf("attempt %d: status %d", i+1, rec.Code)
		}
	}

	rec := hitFrom(r, "10.0.0.1")
	body := assertErrorBody(t, rec, http.StatusTooManyRequests, "RATE_LIMITED",
		"Too many registration attempts from this IP. Please try again after 1 hour.")
	if body["retryAfter"] != float64(60) {
		t.Errorf("expected retryAfter 60, got %v", body["retryAfter"])
	}
	if rec.Header().Get("Retry-After") != "3600" {
		t.Errorf("unexpected Retry-After %q", rec.Header().Get("Retry-After"))
	}

	if rec := hitFrom(r, "10.0.0.2"); rec.Code != http.StatusCreated {
		t.Errorf("other IPs must not be limited, got %d", rec.Code)
	}
}

func TestRateLimit_login_skips_successful(t *testing.T) {
	status := http.StatusOK
	r := setupLimitedRouter(ratelimit.NewMemoryStore(), LoginPolicy, &status)

	for i := 0; i < 10; i++ {
		if rec := hitFrom(r, "10.0.0.1"); rec.Code != http.StatusOK {
			t.Fatalf("successful login %d was limited", i+1)
		}
	}

	status = http.StatusUnauthorized
	for i := 0; i < 5; i++ {
		if rec := hitFrom(r, "10.0.0.1"); rec.Code != http.StatusUnauthorized {
			t.Fatalf("failed attempt %d: status %d", i+1, rec.Code)
		}
	}

	rec := hitFrom(r, "10.0.0.1")
	body := assertErrorBody(t, rec, http.StatusTooManyRequests, "RATE_LIMITED",
		"Too many login attempts from this IP. Please try again after 15 minutes.")
	if body["retryAfter"] != float64(15) {
		t.Errorf("expected retryAfter 15, got %v", body["retryAfter"])
	}
}

func TestRateLimit_headers(t *testing.T) {
	status := http.StatusOK
	r := setupLimitedRouter(ratelimit.NewMemoryStore(), GlobalPolicy(2, time.Minute), &status)

	rec := hitFrom(r, "10.0.0.1")
	if rec.Header().Get("RateLimit-Limit") != "2" || rec.Header().Get("RateLimit-Remaining") != "1" {
		t.Errorf("unexpected headers %v", rec.Header())
	}

	hitFrom(r, "10.0.0.1")
	rec = hitFrom(r, "10.0.0.1")
	assertErrorBody(t, rec, http.StatusTooManyRequests, "RATE_LIMITED", "Too many requests from this IP, please try again later.")
	if rec.Header().Get("RateLimit-Remaining") != "0" {
		t.Errorf("expected remaining 0, got %q", rec.Header().Get("RateLimit-Remaining"))
	}
}

func TestRateLimit_fails_open(t *testing.T) {
	status := http.StatusOK
	r := setupLimitedRouter(failingStore{}, RegisterPolicy, &status)

	for i := 0; i < 5; i++ {
		if rec := hitFrom(r, "10.0.0.1"); rec.Code != http.StatusOK {
			t.Fatalf("request %d should pass when the store is down, got %d", i+1, rec.Code)
		}
	}
}
