package middleware

import (
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "spendify/internal/errors"
	"spendify/internal/logger"
	"spendify/internal/ratelimit"
)

// RateLimitPolicy describes one per-IP limiter.
type RateLimitPolicy struct {
	Name    string
	Max     int
	Window  time.Duration
	Message string
	// SkipSuccessfulRequests withdraws the hit when the response status is
	// below 400, so only failures count toward the limit.
	SkipSuccessfulRequests bool
}

// LoginPolicy allows five failed logins per IP per 15 minutes.
var LoginPolicy = RateLimitPolicy{
	Name:                   "login",
	Max:                    5,
	Window:                 15 * time.Minute,
	Message:                "Too many login attempts from this IP. Please try again after 15 minutes.",
	SkipSuccessfulRequests: true,
}

// RegisterPolicy allows three registration attempts per IP per hour.
var RegisterPolicy = RateLimitPolicy{
	Name:    "register",
	Max:     3,
	Window:  time.Hour,
	Message: "Too many registration attempts from this IP. Please try again after 1 hour.",
}

// GlobalPolicy is the API-wide limiter.
func GlobalPolicy(max int, window time.Duration) RateLimitPolicy {
	return RateLimitPolicy{
		Name:    "api",
		Max:     max,
		Window:  window,
		Message: apperrors.ErrRateLimited.Message,
	}
}

// RateLimit enforces policy per client IP using store. Store failures let the
// request through.
func RateLimit(store ratelimit.Store, policy RateLimitPolicy) gin.HandlerFunc {
	retryAfter := int(math.Ceil(policy.Window.Minutes()))

	return func(c *gin.Context) {
		ctx := c.Request.Context()
		key := policy.Name + ":" + c.ClientIP()

		count, id, err := store.Hit(ctx, key, policy.Window)
		if err != nil {
			logger.Get().Warnw("rate limit store unavailable",
				"policy", policy.Name,
				"error", err.Error(),
			)
			c.Next()
			return
		}

		remaining := policy.Max - count
		if remaining < 0 {
			remaining = 0
		}
		c.Header("RateLimit-Limit", strconv.Itoa(policy.Max))
		c.Header("RateLimit-Remaining", strconv.Itoa(remaining))

		if count > policy.Max {
			logger.Get().Warnw("rate limit exceeded",
				"policy", policy.Name,
				"client_ip", c.ClientIP(),
				"path", c.Request.URL.Path,
			)
			c.Header("Retry-After", strconv.Itoa(int(policy.Window.Seconds())))
			AbortWithError(c, apperrors.RateLimited(policy.Message, retryAfter))
			return
		}

		c.Next()

		if policy.SkipSuccessfulRequests && c.Writer.Status() < http.StatusBadRequest {
			if err := store.Undo(ctx, key, id); err != nil {
				logger.Get().Warnw("rate limit undo failed",
					"policy", policy.Name,
					"error", err.Error(),
				)
			}
		}
	}
}
