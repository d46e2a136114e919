package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "spendify/internal/errors"
)

var (
	errMetricsNotConfigured = &apperrors.AppError{Code: "METRICS_NOT_CONFIGURED", Message: "Metrics endpoint is not configured", StatusCode: http.StatusServiceUnavailable}
	errInvalidAPIKey        = &apperrors.AppError{Code: "INVALID_API_KEY", Message: "Invalid or missing API key", StatusCode: http.StatusUnauthorized}
)

// APIKeyAuth guards operator endpoints such as /metrics with the X-API-Key
// header. An empty apiKey disables the endpoint.
func APIKeyAuth(apiKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if apiKey == "" {
			AbortWithError(c, errMetricsNotConfigured)
			return
		}
		key := c.GetHeader("X-API-Key")
		if subtle.ConstantTimeCompare([]byte(key), []byte(apiKey)) != 1 {
			AbortWithError(c, errInvalidAPIKey)
			return
		}
		c.Next()
	}
}
