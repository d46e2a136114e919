package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "spendify/internal/errors"
	"spendify/internal/middleware"
	"spendify/internal/pagination"
	"spendify/internal/validator"
)

// getUserID extracts the authenticated user ID from the Gin context.
// Returns ErrUnauthorized if not present.
func getUserID(c *gin.Context) (string, error) {
	userID := c.GetString(middleware.UserIDKey)
	if userID == "" {
		return "", apperrors.ErrUnauthorized
	}
	return userID, nil
}

// respondWithError writes the standard error envelope.
func respondWithError(c *gin.Context, err error) {
	middleware.RespondWithError(c, err)
}

// respondOK writes a success envelope with an optional message.
func respondOK(c *gin.Context, status int, message string, data any) {
	body := gin.H{"success": true, "data": data}
	if message != "" {
		body["message"] = message
	}
	c.JSON(status, body)
}

// queryPtr returns the raw query value, or nil when the key is absent.
func queryPtr(c *gin.Context, key string) *string {
	if v, ok := c.GetQuery(key); ok {
		return &v
	}
	return nil
}

// parsePage validates the page and limit query parameters.
func parsePage(c *gin.Context) (pagination.PageRequest, error) {
	q, errs := validator.TransactionQuery(validator.QueryInput{
		Page:  queryPtr(c, "page"),
		Limit: queryPtr(c, "limit"),
	})
	if len(errs) > 0 {
		return pagination.PageRequest{}, apperrors.Validation(errs...)
	}
	return pagination.PageRequest{Page: q.Page, Limit: q.Limit}, nil
}

// emptyData is rendered as {} for responses that carry no payload.
var emptyData = struct{}{}

// ErrorResponse is the error envelope returned by every endpoint.
type ErrorResponse struct {
	Success bool     `json:"success" example:"false"`
	Code    string   `json:"code" example:"VALIDATION_ERROR"`
	Message string   `json:"message" example:"Amount must be a valid number"`
	Errors  []string `json:"errors,omitempty"`
}

// MessageResponse is a success envelope without a payload.
type MessageResponse struct {
	Success bool     `json:"success" example:"true"`
	Message string   `json:"message"`
	Data    struct{} `json:"data"`
}

// Health reports liveness.
// @Summary     Health check
// @Tags        system
// @Produce     json
// @Success     200 {object} map[string]interface{}
// @Router      /health [get]
func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"message":   "Server is running",
		"timestamp": time.Now().UTC().Format("2006-01-02T15:04:05.000Z07:00"),
	})
}

// CSRFToken returns the double-submit token set in the XSRF-TOKEN cookie.
// @Summary     Get CSRF token
// @Description Issues the XSRF-TOKEN cookie when absent and echoes its value. Send it back in X-XSRF-TOKEN on unsafe requests.
// @Tags        system
// @Produce     json
// @Success     200 {object} map[string]interface{}
// @Router      /csrf-token [get]
func CSRFToken(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"csrfToken": middleware.CSRFToken(c),
	})
}
