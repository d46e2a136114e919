// Package errors provides the error taxonomy for the Spendify API.
// Services return *AppError so handlers can produce consistent responses
// without leaking internal details to clients.
package errors

import (
	"net/http"
	"time"
)

// AppError represents a structured application error. Errors holds the full
// ordered list of violated rules for validation failures; Fields carries extra
// top-level response members such as attemptsLeft or balance.
type AppError struct {
	Code       string         `json:"code"`
	Message    string         `json:"message"`
	StatusCode int            `json:"-"`
	Internal   error          `json:"-"`
	Errors     []string       `json:"errors,omitempty"`
	Fields     map[string]any `json:"-"`
}

// Error implements the error interface.
func (e *AppError) Error() string { return e.Message }

// Unwrap returns the internal error for use with errors.Is/As.
func (e *AppError) Unwrap() error { return e.Internal }

// Response renders the JSON envelope sent to clients. Fields become top-level
// members alongside success, code, message and the optional errors list.
func (e *AppError) Response() map[string]any {
	body := make(map[string]any, len(e.Fields)+4)
	for k, v := range e.Fields {
		body[k] = v
	}
	body["success"] = false
	body["code"] = e.Code
	body["message"] = e.Message
	if len(e.Errors) > 0 {
		body["errors"] = e.Errors
	}
	return body
}

func (e *AppError) clone() *AppError {
	cp := *e
	if e.Errors != nil {
		cp.Errors = append([]string(nil), e.Errors...)
	}
	if e.Fields != nil {
		cp.Fields = make(map[string]any, len(e.Fields))
		for k, v := range e.Fields {
			cp.Fields[k] = v
		}
	}
	return &cp
}

// Wrap creates a new AppError with the same code/message/status but wraps an internal error.
func Wrap(sentinel *AppError, internal error) *AppError {
	cp := sentinel.clone()
	cp.Internal = internal
	return cp
}

// WithMessage creates a new AppError with a custom message.
func WithMessage(sentinel *AppError, message string) *AppError {
	cp := sentinel.clone()
	cp.Message = message
	return cp
}

// WithFields returns a copy of the error with extra response members merged in.
func WithFields(sentinel *AppError, fields map[string]any) *AppError {
	cp := sentinel.clone()
	if cp.Fields == nil {
		cp.Fields = make(map[string]any, len(fields))
	}
	for k, v := range fields {
		cp.Fields[k] = v
	}
	return cp
}

// Validation builds a ValidationError whose message is the first violated rule.
func Validation(errs ...string) *AppError {
	if len(errs) == 0 {
		return ErrValidation.clone()
	}
	cp := WithMessage(ErrValidation, errs[0])
	cp.Errors = append([]string(nil), errs...)
	return cp
}

// InsufficientFunds reports a failed debit together with the balance that was
// observed after the debit was refused. balance is anything JSON-encodable.
func InsufficientFunds(message string, balance any) *AppError {
	return WithFields(WithMessage(ErrInsufficientFunds, message), map[string]any{"balance": balance})
}

// Locked reports an account in lockout cooldown.
func Locked(message string, lockUntil time.Time) *AppError {
	return WithFields(WithMessage(ErrAccountLocked, message), map[string]any{"lockUntil": lockUntil})
}

// RateLimited reports a throttled request; retryAfter is in minutes.
func RateLimited(message string, retryAfter int) *AppError {
	return WithFields(WithMessage(ErrRateLimited, message), map[string]any{"retryAfter": retryAfter})
}

// Authentication & authorization errors.
var (
	ErrUnauthorized        = &AppError{Code: "UNAUTHORIZED", Message: "Not authorized to access this route", StatusCode: http.StatusUnauthorized}
	ErrInvalidToken        = &AppError{Code: "UNAUTHORIZED", Message: "Not authorized, token failed", StatusCode: http.StatusUnauthorized}
	ErrTokenRevoked        = &AppError{Code: "TOKEN_REVOKED", Message: "Token has been revoked/logged out", StatusCode: http.StatusUnauthorized}
	ErrFingerprintMismatch = &AppError{Code: "FINGERPRINT_MISMATCH", Message: "Token fingerprint mismatch", StatusCode: http.StatusUnauthorized}
	ErrInvalidRefreshToken = &AppError{Code: "INVALID_REFRESH_TOKEN", Message: "Invalid or expired refresh token", StatusCode: http.StatusUnauthorized}
	ErrInvalidCredentials  = &AppError{Code: "INVALID_CREDENTIALS", Message: "Invalid email or password", StatusCode: http.StatusUnauthorized}
	ErrNotAuthorized       = &AppError{Code: "NOT_AUTHORIZED", Message: "Not authorized to access this resource", StatusCode: http.StatusUnauthorized}
	ErrForbidden           = &AppError{Code: "FORBIDDEN", Message: "Access denied", StatusCode: http.StatusForbidden}
	ErrCSRF                = &AppError{Code: "CSRF_INVALID", Message: "Invalid or missing CSRF token", StatusCode: http.StatusForbidden}
	ErrAccountLocked       = &AppError{Code: "ACCOUNT_LOCKED", Message: "Account is temporarily locked", StatusCode: http.StatusLocked}
	ErrRateLimited         = &AppError{Code: "RATE_LIMITED", Message: "Too many requests from this IP, please try again later.", StatusCode: http.StatusTooManyRequests}
)

// General errors.
var (
	ErrValidation     = &AppError{Code: "VALIDATION_ERROR", Message: "Invalid input", StatusCode: http.StatusBadRequest}
	ErrInvalidInput   = &AppError{Code: "INVALID_INPUT", Message: "Invalid input", StatusCode: http.StatusBadRequest}
	ErrNotFound       = &AppError{Code: "NOT_FOUND", Message: "Resource not found", StatusCode: http.StatusNotFound}
	ErrInternalServer = &AppError{Code: "INTERNAL_ERROR", Message: "An internal error occurred", StatusCode: http.StatusInternalServerError}
)

// User errors.
var (
	ErrUserNotFound   = &AppError{Code: "USER_NOT_FOUND", Message: "User not found", StatusCode: http.StatusNotFound}
	ErrDuplicateEmail = &AppError{Code: "DUPLICATE_EMAIL", Message: "An account with this email already exists", StatusCode: http.StatusConflict}
)

// Ledger errors.
var (
	ErrInsufficientFunds = &AppError{Code: "INSUFFICIENT_FUNDS", Message: "Insufficient funds", StatusCode: http.StatusBadRequest}
)

// Transaction errors.
var (
	ErrTransactionNotFound = &AppError{Code: "TRANSACTION_NOT_FOUND", Message: "Transaction not found", StatusCode: http.StatusNotFound}
	ErrTransferRecord      = &AppError{Code: "TRANSFER_RECORD_LOCKED", Message: "Transfer records cannot be modified or deleted", StatusCode: http.StatusBadRequest}
)

// Card errors.
var (
	ErrCardNotFound     = &AppError{Code: "CARD_NOT_FOUND", Message: "Card not found", StatusCode: http.StatusNotFound}
	ErrSameCardTransfer = &AppError{Code: "SAME_CARD_TRANSFER", Message: "Cannot transfer to the same card", StatusCode: http.StatusBadRequest}
)

// Transfer errors.
var (
	ErrRecipientNotFound = &AppError{Code: "RECIPIENT_NOT_FOUND", Message: "Recipient not found", StatusCode: http.StatusNotFound}
	ErrSelfTransfer      = &AppError{Code: "SELF_TRANSFER", Message: "Cannot send money to yourself", StatusCode: http.StatusBadRequest}
)
