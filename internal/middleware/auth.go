package middleware

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"

	apperrors "spendify/internal/errors"
	"spendify/internal/logger"
	"spendify/internal/models"
)

// Context keys set by Auth.
const (
	UserIDKey      = "userID"
	UserKey        = "user"
	AccessTokenKey = "accessToken"
)

// Authenticator verifies access tokens bound to a client fingerprint.
type Authenticator interface {
	Fingerprint(userAgent, ip string) string
	Authenticate(accessToken, fingerprint string) (*models.User, error)
}

// Auth requires a valid Bearer access token and stores the caller in the
// context under UserIDKey, UserKey and AccessTokenKey.
func Auth(tokens Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c.GetHeader("Authorization"))
		if token == "" {
			AbortWithError(c, apperrors.ErrUnauthorized)
			return
		}

		user, err := tokens.Authenticate(token, tokens.Fingerprint(c.Request.UserAgent(), c.ClientIP()))
		if err != nil {
			var appErr *apperrors.AppError
			if errors.As(err, &appErr) && appErr.Code == apperrors.ErrFingerprintMismatch.Code {
				logger.Get().Warnw("token fingerprint mismatch",
					"path", c.Request.URL.Path,
					"client_ip", c.ClientIP(),
				)
			}
			AbortWithError(c, err)
			return
		}

		c.Set(UserIDKey, user.ID)
		c.Set(UserKey, user)
		c.Set(AccessTokenKey, token)
		c.Next()
	}
}

func bearerToken(header string) string {
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return ""
	}
	return strings.TrimSpace(token)
}
