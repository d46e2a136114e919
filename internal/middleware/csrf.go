package middleware

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "spendify/internal/errors"
	"spendify/internal/logger"
)

const (
	// CSRFCookieName is the double-submit cookie read by the browser client.
	CSRFCookieName = "XSRF-TOKEN"

	csrfTokenKey   = "csrfToken"
	csrfTokenBytes = 32
)

// CSRF implements the double-submit cookie check. Safe methods mint a token
// cookie when none is present; unsafe methods must echo the cookie value in
// X-XSRF-TOKEN or X-CSRF-TOKEN.
func CSRF(secure bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		switch c.Request.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			token, err := c.Cookie(CSRFCookieName)
			if err != nil || token == "" {
				token, err = newCSRFToken()
				if err != nil {
					AbortWithError(c, apperrors.Wrap(apperrors.ErrInternalServer, err))
					return
				}
				http.SetCookie(c.Writer, &http.Cookie{
					Name:     CSRFCookieName,
					Value:    token,
					Path:     "/",
					HttpOnly: false,
					Secure:   secure,
					SameSite: http.SameSiteLaxMode,
				})
			}
			c.Set(csrfTokenKey, token)
			c.Next()
			return
		}

		cookie, _ := c.Cookie(CSRFCookieName)
		header := c.GetHeader("X-XSRF-TOKEN")
		if header == "" {
			header = c.GetHeader("X-CSRF-TOKEN")
		}
		if cookie == "" || header == "" || subtle.ConstantTimeCompare([]byte(cookie), []byte(header)) != 1 {
			logger.Get().Warnw("csrf token rejected",
				"method", c.Request.Method,
				"path", c.Request.URL.Path,
				"client_ip", c.ClientIP(),
			)
			AbortWithError(c, apperrors.ErrCSRF)
			return
		}
		c.Next()
	}
}

// CSRFToken returns the token the CSRF middleware attached to this request.
func CSRFToken(c *gin.Context) string {
	return c.GetString(csrfTokenKey)
}

func newCSRFToken() (string, error) {
	b := make([]byte, csrfTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
