package middleware

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	apperrors "spendify/internal/errors"
	"spendify/internal/logger"
	"spendify/internal/sanitize"
)

const maxBodyBytes = 1 << 20

// Sanitize rejects operator keys in the query string and body, rejects markup
// in a body "category", and rewrites every string value with markup and script
// URIs stripped before any handler sees the request. Handlers bind JSON
// regardless of Content-Type, so every non-empty body is treated as JSON.
func Sanitize() gin.HandlerFunc {
	return func(c *gin.Context) {
		query := c.Request.URL.Query()
		keys := make([]string, 0, len(query))
		for k := range query {
			keys = append(keys, k)
		}
		if err := sanitize.GuardQueryKeys(keys, "query"); err != nil {
			rejectInput(c, err.Error())
			return
		}
		if len(query) > 0 {
			cleaned := make(url.Values, len(query))
			for k, vs := range query {
				for _, v := range vs {
					cleaned.Add(k, sanitize.StripXSS(v))
				}
			}
			c.Request.URL.RawQuery = cleaned.Encode()
		}

		if !hasBody(c.Request) {
			c.Next()
			return
		}

		raw, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes))
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				AbortWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "Request body too large"))
				return
			}
			rejectInput(c, "Invalid JSON payload")
			return
		}
		if len(bytes.TrimSpace(raw)) == 0 {
			c.Request.Body = io.NopCloser(bytes.NewReader(raw))
			c.Next()
			return
		}

		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.UseNumber()
		var body any
		if err := dec.Decode(&body); err != nil || dec.More() {
			rejectInput(c, "Invalid JSON payload")
			return
		}

		if err := sanitize.GuardKeys(body, "body"); err != nil {
			rejectInput(c, err.Error())
			return
		}
		if obj, ok := body.(map[string]any); ok {
			if category, ok := obj["category"].(string); ok && sanitize.HasHTMLTag(category) {
				rejectInput(c, "Category contains invalid characters")
				return
			}
		}

		out, err := json.Marshal(sanitize.Clean(body))
		if err != nil {
			AbortWithError(c, apperrors.Wrap(apperrors.ErrInternalServer, err))
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(out))
		c.Request.ContentLength = int64(len(out))
		c.Request.Header.Set("Content-Type", "application/json")
		c.Next()
	}
}

func hasBody(r *http.Request) bool {
	return r.Body != nil && r.Body != http.NoBody
}

func rejectInput(c *gin.Context, message string) {
	logger.Get().Warnw("input rejected",
		"reason", message,
		"path", c.Request.URL.Path,
		"client_ip", c.ClientIP(),
	)
	AbortWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, message))
}
