package middleware

import (
	"errors"

	"github.com/gin-gonic/gin"

	apperrors "spendify/internal/errors"
	"spendify/internal/logger"
)

// RespondWithError writes the error envelope for err. AppErrors keep their
// status, code and message; anything else is logged and reported as a
// generic internal error so no detail leaks to the client.
func RespondWithError(c *gin.Context, err error) {
	appErr := resolve(c, err)
	c.JSON(appErr.StatusCode, appErr.Response())
}

// AbortWithError writes the error envelope and stops the handler chain.
func AbortWithError(c *gin.Context, err error) {
	appErr := resolve(c, err)
	c.AbortWithStatusJSON(appErr.StatusCode, appErr.Response())
}

func resolve(c *gin.Context, err error) *apperrors.AppError {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		if appErr.Internal != nil {
			logger.Get().Errorw("app error",
				"code", appErr.Code,
				"message", appErr.Message,
				"internal", appErr.Internal.Error(),
				"path", c.Request.URL.Path,
			)
		}
		return appErr
	}

	logger.Get().Errorw("unexpected error",
		"error", err.Error(),
		"path", c.Request.URL.Path,
		"method", c.Request.Method,
	)
	return apperrors.ErrInternalServer
}

// ErrorHandler converts errors attached with c.Error into the standard
// envelope when the handler has not already written a response.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		RespondWithError(c, c.Errors.Last().Err)
	}
}

// Recovery turns a panic into a logged 500 with the standard envelope.
func Recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		logger.Get().Errorw("panic recovered",
			"panic", recovered,
			"path", c.Request.URL.Path,
			"method", c.Request.Method,
		)
		c.AbortWithStatusJSON(apperrors.ErrInternalServer.StatusCode, apperrors.ErrInternalServer.Response())
	})
}
