package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"market_chat/pkg/errors"
	"market_chat/pkg/logger"
)

// ErrorHandler отдаёт последнюю ошибку из c.Error как {"error": ...}
// со статусом, выведенным из ошибки.
func ErrorHandler(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		err := c.Errors.Last()

		statusCode := errors.HTTPStatusFromError(err.Err)
		message := err.Error()
		if statusCode >= http.StatusInternalServerError {
			log.Error("Request failed", "path", c.FullPath(), "error", err.Err)
			// детали ошибок хранилища наружу не отдаём
			message = http.StatusText(statusCode)
		}

		c.JSON(statusCode, gin.H{
			"error": message,
		})
	}
}
