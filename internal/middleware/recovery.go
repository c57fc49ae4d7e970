package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	apperrors "market_chat/pkg/errors"
	"market_chat/pkg/logger"
)

// Recovery перехватывает панику в обработчике и отвечает 500 без деталей.
func Recovery(log logger.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		log.Error("Panic recovered",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"panic", recovered,
		)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error": apperrors.ErrInternalServer.Error(),
		})
	})
}
