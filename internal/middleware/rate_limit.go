package middleware

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"market_chat/internal/domain"
	"market_chat/internal/service"
	apperrors "market_chat/pkg/errors"
	"market_chat/pkg/logger"
)

type RateLimitMiddleware struct {
	rateLimitService service.RateLimitService
	log              logger.Logger
}

func NewRateLimitMiddleware(rateLimitService service.RateLimitService, log logger.Logger) *RateLimitMiddleware {
	return &RateLimitMiddleware{
		rateLimitService: rateLimitService,
		log:              log,
	}
}

// Limit считает запросы по пользователю, а до аутентификации по IP клиента.
// Если Redis недоступен, запросы пропускаем.
func (m *RateLimitMiddleware) Limit() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := domain.RateLimitKey(domain.RateLimitScopeIP, c.ClientIP())
		if userID, ok := UserID(c); ok {
			key = domain.RateLimitKey(domain.RateLimitScopeUser, userID)
		}

		res, err := m.rateLimitService.Allow(c.Request.Context(), key)
		if err != nil {
			m.log.Warn("Rate limit check failed, allowing request", "error", err)
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(res.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
		if !res.Allowed {
			c.Header("Retry-After", strconv.Itoa(int(res.ResetAfter.Seconds())+1))
			c.Error(apperrors.ErrRateLimited)
			c.Abort()
			return
		}
		c.Next()
	}
}
