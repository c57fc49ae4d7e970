package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"market_chat/internal/service"
	apperrors "market_chat/pkg/errors"
	"market_chat/pkg/logger"
)

// ContextUserID - ключ gin-контекста с id аутентифицированного пользователя.
const ContextUserID = "user_id"

type AuthMiddleware struct {
	authService service.AuthService
	log         logger.Logger
}

func NewAuthMiddleware(authService service.AuthService, log logger.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		authService: authService,
		log:         log,
	}
}

// RequireAuth отвечает 401, если в запросе нет валидного токена.
// Стоит и на websocket-маршруте: handshake без токена отклоняется до upgrade.
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := TokenFromRequest(c.Request)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or missing token"})
			return
		}

		userID, err := m.authService.Authenticate(c.Request.Context(), token)
		if err != nil {
			status := apperrors.HTTPStatusFromError(err)
			if status != http.StatusUnauthorized {
				m.log.Error("Identity lookup failed", "error", err)
				c.AbortWithStatusJSON(status, gin.H{"error": "Failed to resolve user"})
				return
			}
			m.log.Warn("Token validation failed", "error", err.Error())
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or missing token"})
			return
		}

		c.Set(ContextUserID, userID)
		c.Next()
	}
}

// TokenFromRequest берёт токен из query-параметра token,
// иначе из заголовка "Authorization: Bearer".
func TokenFromRequest(r *http.Request) string {
	if token := strings.TrimSpace(r.URL.Query().Get("token")); token != "" {
		return token
	}
	header := r.Header.Get("Authorization")
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// UserID возвращает id, выставленный RequireAuth.
func UserID(c *gin.Context) (string, bool) {
	id := c.GetString(ContextUserID)
	return id, id != ""
}
