package handler

import (
	"github.com/gin-gonic/gin"
	"market_chat/internal/config"
	"market_chat/internal/middleware"
	apperrors "market_chat/pkg/errors"
	"market_chat/pkg/logger"
	"market_chat/pkg/metrics"
)

// SetupRouter регистрирует все маршруты. rateLimit равен nil, если лимит выключен.
func SetupRouter(
	handlers *Handlers,
	auth *middleware.AuthMiddleware,
	rateLimit *middleware.RateLimitMiddleware,
	cfg *config.Config,
	log logger.Logger,
) *gin.Engine {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(middleware.Recovery(log))
	router.Use(middleware.CORS(cfg.CORS))
	router.Use(middleware.RequestLogger(log))
	router.Use(middleware.ErrorHandler(log))

	router.NoRoute(func(c *gin.Context) {
		c.Error(apperrors.ErrNotFound)
	})

	router.GET("/health", handlers.Health.Check)
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	// WebSocket: токен в query или в заголовке, проверяется до upgrade
	router.GET("/ws/conn", auth.RequireAuth(), handlers.WebSocket.HandleConnection)

	chat := router.Group("/api/v1/chat")
	chat.Use(auth.RequireAuth())
	if rateLimit != nil {
		chat.Use(rateLimit.Limit())
	}
	{
		chat.POST("/rooms", handlers.Chat.CreateRoom)
		chat.GET("/rooms", handlers.Chat.ListRooms)
		chat.GET("/rooms/:id/messages", handlers.Chat.GetMessages)
		chat.GET("/rooms/:id/unread", handlers.Chat.UnreadCount)
		chat.POST("/rooms/:id/read", handlers.Chat.MarkRead)
		chat.POST("/rooms/:id/leave", handlers.Chat.Leave)
		chat.GET("/search/:nickname", handlers.Chat.Search)
		// пустой запрос: все комнаты, где есть собеседник
		chat.GET("/search", handlers.Chat.Search)
	}

	return router
}
