package handler

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"market_chat/internal/config"
	"market_chat/internal/realtime"
	"market_chat/internal/service"
	"market_chat/pkg/logger"
)

type Handlers struct {
	Health    *HealthHandler
	Chat      *ChatHandler
	WebSocket *WebSocketHandler
}

func NewHandlers(services *service.Services, hub *realtime.Hub, db *pgxpool.Pool, rdb *redis.Client, cfg *config.Config, log logger.Logger) *Handlers {
	return &Handlers{
		Health:    NewHealthHandler(db, rdb, hub.Registry()),
		Chat:      NewChatHandler(services.Chat, log),
		WebSocket: NewWebSocketHandler(hub, cfg.WebSocket, log),
	}
}
