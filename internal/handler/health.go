package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"market_chat/internal/realtime"
)

type HealthHandler struct {
	checks   map[string]func(ctx context.Context) error
	registry *realtime.Registry
}

func NewHealthHandler(db *pgxpool.Pool, rdb *redis.Client, registry *realtime.Registry) *HealthHandler {
	return &HealthHandler{
		checks: map[string]func(ctx context.Context) error{
			"database": db.Ping,
			"redis": func(ctx context.Context) error {
				return rdb.Ping(ctx).Err()
			},
		},
		registry: registry,
	}
}

// Check отдаёт состояние зависимостей и число живых соединений.
// Любая упавшая зависимость даёт 503.
func (h *HealthHandler) Check(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	deps := gin.H{}
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			deps[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		deps[name] = "ok"
	}

	state := "ok"
	if status != http.StatusOK {
		state = "degraded"
	}
	c.JSON(status, gin.H{
		"status":       state,
		"service":      "market-chat",
		"dependencies": deps,
		"connections":  h.registry.ConnectionCount(),
		"rooms":        h.registry.RoomCount(),
	})
}
