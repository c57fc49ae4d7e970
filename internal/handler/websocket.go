package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"market_chat/internal/config"
	"market_chat/internal/middleware"
	"market_chat/internal/realtime"
	"market_chat/pkg/logger"
)

type WebSocketHandler struct {
	hub      *realtime.Hub
	cfg      config.WebSocketConfig
	upgrader websocket.Upgrader
	log      logger.Logger
}

func NewWebSocketHandler(hub *realtime.Hub, cfg config.WebSocketConfig, log logger.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		hub: hub,
		cfg: cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(cfg.AllowedOrigins),
		},
		log: log,
	}
}

// HandleConnection делает upgrade аутентифицированного запроса и ведёт
// протокол чата, пока клиент не отключится.
func (h *WebSocketHandler) HandleConnection(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or missing token"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error("Failed to upgrade connection", "error", err)
		return
	}

	session := realtime.NewSession(conn, userID, h.cfg, h.log)
	h.hub.Serve(c.Request.Context(), session)
}

func originChecker(allowed []string) func(r *http.Request) bool {
	if len(allowed) == 0 {
		return func(*http.Request) bool { return true }
	}
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		set[o] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := set[origin]
		return ok
	}
}
