package realtime

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
	"market_chat/internal/domain"
	"market_chat/internal/service"
	apperrors "market_chat/pkg/errors"
	"market_chat/pkg/logger"
	"market_chat/pkg/metrics"
)

// RoomLifecycle - часть сервиса чата, которой пользуется хаб.
type RoomLifecycle interface {
	SaveMessage(ctx context.Context, roomID int64, senderID string, content string) (*domain.ChatMessage, error)
	MarkRead(ctx context.Context, roomID int64, userID string) error
	Leave(ctx context.Context, roomID int64, userID string) (service.LeaveResult, error)
}

const (
	saveFailedMessage    = "message could not be saved"
	shutdownPollInterval = 20 * time.Millisecond
)

// Hub ведёт протокол JOIN/TALK/LEAVE для аутентифицированных соединений
// и рассылает кадры подписчикам комнаты.
type Hub struct {
	registry  *Registry
	rooms     RoomLifecycle
	log       logger.Logger
	opTimeout time.Duration
}

func NewHub(registry *Registry, rooms RoomLifecycle, opTimeout time.Duration, log logger.Logger) *Hub {
	if opTimeout <= 0 {
		opTimeout = 5 * time.Second
	}
	return &Hub{registry: registry, rooms: rooms, log: log, opTimeout: opTimeout}
}

func (h *Hub) Registry() *Registry {
	return h.registry
}

// Connect регистрирует аутентифицированное соединение. Соединение без
// пользователя закрывается с ClosePolicyViolation и не регистрируется.
func (h *Hub) Connect(conn Connection) error {
	if conn.UserID() == "" {
		h.log.Warn("Refusing unauthenticated connection", "conn_id", conn.ID())
		_ = conn.Close(websocket.ClosePolicyViolation, "authentication required")
		return apperrors.ErrUnauthorized
	}
	h.registry.Register(conn)
	h.log.Debug("Connection established", "conn_id", conn.ID(), "user_id", conn.UserID())
	return nil
}

// Disconnect забывает соединение. От его имени ничего не рассылается.
func (h *Hub) Disconnect(conn Connection) {
	h.registry.UnregisterEverywhere(conn)
	h.log.Debug("Connection closed", "conn_id", conn.ID(), "user_id", conn.UserID())
}

// Shutdown закрывает все сессии с CloseGoingAway и ждёт, пока Serve каждой
// из них снимет регистрацию. Кадр в обработке при этом успевает сохраниться:
// цикл чтения выходит только после него.
func (h *Hub) Shutdown(ctx context.Context) error {
	n := h.registry.CloseAll(websocket.CloseGoingAway, "server shutting down")
	if n == 0 {
		return nil
	}
	h.log.Info("Closing websocket sessions", "count", n)

	ticker := time.NewTicker(shutdownPollInterval)
	defer ticker.Stop()
	for h.registry.ConnectionCount() > 0 {
		select {
		case <-ctx.Done():
			return fmt.Errorf("%d websocket sessions still open: %w", h.registry.ConnectionCount(), ctx.Err())
		case <-ticker.C:
		}
	}
	return nil
}

// Serve владеет сессией всё время её жизни: регистрация, чтение кадров
// по порядку, снятие регистрации при закрытии.
func (h *Hub) Serve(ctx context.Context, s *Session) {
	if err := h.Connect(s); err != nil {
		return
	}
	defer h.Disconnect(s)

	go s.Keepalive()
	if err := s.ReadLoop(func(data []byte) { h.HandleFrame(ctx, s, data) }); err != nil {
		h.log.Debug("Session ended unexpectedly", "conn_id", s.ID(), "error", err)
	}
}

// HandleFrame обрабатывает один входящий кадр. Невалидные кадры
// отбрасываются, соединение остаётся открытым.
func (h *Hub) HandleFrame(ctx context.Context, conn Connection, data []byte) {
	frame, err := DecodeFrame(data)
	if err != nil {
		metrics.FramesDropped.WithLabelValues("invalid").Inc()
		h.log.Warn("Dropping invalid frame", "conn_id", conn.ID(), "error", err)
		return
	}
	// отправителю из кадра не верим
	frame.SenderUserID = conn.UserID()
	metrics.FramesReceived.WithLabelValues(string(frame.MessageType)).Inc()

	// Сохранение живёт дольше транспорта: закрытие сокета не должно
	// оборвать запись или выход на полпути.
	opCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), h.opTimeout)
	defer cancel()

	roomID := *frame.RoomID
	userID := frame.SenderUserID

	switch frame.MessageType {
	case MessageTypeJoin:
		h.registry.Subscribe(roomID, conn)
		frame.Message = JoinNotice(userID)

	case MessageTypeLeave:
		h.registry.Unsubscribe(roomID, conn)
		frame.Message = LeaveNotice(userID)
		res, err := h.rooms.Leave(opCtx, roomID, userID)
		h.bestEffort("leave", roomID, userID, err)
		if res.RoomDeleted {
			h.log.Info("Room emptied and deleted", "room_id", roomID)
		}

	case MessageTypeTalk:
		if _, err := h.rooms.SaveMessage(opCtx, roomID, userID, frame.Message); err != nil {
			metrics.FramesDropped.WithLabelValues("persistence").Inc()
			h.log.Error("Failed to save message", "error", err, "room_id", roomID, "user_id", userID)
			h.sendError(conn, roomID, userID)
			return
		}
		h.bestEffort("mark_read", roomID, userID, h.rooms.MarkRead(opCtx, roomID, userID))
	}

	h.Broadcast(roomID, frame)
}

// Broadcast пишет кадр всем открытым подписчикам комнаты.
// Ошибка записи пропускает только этого получателя.
func (h *Hub) Broadcast(roomID int64, frame *Frame) {
	payload, err := frame.Encode()
	if err != nil {
		h.log.Error("Failed to encode frame", "error", err)
		return
	}

	for _, member := range h.registry.MembersOf(roomID) {
		if !member.IsOpen() {
			metrics.BroadcastSkipped.Inc()
			continue
		}
		if err := member.Send(payload); err != nil {
			metrics.BroadcastSkipped.Inc()
			h.log.Debug("Skipping recipient", "conn_id", member.ID(), "error", err)
			continue
		}
		metrics.BroadcastDeliveries.Inc()
	}
}

func (h *Hub) sendError(conn Connection, roomID int64, userID string) {
	payload, err := (&Frame{
		MessageType:  MessageTypeError,
		RoomID:       &roomID,
		Message:      saveFailedMessage,
		SenderUserID: userID,
	}).Encode()
	if err != nil {
		return
	}
	if err := conn.Send(payload); err != nil {
		h.log.Debug("Failed to deliver error frame", "conn_id", conn.ID(), "error", err)
	}
}

// bestEffort логирует ошибку учёта, которая не должна останавливать рассылку.
func (h *Hub) bestEffort(op string, roomID int64, userID string, err error) {
	if err == nil {
		return
	}
	metrics.BookkeepingFailures.WithLabelValues(op).Inc()
	if errors.Is(err, apperrors.ErrPersistence) {
		h.log.Error("Bookkeeping failed", "op", op, "error", err, "room_id", roomID, "user_id", userID)
		return
	}
	h.log.Warn("Bookkeeping skipped", "op", op, "error", err, "room_id", roomID, "user_id", userID)
}
