package realtime

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"market_chat/internal/config"
	"market_chat/pkg/logger"
)

var ErrSessionClosed = errors.New("session closed")

// Session оборачивает gorilla-соединение в Connection. Читает только горутина
// ReadLoop, запись из любых горутин идёт под writeMu: gorilla допускает
// одного писателя.
type Session struct {
	id     string
	userID string
	conn   *websocket.Conn
	cfg    config.WebSocketConfig
	log    logger.Logger

	writeMu   sync.Mutex
	closed    atomic.Bool
	closeOnce sync.Once
	done      chan struct{}
}

func NewSession(conn *websocket.Conn, userID string, cfg config.WebSocketConfig, log logger.Logger) *Session {
	id := uuid.NewString()
	return &Session{
		id:     id,
		userID: userID,
		conn:   conn,
		cfg:    cfg,
		log:    log.With("conn_id", id, "user_id", userID),
		done:   make(chan struct{}),
	}
}

func (s *Session) ID() string     { return s.id }
func (s *Session) UserID() string { return s.userID }
func (s *Session) IsOpen() bool   { return !s.closed.Load() }

func (s *Session) Send(payload []byte) error {
	if s.closed.Load() {
		return ErrSessionClosed
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := s.conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout)); err != nil {
		return err
	}
	if err := s.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		s.log.Debug("Write failed, closing session", "error", err)
		s.shutdown()
		return err
	}
	return nil
}

// Close отправляет close-кадр с кодом code и закрывает транспорт.
func (s *Session) Close(code int, reason string) error {
	if !s.closed.Load() {
		msg := websocket.FormatCloseMessage(code, reason)
		_ = s.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(s.cfg.WriteTimeout))
	}
	s.shutdown()
	return nil
}

func (s *Session) shutdown() {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		close(s.done)
		_ = s.conn.Close()
	})
}

// ReadLoop передаёт входящие текстовые кадры в handle, пока клиент не уйдёт
// или не истечёт ожидание pong. Кадры обрабатываются по одному, по порядку.
func (s *Session) ReadLoop(handle func(data []byte)) error {
	defer s.shutdown()

	s.conn.SetReadLimit(s.cfg.ReadLimit)
	_ = s.conn.SetReadDeadline(time.Now().Add(s.cfg.PongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(s.cfg.PongWait))
	})

	for {
		kind, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				return err
			}
			return nil
		}
		if kind != websocket.TextMessage {
			continue
		}
		handle(data)
	}
}

// Keepalive шлёт ping, пока сессия открыта.
func (s *Session) Keepalive() {
	ticker := time.NewTicker(s.cfg.PingPeriod())
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(s.cfg.WriteTimeout)); err != nil {
				s.log.Debug("Ping failed, closing session", "error", err)
				s.shutdown()
				return
			}
		case <-s.done:
			return
		}
	}
}
