package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"market_chat/internal/domain"
	"market_chat/internal/service"
)

type fakeConn struct {
	id     string
	userID string

	mu        sync.Mutex
	closed    bool
	failSend  bool
	sent      [][]byte
	closeCode int
}

var connSeq int

func newFakeConn(userID string) *fakeConn {
	connSeq++
	return &fakeConn{id: fmt.Sprintf("conn-%d", connSeq), userID: userID}
}

func (c *fakeConn) ID() string     { return c.id }
func (c *fakeConn) UserID() string { return c.userID }

func (c *fakeConn) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.closed
}

func (c *fakeConn) Send(payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.failSend {
		return errors.New("send failed")
	}
	c.sent = append(c.sent, payload)
	return nil
}

func (c *fakeConn) Close(code int, _ string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.closeCode = code
	return nil
}

func (c *fakeConn) frames() []Frame {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Frame, 0, len(c.sent))
	for _, b := range c.sent {
		var f Frame
		if err := json.Unmarshal(b, &f); err == nil {
			out = append(out, f)
		}
	}
	return out
}

type leaveCall struct {
	roomID int64
	userID string
}

type fakeLifecycle struct {
	mu       sync.Mutex
	saved    []domain.ChatMessage
	reads    []leaveCall
	leaves   []leaveCall
	saveErr  error
	readErr  error
	leaveErr error
	ctxErrs  []error

	// saveStarted получает сигнал при входе в SaveMessage, saveGate держит сохранение.
	saveStarted chan struct{}
	saveGate    chan struct{}
}

func (f *fakeLifecycle) SaveMessage(ctx context.Context, roomID int64, senderID string, content string) (*domain.ChatMessage, error) {
	if f.saveStarted != nil {
		f.saveStarted <- struct{}{}
	}
	if f.saveGate != nil {
		<-f.saveGate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ctxErrs = append(f.ctxErrs, ctx.Err())
	if f.saveErr != nil {
		return nil, f.saveErr
	}
	msg := domain.ChatMessage{ID: int64(len(f.saved) + 1), RoomID: roomID, SenderID: &senderID, Content: content}
	f.saved = append(f.saved, msg)
	return &msg, nil
}

func (f *fakeLifecycle) MarkRead(_ context.Context, roomID int64, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reads = append(f.reads, leaveCall{roomID, userID})
	return f.readErr
}

func (f *fakeLifecycle) Leave(_ context.Context, roomID int64, userID string) (service.LeaveResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.leaves = append(f.leaves, leaveCall{roomID, userID})
	return service.LeaveResult{}, f.leaveErr
}

func (f *fakeLifecycle) savedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.saved)
}
