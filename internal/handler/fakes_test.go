package handler

import (
	"context"
	"strings"
	"sync"
	"time"

	"market_chat/internal/domain"
	"market_chat/internal/service"
	apperrors "market_chat/pkg/errors"
)

type fakeAuth struct {
	tokens map[string]string
}

func (a fakeAuth) Authenticate(_ context.Context, token string) (string, error) {
	if id, ok := a.tokens[token]; ok {
		return id, nil
	}
	return "", apperrors.ErrInvalidToken
}

// fakeChat держит комнаты и сообщения в памяти. Если задан err,
// его возвращает любой вызов.
type fakeChat struct {
	mu       sync.Mutex
	nextID   int64
	rooms    map[int64]*domain.Room
	members  map[int64]map[string]bool
	messages map[int64][]*domain.ChatMessage
	err      error
}

func newFakeChat() *fakeChat {
	return &fakeChat{
		rooms:    make(map[int64]*domain.Room),
		members:  make(map[int64]map[string]bool),
		messages: make(map[int64][]*domain.ChatMessage),
	}
}

func (f *fakeChat) CreateRoom(_ context.Context, creatorID string, otherIDs []string, title *string) (*domain.Room, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	for _, id := range otherIDs {
		if strings.HasPrefix(id, "ghost") {
			return nil, apperrors.ErrUserNotFound
		}
	}
	f.nextID++
	room := &domain.Room{ID: f.nextID, Title: title, CreatedAt: time.Now().UTC()}
	f.rooms[room.ID] = room
	f.members[room.ID] = map[string]bool{creatorID: true}
	for _, id := range otherIDs {
		f.members[room.ID][id] = true
	}
	return room, nil
}

func (f *fakeChat) RoomsOf(_ context.Context, userID string) ([]*domain.Room, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	var out []*domain.Room
	for id, m := range f.members {
		if m[userID] {
			out = append(out, f.rooms[id])
		}
	}
	return out, nil
}

func (f *fakeChat) SaveMessage(_ context.Context, roomID int64, senderID string, content string) (*domain.ChatMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	if _, ok := f.rooms[roomID]; !ok {
		return nil, apperrors.ErrRoomNotFound
	}
	msg := &domain.ChatMessage{ID: int64(len(f.messages[roomID]) + 1), RoomID: roomID, SenderID: &senderID, Content: content, CreatedAt: time.Now().UTC()}
	msg.Sender = &domain.UserSummary{UserName: "name-" + senderID, Nickname: senderID}
	f.messages[roomID] = append(f.messages[roomID], msg)
	return msg, nil
}

func (f *fakeChat) RecentMessages(_ context.Context, roomID int64, limit int) ([]*domain.ChatMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	if _, ok := f.rooms[roomID]; !ok {
		return nil, apperrors.ErrRoomNotFound
	}
	msgs := f.messages[roomID]
	if len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	return msgs, nil
}

func (f *fakeChat) MarkRead(_ context.Context, roomID int64, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	if _, ok := f.rooms[roomID]; !ok {
		return apperrors.ErrRoomNotFound
	}
	if !f.members[roomID][userID] {
		return apperrors.ErrParticipantNotFound
	}
	return nil
}

func (f *fakeChat) Leave(_ context.Context, roomID int64, userID string) (service.LeaveResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return service.LeaveResult{}, f.err
	}
	if _, ok := f.rooms[roomID]; !ok {
		return service.LeaveResult{}, apperrors.ErrRoomNotFound
	}
	if !f.members[roomID][userID] {
		return service.LeaveResult{}, apperrors.ErrParticipantNotFound
	}
	delete(f.members[roomID], userID)
	if len(f.members[roomID]) > 0 {
		return service.LeaveResult{}, nil
	}
	delete(f.rooms, roomID)
	delete(f.members, roomID)
	delete(f.messages, roomID)
	return service.LeaveResult{RoomDeleted: true}, nil
}

func (f *fakeChat) UnreadCount(_ context.Context, roomID int64, _ string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return 0, f.err
	}
	if _, ok := f.rooms[roomID]; !ok {
		return 0, apperrors.ErrRoomNotFound
	}
	return int64(len(f.messages[roomID])), nil
}

func (f *fakeChat) SearchRooms(_ context.Context, userID string, nickname string) ([]*domain.RoomSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := []*domain.RoomSummary{}
	for id, m := range f.members {
		if !m[userID] {
			continue
		}
		for other := range m {
			if other != userID && strings.Contains(other, nickname) {
				out = append(out, &domain.RoomSummary{RoomID: id})
				break
			}
		}
	}
	return out, nil
}

type fakeRateLimit struct {
	mu    sync.Mutex
	limit int
	hits  map[string]int
}

func (r *fakeRateLimit) Allow(_ context.Context, key string) (service.RateLimitResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hits[key]++
	n := r.hits[key]
	remaining := r.limit - n
	if remaining < 0 {
		remaining = 0
	}
	return service.RateLimitResult{Allowed: n <= r.limit, Limit: r.limit, Remaining: remaining, ResetAfter: time.Minute}, nil
}
