package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"market_chat/internal/domain"
	apperrors "market_chat/pkg/errors"
)

// memDB - хранилище для in-memory репозиториев в тестах сервиса.
type memDB struct {
	mu           sync.Mutex
	nextID       int64
	users        map[string]*domain.User
	rooms        map[int64]*domain.Room
	participants []*domain.Participant
	messages     []*domain.ChatMessage
	audit        []*domain.AuditLog

	failCount error
	hits      map[string]int64
}

func newMemDB(users ...*domain.User) *memDB {
	db := &memDB{
		users: make(map[string]*domain.User),
		rooms: make(map[int64]*domain.Room),
		hits:  make(map[string]int64),
	}
	for _, u := range users {
		db.users[u.ID] = u
	}
	return db
}

func (db *memDB) id() int64 {
	db.nextID++
	return db.nextID
}

type memUsers struct{ db *memDB }

func (r memUsers) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	u, ok := r.db.users[id]
	if !ok {
		return nil, apperrors.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (r memUsers) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, u := range r.db.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, apperrors.ErrUserNotFound
}

func (r memUsers) GetByIDs(_ context.Context, ids []string) (map[string]*domain.User, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	out := make(map[string]*domain.User)
	for _, id := range ids {
		if u, ok := r.db.users[id]; ok {
			cp := *u
			out[id] = &cp
		}
	}
	return out, nil
}

type memRooms struct{ db *memDB }

func (r memRooms) CreateWithParticipants(_ context.Context, room *domain.Room, participants []*domain.Participant) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, p := range participants {
		if _, ok := r.db.users[p.UserID]; !ok {
			return apperrors.ErrUserNotFound
		}
	}
	room.ID = r.db.id()
	cp := *room
	r.db.rooms[room.ID] = &cp
	for _, p := range participants {
		p.ID = r.db.id()
		p.RoomID = room.ID
		pc := *p
		r.db.participants = append(r.db.participants, &pc)
	}
	return nil
}

func (r memRooms) GetByID(_ context.Context, id int64) (*domain.Room, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	room, ok := r.db.rooms[id]
	if !ok {
		return nil, apperrors.ErrRoomNotFound
	}
	cp := *room
	return &cp, nil
}

func (r memRooms) ListByUser(_ context.Context, userID string) ([]*domain.Room, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []*domain.Room
	for _, p := range r.db.participants {
		if p.UserID == userID {
			if room, ok := r.db.rooms[p.RoomID]; ok {
				cp := *room
				out = append(out, &cp)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (r memRooms) find(roomID int64, userID string) *domain.Participant {
	for _, p := range r.db.participants {
		if p.RoomID == roomID && p.UserID == userID {
			return p
		}
	}
	return nil
}

func (r memRooms) GetParticipant(_ context.Context, roomID int64, userID string) (*domain.Participant, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	p := r.find(roomID, userID)
	if p == nil {
		return nil, apperrors.ErrParticipantNotFound
	}
	cp := *p
	return &cp, nil
}

func (r memRooms) ListParticipants(_ context.Context, roomID int64) ([]*domain.Participant, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []*domain.Participant
	for _, p := range r.db.participants {
		if p.RoomID != roomID {
			continue
		}
		cp := *p
		if u, ok := r.db.users[p.UserID]; ok {
			cp.User = u.Summary()
		}
		out = append(out, &cp)
	}
	return out, nil
}

func (r memRooms) UpdateLastRead(_ context.Context, roomID int64, userID string, at time.Time) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	p := r.find(roomID, userID)
	if p == nil {
		return apperrors.ErrParticipantNotFound
	}
	p.LastReadAt = at
	return nil
}

func (r memRooms) MarkLeft(_ context.Context, roomID int64, userID string, at time.Time) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	p := r.find(roomID, userID)
	if p == nil {
		return apperrors.ErrParticipantNotFound
	}
	p.LeftAt = &at
	return nil
}

func (r memRooms) Purge(_ context.Context, roomID int64) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	msgs := r.db.messages[:0]
	for _, m := range r.db.messages {
		if m.RoomID != roomID {
			msgs = append(msgs, m)
		}
	}
	r.db.messages = msgs
	parts := r.db.participants[:0]
	for _, p := range r.db.participants {
		if p.RoomID != roomID {
			parts = append(parts, p)
		}
	}
	r.db.participants = parts
	delete(r.db.rooms, roomID)
	return nil
}

type memChat struct{ db *memDB }

func (r memChat) CreateMessage(_ context.Context, msg *domain.ChatMessage) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	room, ok := r.db.rooms[msg.RoomID]
	if !ok {
		return apperrors.ErrRoomNotFound
	}
	if msg.SenderID != nil {
		if _, ok := r.db.users[*msg.SenderID]; !ok {
			return apperrors.ErrUserNotFound
		}
	}
	msg.ID = r.db.id()
	if room.LastMessageAt == nil || msg.CreatedAt.After(*room.LastMessageAt) {
		at := msg.CreatedAt
		room.LastMessageAt = &at
	}
	cp := *msg
	r.db.messages = append(r.db.messages, &cp)
	return nil
}

func (r memChat) GetRecentMessages(_ context.Context, roomID int64, limit int) ([]*domain.ChatMessage, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var all []*domain.ChatMessage
	for _, m := range r.db.messages {
		if m.RoomID == roomID {
			cp := *m
			if m.SenderID != nil {
				if u, ok := r.db.users[*m.SenderID]; ok {
					cp.Sender = &domain.UserSummary{UserName: u.UserName, Nickname: u.Nickname}
				}
			}
			all = append(all, &cp)
		}
	}
	if len(all) > limit {
		all = all[len(all)-limit:]
	}
	return all, nil
}

func (r memChat) CountAfter(_ context.Context, roomID int64, after time.Time) (int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if r.db.failCount != nil {
		return 0, r.db.failCount
	}
	var n int64
	for _, m := range r.db.messages {
		if m.RoomID == roomID && m.CreatedAt.After(after) {
			n++
		}
	}
	return n, nil
}

type memAudit struct{ db *memDB }

func (r memAudit) CreateLog(_ context.Context, entry *domain.AuditLog) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	entry.ID = r.db.id()
	cp := *entry
	r.db.audit = append(r.db.audit, &cp)
	return nil
}

func (r memAudit) ListByRoom(_ context.Context, roomID int64) ([]*domain.AuditLog, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []*domain.AuditLog
	for _, e := range r.db.audit {
		if e.RoomID != nil && *e.RoomID == roomID {
			out = append(out, e)
		}
	}
	return out, nil
}

type memRateLimit struct{ db *memDB }

func (r memRateLimit) Hit(_ context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	r.db.hits[key]++
	return r.db.hits[key], window, nil
}
