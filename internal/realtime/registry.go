package realtime

import (
	"sync"

	"market_chat/pkg/metrics"
)

// Connection - одно живое клиентское соединение с точки зрения реестра и хаба.
type Connection interface {
	ID() string
	// UserID пустой у анонимного соединения.
	UserID() string
	IsOpen() bool
	Send(payload []byte) error
	Close(code int, reason string) error
}

type roomSet struct {
	mu      sync.RWMutex
	members map[string]Connection
}

func (s *roomSet) add(c Connection) {
	s.mu.Lock()
	s.members[c.ID()] = c
	s.mu.Unlock()
}

// remove сообщает, опустел ли набор.
func (s *roomSet) remove(c Connection) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.members, c.ID())
	return len(s.members) == 0
}

func (s *roomSet) size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.members)
}

func (s *roomSet) snapshot() []Connection {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Connection, 0, len(s.members))
	for _, c := range s.members {
		out = append(out, c)
	}
	return out
}

// Registry хранит живые соединения и их подписки на комнаты.
// Это только живость: членство в комнате определяет база.
//
// В набор комнаты добавляем под RLock реестра, пустые наборы удаляем
// только под Lock с повторной проверкой пустоты. Так Subscribe не попадёт
// в уже удалённый набор.
type Registry struct {
	mu    sync.RWMutex
	rooms map[int64]*roomSet

	connMu sync.RWMutex
	conns  map[string]Connection
}

func NewRegistry() *Registry {
	return &Registry{
		rooms: make(map[int64]*roomSet),
		conns: make(map[string]Connection),
	}
}

func (r *Registry) Register(c Connection) {
	r.connMu.Lock()
	r.conns[c.ID()] = c
	// gauge обновляем под тем же локом, иначе гонка оставит старое значение
	metrics.ConnectionsActive.Set(float64(len(r.conns)))
	r.connMu.Unlock()
}

// Subscribe добавляет c в комнату. Повторная подписка ничего не меняет.
func (r *Registry) Subscribe(roomID int64, c Connection) {
	r.mu.RLock()
	if set, ok := r.rooms[roomID]; ok {
		set.add(c)
		r.mu.RUnlock()
		return
	}
	r.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()
	set, ok := r.rooms[roomID]
	if !ok {
		set = &roomSet{members: make(map[string]Connection)}
		r.rooms[roomID] = set
	}
	set.add(c)
}

// Unsubscribe убирает c из комнаты. Неизвестные комнаты и соединения игнорируются.
func (r *Registry) Unsubscribe(roomID int64, c Connection) {
	r.mu.RLock()
	set, ok := r.rooms[roomID]
	empty := ok && set.remove(c)
	r.mu.RUnlock()

	if empty {
		r.prune(roomID)
	}
}

// UnregisterEverywhere убирает c из всех комнат и из списка соединений.
func (r *Registry) UnregisterEverywhere(c Connection) {
	r.connMu.Lock()
	delete(r.conns, c.ID())
	metrics.ConnectionsActive.Set(float64(len(r.conns)))
	r.connMu.Unlock()

	var emptied []int64
	r.mu.RLock()
	for roomID, set := range r.rooms {
		if set.remove(c) {
			emptied = append(emptied, roomID)
		}
	}
	r.mu.RUnlock()

	for _, roomID := range emptied {
		r.prune(roomID)
	}
}

func (r *Registry) prune(roomID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if set, ok := r.rooms[roomID]; ok && set.size() == 0 {
		delete(r.rooms, roomID)
	}
}

// MembersOf возвращает снимок подписчиков комнаты.
func (r *Registry) MembersOf(roomID int64) []Connection {
	r.mu.RLock()
	set, ok := r.rooms[roomID]
	r.mu.RUnlock()
	if !ok {
		return nil
	}
	return set.snapshot()
}

func (r *Registry) ConnectionCount() int {
	r.connMu.RLock()
	defer r.connMu.RUnlock()
	return len(r.conns)
}

// RoomCount - число комнат, где есть хотя бы один подписчик.
func (r *Registry) RoomCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}

// CloseAll закрывает все зарегистрированные соединения с кодом code и
// возвращает их число. Из реестра их уберёт Serve при выходе из цикла чтения.
func (r *Registry) CloseAll(code int, reason string) int {
	r.connMu.RLock()
	conns := make([]Connection, 0, len(r.conns))
	for _, c := range r.conns {
		conns = append(conns, c)
	}
	r.connMu.RUnlock()

	for _, c := range conns {
		_ = c.Close(code, reason)
	}
	return len(conns)
}
