package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"market_chat/internal/domain"
	"market_chat/internal/repository"
	apperrors "market_chat/pkg/errors"
	"market_chat/pkg/logger"
	"market_chat/pkg/metrics"
)

const (
	DefaultHistorySize = 50
	MaxHistorySize     = 200
)

// LeaveResult сообщает, опустела ли комната и была ли удалена.
type LeaveResult struct {
	RoomDeleted bool
}

// ChatService владеет состоянием комнат, участников и сообщений.
// Только он пишет в таблицы чата.
type ChatService interface {
	CreateRoom(ctx context.Context, creatorID string, otherIDs []string, title *string) (*domain.Room, error)
	RoomsOf(ctx context.Context, userID string) ([]*domain.Room, error)
	// SaveMessage сохраняет сообщение senderID. Пустой senderID - системное
	// сообщение без отправителя.
	SaveMessage(ctx context.Context, roomID int64, senderID string, content string) (*domain.ChatMessage, error)
	RecentMessages(ctx context.Context, roomID int64, limit int) ([]*domain.ChatMessage, error)
	MarkRead(ctx context.Context, roomID int64, userID string) error
	Leave(ctx context.Context, roomID int64, userID string) (LeaveResult, error)
	UnreadCount(ctx context.Context, roomID int64, userID string) (int64, error)
	SearchRooms(ctx context.Context, userID string, nickname string) ([]*domain.RoomSummary, error)
}

type chatService struct {
	userRepo repository.UserRepository
	roomRepo repository.RoomRepository
	chatRepo repository.ChatRepository
	audit    AuditService
	log      logger.Logger
	now      func() time.Time
}

func NewChatService(userRepo repository.UserRepository, roomRepo repository.RoomRepository, chatRepo repository.ChatRepository, audit AuditService, log logger.Logger) ChatService {
	return &chatService{
		userRepo: userRepo,
		roomRepo: roomRepo,
		chatRepo: chatRepo,
		audit:    audit,
		log:      log,
		now:      time.Now,
	}
}

// clock возвращает время с точностью, которую хранит postgres:
// прочитанные значения совпадают с записанными.
func (s *chatService) clock() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

func (s *chatService) CreateRoom(ctx context.Context, creatorID string, otherIDs []string, title *string) (*domain.Room, error) {
	if strings.TrimSpace(creatorID) == "" {
		return nil, apperrors.ErrUnauthorized
	}

	ids := distinct(append([]string{creatorID}, otherIDs...))
	users, err := s.userRepo.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		if _, ok := users[id]; !ok {
			return nil, fmt.Errorf("%w: %s", apperrors.ErrUserNotFound, id)
		}
	}

	now := s.clock()
	room := &domain.Room{Title: title, CreatedAt: now}
	participants := make([]*domain.Participant, 0, len(ids))
	for _, id := range ids {
		participants = append(participants, &domain.Participant{
			UserID:     id,
			JoinedAt:   now,
			LastReadAt: domain.InitialLastReadAt,
		})
	}

	if err := s.roomRepo.CreateWithParticipants(ctx, room, participants); err != nil {
		return nil, err
	}

	s.logEvent(ctx, creatorID, room.ID, domain.EventTypeRoomCreated, map[string]interface{}{
		"participants": ids,
	})
	s.log.Info("Room created", "room_id", room.ID, "participants", len(ids))
	return room, nil
}

func (s *chatService) RoomsOf(ctx context.Context, userID string) ([]*domain.Room, error) {
	if _, err := s.userRepo.GetByID(ctx, userID); err != nil {
		return nil, err
	}
	rooms, err := s.roomRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if rooms == nil {
		rooms = []*domain.Room{}
	}
	return rooms, nil
}

func (s *chatService) SaveMessage(ctx context.Context, roomID int64, senderID string, content string) (*domain.ChatMessage, error) {
	if utf8.RuneCountInString(content) > domain.MaxMessageLength {
		return nil, fmt.Errorf("%w: message longer than %d characters", apperrors.ErrBadRequest, domain.MaxMessageLength)
	}

	msg := &domain.ChatMessage{
		RoomID:    roomID,
		Content:   content,
		CreatedAt: s.clock(),
	}
	if senderID != "" {
		msg.SenderID = &senderID
	}

	if err := s.chatRepo.CreateMessage(ctx, msg); err != nil {
		return nil, err
	}
	return msg, nil
}

func (s *chatService) RecentMessages(ctx context.Context, roomID int64, limit int) ([]*domain.ChatMessage, error) {
	if limit <= 0 {
		limit = DefaultHistorySize
	}
	if limit > MaxHistorySize {
		limit = MaxHistorySize
	}

	if _, err := s.roomRepo.GetByID(ctx, roomID); err != nil {
		return nil, err
	}
	return s.chatRepo.GetRecentMessages(ctx, roomID, limit)
}

func (s *chatService) MarkRead(ctx context.Context, roomID int64, userID string) error {
	if _, err := s.roomRepo.GetByID(ctx, roomID); err != nil {
		return err
	}
	return s.roomRepo.UpdateLastRead(ctx, roomID, userID, s.clock())
}

// Leave проставляет left_at участнику. Если активных не осталось, комната
// удаляется вместе с сообщениями и участниками.
func (s *chatService) Leave(ctx context.Context, roomID int64, userID string) (LeaveResult, error) {
	if _, err := s.roomRepo.GetByID(ctx, roomID); err != nil {
		return LeaveResult{}, err
	}
	if err := s.roomRepo.MarkLeft(ctx, roomID, userID, s.clock()); err != nil {
		return LeaveResult{}, err
	}
	s.logEvent(ctx, userID, roomID, domain.EventTypeRoomLeft, nil)

	participants, err := s.roomRepo.ListParticipants(ctx, roomID)
	if err != nil {
		return LeaveResult{}, err
	}
	if !domain.AllLeft(participants) {
		return LeaveResult{}, nil
	}

	if err := s.roomRepo.Purge(ctx, roomID); err != nil {
		return LeaveResult{}, err
	}
	metrics.RoomsDeleted.Inc()
	s.logEvent(ctx, "", roomID, domain.EventTypeRoomDeleted, nil)
	s.log.Info("Room deleted after last participant left", "room_id", roomID)
	return LeaveResult{RoomDeleted: true}, nil
}

// UnreadCount считает сообщения новее отметки прочтения. Для пользователя
// без строки участника непрочитаны все сообщения.
func (s *chatService) UnreadCount(ctx context.Context, roomID int64, userID string) (int64, error) {
	if _, err := s.roomRepo.GetByID(ctx, roomID); err != nil {
		return 0, err
	}

	var since time.Time
	p, err := s.roomRepo.GetParticipant(ctx, roomID, userID)
	switch {
	case err == nil:
		since = p.LastReadAt
	case errors.Is(err, apperrors.ErrParticipantNotFound):
	default:
		return 0, err
	}
	return s.chatRepo.CountAfter(ctx, roomID, since)
}

// SearchRooms возвращает комнаты пользователя, где ник другого участника
// содержит запрос без учёта регистра. Пустой запрос - все комнаты,
// где есть хотя бы один собеседник.
func (s *chatService) SearchRooms(ctx context.Context, userID string, nickname string) ([]*domain.RoomSummary, error) {
	rooms, err := s.RoomsOf(ctx, userID)
	if err != nil {
		return nil, err
	}
	query := strings.ToLower(strings.TrimSpace(nickname))

	results := make([]*domain.RoomSummary, 0, len(rooms))
	for _, room := range rooms {
		participants, err := s.roomRepo.ListParticipants(ctx, room.ID)
		if err != nil {
			return nil, err
		}

		matched := false
		summaries := make([]*domain.UserSummary, 0, len(participants))
		for _, p := range participants {
			u := p.User
			if u == nil {
				u = &domain.UserSummary{UserID: p.UserID}
			}
			summaries = append(summaries, u)
			if p.UserID == userID {
				continue
			}
			if query == "" || strings.Contains(strings.ToLower(u.Nickname), query) {
				matched = true
			}
		}
		if !matched {
			continue
		}

		unread, err := s.UnreadCount(ctx, room.ID, userID)
		if err != nil {
			s.log.Warn("Unread count failed during search", "error", err, "room_id", room.ID)
			unread = 0
		}
		results = append(results, &domain.RoomSummary{
			RoomID:        room.ID,
			Title:         room.Title,
			Participants:  summaries,
			LastMessageAt: room.LastMessageAt,
			UnreadCount:   unread,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i].LastMessageAt, results[j].LastMessageAt
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return a.After(*b)
		}
	})
	return results, nil
}

// logEvent пишет запись аудита. Ошибки только логируются.
func (s *chatService) logEvent(ctx context.Context, actorID string, roomID int64, eventType string, payload map[string]interface{}) {
	if s.audit == nil {
		return
	}
	role := domain.ActorRoleUser
	var actor *string
	if actorID != "" {
		actor = &actorID
	} else {
		role = domain.ActorRoleSystem
	}
	if err := s.audit.LogEvent(ctx, actor, role, &roomID, eventType, payload); err != nil {
		s.log.Warn("Failed to write audit log", "error", err, "event", eventType, "room_id", roomID)
	}
}

func distinct(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
