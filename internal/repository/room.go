package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"market_chat/internal/domain"
	apperrors "market_chat/pkg/errors"
	"market_chat/pkg/logger"
)

type RoomRepository interface {
	CreateWithParticipants(ctx context.Context, room *domain.Room, participants []*domain.Participant) error
	GetByID(ctx context.Context, id int64) (*domain.Room, error)
	ListByUser(ctx context.Context, userID string) ([]*domain.Room, error)
	GetParticipant(ctx context.Context, roomID int64, userID string) (*domain.Participant, error)
	ListParticipants(ctx context.Context, roomID int64) ([]*domain.Participant, error)
	UpdateLastRead(ctx context.Context, roomID int64, userID string, at time.Time) error
	MarkLeft(ctx context.Context, roomID int64, userID string, at time.Time) error
	Purge(ctx context.Context, roomID int64) error
}

type roomRepository struct {
	db  *pgxpool.Pool
	log logger.Logger
}

func NewRoomRepository(db *pgxpool.Pool, log logger.Logger) RoomRepository {
	return &roomRepository{db: db, log: log}
}

// CreateWithParticipants создаёт комнату и всех участников одной транзакцией
// и проставляет сгенерированные id.
func (r *roomRepository) CreateWithParticipants(ctx context.Context, room *domain.Room, participants []*domain.Participant) error {
	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			INSERT INTO chat_rooms (title, created_at, last_message_at)
			VALUES ($1, $2, $3)
			RETURNING id
		`, room.Title, room.CreatedAt, room.LastMessageAt).Scan(&room.ID)
		if err != nil {
			return err
		}

		for _, p := range participants {
			p.RoomID = room.ID
			err := tx.QueryRow(ctx, `
				INSERT INTO chat_participants (room_id, user_id, joined_at, left_at, last_read_at)
				VALUES ($1, $2, $3, $4, $5)
				RETURNING id
			`, p.RoomID, p.UserID, p.JoinedAt, p.LeftAt, p.LastReadAt).Scan(&p.ID)
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		r.log.Error("Failed to create room", "error", err)
		if isForeignKeyViolation(err) {
			return apperrors.ErrUserNotFound
		}
		return storeErr("create room", err, nil)
	}
	return nil
}

func (r *roomRepository) GetByID(ctx context.Context, id int64) (*domain.Room, error) {
	room := &domain.Room{}
	err := r.db.QueryRow(ctx, `
		SELECT id, title, created_at, last_message_at
		FROM chat_rooms
		WHERE id = $1
	`, id).Scan(&room.ID, &room.Title, &room.CreatedAt, &room.LastMessageAt)
	if err != nil {
		if err != pgx.ErrNoRows {
			r.log.Error("Failed to get room", "error", err, "room_id", id)
		}
		return nil, storeErr("get room", err, apperrors.ErrRoomNotFound)
	}
	return room, nil
}

// ListByUser возвращает все комнаты, где у пользователя есть строка участника,
// включая покинутые.
func (r *roomRepository) ListByUser(ctx context.Context, userID string) ([]*domain.Room, error) {
	rows, err := r.db.Query(ctx, `
		SELECT r.id, r.title, r.created_at, r.last_message_at
		FROM chat_rooms r
		JOIN chat_participants p ON p.room_id = r.id
		WHERE p.user_id = $1
		ORDER BY r.last_message_at DESC NULLS LAST, r.id DESC
	`, userID)
	if err != nil {
		r.log.Error("Failed to list rooms", "error", err)
		return nil, storeErr("list rooms", err, nil)
	}
	defer rows.Close()

	var rooms []*domain.Room
	for rows.Next() {
		room := &domain.Room{}
		if err := rows.Scan(&room.ID, &room.Title, &room.CreatedAt, &room.LastMessageAt); err != nil {
			return nil, storeErr("scan room", err, nil)
		}
		rooms = append(rooms, room)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("list rooms", err, nil)
	}
	return rooms, nil
}

func (r *roomRepository) GetParticipant(ctx context.Context, roomID int64, userID string) (*domain.Participant, error) {
	p := &domain.Participant{}
	err := r.db.QueryRow(ctx, `
		SELECT id, room_id, user_id, joined_at, left_at, last_read_at
		FROM chat_participants
		WHERE room_id = $1 AND user_id = $2
	`, roomID, userID).Scan(&p.ID, &p.RoomID, &p.UserID, &p.JoinedAt, &p.LeftAt, &p.LastReadAt)
	if err != nil {
		if err != pgx.ErrNoRows {
			r.log.Error("Failed to get participant", "error", err)
		}
		return nil, storeErr("get participant", err, apperrors.ErrParticipantNotFound)
	}
	return p, nil
}

// ListParticipants возвращает участников комнаты с именами для отображения.
func (r *roomRepository) ListParticipants(ctx context.Context, roomID int64) ([]*domain.Participant, error) {
	rows, err := r.db.Query(ctx, `
		SELECT p.id, p.room_id, p.user_id, p.joined_at, p.left_at, p.last_read_at,
		       u.user_name, u.nickname
		FROM chat_participants p
		LEFT JOIN users u ON u.user_id = p.user_id
		WHERE p.room_id = $1
		ORDER BY p.id
	`, roomID)
	if err != nil {
		r.log.Error("Failed to list participants", "error", err)
		return nil, storeErr("list participants", err, nil)
	}
	defer rows.Close()

	var participants []*domain.Participant
	for rows.Next() {
		p := &domain.Participant{}
		var userName, nickname *string
		if err := rows.Scan(&p.ID, &p.RoomID, &p.UserID, &p.JoinedAt, &p.LeftAt, &p.LastReadAt, &userName, &nickname); err != nil {
			return nil, storeErr("scan participant", err, nil)
		}
		p.User = summary(p.UserID, userName, nickname)
		participants = append(participants, p)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("list participants", err, nil)
	}
	return participants, nil
}

func (r *roomRepository) UpdateLastRead(ctx context.Context, roomID int64, userID string, at time.Time) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE chat_participants SET last_read_at = $3
		WHERE room_id = $1 AND user_id = $2
	`, roomID, userID, at)
	if err != nil {
		r.log.Error("Failed to update last read", "error", err)
		return storeErr("update last read", err, nil)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrParticipantNotFound
	}
	return nil
}

func (r *roomRepository) MarkLeft(ctx context.Context, roomID int64, userID string, at time.Time) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE chat_participants SET left_at = $3
		WHERE room_id = $1 AND user_id = $2
	`, roomID, userID, at)
	if err != nil {
		r.log.Error("Failed to mark participant left", "error", err)
		return storeErr("mark left", err, nil)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrParticipantNotFound
	}
	return nil
}

// Purge удаляет сообщения, затем участников, затем комнату.
// Повторный Purge уже удалённой комнаты не ошибка.
func (r *roomRepository) Purge(ctx context.Context, roomID int64) error {
	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM chat_messages WHERE room_id = $1`, roomID); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `DELETE FROM chat_participants WHERE room_id = $1`, roomID); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, `DELETE FROM chat_rooms WHERE id = $1`, roomID)
		return err
	})
	if err != nil {
		r.log.Error("Failed to purge room", "error", err, "room_id", roomID)
		return storeErr("purge room", err, nil)
	}
	return nil
}

func summary(userID string, userName, nickname *string) *domain.UserSummary {
	if userName == nil && nickname == nil {
		return nil
	}
	s := &domain.UserSummary{UserID: userID}
	if userName != nil {
		s.UserName = *userName
	}
	if nickname != nil {
		s.Nickname = *nickname
	}
	return s
}
