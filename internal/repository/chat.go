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

type ChatRepository interface {
	CreateMessage(ctx context.Context, msg *domain.ChatMessage) error
	GetRecentMessages(ctx context.Context, roomID int64, limit int) ([]*domain.ChatMessage, error)
	CountAfter(ctx context.Context, roomID int64, after time.Time) (int64, error)
}

type chatRepository struct {
	db  *pgxpool.Pool
	log logger.Logger
}

func NewChatRepository(db *pgxpool.Pool, log logger.Logger) ChatRepository {
	return &chatRepository{db: db, log: log}
}

// CreateMessage сохраняет сообщение и в той же транзакции сдвигает
// last_message_at комнаты. Назад время не двигается: гонка двух TALK
// может закоммитить более раннее сообщение последним.
func (r *chatRepository) CreateMessage(ctx context.Context, msg *domain.ChatMessage) error {
	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE chat_rooms
			SET last_message_at = GREATEST(COALESCE(last_message_at, $2), $2)
			WHERE id = $1
		`, msg.RoomID, msg.CreatedAt)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return apperrors.ErrRoomNotFound
		}

		return tx.QueryRow(ctx, `
			INSERT INTO chat_messages (room_id, sender_id, content, created_at)
			VALUES ($1, $2, $3, $4)
			RETURNING id
		`, msg.RoomID, msg.SenderID, msg.Content, msg.CreatedAt).Scan(&msg.ID)
	})
	if err != nil {
		switch {
		case apperrors.IsNotFound(err):
			return err
		case isForeignKeyViolation(err):
			return apperrors.ErrUserNotFound
		}
		r.log.Error("Failed to create message", "error", err)
		return storeErr("create message", err, nil)
	}
	return nil
}

// GetRecentMessages возвращает limit последних сообщений по возрастанию времени.
func (r *chatRepository) GetRecentMessages(ctx context.Context, roomID int64, limit int) ([]*domain.ChatMessage, error) {
	rows, err := r.db.Query(ctx, `
		SELECT m.id, m.room_id, m.sender_id, m.content, m.created_at, u.user_name, u.nickname
		FROM (
			SELECT id, room_id, sender_id, content, created_at
			FROM chat_messages
			WHERE room_id = $1
			ORDER BY created_at DESC, id DESC
			LIMIT $2
		) m
		LEFT JOIN users u ON u.user_id = m.sender_id
		ORDER BY m.created_at ASC, m.id ASC
	`, roomID, limit)
	if err != nil {
		r.log.Error("Failed to get messages", "error", err)
		return nil, storeErr("get messages", err, nil)
	}
	defer rows.Close()

	messages := make([]*domain.ChatMessage, 0, limit)
	for rows.Next() {
		msg := &domain.ChatMessage{}
		var userName, nickname *string
		if err := rows.Scan(&msg.ID, &msg.RoomID, &msg.SenderID, &msg.Content, &msg.CreatedAt, &userName, &nickname); err != nil {
			return nil, storeErr("scan message", err, nil)
		}
		if msg.SenderID != nil {
			msg.Sender = summary("", userName, nickname)
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("get messages", err, nil)
	}
	return messages, nil
}

// CountAfter считает сообщения комнаты строго позже after.
func (r *chatRepository) CountAfter(ctx context.Context, roomID int64, after time.Time) (int64, error) {
	var count int64
	err := r.db.QueryRow(ctx, `
		SELECT COUNT(*) FROM chat_messages WHERE room_id = $1 AND created_at > $2
	`, roomID, after).Scan(&count)
	if err != nil {
		r.log.Error("Failed to count messages", "error", err)
		return 0, storeErr("count messages", err, nil)
	}
	return count, nil
}
