package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"market_chat/internal/domain"
	"market_chat/pkg/logger"
)

type AuditRepository interface {
	CreateLog(ctx context.Context, log *domain.AuditLog) error
	ListByRoom(ctx context.Context, roomID int64) ([]*domain.AuditLog, error)
}

type auditRepository struct {
	db  *pgxpool.Pool
	log logger.Logger
}

func NewAuditRepository(db *pgxpool.Pool, log logger.Logger) AuditRepository {
	return &auditRepository{db: db, log: log}
}

func (r *auditRepository) CreateLog(ctx context.Context, entry *domain.AuditLog) error {
	if entry.Payload == nil {
		entry.Payload = map[string]interface{}{}
	}
	err := r.db.QueryRow(ctx, `
		INSERT INTO audit_log (event_time, actor_user_id, actor_role, room_id, event_type, payload)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`, entry.EventTime, entry.ActorUserID, entry.ActorRole,
		entry.RoomID, entry.EventType, entry.Payload,
	).Scan(&entry.ID)
	if err != nil {
		r.log.Error("Failed to create audit log", "error", err)
		return storeErr("create audit log", err, nil)
	}
	return nil
}

// ListByRoom возвращает журнал комнаты от старых к новым.
// Записи переживают удаление комнаты.
func (r *auditRepository) ListByRoom(ctx context.Context, roomID int64) ([]*domain.AuditLog, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, event_time, actor_user_id, actor_role, room_id, event_type, payload
		FROM audit_log
		WHERE room_id = $1
		ORDER BY event_time, id
	`, roomID)
	if err != nil {
		r.log.Error("Failed to list audit log", "error", err)
		return nil, storeErr("list audit log", err, nil)
	}
	defer rows.Close()

	var entries []*domain.AuditLog
	for rows.Next() {
		e := &domain.AuditLog{}
		if err := rows.Scan(&e.ID, &e.EventTime, &e.ActorUserID, &e.ActorRole, &e.RoomID, &e.EventType, &e.Payload); err != nil {
			return nil, storeErr("scan audit log", err, nil)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("list audit log", err, nil)
	}
	return entries, nil
}
