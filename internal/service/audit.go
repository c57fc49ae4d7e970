package service

import (
	"context"
	"time"

	"market_chat/internal/domain"
	"market_chat/internal/repository"
	"market_chat/pkg/logger"
)

type AuditService interface {
	LogEvent(ctx context.Context, actorUserID *string, actorRole string, roomID *int64, eventType string, payload map[string]interface{}) error
	RoomTrail(ctx context.Context, roomID int64) ([]*domain.AuditLog, error)
}

type auditService struct {
	auditRepo repository.AuditRepository
	log       logger.Logger
}

func NewAuditService(auditRepo repository.AuditRepository, log logger.Logger) AuditService {
	return &auditService{
		auditRepo: auditRepo,
		log:       log,
	}
}

func (s *auditService) LogEvent(ctx context.Context, actorUserID *string, actorRole string, roomID *int64, eventType string, payload map[string]interface{}) error {
	if payload == nil {
		payload = make(map[string]interface{})
	}

	return s.auditRepo.CreateLog(ctx, &domain.AuditLog{
		EventTime:   time.Now().UTC().Truncate(time.Microsecond),
		ActorUserID: actorUserID,
		ActorRole:   actorRole,
		RoomID:      roomID,
		EventType:   eventType,
		Payload:     payload,
	})
}

func (s *auditService) RoomTrail(ctx context.Context, roomID int64) ([]*domain.AuditLog, error) {
	return s.auditRepo.ListByRoom(ctx, roomID)
}
