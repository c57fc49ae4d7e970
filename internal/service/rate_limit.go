package service

import (
	"context"
	"time"

	"market_chat/internal/config"
	"market_chat/internal/repository"
	"market_chat/pkg/logger"
)

type RateLimitResult struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetAfter time.Duration
}

type RateLimitService interface {
	Allow(ctx context.Context, key string) (RateLimitResult, error)
}

type rateLimitService struct {
	rateLimitRepo repository.RateLimitRepository
	cfg           config.RateLimitConfig
	log           logger.Logger
}

func NewRateLimitService(rateLimitRepo repository.RateLimitRepository, cfg config.RateLimitConfig, log logger.Logger) RateLimitService {
	return &rateLimitService{
		rateLimitRepo: rateLimitRepo,
		cfg:           cfg,
		log:           log,
	}
}

// Allow учитывает один запрос по key в текущем окне.
func (s *rateLimitService) Allow(ctx context.Context, key string) (RateLimitResult, error) {
	count, ttl, err := s.rateLimitRepo.Hit(ctx, "ratelimit:"+key, s.cfg.Window)
	if err != nil {
		return RateLimitResult{}, err
	}

	remaining := s.cfg.Limit - int(count)
	if remaining < 0 {
		remaining = 0
	}
	return RateLimitResult{
		Allowed:    count <= int64(s.cfg.Limit),
		Limit:      s.cfg.Limit,
		Remaining:  remaining,
		ResetAfter: ttl,
	}, nil
}
