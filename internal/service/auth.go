package service

import (
	"context"
	"fmt"
	"strings"

	"market_chat/internal/config"
	"market_chat/internal/repository"
	apperrors "market_chat/pkg/errors"
	"market_chat/pkg/jwt"
	"market_chat/pkg/logger"
)

// AuthService превращает внешний access-токен в id пользователя.
type AuthService interface {
	Authenticate(ctx context.Context, tokenString string) (string, error)
}

type authService struct {
	userRepo repository.UserRepository
	jwtCfg   config.JWTConfig
	log      logger.Logger
}

func NewAuthService(userRepo repository.UserRepository, jwtCfg config.JWTConfig, log logger.Logger) AuthService {
	return &authService{
		userRepo: userRepo,
		jwtCfg:   jwtCfg,
		log:      log,
	}
}

// Authenticate проверяет токен и возвращает id пользователя: claim userId,
// иначе id пользователя, зарегистрированного под claim email.
// sub у сервиса идентификации хранит вид токена, поэтому как id не используется.
func (s *authService) Authenticate(ctx context.Context, tokenString string) (string, error) {
	tokenString = strings.TrimSpace(tokenString)
	if tokenString == "" {
		return "", apperrors.ErrUnauthorized
	}

	claims, err := jwt.ValidateToken(tokenString, s.jwtCfg.AccessSecret, s.jwtCfg.Issuer)
	if err != nil {
		s.log.Debug("Token rejected", "error", err)
		return "", err
	}
	if claims.IsRefresh() {
		return "", fmt.Errorf("%w: refresh token used for access", apperrors.ErrUnauthorized)
	}
	if id := claims.Identity(); id != "" {
		return id, nil
	}

	email := strings.TrimSpace(claims.Email)
	if email == "" {
		return "", fmt.Errorf("%w: token carries no identity", apperrors.ErrUnauthorized)
	}
	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return "", fmt.Errorf("%w: no user for token email", apperrors.ErrUnauthorized)
		}
		return "", err
	}
	return user.ID, nil
}
