package jwt

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	apperrors "market_chat/pkg/errors"
)

// Значения sub у токенов сервиса идентификации: sub хранит вид токена, а не пользователя.
const (
	SubjectAccessToken  = "AccessToken"
	SubjectRefreshToken = "RefreshToken"
)

// Сервис идентификации подписывает HS512, HS256 принимаем для старых токенов.
var validMethods = []string{
	jwt.SigningMethodHS512.Alg(),
	jwt.SigningMethodHS384.Alg(),
	jwt.SigningMethodHS256.Alg(),
}

// Claims выпускаются сервисом идентификации маркетплейса.
// Старые токены несут только email, новые несут userId.
type Claims struct {
	UserID     string `json:"userId,omitempty"`
	Email      string `json:"email,omitempty"`
	SocialType string `json:"socialType,omitempty"`
	jwt.RegisteredClaims
}

// Identity возвращает userId из токена. sub сюда не подмешиваем.
func (c *Claims) Identity() string {
	return strings.TrimSpace(c.UserID)
}

// IsRefresh сообщает, что это refresh-токен: для входа он не годится.
func (c *Claims) IsRefresh() bool {
	return c.Subject == SubjectRefreshToken
}

// GenerateAccessToken подписывает access-токен в формате сервиса идентификации.
// Клиентам чат токены не выдаёт: нужно для dev-команды и тестов.
func GenerateAccessToken(userID, email, secret, issuer string, ttl time.Duration) (string, error) {
	if userID == "" && email == "" {
		return "", errors.New("token needs a user id or an email")
	}
	now := time.Now()
	claims := Claims{
		UserID: userID,
		Email:  email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   SubjectAccessToken,
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS512, claims)
	return token.SignedString([]byte(secret))
}

// ValidateToken проверяет подпись, алгоритм и срок действия.
// Пустой issuer отключает проверку издателя.
func ValidateToken(tokenString, secret, issuer string) (*Claims, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods(validMethods)}
	if issuer != "" {
		opts = append(opts, jwt.WithIssuer(issuer))
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: %v", apperrors.ErrTokenExpired, err)
		}
		return nil, fmt.Errorf("%w: %v", apperrors.ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, apperrors.ErrInvalidToken
	}
	return claims, nil
}
