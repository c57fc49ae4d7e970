package service

import (
	"context"
	"testing"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"market_chat/internal/config"
	apperrors "market_chat/pkg/errors"
	"market_chat/pkg/jwt"
	"market_chat/pkg/logger"
)

func TestAuthenticate(t *testing.T) {
	const secret = "test-secret"
	db := newMemDB(user("u-42", "Answer"))
	svc := NewAuthService(memUsers{db}, config.JWTConfig{AccessSecret: secret}, logger.Nop())
	ctx := context.Background()

	mint := func(userID, email, key string, ttl time.Duration) string {
		tok, err := jwt.GenerateAccessToken(userID, email, key, "", ttl)
		require.NoError(t, err)
		return tok
	}

	// Токены в том виде, в каком их выпускает сервис идентификации.
	issued := func(method gojwt.SigningMethod, claims gojwt.MapClaims) string {
		claims["exp"] = time.Now().Add(time.Hour).Unix()
		tok, err := gojwt.NewWithClaims(method, claims).SignedString([]byte(secret))
		require.NoError(t, err)
		return tok
	}

	tests := []struct {
		name    string
		token   string
		want    string
		wantErr error
	}{
		{
			name:  "issued user id token",
			token: issued(gojwt.SigningMethodHS512, gojwt.MapClaims{"sub": "AccessToken", "userId": "u-42"}),
			want:  "u-42",
		},
		{
			name:  "issued email token",
			token: issued(gojwt.SigningMethodHS512, gojwt.MapClaims{"sub": "AccessToken", "email": "u-42@example.com", "socialType": "GOOGLE"}),
			want:  "u-42",
		},
		{
			name:    "issued email token for unknown user",
			token:   issued(gojwt.SigningMethodHS512, gojwt.MapClaims{"sub": "AccessToken", "email": "ghost@example.com"}),
			wantErr: apperrors.ErrUnauthorized,
		},
		{
			name:    "refresh token",
			token:   issued(gojwt.SigningMethodHS512, gojwt.MapClaims{"sub": "RefreshToken"}),
			wantErr: apperrors.ErrUnauthorized,
		},
		{
			name:    "refresh token with user id",
			token:   issued(gojwt.SigningMethodHS512, gojwt.MapClaims{"sub": "RefreshToken", "userId": "u-42"}),
			wantErr: apperrors.ErrUnauthorized,
		},
		{
			name:    "subject only",
			token:   issued(gojwt.SigningMethodHS256, gojwt.MapClaims{"sub": "AccessToken"}),
			wantErr: apperrors.ErrUnauthorized,
		},
		{name: "user id claim", token: mint("u-7", "", secret, time.Hour), want: "u-7"},
		{name: "email fallback", token: mint("", "u-42@example.com", secret, time.Hour), want: "u-42"},
		{name: "unknown email", token: mint("", "nobody@example.com", secret, time.Hour), wantErr: apperrors.ErrUnauthorized},
		{name: "wrong secret", token: mint("u-7", "", "other", time.Hour), wantErr: apperrors.ErrInvalidToken},
		{name: "expired", token: mint("u-7", "", secret, -time.Minute), wantErr: apperrors.ErrTokenExpired},
		{name: "empty", token: "", wantErr: apperrors.ErrUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.Authenticate(ctx, tt.token)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRateLimitService_Allow(t *testing.T) {
	db := newMemDB()
	svc := NewRateLimitService(memRateLimit{db}, config.RateLimitConfig{Enabled: true, Limit: 2, Window: time.Minute}, logger.Nop())
	ctx := context.Background()

	for i, want := range []bool{true, true, false} {
		res, err := svc.Allow(ctx, "user:alice")
		require.NoError(t, err)
		assert.Equal(t, want, res.Allowed, "request %d", i+1)
		assert.Equal(t, 2, res.Limit)
	}

	res, err := svc.Allow(ctx, "user:bob")
	require.NoError(t, err)
	assert.True(t, res.Allowed)
	assert.Equal(t, 1, res.Remaining)
}
