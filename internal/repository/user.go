package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"market_chat/internal/domain"
	apperrors "market_chat/pkg/errors"
	"market_chat/pkg/logger"
)

// UserRepository читает таблицу users сервиса идентификации.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByIDs(ctx context.Context, ids []string) (map[string]*domain.User, error)
}

type userRepository struct {
	db  *pgxpool.Pool
	log logger.Logger
}

func NewUserRepository(db *pgxpool.Pool, log logger.Logger) UserRepository {
	return &userRepository{db: db, log: log}
}

const userColumns = `user_id, COALESCE(email, ''), user_name, nickname, created_at`

func scanUser(row pgx.Row) (*domain.User, error) {
	u := &domain.User{}
	err := row.Scan(&u.ID, &u.Email, &u.UserName, &u.Nickname, &u.CreatedAt)
	return u, err
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	u, err := scanUser(r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE user_id = $1`, id))
	if err != nil {
		if err != pgx.ErrNoRows {
			r.log.Error("Failed to get user", "error", err)
		}
		return nil, storeErr("get user", err, apperrors.ErrUserNotFound)
	}
	return u, nil
}

// GetByEmail возвращает самого нового пользователя с этим email.
func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	u, err := scanUser(r.db.QueryRow(ctx, `
		SELECT `+userColumns+` FROM users
		WHERE email = $1
		ORDER BY created_at DESC
		LIMIT 1
	`, email))
	if err != nil {
		if err != pgx.ErrNoRows {
			r.log.Error("Failed to get user by email", "error", err)
		}
		return nil, storeErr("get user by email", err, apperrors.ErrUserNotFound)
	}
	return u, nil
}

// GetByIDs возвращает существующих пользователей из ids по их id.
func (r *userRepository) GetByIDs(ctx context.Context, ids []string) (map[string]*domain.User, error) {
	rows, err := r.db.Query(ctx, `SELECT `+userColumns+` FROM users WHERE user_id = ANY($1)`, ids)
	if err != nil {
		r.log.Error("Failed to get users", "error", err)
		return nil, storeErr("get users", err, nil)
	}
	defer rows.Close()

	users := make(map[string]*domain.User, len(ids))
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, storeErr("scan user", err, nil)
		}
		users[u.ID] = u
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("get users", err, nil)
	}
	return users, nil
}
