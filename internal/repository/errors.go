package repository

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	apperrors "market_chat/pkg/errors"
)

const pgForeignKeyViolation = "23503"

// storeErr переводит ошибку драйвера в доменную: нет строк - notFound,
// всё остальное - ErrPersistence.
func storeErr(op string, err error, notFound error) error {
	if notFound != nil && errors.Is(err, pgx.ErrNoRows) {
		return notFound
	}
	return fmt.Errorf("%s: %w: %w", op, apperrors.ErrPersistence, err)
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolation
}
