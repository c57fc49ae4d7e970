package repository

import (
	"context"
	"embed"
	"fmt"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"market_chat/pkg/logger"
)

//go:embed migrations/*.sql
var migrations embed.FS

// RunMigrations выполняет встроенные .sql файлы по порядку имён.
// Скрипты идемпотентны, их можно гонять при каждом старте.
func RunMigrations(ctx context.Context, db *pgxpool.Pool, log logger.Logger) error {
	entries, err := migrations.ReadDir("migrations")
	if err != nil {
		return err
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".sql") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	for _, name := range names {
		b, err := migrations.ReadFile("migrations/" + name)
		if err != nil {
			return err
		}
		if _, err := db.Exec(ctx, string(b)); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		log.Info("Migration applied", "file", name)
	}
	return nil
}
