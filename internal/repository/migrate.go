package repository

import (
	"embed"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// MigrationResult описывает версию схемы до и после применения миграций
type MigrationResult struct {
	From uint
	To   uint
}

// Migrate применяет к базе все новые миграции
func Migrate(dsn string) (MigrationResult, error) {
	var result MigrationResult

	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return result, fmt.Errorf("failed to open migrations: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", src, migrationURL(dsn))
	if err != nil {
		return result, fmt.Errorf("failed to create migrator: %w", err)
	}
	defer m.Close()

	from, _, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return result, fmt.Errorf("failed to read schema version: %w", err)
	}
	result.From = from

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return result, fmt.Errorf("failed to apply migrations: %w", err)
	}

	to, _, err := m.Version()
	if err != nil {
		return result, fmt.Errorf("failed to read schema version: %w", err)
	}
	result.To = to
	return result, nil
}

// migrationURL переводит DSN PostgreSQL в схему драйвера pgx/v5 для migrate
func migrationURL(dsn string) string {
	for _, prefix := range []string{"postgres://", "postgresql://"} {
		if strings.HasPrefix(dsn, prefix) {
			return "pgx5://" + strings.TrimPrefix(dsn, prefix)
		}
	}
	return dsn
}
