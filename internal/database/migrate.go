package database

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file" // File source driver
	"github.com/jmoiron/sqlx"

	"github.com/saferoute-nyc/saferoute/internal/logger"
)

// DefaultMigrationsPath is where migration files live relative to the
// binary. In Docker they are copied to /app/migrations.
const DefaultMigrationsPath = "migrations"

func newMigrator(db *sqlx.DB, migrationsPath string) (*migrate.Migrate, string, error) {
	if migrationsPath == "" {
		migrationsPath = DefaultMigrationsPath
	}
	if absPath, err := filepath.Abs(migrationsPath); err == nil {
		migrationsPath = absPath
	}

	driver, err := postgres.WithInstance(db.DB, &postgres.Config{})
	if err != nil {
		return nil, "", fmt.Errorf("create postgres driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		fmt.Sprintf("file://%s", migrationsPath),
		"postgres",
		driver,
	)
	if err != nil {
		return nil, "", fmt.Errorf("create migrate instance: %w", err)
	}

	return m, migrationsPath, nil
}

// RunMigrations runs all pending migrations.
func RunMigrations(db *sqlx.DB, migrationsPath string, log logger.Logger) error {
	m, path, err := newMigrator(db, migrationsPath)
	if err != nil {
		return err
	}

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			log.Info("No pending migrations",
				logger.String("migrations_path", path),
			)
			return nil
		}
		return fmt.Errorf("run migrations: %w", err)
	}

	log.Info("Migrations applied successfully",
		logger.String("migrations_path", path),
	)

	return nil
}

// MigrateDown rolls back N migrations (default: 1).
func MigrateDown(db *sqlx.DB, migrationsPath string, steps int, log logger.Logger) error {
	m, path, err := newMigrator(db, migrationsPath)
	if err != nil {
		return err
	}

	if steps <= 0 {
		steps = 1
	}

	if err := m.Steps(-steps); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			log.Info("No migrations to rollback",
				logger.String("migrations_path", path),
			)
			return nil
		}
		return fmt.Errorf("rollback migrations: %w", err)
	}

	log.Info("Migrations rolled back successfully",
		logger.String("migrations_path", path),
		logger.Int("steps", steps),
	)

	return nil
}
