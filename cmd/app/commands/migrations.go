package commands

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/mysql"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"github.com/Fadil369/brainsait-doctor-hub-sub001/internal/app"
	"github.com/Fadil369/brainsait-doctor-hub-sub001/internal/config"
)

// RunMigrations executes database migrations based on the configured driver.
// The memory driver needs no migrations and is rejected.
func RunMigrations() error {
	cfg := config.Load()

	// Create container just for logger
	container := app.NewContainer(cfg)
	logger := container.Logger()

	if cfg.KVDriver == "memory" {
		return fmt.Errorf("the memory kv driver does not use migrations")
	}

	logger.Info("running database migrations",
		slog.String("driver", cfg.KVDriver),
	)

	migrationsPath := "file://migrations/postgresql"
	if cfg.KVDriver == "mysql" {
		migrationsPath = "file://migrations/mysql"
	}

	m, err := migrate.New(migrationsPath, cfg.KVConnectionString)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}
	defer closeMigrate(m, logger)

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	logger.Info("migrations completed successfully")
	return nil
}
