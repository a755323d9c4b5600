package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Fadil369/brainsait-doctor-hub-sub001/internal/app"
	"github.com/Fadil369/brainsait-doctor-hub-sub001/internal/config"
)

// RunCleanExpiredData runs the sensitive-storage retention sweep once,
// deleting records whose last update fell outside the retention window.
func RunCleanExpiredData(ctx context.Context) error {
	cfg := config.Load()

	container := app.NewContainer(cfg)
	logger := container.Logger()

	defer closeContainer(container, logger)

	secureStorage, err := container.SecureStorage()
	if err != nil {
		return fmt.Errorf("failed to initialize secure storage: %w", err)
	}

	removed, err := secureStorage.CleanupExpiredData(ctx)
	if err != nil {
		return fmt.Errorf("failed to clean expired data: %w", err)
	}

	logger.Info("storage cleanup completed", slog.Int("removed", removed))

	fmt.Printf("Removed %d expired sensitive record(s)\n", removed)
	return nil
}
