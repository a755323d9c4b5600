package commands

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Fadil369/brainsait-doctor-hub-sub001/internal/app"
	"github.com/Fadil369/brainsait-doctor-hub-sub001/internal/config"
)

// RunCleanAuditEvents deletes audit events older than the retention window
// from both indexes. days overrides the configured retention when positive.
func RunCleanAuditEvents(ctx context.Context, days int) error {
	if days < 0 {
		return fmt.Errorf("days must not be negative, got: %d", days)
	}

	cfg := config.Load()

	container := app.NewContainer(cfg)
	logger := container.Logger()

	defer closeContainer(container, logger)

	retention := cfg.AuditRetention
	if days > 0 {
		retention = time.Duration(days) * 24 * time.Hour
	}
	cutoff := time.Now().UTC().Add(-retention)

	auditUC, err := container.AuditUseCase()
	if err != nil {
		return fmt.Errorf("failed to initialize audit use case: %w", err)
	}

	count, err := auditUC.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("failed to delete audit events: %w", err)
	}

	logger.Info("audit cleanup completed",
		slog.Int("count", count),
		slog.Time("cutoff", cutoff),
	)

	fmt.Printf("Deleted %d audit event(s) older than %s\n", count, cutoff.Format(time.RFC3339))
	return nil
}
