package usecase

import (
	"context"
	"log/slog"

	"github.com/Fadil369/brainsait-doctor-hub-sub001/internal/auth/domain"
)

// LogCodeDelivery writes one-time codes to the structured log instead of an
// out-of-band channel. Development only: wiring it in production would put
// second-factor secrets in log storage.
type LogCodeDelivery struct {
	logger *slog.Logger
}

// NewLogCodeDelivery creates a new LogCodeDelivery.
func NewLogCodeDelivery(logger *slog.Logger) *LogCodeDelivery {
	return &LogCodeDelivery{
		logger: logger,
	}
}

// Deliver logs the code for the developer to read off.
func (d *LogCodeDelivery) Deliver(_ context.Context, user *domain.User, code string) error {
	d.logger.Warn("mfa code issued (development delivery)",
		slog.String("username", user.Username),
		slog.String("code", code),
	)
	return nil
}
