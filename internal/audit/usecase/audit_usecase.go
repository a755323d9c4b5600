// Package usecase implements the audit log business logic: append-only local
// writes, filtered queries, aggregate stats and best-effort remote
// forwarding.
package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/Fadil369/brainsait-doctor-hub-sub001/internal/audit/domain"
)

// Repository defines audit event persistence operations.
type Repository interface {
	Append(ctx context.Context, event *domain.Event) error
	QueryGlobal(ctx context.Context, filter domain.Filter) ([]*domain.Event, error)
	QueryByUser(ctx context.Context, userID string, filter domain.Filter) ([]*domain.Event, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error)
	EnqueueForward(ctx context.Context, event *domain.Event) error
}

// Metrics receives audit-pipeline counters. Write failures surface here so
// an audit outage is visible to monitoring even though callers never see it.
type Metrics interface {
	IncAuditEventLogged(action string, severity domain.Severity)
	IncAuditWriteFailure()
	IncAuditForwardFailure()
}

// UseCase defines the interface for audit business logic operations.
type UseCase interface {
	LogEvent(ctx context.Context, event *domain.Event)
	Query(ctx context.Context, filter domain.Filter) ([]*domain.Event, error)
	Stats(ctx context.Context, filter domain.Filter) (*domain.Stats, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error)
}

// AuditUseCase handles audit-related business logic.
type AuditUseCase struct {
	repo       Repository
	metrics    Metrics
	logger     *slog.Logger
	forwarding bool
}

// NewAuditUseCase creates a new AuditUseCase. When forwarding is enabled,
// every logged event is also staged for the remote collector.
func NewAuditUseCase(repo Repository, metrics Metrics, logger *slog.Logger, forwarding bool) *AuditUseCase {
	return &AuditUseCase{
		repo:       repo,
		metrics:    metrics,
		logger:     logger,
		forwarding: forwarding,
	}
}

// LogEvent appends the event to the local store. It never returns an error:
// an audit infrastructure outage must not take down the business operation
// being audited. Failures are logged and counted instead.
func (uc *AuditUseCase) LogEvent(ctx context.Context, event *domain.Event) {
	if err := uc.repo.Append(ctx, event); err != nil {
		uc.metrics.IncAuditWriteFailure()
		uc.logger.Error("failed to append audit event",
			slog.String("event_id", event.ID.String()),
			slog.String("action", event.Action),
			slog.Any("error", err),
		)
		return
	}

	uc.metrics.IncAuditEventLogged(event.Action, event.Severity)

	if uc.forwarding {
		if err := uc.repo.EnqueueForward(ctx, event); err != nil {
			uc.metrics.IncAuditForwardFailure()
			uc.logger.Error("failed to stage audit event for forwarding",
				slog.String("event_id", event.ID.String()),
				slog.Any("error", err),
			)
		}
	}
}

// Query returns events matching filter, newest first. A filter carrying a
// UserID is served from the per-user index.
func (uc *AuditUseCase) Query(ctx context.Context, filter domain.Filter) ([]*domain.Event, error) {
	if filter.UserID != "" {
		return uc.repo.QueryByUser(ctx, filter.UserID, filter)
	}
	return uc.repo.QueryGlobal(ctx, filter)
}

// Stats aggregates counts by action, severity, outcome, user and resource
// over the events matching filter.
func (uc *AuditUseCase) Stats(ctx context.Context, filter domain.Filter) (*domain.Stats, error) {
	// Aggregate over the full match, not a page of it.
	filter.Limit = 0
	events, err := uc.Query(ctx, filter)
	if err != nil {
		return nil, err
	}

	stats := domain.NewStats()
	for _, event := range events {
		stats.Add(event)
	}
	return stats, nil
}

// DeleteOlderThan removes events older than cutoff from both indexes.
func (uc *AuditUseCase) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	return uc.repo.DeleteOlderThan(ctx, cutoff)
}
