package usecase

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/Fadil369/brainsait-doctor-hub-sub001/internal/audit/domain"
	apperrors "github.com/Fadil369/brainsait-doctor-hub-sub001/internal/errors"
)

// ForwardRepository is the slice of the audit repository the forwarder needs.
type ForwardRepository interface {
	PendingForwards(ctx context.Context, limit int) ([]string, []*domain.Event, error)
	MarkForwarded(ctx context.Context, key string) error
}

// ForwarderConfig holds forwarder configuration.
type ForwarderConfig struct {
	URL       string
	Interval  time.Duration
	BatchSize int
}

// Forwarder ships staged audit events to the remote collector. Delivery is
// best effort: a failed batch stays queued for the next tick and the failure
// is counted, never surfaced to the operation that produced the events.
type Forwarder struct {
	config     ForwarderConfig
	repo       ForwardRepository
	client     *http.Client
	signingKey []byte
	metrics    Metrics
	logger     *slog.Logger
}

// NewForwarder creates a new Forwarder. Batches are signed with an
// HMAC-SHA256 over the request body using signingKey so the collector can
// authenticate the origin.
func NewForwarder(
	config ForwarderConfig,
	repo ForwardRepository,
	client *http.Client,
	signingKey []byte,
	metrics Metrics,
	logger *slog.Logger,
) *Forwarder {
	if config.BatchSize <= 0 {
		config.BatchSize = 100
	}
	return &Forwarder{
		config:     config,
		repo:       repo,
		client:     client,
		signingKey: signingKey,
		metrics:    metrics,
		logger:     logger,
	}
}

// Start runs the forwarding loop until ctx is cancelled.
func (f *Forwarder) Start(ctx context.Context) error {
	f.logger.Info("starting audit event forwarder",
		slog.String("url", f.config.URL),
		slog.Duration("interval", f.config.Interval),
	)

	ticker := time.NewTicker(f.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			f.logger.Info("stopping audit event forwarder")
			return ctx.Err()
		case <-ticker.C:
			if err := f.Flush(ctx); err != nil {
				f.metrics.IncAuditForwardFailure()
				f.logger.Error("failed to forward audit events", slog.Any("error", err))
			}
		}
	}
}

// Flush delivers one batch of staged events and dequeues them on success.
func (f *Forwarder) Flush(ctx context.Context) error {
	keys, events, err := f.repo.PendingForwards(ctx, f.config.BatchSize)
	if err != nil {
		return err
	}
	if len(events) == 0 {
		return nil
	}

	if err := f.deliver(ctx, events); err != nil {
		return err
	}

	for _, key := range keys {
		if err := f.repo.MarkForwarded(ctx, key); err != nil {
			// The entry will be redelivered next tick; the collector must
			// treat event IDs as idempotency keys.
			f.logger.Warn("failed to dequeue forwarded audit event",
				slog.String("key", key),
				slog.Any("error", err),
			)
		}
	}

	f.logger.Info("forwarded audit events", slog.Int("count", len(events)))
	return nil
}

// deliver posts the batch as JSON with an HMAC signature header.
func (f *Forwarder) deliver(ctx context.Context, events []*domain.Event) error {
	body, err := json.Marshal(map[string]any{"events": events})
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal audit batch")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.config.URL, bytes.NewReader(body))
	if err != nil {
		return apperrors.Wrap(err, "failed to build forward request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Audit-Signature", f.sign(body))

	resp, err := f.client.Do(req)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrBackendUnavailable, err.Error())
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return apperrors.Wrap(apperrors.ErrBackendUnavailable, "audit collector returned "+resp.Status)
	}
	return nil
}

func (f *Forwarder) sign(body []byte) string {
	mac := hmac.New(sha256.New, f.signingKey)
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
