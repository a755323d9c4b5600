package app

import (
	"context"
	"fmt"
	"log/slog"

	auditDomain "github.com/Fadil369/brainsait-doctor-hub-sub001/internal/audit/domain"
	"github.com/Fadil369/brainsait-doctor-hub-sub001/internal/metrics"
	"github.com/Fadil369/brainsait-doctor-hub-sub001/internal/storage"
)

// auditLogger is the narrow audit slice consumed across the container's
// wiring. The audit use case satisfies it, as does the no-op used when audit
// logging is disabled.
type auditLogger interface {
	LogEvent(ctx context.Context, event *auditDomain.Event)
}

// decryptionRecorder turns decryption failures on sensitive keys into audit
// events and metrics so corrupted or wrong-key PHI is visible, not silent.
type decryptionRecorder struct {
	auditor auditLogger
	metrics metrics.SecurityMetrics
	logger  *slog.Logger
}

// RecordDecryptionFailure reports a failed decrypt of the record under key.
func (r *decryptionRecorder) RecordDecryptionFailure(ctx context.Context, key string, err error) {
	r.metrics.IncDecryptionFailure()
	r.logger.Error("decryption failure on sensitive record",
		slog.String("key", key),
		slog.Any("error", err))

	event := auditDomain.NewEvent(
		auditDomain.ActionDecryptionFailed,
		"storage",
		auditDomain.SeverityCritical,
		auditDomain.OutcomeFailure,
	)
	event.ResourceID = key
	event.Details = map[string]any{"error": err.Error()}
	r.auditor.LogEvent(ctx, event)
}

// SecureStorage returns the secure storage adapter.
func (c *Container) SecureStorage() (*storage.SecureStorage, error) {
	var err error
	c.secureStorageInit.Do(func() {
		c.secureStorage, err = c.initSecureStorage()
		if err != nil {
			c.initErrors["secureStorage"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["secureStorage"]; exists {
		return nil, storedErr
	}
	return c.secureStorage, nil
}

// initSecureStorage creates the secure storage adapter with all its dependencies.
func (c *Container) initSecureStorage() (*storage.SecureStorage, error) {
	store, err := c.KVStore()
	if err != nil {
		return nil, fmt.Errorf("failed to get kv store for secure storage: %w", err)
	}

	encryptor, err := c.Encryptor()
	if err != nil {
		return nil, fmt.Errorf("failed to get encryptor for secure storage: %w", err)
	}

	// With encrypted storage disabled nothing classifies as sensitive and all
	// values stay inspectable JSON. Config validation refuses this in
	// production.
	classifier := storage.DefaultClassifier
	if !c.config.EncryptedStorageEnabled {
		classifier = storage.NewClassifier(nil)
	}

	auditor, err := c.AuditLogger()
	if err != nil {
		return nil, fmt.Errorf("failed to get audit logger for secure storage: %w", err)
	}

	securityMetrics, err := c.SecurityMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to get security metrics for secure storage: %w", err)
	}

	recorder := &decryptionRecorder{
		auditor: auditor,
		metrics: securityMetrics,
		logger:  c.Logger(),
	}

	return storage.NewSecureStorage(
		store,
		encryptor,
		classifier,
		c.config.StorageRetention,
		recorder,
		c.Logger(),
	), nil
}
