package app

import (
	"context"
	"fmt"
	"net/http"

	auditDomain "github.com/Fadil369/brainsait-doctor-hub-sub001/internal/audit/domain"
	auditRepository "github.com/Fadil369/brainsait-doctor-hub-sub001/internal/audit/repository"
	auditUseCase "github.com/Fadil369/brainsait-doctor-hub-sub001/internal/audit/usecase"
	cryptoDomain "github.com/Fadil369/brainsait-doctor-hub-sub001/internal/crypto/domain"
)

// noopAuditLogger drops events when audit logging is disabled. Config
// validation refuses this posture in production.
type noopAuditLogger struct{}

func (noopAuditLogger) LogEvent(ctx context.Context, event *auditDomain.Event) {}

// AuditRepository returns the dual-indexed audit event repository.
func (c *Container) AuditRepository() (*auditRepository.KVAuditRepository, error) {
	var err error
	c.auditRepoInit.Do(func() {
		c.auditRepo, err = c.initAuditRepository()
		if err != nil {
			c.initErrors["auditRepo"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["auditRepo"]; exists {
		return nil, storedErr
	}
	return c.auditRepo, nil
}

// AuditUseCase returns the audit use case.
func (c *Container) AuditUseCase() (auditUseCase.UseCase, error) {
	var err error
	c.auditUCInit.Do(func() {
		c.auditUC, err = c.initAuditUseCase()
		if err != nil {
			c.initErrors["auditUseCase"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["auditUseCase"]; exists {
		return nil, storedErr
	}
	return c.auditUC, nil
}

// AuditLogger returns the event sink handed to the other use cases. It is the
// audit use case, or a no-op when the audit trail is disabled.
func (c *Container) AuditLogger() (auditLogger, error) {
	if !c.config.AuditLoggingEnabled {
		return noopAuditLogger{}, nil
	}
	return c.AuditUseCase()
}

// AuditForwarder returns the best-effort remote forwarder, or nil when no
// collector URL is configured.
func (c *Container) AuditForwarder() (*auditUseCase.Forwarder, error) {
	var err error
	c.auditForwarderInit.Do(func() {
		if c.config.AuditForwardURL == "" {
			return
		}
		c.auditForwarder, err = c.initAuditForwarder()
		if err != nil {
			c.initErrors["auditForwarder"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["auditForwarder"]; exists {
		return nil, storedErr
	}
	return c.auditForwarder, nil
}

// initAuditRepository creates the audit repository over the key-value store.
func (c *Container) initAuditRepository() (*auditRepository.KVAuditRepository, error) {
	store, err := c.KVStore()
	if err != nil {
		return nil, fmt.Errorf("failed to get kv store for audit repository: %w", err)
	}

	return auditRepository.NewKVAuditRepository(store, c.config.AuditRetention), nil
}

// initAuditUseCase creates the audit use case with all its dependencies.
func (c *Container) initAuditUseCase() (auditUseCase.UseCase, error) {
	repo, err := c.AuditRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get audit repository for audit use case: %w", err)
	}

	securityMetrics, err := c.SecurityMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to get security metrics for audit use case: %w", err)
	}

	forwarding := c.config.AuditForwardURL != ""

	return auditUseCase.NewAuditUseCase(repo, securityMetrics, c.Logger(), forwarding), nil
}

// initAuditForwarder creates the remote audit forwarder.
func (c *Container) initAuditForwarder() (*auditUseCase.Forwarder, error) {
	repo, err := c.AuditRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get audit repository for audit forwarder: %w", err)
	}

	securityMetrics, err := c.SecurityMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to get security metrics for audit forwarder: %w", err)
	}

	keyManager, err := c.KeyManager()
	if err != nil {
		return nil, fmt.Errorf("failed to get key manager for audit forwarder: %w", err)
	}

	storageKey, err := keyManager.GetOrCreateKey(context.Background())
	if err != nil {
		return nil, fmt.Errorf("failed to get storage key for audit forwarder: %w", err)
	}

	// The batch signature key is HKDF-derived from the storage key so signing
	// never reuses the encryption key directly and every deployment signs with
	// its own key material.
	signingKey, err := cryptoDomain.DeriveSigningKey(storageKey)
	if err != nil {
		return nil, fmt.Errorf("failed to derive audit signing key: %w", err)
	}

	return auditUseCase.NewForwarder(
		auditUseCase.ForwarderConfig{
			URL:      c.config.AuditForwardURL,
			Interval: c.config.AuditForwardInterval,
		},
		repo,
		&http.Client{Timeout: c.config.HealthCheckTimeout},
		signingKey,
		securityMetrics,
		c.Logger(),
	), nil
}
