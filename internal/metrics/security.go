package metrics

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	auditDomain "github.com/Fadil369/brainsait-doctor-hub-sub001/internal/audit/domain"
)

// SecurityMetrics records the security pipeline counters. The audit write and
// forward failure counters are the visibility channel for audit outages:
// callers never see those failures, monitoring must.
type SecurityMetrics interface {
	IncAuditEventLogged(action string, severity auditDomain.Severity)
	IncAuditWriteFailure()
	IncAuditForwardFailure()
	IncDecryptionFailure()
	IncLoginRejected(reason string)
}

// securityMetrics implements SecurityMetrics using OpenTelemetry metrics.
type securityMetrics struct {
	auditLogged          metric.Int64Counter
	auditWriteFailures   metric.Int64Counter
	auditForwardFailures metric.Int64Counter
	decryptionFailures   metric.Int64Counter
	loginsRejected       metric.Int64Counter
}

// NewSecurityMetrics creates a SecurityMetrics implementation using the
// provided meter provider.
func NewSecurityMetrics(meterProvider metric.MeterProvider, namespace string) (SecurityMetrics, error) {
	meter := meterProvider.Meter(namespace)

	auditLogged, err := meter.Int64Counter(
		fmt.Sprintf("%s_audit_events_total", namespace),
		metric.WithDescription("Total number of audit events appended locally"),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create audit event counter: %w", err)
	}

	auditWriteFailures, err := meter.Int64Counter(
		fmt.Sprintf("%s_audit_write_failures_total", namespace),
		metric.WithDescription("Audit events that could not be appended locally"),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create audit write failure counter: %w", err)
	}

	auditForwardFailures, err := meter.Int64Counter(
		fmt.Sprintf("%s_audit_forward_failures_total", namespace),
		metric.WithDescription("Failed deliveries to the remote audit collector"),
		metric.WithUnit("{batch}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create audit forward failure counter: %w", err)
	}

	decryptionFailures, err := meter.Int64Counter(
		fmt.Sprintf("%s_decryption_failures_total", namespace),
		metric.WithDescription("Decryption failures on PHI-classified records"),
		metric.WithUnit("{record}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create decryption failure counter: %w", err)
	}

	loginsRejected, err := meter.Int64Counter(
		fmt.Sprintf("%s_logins_rejected_total", namespace),
		metric.WithDescription("Login attempts rejected before credential evaluation"),
		metric.WithUnit("{attempt}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create login rejection counter: %w", err)
	}

	return &securityMetrics{
		auditLogged:          auditLogged,
		auditWriteFailures:   auditWriteFailures,
		auditForwardFailures: auditForwardFailures,
		decryptionFailures:   decryptionFailures,
		loginsRejected:       loginsRejected,
	}, nil
}

func (s *securityMetrics) IncAuditEventLogged(action string, severity auditDomain.Severity) {
	s.auditLogged.Add(context.Background(), 1,
		metric.WithAttributes(
			attribute.String("action", action),
			attribute.String("severity", string(severity)),
		),
	)
}

func (s *securityMetrics) IncAuditWriteFailure() {
	s.auditWriteFailures.Add(context.Background(), 1)
}

func (s *securityMetrics) IncAuditForwardFailure() {
	s.auditForwardFailures.Add(context.Background(), 1)
}

func (s *securityMetrics) IncDecryptionFailure() {
	s.decryptionFailures.Add(context.Background(), 1)
}

func (s *securityMetrics) IncLoginRejected(reason string) {
	s.loginsRejected.Add(context.Background(), 1,
		metric.WithAttributes(attribute.String("reason", reason)),
	)
}

// NoOpSecurityMetrics is a no-op implementation for when metrics are disabled.
type NoOpSecurityMetrics struct{}

// NewNoOpSecurityMetrics creates a no-op SecurityMetrics implementation.
func NewNoOpSecurityMetrics() SecurityMetrics {
	return &NoOpSecurityMetrics{}
}

// IncAuditEventLogged does nothing when metrics are disabled.
func (n *NoOpSecurityMetrics) IncAuditEventLogged(action string, severity auditDomain.Severity) {}

// IncAuditWriteFailure does nothing when metrics are disabled.
func (n *NoOpSecurityMetrics) IncAuditWriteFailure() {}

// IncAuditForwardFailure does nothing when metrics are disabled.
func (n *NoOpSecurityMetrics) IncAuditForwardFailure() {}

// IncDecryptionFailure does nothing when metrics are disabled.
func (n *NoOpSecurityMetrics) IncDecryptionFailure() {}

// IncLoginRejected does nothing when metrics are disabled.
func (n *NoOpSecurityMetrics) IncLoginRejected(reason string) {}
