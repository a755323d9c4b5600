// Package usecase implements the LLM safety gate: pre-flight policy checks
// and redaction for any prompt that might carry PHI, plus the consent
// registry gating patient-linked content.
package usecase

import (
	"context"
	"fmt"
	"regexp"
	"time"

	auditDomain "github.com/Fadil369/brainsait-doctor-hub-sub001/internal/audit/domain"
	authDomain "github.com/Fadil369/brainsait-doctor-hub-sub001/internal/auth/domain"
	apperrors "github.com/Fadil369/brainsait-doctor-hub-sub001/internal/errors"
	"github.com/Fadil369/brainsait-doctor-hub-sub001/internal/llmgate/domain"
	"github.com/Fadil369/brainsait-doctor-hub-sub001/internal/llmgate/repository"
	"github.com/Fadil369/brainsait-doctor-hub-sub001/internal/llmgate/service"
)

// Config bounds what the gate lets through.
type Config struct {
	AllowedModels   []string
	MaxPromptLength int
	BlockedPatterns []*regexp.Regexp
	AllowedPatterns []*regexp.Regexp
}

// DefaultConfig is the gate policy shipped with the hub.
func DefaultConfig() Config {
	return Config{
		AllowedModels:   []string{"clinical-assist-v2", "summarize-v1"},
		MaxPromptLength: 8000,
		BlockedPatterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)ignore (all )?(previous|prior) instructions`),
			regexp.MustCompile(`(?i)reveal (the )?(system prompt|api key|encryption key)`),
			regexp.MustCompile(`(?i)dump (all|every) (patient|record)`),
		},
		AllowedPatterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\bpatient\b`),
			regexp.MustCompile(`(?i)\bdiagnos`),
			regexp.MustCompile(`(?i)\bmedication`),
			regexp.MustCompile(`(?i)\blab result`),
		},
	}
}

// ConsentRepository defines consent persistence operations.
type ConsentRepository interface {
	Get(ctx context.Context, patientID string) (*domain.Consent, error)
	Put(ctx context.Context, consent *domain.Consent) error
}

// AuditLogger records gate decisions and consent changes.
type AuditLogger interface {
	LogEvent(ctx context.Context, event *auditDomain.Event)
}

// GrantConsentInput contains the input data for recording a consent.
type GrantConsentInput struct {
	PatientID    string     `json:"patient_id"`
	ConsentType  string     `json:"consent_type"`
	Scope        string     `json:"scope"`
	Restrictions []string   `json:"restrictions"`
	ExpiresAt    *time.Time `json:"expires_at"`
}

// PreparedRequest is a request that passed the gate: prompt scrubbed, verdict
// and advisory score attached.
type PreparedRequest struct {
	Request     domain.Request          `json:"request"`
	Result      domain.ValidationResult `json:"result"`
	Redactions  []domain.Redaction      `json:"redactions,omitempty"`
	SafetyScore int                     `json:"safety_score"`
}

// UseCase defines the interface for gate business logic operations.
type UseCase interface {
	ValidateRequest(ctx context.Context, actor *authDomain.User, req domain.Request) (*domain.ValidationResult, error)
	Prepare(ctx context.Context, actor *authDomain.User, req domain.Request) (*PreparedRequest, error)
	SanitizeCompletion(text string) domain.RedactionResult
	GrantConsent(ctx context.Context, actor *authDomain.User, input GrantConsentInput) (*domain.Consent, error)
	RevokeConsent(ctx context.Context, actor *authDomain.User, patientID string) (*domain.Consent, error)
	GetConsent(ctx context.Context, patientID string) (*domain.Consent, error)
}

// GateUseCase handles gate-related business logic.
type GateUseCase struct {
	config   Config
	consents ConsentRepository
	redactor *service.Redactor
	auditor  AuditLogger
	now      func() time.Time
}

// NewGateUseCase creates a new GateUseCase.
func NewGateUseCase(config Config, consents ConsentRepository, redactor *service.Redactor, auditor AuditLogger) *GateUseCase {
	return &GateUseCase{
		config:   config,
		consents: consents,
		redactor: redactor,
		auditor:  auditor,
		now:      time.Now,
	}
}

// SetClock overrides the gate's time source for tests.
func (uc *GateUseCase) SetClock(now func() time.Time) {
	uc.now = now
}

// ValidateRequest runs the gate checks in their fixed order: model
// allow-list, prompt length, blocked patterns, allowed patterns (warn only),
// then per-patient consent. Every rejection is audited at high severity
// before the error is returned; the gate never fails silently.
func (uc *GateUseCase) ValidateRequest(ctx context.Context, actor *authDomain.User, req domain.Request) (*domain.ValidationResult, error) {
	result := &domain.ValidationResult{IsValid: true}

	if !uc.modelAllowed(req.Model) {
		return uc.reject(ctx, actor, req, result, "model not on allow-list", domain.ErrModelNotAllowed)
	}

	if len(req.Prompt) > uc.config.MaxPromptLength {
		return uc.reject(ctx, actor, req, result,
			fmt.Sprintf("prompt length %d exceeds bound %d", len(req.Prompt), uc.config.MaxPromptLength),
			domain.ErrPromptTooLong)
	}

	for _, pattern := range uc.config.BlockedPatterns {
		if pattern.MatchString(req.Prompt) {
			return uc.reject(ctx, actor, req, result,
				"prompt matched blocked pattern "+pattern.String(), domain.ErrBlockedContent)
		}
	}

	for _, pattern := range uc.config.AllowedPatterns {
		if pattern.MatchString(req.Prompt) {
			result.Warnings = append(result.Warnings, "prompt matched sensitive pattern "+pattern.String())
		}
	}

	if req.PatientID != "" {
		if err := uc.checkConsent(ctx, req.PatientID); err != nil {
			return uc.reject(ctx, actor, req, result, "no affirmative consent for patient", err)
		}
	}

	return result, nil
}

// Prepare validates the request and, on success, scrubs the prompt and
// attaches the advisory safety score.
func (uc *GateUseCase) Prepare(ctx context.Context, actor *authDomain.User, req domain.Request) (*PreparedRequest, error) {
	result, err := uc.ValidateRequest(ctx, actor, req)
	if err != nil {
		return nil, err
	}

	redacted := uc.redactor.Redact(req.Prompt)
	req.Prompt = redacted.RedactedText

	return &PreparedRequest{
		Request:     req,
		Result:      *result,
		Redactions:  redacted.Redactions,
		SafetyScore: domain.SafetyScore(redacted.TotalRedactions(), len(result.Warnings)),
	}, nil
}

// SanitizeCompletion scrubs an inbound completion with the same rules as the
// outbound prompt.
func (uc *GateUseCase) SanitizeCompletion(text string) domain.RedactionResult {
	return uc.redactor.Redact(text)
}

// GrantConsent records an affirmative consent for the patient.
func (uc *GateUseCase) GrantConsent(ctx context.Context, actor *authDomain.User, input GrantConsentInput) (*domain.Consent, error) {
	if input.PatientID == "" {
		return nil, apperrors.Wrap(apperrors.ErrInvalidInput, "patient_id is required")
	}
	scope := input.Scope
	if scope == "" {
		scope = domain.ScopeLLMAssist
	}

	consent := &domain.Consent{
		PatientID:    input.PatientID,
		Consented:    true,
		ConsentType:  input.ConsentType,
		Scope:        scope,
		Restrictions: input.Restrictions,
		GrantedAt:    uc.now().UTC(),
		ExpiresAt:    input.ExpiresAt,
	}
	if err := uc.consents.Put(ctx, consent); err != nil {
		return nil, err
	}

	uc.auditConsent(ctx, actor, auditDomain.ActionConsentGranted, input.PatientID, map[string]any{"scope": scope})
	return consent, nil
}

// RevokeConsent withdraws the patient's consent. The record is overwritten,
// not deleted: the revocation itself is part of the compliance trail.
func (uc *GateUseCase) RevokeConsent(ctx context.Context, actor *authDomain.User, patientID string) (*domain.Consent, error) {
	consent, err := uc.consents.Get(ctx, patientID)
	if err != nil {
		if apperrors.Is(err, repository.ErrConsentNotFound) {
			consent = &domain.Consent{PatientID: patientID}
		} else {
			return nil, err
		}
	}

	consent.Consented = false
	if err := uc.consents.Put(ctx, consent); err != nil {
		return nil, err
	}

	uc.auditConsent(ctx, actor, auditDomain.ActionConsentRevoked, patientID, nil)
	return consent, nil
}

// GetConsent retrieves the consent record for patientID.
func (uc *GateUseCase) GetConsent(ctx context.Context, patientID string) (*domain.Consent, error) {
	return uc.consents.Get(ctx, patientID)
}

// checkConsent requires an affirmative, unexpired, scope-matching consent.
func (uc *GateUseCase) checkConsent(ctx context.Context, patientID string) error {
	consent, err := uc.consents.Get(ctx, patientID)
	if err != nil {
		if apperrors.Is(err, repository.ErrConsentNotFound) {
			return domain.ErrConsentRequired
		}
		return err
	}
	if !consent.Covers(domain.ScopeLLMAssist, uc.now().UTC()) {
		return domain.ErrConsentRequired
	}
	return nil
}

func (uc *GateUseCase) modelAllowed(model string) bool {
	for _, allowed := range uc.config.AllowedModels {
		if model == allowed {
			return true
		}
	}
	return false
}

// reject finalizes a failed verdict: audit first, then the error.
func (uc *GateUseCase) reject(
	ctx context.Context,
	actor *authDomain.User,
	req domain.Request,
	result *domain.ValidationResult,
	reason string,
	err error,
) (*domain.ValidationResult, error) {
	result.IsValid = false
	result.Errors = append(result.Errors, reason)

	event := auditDomain.NewEvent(auditDomain.ActionLLMBlocked, "llmgate", auditDomain.SeverityHigh, auditDomain.OutcomeFailure)
	if actor != nil {
		event.UserID = actor.ID.String()
		event.UserRole = string(actor.Role)
	}
	event.ResourceID = req.PatientID
	event.Details = map[string]any{"model": req.Model, "reason": reason}
	uc.auditor.LogEvent(ctx, event)

	return result, err
}

func (uc *GateUseCase) auditConsent(ctx context.Context, actor *authDomain.User, action, patientID string, details map[string]any) {
	event := auditDomain.NewEvent(action, "consent", auditDomain.SeverityCritical, auditDomain.OutcomeSuccess)
	if actor != nil {
		event.UserID = actor.ID.String()
		event.UserRole = string(actor.Role)
	}
	event.ResourceID = patientID
	event.Details = details
	uc.auditor.LogEvent(ctx, event)
}
