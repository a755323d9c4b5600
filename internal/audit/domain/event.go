// Package domain defines the audit event model: an append-only record of
// security- and compliance-relevant actions, dual-indexed by time and by user.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Severity classifies how compliance-relevant an event is.
type Severity string

// Event severities.
const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Outcome records how the audited action ended.
type Outcome string

// Event outcomes. OutcomePartial covers multi-step actions where some steps
// succeeded, such as a dual-index write with one failed leg.
const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
	OutcomePartial Outcome = "partial"
)

// Audited actions. PHI-touching actions must use entries from this list so
// compliance tooling can flag them; free-form action strings are reserved for
// non-critical events.
const (
	ActionLoginSuccess     = "login_success"
	ActionLoginFailed      = "login_failed"
	ActionLoginRateLimited = "login_rate_limited"
	ActionMFAVerified      = "mfa_verified"
	ActionMFAFailed        = "mfa_failed"
	ActionLogout           = "logout"

	ActionPatientViewed  = "patient_viewed"
	ActionPatientCreated = "patient_created"
	ActionPatientUpdated = "patient_updated"
	ActionPatientDeleted = "patient_deleted"
	ActionClaimSubmitted = "claim_submitted"

	ActionConsentGranted = "consent_granted"
	ActionConsentRevoked = "consent_revoked"

	ActionStorageRead    = "storage_read"
	ActionStorageWrite   = "storage_write"
	ActionStorageDeleted = "storage_deleted"

	ActionDecryptionFailed = "decryption_failed"
	ActionLLMBlocked       = "llm_request_blocked"
	ActionAuditExported    = "audit_exported"
)

// criticalActions is the fixed taxonomy of PHI-touching actions.
var criticalActions = map[string]struct{}{
	ActionPatientViewed:    {},
	ActionPatientCreated:   {},
	ActionPatientUpdated:   {},
	ActionPatientDeleted:   {},
	ActionClaimSubmitted:   {},
	ActionConsentGranted:   {},
	ActionConsentRevoked:   {},
	ActionDecryptionFailed: {},
	ActionAuditExported:    {},
}

// IsCriticalAction reports whether action belongs to the PHI-touching
// taxonomy.
func IsCriticalAction(action string) bool {
	_, ok := criticalActions[action]
	return ok
}

// Event is a single audit record. Immutable once written.
type Event struct {
	ID            uuid.UUID      `json:"id"`
	Timestamp     time.Time      `json:"timestamp"`
	UserID        string         `json:"user_id"`
	UserRole      string         `json:"user_role"`
	Action        string         `json:"action"`
	Resource      string         `json:"resource"`
	ResourceID    string         `json:"resource_id,omitempty"`
	Severity      Severity       `json:"severity"`
	Outcome       Outcome        `json:"outcome"`
	Details       map[string]any `json:"details,omitempty"`
	CorrelationID string         `json:"correlation_id,omitempty"`
}

// NewEvent creates an event with a fresh ID and the current timestamp.
// Callers fill the remaining fields before logging.
func NewEvent(action, resource string, severity Severity, outcome Outcome) *Event {
	return &Event{
		ID:        uuid.Must(uuid.NewV7()),
		Timestamp: time.Now().UTC(),
		Action:    action,
		Resource:  resource,
		Severity:  severity,
		Outcome:   outcome,
	}
}

// Filter narrows an audit query. Zero-valued fields match everything; From
// and Until bound the embedded event timestamp inclusively.
type Filter struct {
	UserID   string
	Action   string
	Resource string
	Severity Severity
	Outcome  Outcome
	From     time.Time
	Until    time.Time
	Limit    int
}

// Matches reports whether event passes every set field of the filter. The
// UserID field is handled by key-prefix selection, not here.
func (f Filter) Matches(event *Event) bool {
	if f.Action != "" && event.Action != f.Action {
		return false
	}
	if f.Resource != "" && event.Resource != f.Resource {
		return false
	}
	if f.Severity != "" && event.Severity != f.Severity {
		return false
	}
	if f.Outcome != "" && event.Outcome != f.Outcome {
		return false
	}
	if !f.From.IsZero() && event.Timestamp.Before(f.From) {
		return false
	}
	if !f.Until.IsZero() && event.Timestamp.After(f.Until) {
		return false
	}
	return true
}

// Stats aggregates event counts along the dimensions compliance reviews ask
// for.
type Stats struct {
	Total      int            `json:"total"`
	ByAction   map[string]int `json:"by_action"`
	BySeverity map[string]int `json:"by_severity"`
	ByOutcome  map[string]int `json:"by_outcome"`
	ByUser     map[string]int `json:"by_user"`
	ByResource map[string]int `json:"by_resource"`
}

// NewStats creates an empty Stats with all maps initialized.
func NewStats() *Stats {
	return &Stats{
		ByAction:   make(map[string]int),
		BySeverity: make(map[string]int),
		ByOutcome:  make(map[string]int),
		ByUser:     make(map[string]int),
		ByResource: make(map[string]int),
	}
}

// Add counts event into every aggregate dimension.
func (s *Stats) Add(event *Event) {
	s.Total++
	s.ByAction[event.Action]++
	s.BySeverity[string(event.Severity)]++
	s.ByOutcome[string(event.Outcome)]++
	if event.UserID != "" {
		s.ByUser[event.UserID]++
	}
	if event.Resource != "" {
		s.ByResource[event.Resource]++
	}
}
