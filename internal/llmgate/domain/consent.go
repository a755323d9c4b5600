package domain

import "time"

// Consent is a patient's recorded authorization for sending their linked
// content through the gate. Mutated only through explicit grant/revoke calls.
type Consent struct {
	PatientID    string     `json:"patient_id"`
	Consented    bool       `json:"consented"`
	ConsentType  string     `json:"consent_type"`
	Scope        string     `json:"scope"`
	Restrictions []string   `json:"restrictions,omitempty"`
	GrantedAt    time.Time  `json:"granted_at"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
}

// Covers reports whether the consent affirmatively authorizes the given
// scope at the given instant. A revoked, expired or scope-mismatched consent
// does not cover anything.
func (c *Consent) Covers(scope string, now time.Time) bool {
	if !c.Consented {
		return false
	}
	if c.ExpiresAt != nil && !now.Before(*c.ExpiresAt) {
		return false
	}
	return c.Scope == scope || c.Scope == ScopeAll
}

// Consent scopes.
const (
	// ScopeAll authorizes every gate use.
	ScopeAll = "all"
	// ScopeLLMAssist authorizes AI-assist prompts only.
	ScopeLLMAssist = "llm-assist"
)
