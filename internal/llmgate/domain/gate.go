// Package domain defines the LLM safety gate model: outbound prompt
// requests, validation verdicts, redaction results and per-patient consent.
// The gate sits in front of any AI-assist call that could carry PHI.
package domain

// Request is a candidate outbound LLM call.
type Request struct {
	Model     string `json:"model"`
	Prompt    string `json:"prompt"`
	PatientID string `json:"patient_id,omitempty"`
}

// ValidationResult is the gate's verdict on a request. Warnings are advisory
// and never block; Errors mean the request must not leave the system.
type ValidationResult struct {
	IsValid  bool     `json:"is_valid"`
	Errors   []string `json:"errors,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

// Redaction reports one rule's matches in a text.
type Redaction struct {
	Rule  string `json:"rule"`
	Count int    `json:"count"`
}

// RedactionResult carries the scrubbed text and what was removed from it.
type RedactionResult struct {
	RedactedText string      `json:"redacted_text"`
	Redactions   []Redaction `json:"redactions,omitempty"`
}

// TotalRedactions sums the match counts across all rules.
func (r RedactionResult) TotalRedactions() int {
	total := 0
	for _, red := range r.Redactions {
		total += red.Count
	}
	return total
}

// SafetyScore computes the advisory telemetry score for a gated request.
// Deterministic in the redaction and warning counts; it informs dashboards,
// it is not a gate.
func SafetyScore(redactions, warnings int) int {
	score := 100 - 10*redactions - 5*warnings
	if score < 0 {
		score = 0
	}
	return score
}
