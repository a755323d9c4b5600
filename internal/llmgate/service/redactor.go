// Package service provides the gate's text scrubbing: an ordered list of
// pattern rules applied independently to outbound prompts and inbound
// completions.
package service

import (
	"regexp"

	"github.com/Fadil369/brainsait-doctor-hub-sub001/internal/llmgate/domain"
)

// Rule is one pattern-to-replacement redaction. Rules are applied in order,
// each independently against the full text: a string may match several rules.
type Rule struct {
	Name        string
	Pattern     *regexp.Regexp
	Replacement string
}

// DefaultRules covers the identifier formats in circulation at the hub.
// Order matters only for overlapping matches; the earlier rule rewrites the
// text the later ones see.
func DefaultRules() []Rule {
	return []Rule{
		{
			Name:        "saudi_national_id",
			Pattern:     regexp.MustCompile(`\b[12]\d{9}\b`),
			Replacement: "[NATIONAL-ID]",
		},
		{
			Name:        "iban",
			Pattern:     regexp.MustCompile(`\bSA\d{22}\b`),
			Replacement: "[IBAN]",
		},
		{
			Name:        "phone",
			Pattern:     regexp.MustCompile(`(\+?966|0)5\d{8}\b`),
			Replacement: "[PHONE]",
		},
		{
			Name:        "email",
			Pattern:     regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`),
			Replacement: "[EMAIL]",
		},
		{
			Name:        "mrn",
			Pattern:     regexp.MustCompile(`\bMRN[-: ]?\d{6,10}\b`),
			Replacement: "[MRN]",
		},
		{
			Name:        "date_of_birth",
			Pattern:     regexp.MustCompile(`\b(19|20)\d{2}-\d{2}-\d{2}\b`),
			Replacement: "[DATE]",
		},
	}
}

// Redactor scrubs sensitive identifiers out of free text.
type Redactor struct {
	rules []Rule
}

// NewRedactor creates a redactor over the given ordered rules.
func NewRedactor(rules []Rule) *Redactor {
	return &Redactor{
		rules: rules,
	}
}

// Redact applies every rule to text and reports what each one removed.
func (r *Redactor) Redact(text string) domain.RedactionResult {
	result := domain.RedactionResult{RedactedText: text}

	for _, rule := range r.rules {
		matches := rule.Pattern.FindAllStringIndex(result.RedactedText, -1)
		if len(matches) == 0 {
			continue
		}
		result.RedactedText = rule.Pattern.ReplaceAllString(result.RedactedText, rule.Replacement)
		result.Redactions = append(result.Redactions, domain.Redaction{
			Rule:  rule.Name,
			Count: len(matches),
		})
	}
	return result
}
