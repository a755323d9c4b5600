package domain

import (
	"github.com/Fadil369/brainsait-doctor-hub-sub001/internal/errors"
)

// Gate rejection errors. Every rejection is audited at high severity before
// the error propagates.
var (
	// ErrModelNotAllowed indicates the requested model is not on the allow-list.
	ErrModelNotAllowed = errors.Wrap(errors.ErrInvalidInput, "model not allowed")

	// ErrPromptTooLong indicates the prompt exceeds the configured length bound.
	ErrPromptTooLong = errors.Wrap(errors.ErrInvalidInput, "prompt exceeds maximum length")

	// ErrBlockedContent indicates the prompt matched a blocked pattern.
	ErrBlockedContent = errors.Wrap(errors.ErrForbidden, "prompt contains blocked content")

	// ErrConsentRequired indicates the request carries a patient with no
	// affirmative, unexpired, scope-matching consent on record.
	ErrConsentRequired = errors.Wrap(errors.ErrForbidden, "patient consent required")
)
