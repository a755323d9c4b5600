// Package errors provides standardized domain errors that express business intent
// rather than infrastructure details. These errors should be used by use cases
// and mapped to appropriate HTTP status codes by handlers.
package errors

import (
	"errors"
	"fmt"
)

// Standard domain errors that can be used across all domain modules.
var (
	// ErrNotFound indicates the requested resource does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict indicates a conflict with existing data (e.g., duplicate key).
	ErrConflict = errors.New("conflict")

	// ErrInvalidInput indicates the input data is invalid or fails validation.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnauthorized indicates the request lacks valid authentication credentials.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden indicates the authenticated user doesn't have permission.
	ErrForbidden = errors.New("forbidden")

	// ErrRateLimited indicates the caller exceeded the allowed attempt budget
	// and must wait for the window to elapse before retrying.
	ErrRateLimited = errors.New("rate limited")

	// ErrMFARequired indicates primary credentials were accepted but a
	// one-time code must be presented before a session is issued.
	ErrMFARequired = errors.New("mfa required")

	// ErrSessionExpired indicates the presented session token is expired or unknown.
	ErrSessionExpired = errors.New("session expired")

	// ErrEncryption indicates an encryption operation failed. Fatal to the
	// calling operation; callers must never fall back to plaintext storage.
	ErrEncryption = errors.New("encryption failed")

	// ErrDecryption indicates ciphertext failed authentication or decoding.
	// Fatal to the calling operation; corrupted plaintext is never returned.
	ErrDecryption = errors.New("decryption failed")

	// ErrBackendUnavailable indicates the key-value backend or a remote
	// dependency could not be reached. Retryable with backoff.
	ErrBackendUnavailable = errors.New("backend unavailable")

	// ErrNotConfigured indicates a required external integration is missing.
	// Surfaced at startup where possible rather than at first use.
	ErrNotConfigured = errors.New("not configured")
)

// New creates a new error with the given message.
// This is a convenience wrapper around errors.New for consistency.
func New(message string) error {
	return errors.New(message)
}

// Wrap wraps an error with additional context while preserving the error chain.
// Use this to add context at each layer without losing the original error type.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Is reports whether any error in err's tree matches target.
// This is a convenience wrapper around errors.Is.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's tree that matches target.
// This is a convenience wrapper around errors.As.
func As(err error, target any) bool {
	return errors.As(err, target)
}
