// Package service provides authentication-related services: Argon2id password
// hashing, one-time MFA codes and the login attempt limiter.
package service

import "context"

// PasswordService hashes and verifies user passwords.
type PasswordService interface {
	// HashPassword hashes a plain text password.
	HashPassword(plainPassword string) (string, error)

	// ComparePassword performs a constant-time comparison between a plain
	// password and its hash.
	ComparePassword(plainPassword, hashedPassword string) bool
}

// MFAService generates and verifies one-time codes for the MFA step-up.
// Only a hash of the code is stored server-side; delivery is out of band.
type MFAService interface {
	// GenerateCode creates a new one-time code and its hash.
	GenerateCode() (plainCode string, codeHash string, err error)

	// VerifyCode checks a presented code against the stored hash in
	// constant time.
	VerifyCode(plainCode, codeHash string) bool
}

// LoginLimiter enforces the sliding-window rate limit on failed logins.
// Keyed by username, not IP: the intended deployment has no trustworthy
// client address, which is a documented weaker-than-ideal tradeoff.
type LoginLimiter interface {
	// Allow reports whether a login attempt for username may proceed and,
	// when it may not, how long until the window frees up.
	Allow(ctx context.Context, username string) (allowed bool, retryAfter int, err error)

	// RecordFailure appends a failed attempt for username to the window.
	RecordFailure(ctx context.Context, username string) error

	// Reset clears the window for username after a successful login.
	Reset(ctx context.Context, username string) error
}
