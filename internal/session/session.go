// Package session implements the server-side session store: opaque tokens
// bound to a device fingerprint and a TTL, persisted in the key-value store
// under "session:<token>". The store's TTL is the sole correctness authority
// for expiry; any client-side revalidation timer is advisory UX on top.
package session

import (
	"time"

	authDomain "github.com/Fadil369/brainsait-doctor-hub-sub001/internal/auth/domain"
)

// KeyPrefix is the KV namespace for session records.
const KeyPrefix = "session:"

// Session is the server-side state behind an issued token.
type Session struct {
	// Token is the opaque session identifier: 32 random bytes, hex-encoded.
	Token string `json:"token"`
	// User is a redacted snapshot of the principal at issuance time.
	User authDomain.User `json:"user"`
	// DeviceID is the client-supplied device fingerprint the session is
	// bound to. Client-derived and therefore attacker-influenceable; it is
	// a binding aid, not an authentication factor.
	DeviceID  string    `json:"device_id"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether the session's lifetime elapsed at the given instant.
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
