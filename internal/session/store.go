package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	authDomain "github.com/Fadil369/brainsait-doctor-hub-sub001/internal/auth/domain"
	apperrors "github.com/Fadil369/brainsait-doctor-hub-sub001/internal/errors"
	"github.com/Fadil369/brainsait-doctor-hub-sub001/internal/kvstore"
)

// Store issues, validates and destroys sessions over the key-value backend.
type Store struct {
	kv  kvstore.Store
	ttl time.Duration
	now func() time.Time
}

// NewStore creates a session store with the given session lifetime.
func NewStore(kv kvstore.Store, ttl time.Duration) *Store {
	return &Store{
		kv:  kv,
		ttl: ttl,
		now: time.Now,
	}
}

// SetClock overrides the store's time source for tests.
func (s *Store) SetClock(now func() time.Time) {
	s.now = now
}

// Issue creates a session for the user bound to deviceID and persists it with
// a TTL equal to the remaining lifetime. The store-level TTL is the canonical
// expiry mechanism; ExpiresAt in the record backs the read-time check.
func (s *Store) Issue(ctx context.Context, user authDomain.User, deviceID string) (*Session, error) {
	token, err := generateToken()
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	sess := &Session{
		Token:     token,
		User:      user.Redacted(),
		DeviceID:  deviceID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}

	if err := s.save(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// Validate looks up the session for token. An expired record is deleted
// before "invalid" is returned (no tombstones); a follow-up validate with the
// same token is still invalid and does not error.
func (s *Store) Validate(ctx context.Context, token string) (*Session, error) {
	raw, err := s.kv.Get(ctx, KeyPrefix+token)
	if err != nil {
		if errors.Is(err, kvstore.ErrKeyNotFound) {
			return nil, apperrors.ErrSessionExpired
		}
		return nil, err
	}

	var sess Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		// A record that no longer parses is treated as tampered: remove it.
		_ = s.kv.Delete(ctx, KeyPrefix+token)
		return nil, apperrors.ErrSessionExpired
	}

	if sess.Expired(s.now().UTC()) {
		if err := s.kv.Delete(ctx, KeyPrefix+token); err != nil {
			return nil, err
		}
		return nil, apperrors.ErrSessionExpired
	}

	return &sess, nil
}

// Destroy removes the session for token. Destroying an absent session is not
// an error; logout is best-effort.
func (s *Store) Destroy(ctx context.Context, token string) error {
	return s.kv.Delete(ctx, KeyPrefix+token)
}

// save persists the session with its remaining lifetime as the entry TTL.
func (s *Store) save(ctx context.Context, sess *Session) error {
	raw, err := json.Marshal(sess)
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal session")
	}

	ttl := sess.ExpiresAt.Sub(s.now().UTC())
	if ttl <= 0 {
		return apperrors.ErrSessionExpired
	}
	return s.kv.Set(ctx, KeyPrefix+sess.Token, raw, ttl)
}

// generateToken returns 32 cryptographically random bytes, hex-encoded.
func generateToken() (string, error) {
	randomBytes := make([]byte, 32)
	if _, err := rand.Read(randomBytes); err != nil {
		return "", apperrors.Wrap(err, "failed to generate session token")
	}
	return hex.EncodeToString(randomBytes), nil
}
