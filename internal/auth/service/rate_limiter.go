package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	apperrors "github.com/Fadil369/brainsait-doctor-hub-sub001/internal/errors"
	"github.com/Fadil369/brainsait-doctor-hub-sub001/internal/kvstore"
)

// limiterKeyPrefix is the KV namespace for login attempt windows.
const limiterKeyPrefix = "ratelimit:login:"

// loginLimiter implements LoginLimiter with a sliding window of failed
// attempt timestamps persisted per username. Concurrent failures for the same
// username are last-write-wins on the window record, which can undercount
// attempts under a race; the store-level TTL still bounds how long any window
// survives.
type loginLimiter struct {
	store       kvstore.Store
	maxAttempts int
	window      time.Duration
	now         func() time.Time
}

// NewLoginLimiter creates a login limiter rejecting attempts once maxAttempts
// failures accumulated within window.
func NewLoginLimiter(store kvstore.Store, maxAttempts int, window time.Duration) LoginLimiter {
	return &loginLimiter{
		store:       store,
		maxAttempts: maxAttempts,
		window:      window,
		now:         time.Now,
	}
}

// Allow reports whether a login attempt for username may proceed. When the
// window holds maxAttempts or more failures, it returns the seconds remaining
// until the oldest failure ages out.
func (l *loginLimiter) Allow(ctx context.Context, username string) (bool, int, error) {
	attempts, err := l.load(ctx, username)
	if err != nil {
		return false, 0, err
	}

	if len(attempts) < l.maxAttempts {
		return true, 0, nil
	}

	retryAfter := int(attempts[0].Add(l.window).Sub(l.now().UTC()).Seconds()) + 1
	if retryAfter < 1 {
		retryAfter = 1
	}
	return false, retryAfter, nil
}

// RecordFailure appends a failed attempt for username to its window.
func (l *loginLimiter) RecordFailure(ctx context.Context, username string) error {
	attempts, err := l.load(ctx, username)
	if err != nil {
		return err
	}

	attempts = append(attempts, l.now().UTC())
	raw, err := json.Marshal(attempts)
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal login attempts")
	}
	return l.store.Set(ctx, limiterKeyPrefix+username, raw, l.window)
}

// Reset clears the window for username after a successful login.
func (l *loginLimiter) Reset(ctx context.Context, username string) error {
	return l.store.Delete(ctx, limiterKeyPrefix+username)
}

// load reads the attempt window for username and drops entries older than the
// window before returning it.
func (l *loginLimiter) load(ctx context.Context, username string) ([]time.Time, error) {
	raw, err := l.store.Get(ctx, limiterKeyPrefix+username)
	if err != nil {
		if errors.Is(err, kvstore.ErrKeyNotFound) {
			return nil, nil
		}
		return nil, err
	}

	var attempts []time.Time
	if err := json.Unmarshal(raw, &attempts); err != nil {
		// An unparseable window is discarded rather than locking the
		// account out indefinitely.
		_ = l.store.Delete(ctx, limiterKeyPrefix+username)
		return nil, nil
	}

	cutoff := l.now().UTC().Add(-l.window)
	fresh := attempts[:0]
	for _, at := range attempts {
		if at.After(cutoff) {
			fresh = append(fresh, at)
		}
	}
	return fresh, nil
}
