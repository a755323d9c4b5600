package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/Fadil369/brainsait-doctor-hub-sub001/internal/auth/domain"
	apperrors "github.com/Fadil369/brainsait-doctor-hub-sub001/internal/errors"
	"github.com/Fadil369/brainsait-doctor-hub-sub001/internal/kvstore"
)

// mfaKeyPrefix is the KV namespace for pending MFA step-ups, keyed by
// username. The entry TTL bounds how long a one-time code stays redeemable.
const mfaKeyPrefix = "mfa:"

// KVMFARepository persists pending MFA step-ups in the key-value store.
type KVMFARepository struct {
	store kvstore.Store
	ttl   time.Duration
}

// NewKVMFARepository creates a repository whose pending records expire after
// ttl.
func NewKVMFARepository(store kvstore.Store, ttl time.Duration) *KVMFARepository {
	return &KVMFARepository{
		store: store,
		ttl:   ttl,
	}
}

// Create stores a pending step-up for the username, replacing any previous
// one. A fresh login restarts the step-up; only the newest code is valid.
func (r *KVMFARepository) Create(ctx context.Context, pending *domain.PendingMFA) error {
	raw, err := json.Marshal(pending)
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal pending mfa record")
	}
	return r.store.Set(ctx, mfaKey(pending.Username), raw, r.ttl)
}

// Get retrieves the pending step-up for username.
func (r *KVMFARepository) Get(ctx context.Context, username string) (*domain.PendingMFA, error) {
	raw, err := r.store.Get(ctx, mfaKey(username))
	if err != nil {
		if errors.Is(err, kvstore.ErrKeyNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}

	var pending domain.PendingMFA
	if err := json.Unmarshal(raw, &pending); err != nil {
		return nil, apperrors.Wrap(err, "failed to unmarshal pending mfa record")
	}
	return &pending, nil
}

// Delete removes the pending step-up for username. One-time codes are
// consumed on first successful verification.
func (r *KVMFARepository) Delete(ctx context.Context, username string) error {
	return r.store.Delete(ctx, mfaKey(username))
}

func mfaKey(username string) string {
	return mfaKeyPrefix + normalizeUsername(username)
}
