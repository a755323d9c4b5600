// Package repository provides persistence for user accounts over the
// key-value backend.
package repository

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/Fadil369/brainsait-doctor-hub-sub001/internal/auth/domain"
	apperrors "github.com/Fadil369/brainsait-doctor-hub-sub001/internal/errors"
	"github.com/Fadil369/brainsait-doctor-hub-sub001/internal/kvstore"
)

// userKeyPrefix is the KV namespace for user account records, keyed by
// username. Usernames are normalized to lowercase before use.
const userKeyPrefix = "user-record:"

// KVUserRepository handles user persistence in the key-value store.
type KVUserRepository struct {
	store kvstore.Store
}

// NewKVUserRepository creates a new KVUserRepository.
func NewKVUserRepository(store kvstore.Store) *KVUserRepository {
	return &KVUserRepository{
		store: store,
	}
}

// Create inserts a new user. An existing record for the same username is an
// error.
func (r *KVUserRepository) Create(ctx context.Context, user *domain.User) error {
	key := userKey(user.Username)

	if _, err := r.store.Get(ctx, key); err == nil {
		return domain.ErrUserAlreadyExists
	} else if !errors.Is(err, kvstore.ErrKeyNotFound) {
		return err
	}

	return r.save(ctx, key, user)
}

// GetByUsername retrieves a user by username.
func (r *KVUserRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	raw, err := r.store.Get(ctx, userKey(username))
	if err != nil {
		if errors.Is(err, kvstore.ErrKeyNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}

	var user domain.User
	if err := json.Unmarshal(raw, &user); err != nil {
		return nil, apperrors.Wrap(err, "failed to unmarshal user record")
	}
	return &user, nil
}

// Update overwrites the record for an existing user.
func (r *KVUserRepository) Update(ctx context.Context, user *domain.User) error {
	key := userKey(user.Username)

	if _, err := r.store.Get(ctx, key); err != nil {
		if errors.Is(err, kvstore.ErrKeyNotFound) {
			return domain.ErrUserNotFound
		}
		return err
	}

	return r.save(ctx, key, user)
}

func (r *KVUserRepository) save(ctx context.Context, key string, user *domain.User) error {
	raw, err := json.Marshal(user)
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal user record")
	}
	// User records never expire.
	return r.store.Set(ctx, key, raw, 0)
}

func userKey(username string) string {
	return userKeyPrefix + normalizeUsername(username)
}

// normalizeUsername lowercases and trims a username before it is embedded in
// a store key. Both the user and pending-MFA namespaces use it so the two
// can never disagree on the same account.
func normalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}
