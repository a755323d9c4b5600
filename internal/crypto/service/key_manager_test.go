package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cryptoDomain "github.com/Fadil369/brainsait-doctor-hub-sub001/internal/crypto/domain"
	"github.com/Fadil369/brainsait-doctor-hub-sub001/internal/kvstore"
)

// failingStore wraps the memory store and fails writes on demand.
type failingStore struct {
	*kvstore.MemoryStore
	failSet bool
}

func (f *failingStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if f.failSet {
		return errors.New("backend write refused")
	}
	return f.MemoryStore.Set(ctx, key, value, ttl)
}

// TestKVKeyManager_GetOrCreateKey tests key creation, persistence and reload.
func TestKVKeyManager_GetOrCreateKey(t *testing.T) {
	ctx := context.Background()

	t.Run("Success_CreatesAndCaches", func(t *testing.T) {
		store := kvstore.NewMemoryStore()
		manager := NewKVKeyManager(store, nil, "")

		key, err := manager.GetOrCreateKey(ctx)
		require.NoError(t, err)
		assert.Len(t, key, cryptoDomain.KeySize)

		again, err := manager.GetOrCreateKey(ctx)
		require.NoError(t, err)
		assert.Equal(t, key, again)
	})

	t.Run("Success_ReloadsPersistedKey", func(t *testing.T) {
		store := kvstore.NewMemoryStore()

		first := NewKVKeyManager(store, nil, "")
		key, err := first.GetOrCreateKey(ctx)
		require.NoError(t, err)

		// A fresh manager over the same store loads the same key.
		second := NewKVKeyManager(store, nil, "")
		reloaded, err := second.GetOrCreateKey(ctx)
		require.NoError(t, err)
		assert.Equal(t, key, reloaded)
	})

	t.Run("Success_DerivesFromSecret", func(t *testing.T) {
		manager := NewKVKeyManager(kvstore.NewMemoryStore(), nil, "passphrase")

		key, err := manager.GetOrCreateKey(ctx)
		require.NoError(t, err)
		assert.Equal(t, cryptoDomain.DeriveKey("passphrase"), key)
	})

	t.Run("Error_PersistFailureAbortsCreation", func(t *testing.T) {
		store := &failingStore{MemoryStore: kvstore.NewMemoryStore(), failSet: true}
		manager := NewKVKeyManager(store, nil, "")

		_, err := manager.GetOrCreateKey(ctx)
		require.Error(t, err)
		assert.ErrorIs(t, err, cryptoDomain.ErrKeyPersistence)

		// No partial state: once the store recovers, key creation succeeds.
		store.failSet = false
		key, err := manager.GetOrCreateKey(ctx)
		require.NoError(t, err)
		assert.Len(t, key, cryptoDomain.KeySize)
	})
}

// TestKVKeyManager_ClearKey tests the irreversible key wipe.
func TestKVKeyManager_ClearKey(t *testing.T) {
	ctx := context.Background()
	store := kvstore.NewMemoryStore()
	manager := NewKVKeyManager(store, nil, "")

	first, err := manager.GetOrCreateKey(ctx)
	require.NoError(t, err)

	require.NoError(t, manager.ClearKey(ctx))

	// The next call starts a fresh key; random material cannot repeat.
	second, err := manager.GetOrCreateKey(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
}
