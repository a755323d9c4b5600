package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"sync"

	cryptoDomain "github.com/Fadil369/brainsait-doctor-hub-sub001/internal/crypto/domain"
	apperrors "github.com/Fadil369/brainsait-doctor-hub-sub001/internal/errors"
	"github.com/Fadil369/brainsait-doctor-hub-sub001/internal/kvstore"
)

// keystoreKey is the KV entry holding the persisted storage key for an epoch.
const keystoreKeyPrefix = "system:encryption-key:"

// KVKeyManager implements KeyManager over the key-value store. The key is
// persisted under the active epoch's keystore entry, optionally wrapped by a
// KMS keeper. Once loaded, the key is cached and shared read-only across all
// operations in the process.
type KVKeyManager struct {
	store  kvstore.Store
	keeper KMSKeeper // nil outside KMS deployments
	secret string    // optional passphrase used to derive the first key

	mu  sync.Mutex
	key []byte
}

// NewKVKeyManager creates a key manager backed by the given store. keeper may
// be nil (development); secret may be empty, in which case the first key is
// random.
func NewKVKeyManager(store kvstore.Store, keeper KMSKeeper, secret string) *KVKeyManager {
	return &KVKeyManager{
		store:  store,
		keeper: keeper,
		secret: secret,
	}
}

// GetOrCreateKey returns the storage key, generating and persisting it on
// first use. Subsequent calls return the cached or reloaded key. A keystore
// write failure aborts key creation and propagates; the service never
// operates with an unpersisted key.
func (k *KVKeyManager) GetOrCreateKey(ctx context.Context) ([]byte, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.key != nil {
		return k.key, nil
	}

	// Try the persisted key first.
	key, err := k.loadKey(ctx)
	if err == nil {
		k.key = key
		return k.key, nil
	}
	if !errors.Is(err, kvstore.ErrKeyNotFound) {
		return nil, err
	}

	// No persisted key: create one and persist before first use.
	key, err = k.newKey()
	if err != nil {
		return nil, err
	}
	if err := k.persistKey(ctx, key); err != nil {
		cryptoDomain.Zero(key)
		return nil, fmt.Errorf("%w: %v", cryptoDomain.ErrKeyPersistence, err)
	}

	k.key = key
	return k.key, nil
}

// ClearKey drops the in-memory and persisted key. Irreversible by design:
// data encrypted under the cleared epoch becomes unrecoverable, which is the
// intended behavior for key-wipe scenarios.
func (k *KVKeyManager) ClearKey(ctx context.Context) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	if err := k.store.Delete(ctx, keystoreKeyPrefix+cryptoDomain.ActiveKeyEpoch); err != nil {
		return apperrors.Wrap(err, "failed to delete persisted key")
	}

	if k.key != nil {
		cryptoDomain.Zero(k.key)
		k.key = nil
	}
	return nil
}

// newKey produces fresh key material: derived from the configured passphrase
// when one is set, random otherwise.
func (k *KVKeyManager) newKey() ([]byte, error) {
	if k.secret != "" {
		return cryptoDomain.DeriveKey(k.secret), nil
	}

	key := make([]byte, cryptoDomain.KeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, apperrors.Wrap(err, "failed to generate key material")
	}
	return key, nil
}

// loadKey reads and (when KMS is configured) unwraps the persisted key.
func (k *KVKeyManager) loadKey(ctx context.Context) ([]byte, error) {
	stored, err := k.store.Get(ctx, keystoreKeyPrefix+cryptoDomain.ActiveKeyEpoch)
	if err != nil {
		return nil, err
	}

	if k.keeper != nil {
		key, err := k.keeper.Decrypt(ctx, stored)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to unwrap key with KMS")
		}
		if len(key) != cryptoDomain.KeySize {
			return nil, cryptoDomain.ErrInvalidKeySize
		}
		return key, nil
	}

	key, err := base64.StdEncoding.DecodeString(string(stored))
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to decode persisted key")
	}
	if len(key) != cryptoDomain.KeySize {
		return nil, cryptoDomain.ErrInvalidKeySize
	}
	return key, nil
}

// persistKey writes the key to the keystore entry, wrapped when KMS is configured.
func (k *KVKeyManager) persistKey(ctx context.Context, key []byte) error {
	var stored []byte
	if k.keeper != nil {
		wrapped, err := k.keeper.Encrypt(ctx, key)
		if err != nil {
			return apperrors.Wrap(err, "failed to wrap key with KMS")
		}
		stored = wrapped
	} else {
		stored = []byte(base64.StdEncoding.EncodeToString(key))
	}

	// The keystore entry never expires; key lifecycle is explicit.
	return k.store.Set(ctx, keystoreKeyPrefix+cryptoDomain.ActiveKeyEpoch, stored, 0)
}
