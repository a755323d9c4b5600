package app

import (
	"context"
	"fmt"

	cryptoDomain "github.com/Fadil369/brainsait-doctor-hub-sub001/internal/crypto/domain"
	cryptoService "github.com/Fadil369/brainsait-doctor-hub-sub001/internal/crypto/service"
)

// KMSKeeper returns the key keeper wrapping the storage key at rest, or nil
// when no KMS key URI is configured (development).
func (c *Container) KMSKeeper() (cryptoService.KMSKeeper, error) {
	var err error
	c.kmsKeeperInit.Do(func() {
		if c.config.KMSKeyURI == "" {
			return
		}
		kmsService := cryptoService.NewKMSService()
		c.kmsKeeper, err = kmsService.OpenKeeper(context.Background(), c.config.KMSKeyURI)
		if err != nil {
			c.initErrors["kmsKeeper"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["kmsKeeper"]; exists {
		return nil, storedErr
	}
	return c.kmsKeeper, nil
}

// KeyManager returns the durable storage key manager.
func (c *Container) KeyManager() (cryptoService.KeyManager, error) {
	var err error
	c.keyManagerInit.Do(func() {
		c.keyManager, err = c.initKeyManager()
		if err != nil {
			c.initErrors["keyManager"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["keyManager"]; exists {
		return nil, storedErr
	}
	return c.keyManager, nil
}

// Encryptor returns the blob encryptor used by secure storage.
func (c *Container) Encryptor() (cryptoService.Encryptor, error) {
	var err error
	c.encryptorInit.Do(func() {
		c.encryptor, err = c.initEncryptor()
		if err != nil {
			c.initErrors["encryptor"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["encryptor"]; exists {
		return nil, storedErr
	}
	return c.encryptor, nil
}

// initKeyManager creates the key manager over the key-value store.
func (c *Container) initKeyManager() (cryptoService.KeyManager, error) {
	store, err := c.KVStore()
	if err != nil {
		return nil, fmt.Errorf("failed to get kv store for key manager: %w", err)
	}

	keeper, err := c.KMSKeeper()
	if err != nil {
		return nil, fmt.Errorf("failed to get kms keeper for key manager: %w", err)
	}

	return cryptoService.NewKVKeyManager(store, keeper, c.config.EncryptionSecret), nil
}

// initEncryptor creates the blob encryptor with the configured AEAD algorithm.
func (c *Container) initEncryptor() (cryptoService.Encryptor, error) {
	keyManager, err := c.KeyManager()
	if err != nil {
		return nil, fmt.Errorf("failed to get key manager for encryptor: %w", err)
	}

	algorithm := cryptoDomain.Algorithm(c.config.EncryptionAlgorithm)
	if algorithm == "" {
		algorithm = cryptoDomain.AESGCM
	}
	switch algorithm {
	case cryptoDomain.AESGCM, cryptoDomain.ChaCha20:
	default:
		return nil, fmt.Errorf("unsupported encryption algorithm: %q", c.config.EncryptionAlgorithm)
	}

	return cryptoService.NewBlobEncryptor(
		keyManager,
		cryptoService.NewAEADManager(),
		algorithm,
	), nil
}
