// Package service provides the cryptographic services for field-level PHI
// encryption: AEAD ciphers, the process-wide key manager and the blob-level
// encryptor used by secure storage.
package service

import (
	"context"

	cryptoDomain "github.com/Fadil369/brainsait-doctor-hub-sub001/internal/crypto/domain"
)

// AEAD defines the interface for Authenticated Encryption with Associated Data.
type AEAD interface {
	// Encrypt encrypts plaintext with optional AAD and returns ciphertext and nonce.
	Encrypt(plaintext, aad []byte) (ciphertext, nonce []byte, err error)

	// Decrypt decrypts ciphertext using the provided nonce and AAD.
	Decrypt(ciphertext, nonce, aad []byte) ([]byte, error)
}

// AEADManager defines the interface for creating AEAD cipher instances.
type AEADManager interface {
	// CreateCipher creates an AEAD cipher instance for the specified algorithm.
	CreateCipher(key []byte, alg cryptoDomain.Algorithm) (AEAD, error)
}

// KeyManager manages the durable symmetric storage key for the process.
// The key is shared read-only after creation; replacement happens only
// through ClearKey followed by regeneration, which starts a new key epoch.
type KeyManager interface {
	// GetOrCreateKey returns the storage key, generating and persisting it
	// on first use. Idempotent. A persistence failure is fatal to the
	// operation and propagates; the caller must not continue unencrypted.
	GetOrCreateKey(ctx context.Context) ([]byte, error)

	// ClearKey drops the in-memory and persisted key. Irreversible: data
	// encrypted under the cleared key becomes unrecoverable.
	ClearKey(ctx context.Context) error
}

// Encryptor performs blob-level encryption and decryption of string values
// using the key manager's key and the encrypted blob wire format.
type Encryptor interface {
	// EncryptString encrypts plaintext into an encrypted blob string.
	EncryptString(ctx context.Context, plaintext string) (string, error)

	// DecryptString decodes and decrypts an encrypted blob string.
	// Fails on tampered, truncated or wrong-key input; never returns
	// corrupted plaintext.
	DecryptString(ctx context.Context, blob string) (string, error)
}

// KMSKeeper wraps and unwraps key material with an external key management
// service. *secrets.Keeper from gocloud.dev satisfies this interface.
type KMSKeeper interface {
	Encrypt(ctx context.Context, plaintext []byte) ([]byte, error)
	Decrypt(ctx context.Context, ciphertext []byte) ([]byte, error)
}
