package service

import (
	"context"
	"fmt"

	cryptoDomain "github.com/Fadil369/brainsait-doctor-hub-sub001/internal/crypto/domain"
	apperrors "github.com/Fadil369/brainsait-doctor-hub-sub001/internal/errors"
)

// BlobEncryptor implements Encryptor on top of the key manager and an AEAD
// cipher, producing encrypted blob strings in the versioned wire format.
type BlobEncryptor struct {
	keyManager  KeyManager
	aeadManager AEADManager
	algorithm   cryptoDomain.Algorithm
}

// NewBlobEncryptor creates an encryptor using the given key manager and
// algorithm. AESGCM is the default algorithm across deployments.
func NewBlobEncryptor(keyManager KeyManager, aeadManager AEADManager, algorithm cryptoDomain.Algorithm) *BlobEncryptor {
	return &BlobEncryptor{
		keyManager:  keyManager,
		aeadManager: aeadManager,
		algorithm:   algorithm,
	}
}

// EncryptString encrypts plaintext into an encrypted blob string tagged with
// the active key epoch. Encryption failures are fatal to the operation.
func (e *BlobEncryptor) EncryptString(ctx context.Context, plaintext string) (string, error) {
	cipher, err := e.cipher(ctx)
	if err != nil {
		return "", err
	}

	ciphertext, nonce, err := cipher.Encrypt([]byte(plaintext), nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", apperrors.ErrEncryption, err)
	}

	blob := &cryptoDomain.EncryptedBlob{
		Epoch:      cryptoDomain.ActiveKeyEpoch,
		Nonce:      nonce,
		Ciphertext: ciphertext,
	}
	return blob.Encode(), nil
}

// DecryptString decodes and decrypts an encrypted blob string. Tampered,
// truncated or wrong-key input fails with ErrDecryption; corrupted plaintext
// is never returned.
func (e *BlobEncryptor) DecryptString(ctx context.Context, value string) (string, error) {
	blob, err := cryptoDomain.DecodeBlob(value)
	if err != nil {
		return "", err
	}

	if blob.Epoch != cryptoDomain.ActiveKeyEpoch {
		return "", fmt.Errorf("%w: unknown key epoch %q", apperrors.ErrDecryption, blob.Epoch)
	}

	cipher, err := e.cipher(ctx)
	if err != nil {
		return "", err
	}

	plaintext, err := cipher.Decrypt(blob.Ciphertext, blob.Nonce, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", apperrors.ErrDecryption, err)
	}
	return string(plaintext), nil
}

// cipher builds an AEAD instance over the current storage key.
func (e *BlobEncryptor) cipher(ctx context.Context) (AEAD, error) {
	key, err := e.keyManager.GetOrCreateKey(ctx)
	if err != nil {
		return nil, err
	}
	return e.aeadManager.CreateCipher(key, e.algorithm)
}
