package domain

import (
	"github.com/Fadil369/brainsait-doctor-hub-sub001/internal/errors"
)

// Encryption domain errors.
var (
	// ErrMalformedBlob indicates an encrypted blob failed to decode
	// (missing prefix, bad epoch, invalid base64 or truncated payload).
	ErrMalformedBlob = errors.Wrap(errors.ErrDecryption, "malformed encrypted blob")

	// ErrInvalidKeySize indicates key material is not exactly 32 bytes.
	ErrInvalidKeySize = errors.Wrap(errors.ErrEncryption, "key must be exactly 32 bytes")

	// ErrUnsupportedAlgorithm indicates an unknown AEAD algorithm was requested.
	ErrUnsupportedAlgorithm = errors.Wrap(errors.ErrEncryption, "unsupported algorithm")

	// ErrKeyPersistence indicates the keystore could not persist key material.
	// Fatal to the operation; the service never continues unencrypted.
	ErrKeyPersistence = errors.Wrap(errors.ErrEncryption, "failed to persist encryption key")
)

// Algorithm identifies an AEAD cipher implementation.
type Algorithm string

const (
	// AESGCM is AES-256-GCM, the default algorithm.
	AESGCM Algorithm = "aes-gcm"

	// ChaCha20 is ChaCha20-Poly1305, preferred on hosts without AES hardware.
	ChaCha20 Algorithm = "chacha20-poly1305"
)
