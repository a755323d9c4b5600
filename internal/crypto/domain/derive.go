package domain

import (
	"crypto/sha256"
	"io"

	"golang.org/x/crypto/hkdf"
)

// DeriveKey normalizes a passphrase-style secret into 32-byte key material by
// hashing it with SHA-256. Raw 32-byte keys should be used directly; this is
// the path for human-supplied secrets of arbitrary length.
func DeriveKey(secret string) []byte {
	sum := sha256.Sum256([]byte(secret))
	return sum[:]
}

// DeriveSigningKey uses HKDF-SHA256 to derive a 32-byte signing key from the
// storage key. Separates encryption key usage from signing key usage.
// Info parameter is versioned for future algorithm changes.
func DeriveSigningKey(key []byte) ([]byte, error) {
	info := []byte("audit-forward-signing-v1")
	reader := hkdf.New(sha256.New, key, nil, info)

	signingKey := make([]byte, KeySize)
	if _, err := io.ReadFull(reader, signingKey); err != nil {
		return nil, err
	}

	return signingKey, nil
}
