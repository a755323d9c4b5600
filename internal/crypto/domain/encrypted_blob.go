// Package domain defines the encryption domain model: the encrypted blob wire
// format, key derivation and key material handling.
package domain

import (
	"encoding/base64"
	"fmt"
	"strings"
)

const (
	// BlobPrefix is the literal tag marking an encrypted value. The prefix
	// allows encrypted and plaintext values to coexist in the same store
	// without a schema.
	BlobPrefix = "encrypted:"

	// NonceSize is the GCM nonce length in bytes. Nonces are drawn fresh
	// from a cryptographically secure source on every encryption call;
	// reusing a nonce under the same key breaks confidentiality.
	NonceSize = 12

	// TagSize is the GCM authentication tag length appended to the ciphertext.
	TagSize = 16

	// KeySize is the symmetric key length in bytes (AES-256).
	KeySize = 32

	// ActiveKeyEpoch tags new blobs with the key version that encrypted them.
	// A ClearKey + regenerate cycle starts a new epoch; blobs from an old
	// epoch are not retroactively migrated.
	ActiveKeyEpoch = "v1"
)

// EncryptedBlob is the decoded storage representation of an encrypted value:
// a key epoch plus nonce || ciphertext+tag.
type EncryptedBlob struct {
	Epoch      string
	Nonce      []byte
	Ciphertext []byte
}

// IsEncrypted reports whether the value carries the encrypted blob prefix.
func IsEncrypted(value string) bool {
	return strings.HasPrefix(value, BlobPrefix)
}

// Encode serializes the blob to its wire form: "encrypted:<epoch>:" followed
// by base64(nonce || ciphertext).
func (b *EncryptedBlob) Encode() string {
	payload := make([]byte, 0, len(b.Nonce)+len(b.Ciphertext))
	payload = append(payload, b.Nonce...)
	payload = append(payload, b.Ciphertext...)

	return BlobPrefix + b.Epoch + ":" + base64.StdEncoding.EncodeToString(payload)
}

// DecodeBlob parses the wire form back into an EncryptedBlob. It rejects
// values without the prefix, with an unparseable epoch segment, with invalid
// base64, or with a payload too short to hold a nonce and authentication tag.
func DecodeBlob(value string) (*EncryptedBlob, error) {
	if !IsEncrypted(value) {
		return nil, fmt.Errorf("%w: missing %q prefix", ErrMalformedBlob, BlobPrefix)
	}

	rest := value[len(BlobPrefix):]
	epoch, encoded, ok := strings.Cut(rest, ":")
	if !ok || epoch == "" {
		return nil, fmt.Errorf("%w: missing key epoch", ErrMalformedBlob)
	}

	payload, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid base64 payload", ErrMalformedBlob)
	}

	if len(payload) < NonceSize+TagSize {
		return nil, fmt.Errorf("%w: payload shorter than nonce and tag", ErrMalformedBlob)
	}

	return &EncryptedBlob{
		Epoch:      epoch,
		Nonce:      payload[:NonceSize],
		Ciphertext: payload[NonceSize:],
	}, nil
}
