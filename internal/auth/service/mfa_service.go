package service

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math/big"

	apperrors "github.com/Fadil369/brainsait-doctor-hub-sub001/internal/errors"
)

// mfaService implements MFAService with 6-digit codes hashed by SHA-256.
type mfaService struct{}

// NewMFAService creates a new MFAService instance.
func NewMFAService() MFAService {
	return &mfaService{}
}

// GenerateCode creates a cryptographically random 6-digit one-time code and
// its SHA-256 hash. The plain code is delivered out of band; only the hash is
// persisted with the pending login.
func (m *mfaService) GenerateCode() (plainCode string, codeHash string, err error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", "", apperrors.Wrap(err, "failed to generate mfa code")
	}

	plainCode = fmt.Sprintf("%06d", n.Int64())
	return plainCode, m.hash(plainCode), nil
}

// VerifyCode checks a presented code against the stored hash in constant time.
func (m *mfaService) VerifyCode(plainCode, codeHash string) bool {
	return hmac.Equal([]byte(m.hash(plainCode)), []byte(codeHash))
}

func (m *mfaService) hash(code string) string {
	sum := sha256.Sum256([]byte(code))
	return hex.EncodeToString(sum[:])
}
