package app

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"
	nethttp "net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	auditDomain "github.com/Fadil369/brainsait-doctor-hub-sub001/internal/audit/domain"
	"github.com/Fadil369/brainsait-doctor-hub-sub001/internal/config"
	cryptoDomain "github.com/Fadil369/brainsait-doctor-hub-sub001/internal/crypto/domain"
)

func testConfig() *config.Config {
	return &config.Config{
		Environment:          "testing",
		KVDriver:             "memory",
		LogLevel:             "error",
		AuditLoggingEnabled:  true,
		AuditRetention:       90 * 24 * time.Hour,
		AuditForwardInterval: time.Minute,
		HealthCheckTimeout:   time.Second,
		SessionTTL:           time.Hour,
	}
}

// TestContainer_AuditForwarderSigningKey verifies that batch signatures are
// derived from the deployment's actual storage key, not from the configured
// passphrase: two installations without a passphrase hold independent random
// keys and must not sign with a shared constant.
func TestContainer_AuditForwarderSigningKey(t *testing.T) {
	ctx := context.Background()

	var (
		gotBody []byte
		gotSig  string
	)
	collector := httptest.NewServer(nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		body, err := io.ReadAll(r.Body)
		assert.NoError(t, err)
		gotBody = body
		gotSig = r.Header.Get("X-Audit-Signature")
		w.WriteHeader(nethttp.StatusNoContent)
	}))
	defer collector.Close()

	cfg := testConfig()
	cfg.AuditForwardURL = collector.URL
	c := NewContainer(cfg)

	auditUC, err := c.AuditUseCase()
	require.NoError(t, err)
	auditUC.LogEvent(ctx, auditDomain.NewEvent(
		auditDomain.ActionLoginSuccess, "auth",
		auditDomain.SeverityMedium, auditDomain.OutcomeSuccess,
	))

	forwarder, err := c.AuditForwarder()
	require.NoError(t, err)
	require.NotNil(t, forwarder)
	require.NoError(t, forwarder.Flush(ctx))
	require.NotEmpty(t, gotBody)

	keyManager, err := c.KeyManager()
	require.NoError(t, err)
	storageKey, err := keyManager.GetOrCreateKey(ctx)
	require.NoError(t, err)
	signingKey, err := cryptoDomain.DeriveSigningKey(storageKey)
	require.NoError(t, err)

	mac := hmac.New(sha256.New, signingKey)
	mac.Write(gotBody)
	assert.Equal(t, hex.EncodeToString(mac.Sum(nil)), gotSig)

	// A second installation with its own random key signs differently.
	other := NewContainer(testConfig())
	otherKeyManager, err := other.KeyManager()
	require.NoError(t, err)
	otherKey, err := otherKeyManager.GetOrCreateKey(ctx)
	require.NoError(t, err)
	otherSigningKey, err := cryptoDomain.DeriveSigningKey(otherKey)
	require.NoError(t, err)
	assert.NotEqual(t, signingKey, otherSigningKey)
}

// TestContainer_EncryptorAlgorithm tests AEAD selection through configuration.
func TestContainer_EncryptorAlgorithm(t *testing.T) {
	ctx := context.Background()

	t.Run("Success_ChaCha20Selected", func(t *testing.T) {
		cfg := testConfig()
		cfg.EncryptionAlgorithm = "chacha20-poly1305"

		encryptor, err := NewContainer(cfg).Encryptor()
		require.NoError(t, err)

		blob, err := encryptor.EncryptString(ctx, "sensitive value")
		require.NoError(t, err)
		assert.True(t, cryptoDomain.IsEncrypted(blob))

		decrypted, err := encryptor.DecryptString(ctx, blob)
		require.NoError(t, err)
		assert.Equal(t, "sensitive value", decrypted)
	})

	t.Run("Success_EmptyDefaultsToAESGCM", func(t *testing.T) {
		cfg := testConfig()

		encryptor, err := NewContainer(cfg).Encryptor()
		require.NoError(t, err)

		blob, err := encryptor.EncryptString(ctx, "value")
		require.NoError(t, err)
		assert.True(t, cryptoDomain.IsEncrypted(blob))
	})

	t.Run("Error_UnknownAlgorithm", func(t *testing.T) {
		cfg := testConfig()
		cfg.EncryptionAlgorithm = "des-cbc"

		_, err := NewContainer(cfg).Encryptor()
		assert.Error(t, err)
	})
}
