package storage

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cryptoDomain "github.com/Fadil369/brainsait-doctor-hub-sub001/internal/crypto/domain"
	cryptoService "github.com/Fadil369/brainsait-doctor-hub-sub001/internal/crypto/service"
	apperrors "github.com/Fadil369/brainsait-doctor-hub-sub001/internal/errors"
	"github.com/Fadil369/brainsait-doctor-hub-sub001/internal/kvstore"
)

type patientRecord struct {
	Name       string `json:"name"`
	NationalID string `json:"national_id"`
}

// capturingRecorder captures decryption failures reported by the adapter.
type capturingRecorder struct {
	key string
	err error
}

func (r *capturingRecorder) RecordDecryptionFailure(_ context.Context, key string, err error) {
	r.key = key
	r.err = err
}

type storageFixture struct {
	storage  *SecureStorage
	store    *kvstore.MemoryStore
	recorder *capturingRecorder
}

func newStorageFixture(t *testing.T, retention time.Duration) *storageFixture {
	t.Helper()

	store := kvstore.NewMemoryStore()
	keyManager := cryptoService.NewKVKeyManager(store, nil, "test-secret")
	encryptor := cryptoService.NewBlobEncryptor(keyManager, cryptoService.NewAEADManager(), cryptoDomain.AESGCM)
	recorder := &capturingRecorder{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	return &storageFixture{
		storage:  NewSecureStorage(store, encryptor, DefaultClassifier, retention, recorder, logger),
		store:    store,
		recorder: recorder,
	}
}

// TestSecureStorage_SetGet tests the encrypt-on-write, decrypt-on-read paths.
func TestSecureStorage_SetGet(t *testing.T) {
	ctx := context.Background()

	t.Run("Success_SensitiveKeyEncryptedAtRest", func(t *testing.T) {
		f := newStorageFixture(t, 7*24*time.Hour)

		value := patientRecord{Name: "Ahmed", NationalID: "1012345678"}
		require.NoError(t, f.storage.Set(ctx, "patient:123", value))

		raw, err := f.store.Get(ctx, "patient:123")
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(string(raw), cryptoDomain.BlobPrefix))
		assert.NotContains(t, string(raw), "Ahmed")
		assert.NotContains(t, string(raw), "1012345678")

		var got patientRecord
		require.NoError(t, f.storage.Get(ctx, "patient:123", &got))
		assert.Equal(t, value, got)
	})

	t.Run("Success_NonSensitiveKeyStaysPlain", func(t *testing.T) {
		f := newStorageFixture(t, 7*24*time.Hour)

		require.NoError(t, f.storage.Set(ctx, "user:1:theme", "dark"))

		raw, err := f.store.Get(ctx, "user:1:theme")
		require.NoError(t, err)
		assert.False(t, cryptoDomain.IsEncrypted(string(raw)))
		assert.Contains(t, string(raw), "dark")

		var got string
		require.NoError(t, f.storage.Get(ctx, "user:1:theme", &got))
		assert.Equal(t, "dark", got)
	})

	t.Run("Success_ForcedEncryptionOnPlainKey", func(t *testing.T) {
		f := newStorageFixture(t, 7*24*time.Hour)

		require.NoError(t, f.storage.SetWithOptions(ctx, "user:1:notes", "private", true, 0))

		raw, err := f.store.Get(ctx, "user:1:notes")
		require.NoError(t, err)
		assert.True(t, cryptoDomain.IsEncrypted(string(raw)))

		// The read path follows the stored payload, not the classifier.
		var got string
		require.NoError(t, f.storage.Get(ctx, "user:1:notes", &got))
		assert.Equal(t, "private", got)
	})

	t.Run("Success_ClassificationIsCaseInsensitive", func(t *testing.T) {
		f := newStorageFixture(t, 7*24*time.Hour)

		assert.True(t, f.storage.IsSensitive("Patient:123"))
		assert.True(t, f.storage.IsSensitive("insurance-claim:9"))
		assert.True(t, f.storage.IsSensitive("consent:abc"))
		assert.False(t, f.storage.IsSensitive("user:1:theme"))
	})

	t.Run("Error_MissingKey", func(t *testing.T) {
		f := newStorageFixture(t, 7*24*time.Hour)

		var got string
		err := f.storage.Get(ctx, "patient:absent", &got)
		assert.ErrorIs(t, err, apperrors.ErrNotFound)
	})
}

// TestSecureStorage_RecordTimes tests the envelope timestamps behind the
// retention sweep.
func TestSecureStorage_RecordTimes(t *testing.T) {
	ctx := context.Background()
	f := newStorageFixture(t, 7*24*time.Hour)

	now := time.Now().UTC().Truncate(time.Second)
	f.storage.SetClock(func() time.Time { return now })

	require.NoError(t, f.storage.Set(ctx, "patient:123", "v1"))

	createdAt, updatedAt, err := f.storage.GetRecordTimes(ctx, "patient:123")
	require.NoError(t, err)
	assert.Equal(t, now, createdAt)
	assert.Equal(t, now, updatedAt)

	// Re-setting preserves created_at and refreshes updated_at.
	later := now.Add(time.Hour)
	f.storage.SetClock(func() time.Time { return later })
	require.NoError(t, f.storage.Set(ctx, "patient:123", "v2"))

	createdAt, updatedAt, err = f.storage.GetRecordTimes(ctx, "patient:123")
	require.NoError(t, err)
	assert.Equal(t, now, createdAt)
	assert.Equal(t, later, updatedAt)
}

// TestSecureStorage_CleanupExpiredData tests the retention sweep over
// sensitive records.
func TestSecureStorage_CleanupExpiredData(t *testing.T) {
	ctx := context.Background()
	f := newStorageFixture(t, 7*24*time.Hour)

	now := time.Now().UTC()
	f.storage.SetClock(func() time.Time { return now })

	require.NoError(t, f.storage.Set(ctx, "patient:stale", "old"))
	require.NoError(t, f.storage.Set(ctx, "user:1:theme", "dark"))

	now = now.Add(8 * 24 * time.Hour)
	require.NoError(t, f.storage.Set(ctx, "patient:fresh", "new"))

	removed, err := f.storage.CleanupExpiredData(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	var got string
	assert.ErrorIs(t, f.storage.Get(ctx, "patient:stale", &got), apperrors.ErrNotFound)
	assert.NoError(t, f.storage.Get(ctx, "patient:fresh", &got))

	// Non-sensitive records are exempt from retention.
	assert.NoError(t, f.storage.Get(ctx, "user:1:theme", &got))
}

// TestSecureStorage_DecryptionFailure tests that a corrupted sensitive record
// surfaces an error and reaches the audit recorder.
func TestSecureStorage_DecryptionFailure(t *testing.T) {
	ctx := context.Background()
	f := newStorageFixture(t, 7*24*time.Hour)

	require.NoError(t, f.storage.Set(ctx, "patient:123", "value"))

	raw, err := f.store.Get(ctx, "patient:123")
	require.NoError(t, err)

	blob, err := cryptoDomain.DecodeBlob(string(raw))
	require.NoError(t, err)
	blob.Ciphertext[0] ^= 0xff
	require.NoError(t, f.store.Set(ctx, "patient:123", []byte(blob.Encode()), 0))

	var got string
	err = f.storage.Get(ctx, "patient:123", &got)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrDecryption)

	assert.Equal(t, "patient:123", f.recorder.key)
	assert.ErrorIs(t, f.recorder.err, apperrors.ErrDecryption)
}

// TestSecureStorage_Clear tests prefix-scoped deletion.
func TestSecureStorage_Clear(t *testing.T) {
	ctx := context.Background()
	f := newStorageFixture(t, 7*24*time.Hour)

	require.NoError(t, f.storage.Set(ctx, "patient:1", "a"))
	require.NoError(t, f.storage.Set(ctx, "patient:2", "b"))
	require.NoError(t, f.storage.Set(ctx, "user:1:theme", "dark"))

	require.NoError(t, f.storage.Clear(ctx, "patient:"))

	keys, err := f.storage.Keys(ctx, "patient:")
	require.NoError(t, err)
	assert.Empty(t, keys)

	var got string
	assert.NoError(t, f.storage.Get(ctx, "user:1:theme", &got))
}

// TestSecureStorage_EnvelopeShape pins the plaintext envelope format so
// operators can inspect non-sensitive entries directly in the backend.
func TestSecureStorage_EnvelopeShape(t *testing.T) {
	ctx := context.Background()
	f := newStorageFixture(t, 7*24*time.Hour)

	require.NoError(t, f.storage.Set(ctx, "user:1:theme", "dark"))

	raw, err := f.store.Get(ctx, "user:1:theme")
	require.NoError(t, err)

	var envelope struct {
		Data      json.RawMessage `json:"data"`
		CreatedAt time.Time       `json:"created_at"`
		UpdatedAt time.Time       `json:"updated_at"`
	}
	require.NoError(t, json.Unmarshal(raw, &envelope))
	assert.JSONEq(t, `"dark"`, string(envelope.Data))
	assert.False(t, envelope.CreatedAt.IsZero())
}
