package storage

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	cryptoDomain "github.com/Fadil369/brainsait-doctor-hub-sub001/internal/crypto/domain"
	cryptoService "github.com/Fadil369/brainsait-doctor-hub-sub001/internal/crypto/service"
	apperrors "github.com/Fadil369/brainsait-doctor-hub-sub001/internal/errors"
	"github.com/Fadil369/brainsait-doctor-hub-sub001/internal/kvstore"
)

// record is the storage envelope for every value. The timestamps drive the
// retention sweep for sensitive records.
type record struct {
	Data      json.RawMessage `json:"data"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// AuditRecorder receives decryption failures on PHI-classified keys so they
// leave an audit trail instead of silently becoming a missing value.
type AuditRecorder interface {
	RecordDecryptionFailure(ctx context.Context, key string, err error)
}

// SecureStorage is the key-value facade over the backing store. Values whose
// keys the classifier marks sensitive are routed through the encryptor on
// both paths; everything else is stored as inspectable JSON.
type SecureStorage struct {
	store      kvstore.Store
	encryptor  cryptoService.Encryptor
	classifier Classifier
	retention  time.Duration
	recorder   AuditRecorder
	logger     *slog.Logger
	now        func() time.Time
}

// NewSecureStorage creates the adapter. recorder may be nil; retention bounds
// how long sensitive records survive before CleanupExpiredData removes them.
func NewSecureStorage(
	store kvstore.Store,
	encryptor cryptoService.Encryptor,
	classifier Classifier,
	retention time.Duration,
	recorder AuditRecorder,
	logger *slog.Logger,
) *SecureStorage {
	return &SecureStorage{
		store:      store,
		encryptor:  encryptor,
		classifier: classifier,
		retention:  retention,
		recorder:   recorder,
		logger:     logger,
		now:        time.Now,
	}
}

// SetClock overrides the adapter's time source for tests.
func (s *SecureStorage) SetClock(now func() time.Time) {
	s.now = now
}

// IsSensitive exposes the classification rule used by both paths.
func (s *SecureStorage) IsSensitive(key string) bool {
	return s.classifier(key)
}

// Set stores value under key, encrypting it when the key is sensitive.
// Re-setting an existing key preserves its created_at and refreshes
// updated_at. An encryption failure aborts the write; the adapter never
// falls back to plaintext for a sensitive key.
func (s *SecureStorage) Set(ctx context.Context, key string, value any) error {
	return s.SetWithOptions(ctx, key, value, false, 0)
}

// SetWithOptions stores value under key. encrypt forces encryption for keys
// the classifier would leave plain; a sensitive key is encrypted regardless
// of the flag. A non-zero ttl expires the entry at store level.
func (s *SecureStorage) SetWithOptions(ctx context.Context, key string, value any, encrypt bool, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal value")
	}

	now := s.now().UTC()
	rec := record{Data: data, CreatedAt: now, UpdatedAt: now}
	if existing, err := s.load(ctx, key); err == nil {
		rec.CreatedAt = existing.CreatedAt
	}

	payload, err := json.Marshal(rec)
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal record")
	}

	if encrypt || s.classifier(key) {
		blob, err := s.encryptor.EncryptString(ctx, string(payload))
		if err != nil {
			return err
		}
		payload = []byte(blob)
	}

	return s.store.Set(ctx, key, payload, ttl)
}

// Get retrieves the value stored under key into dest, decrypting it when the
// key is sensitive. Returns ErrNotFound for absent keys. A decryption failure
// on a sensitive key is reported to the audit recorder and propagated; the
// data is PHI and losing it silently is worse than a visible error.
func (s *SecureStorage) Get(ctx context.Context, key string, dest any) error {
	rec, err := s.load(ctx, key)
	if err != nil {
		return err
	}

	if err := json.Unmarshal(rec.Data, dest); err != nil {
		return apperrors.Wrap(err, "failed to unmarshal value")
	}
	return nil
}

// GetRecordTimes returns the created_at/updated_at envelope timestamps of the
// record under key. Used by the retention sweep and by tests asserting the
// exposure bound.
func (s *SecureStorage) GetRecordTimes(ctx context.Context, key string) (createdAt, updatedAt time.Time, err error) {
	rec, err := s.load(ctx, key)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return rec.CreatedAt, rec.UpdatedAt, nil
}

// Delete removes the entry under key.
func (s *SecureStorage) Delete(ctx context.Context, key string) error {
	return s.store.Delete(ctx, key)
}

// Keys returns all live keys with the given prefix.
func (s *SecureStorage) Keys(ctx context.Context, prefix string) ([]string, error) {
	return s.store.Keys(ctx, prefix)
}

// Clear removes every key with the given prefix.
func (s *SecureStorage) Clear(ctx context.Context, prefix string) error {
	keys, err := s.store.Keys(ctx, prefix)
	if err != nil {
		return err
	}

	for _, key := range keys {
		if err := s.store.Delete(ctx, key); err != nil {
			return err
		}
	}
	return nil
}

// CleanupExpiredData scans all sensitive keys and deletes records whose
// updated_at (falling back to created_at) is older than the retention window.
// This is a background sweep, not write-time enforcement: a stale record may
// survive until the next sweep, a transient but bounded exposure window.
// Returns the number of records removed.
func (s *SecureStorage) CleanupExpiredData(ctx context.Context) (int, error) {
	keys, err := s.store.Keys(ctx, "")
	if err != nil {
		return 0, err
	}

	cutoff := s.now().UTC().Add(-s.retention)
	removed := 0

	for _, key := range keys {
		if !s.classifier(key) {
			continue
		}

		rec, err := s.load(ctx, key)
		if err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				continue
			}
			// An unreadable sensitive record past its own accounting is
			// still subject to the sweep on the next pass; log and move on.
			s.logger.Warn("cleanup: unreadable sensitive record",
				slog.String("key", key),
				slog.Any("error", err))
			continue
		}

		reference := rec.UpdatedAt
		if reference.IsZero() {
			reference = rec.CreatedAt
		}
		if reference.Before(cutoff) {
			if err := s.store.Delete(ctx, key); err != nil {
				return removed, err
			}
			removed++
		}
	}

	return removed, nil
}

// RunCleanupLoop runs CleanupExpiredData on a fixed interval until ctx is done.
func (s *SecureStorage) RunCleanupLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := s.CleanupExpiredData(ctx)
			if err != nil {
				s.logger.Error("storage cleanup failed", slog.Any("error", err))
				continue
			}
			if removed > 0 {
				s.logger.Info("storage cleanup removed expired records",
					slog.Int("removed", removed))
			}
		}
	}
}

// load fetches and, when necessary, decrypts the record envelope under key.
// The blob prefix on the stored payload, not the classifier, decides the read
// path: it keeps reads correct for keys written with a forced encryption flag
// and for plaintext written before a key joined the sensitive set. Envelopes
// are JSON objects, so a plaintext payload can never carry the prefix.
func (s *SecureStorage) load(ctx context.Context, key string) (*record, error) {
	raw, err := s.store.Get(ctx, key)
	if err != nil {
		return nil, err
	}

	payload := raw
	if cryptoDomain.IsEncrypted(string(raw)) {
		plaintext, err := s.encryptor.DecryptString(ctx, string(raw))
		if err != nil {
			if s.recorder != nil {
				s.recorder.RecordDecryptionFailure(ctx, key, err)
			}
			return nil, err
		}
		payload = []byte(plaintext)
	}

	var rec record
	if err := json.Unmarshal(payload, &rec); err != nil {
		return nil, apperrors.Wrap(err, "failed to unmarshal record")
	}
	return &rec, nil
}
