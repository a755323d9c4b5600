// Package repository persists patient consent records in the key-value store.
package repository

import (
	"context"
	"encoding/json"
	"errors"

	apperrors "github.com/Fadil369/brainsait-doctor-hub-sub001/internal/errors"
	"github.com/Fadil369/brainsait-doctor-hub-sub001/internal/kvstore"
	"github.com/Fadil369/brainsait-doctor-hub-sub001/internal/llmgate/domain"
)

// consentKeyPrefix is the KV namespace for consent records, keyed by patient.
const consentKeyPrefix = "consent:"

// ErrConsentNotFound indicates no consent record exists for the patient.
var ErrConsentNotFound = apperrors.Wrap(apperrors.ErrNotFound, "consent not found")

// KVConsentRepository stores consent records in the key-value store. Consent
// is a compliance artifact: records never expire at store level, revocation
// overwrites rather than deletes.
type KVConsentRepository struct {
	store kvstore.Store
}

// NewKVConsentRepository creates a new KVConsentRepository.
func NewKVConsentRepository(store kvstore.Store) *KVConsentRepository {
	return &KVConsentRepository{
		store: store,
	}
}

// Get retrieves the consent record for patientID.
func (r *KVConsentRepository) Get(ctx context.Context, patientID string) (*domain.Consent, error) {
	raw, err := r.store.Get(ctx, consentKeyPrefix+patientID)
	if err != nil {
		if errors.Is(err, kvstore.ErrKeyNotFound) {
			return nil, ErrConsentNotFound
		}
		return nil, err
	}

	var consent domain.Consent
	if err := json.Unmarshal(raw, &consent); err != nil {
		return nil, apperrors.Wrap(err, "failed to unmarshal consent record")
	}
	return &consent, nil
}

// Put stores the consent record, replacing any previous one for the patient.
func (r *KVConsentRepository) Put(ctx context.Context, consent *domain.Consent) error {
	raw, err := json.Marshal(consent)
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal consent record")
	}
	return r.store.Set(ctx, consentKeyPrefix+consent.PatientID, raw, 0)
}
