package domain

import (
	"time"

	"github.com/google/uuid"
)

// Claim is an insurance claim submission. The hub validates and records the
// claim; building the payer-side payload is an external collaborator's job.
type Claim struct {
	ID             uuid.UUID `json:"id"`
	PatientID      uuid.UUID `json:"patient_id"`
	DiagnosisCodes []string  `json:"diagnosis_codes"`
	ServiceCodes   []string  `json:"service_codes"`
	AmountHalalas  int64     `json:"amount_halalas"`
	ServiceDate    string    `json:"service_date"`
	Notes          string    `json:"notes,omitempty"`
	SubmittedBy    string    `json:"submitted_by"`
	SubmittedAt    time.Time `json:"submitted_at"`
}
