// Package domain defines the patient record and insurance claim models. Both
// are PHI: every access is audited and the records are encrypted at rest.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Patient is a clinical record held by the hub.
type Patient struct {
	ID          uuid.UUID `json:"id"`
	FirstName   string    `json:"first_name"`
	LastName    string    `json:"last_name"`
	DateOfBirth string    `json:"date_of_birth"`
	Gender      string    `json:"gender"`
	NationalID  string    `json:"national_id"`
	Phone       string    `json:"phone"`
	Email       string    `json:"email"`
	BloodType   string    `json:"blood_type,omitempty"`
	Allergies   []string  `json:"allergies,omitempty"`
	Conditions  []string  `json:"conditions,omitempty"`
	Medications []string  `json:"medications,omitempty"`
	Insurance   Insurance `json:"insurance"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Insurance identifies the patient's coverage for claim submission.
type Insurance struct {
	Provider     string `json:"provider"`
	PolicyNumber string `json:"policy_number"`
	MemberID     string `json:"member_id"`
}

// Summary is the listing projection of a patient: enough to render an index
// without shipping the full clinical record.
type Summary struct {
	ID        uuid.UUID `json:"id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Summarize projects the patient onto its listing form.
func (p *Patient) Summarize() Summary {
	return Summary{
		ID:        p.ID,
		FirstName: p.FirstName,
		LastName:  p.LastName,
		UpdatedAt: p.UpdatedAt,
	}
}
