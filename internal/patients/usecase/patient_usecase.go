// Package usecase implements patient record business logic: PHI CRUD over
// the encrypted storage adapter, role checks and the audit trail every
// access leaves behind.
package usecase

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	validation "github.com/jellydator/validation"

	auditDomain "github.com/Fadil369/brainsait-doctor-hub-sub001/internal/audit/domain"
	authDomain "github.com/Fadil369/brainsait-doctor-hub-sub001/internal/auth/domain"
	apperrors "github.com/Fadil369/brainsait-doctor-hub-sub001/internal/errors"
	"github.com/Fadil369/brainsait-doctor-hub-sub001/internal/patients/domain"
	"github.com/Fadil369/brainsait-doctor-hub-sub001/internal/storage"
	appValidation "github.com/Fadil369/brainsait-doctor-hub-sub001/internal/validation"
)

// KeyPrefix is the KV namespace for patient records. The classifier marks
// this prefix sensitive, so every record is encrypted at rest.
const KeyPrefix = "patient:"

var (
	dateRegex = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	codeRegex = regexp.MustCompile(`^[A-Z0-9][A-Z0-9.\-]{0,15}$`)
)

// ErrPatientNotFound indicates no patient record exists for the given ID.
var ErrPatientNotFound = apperrors.Wrap(apperrors.ErrNotFound, "patient not found")

// CreatePatientInput contains the input data for creating a patient record.
type CreatePatientInput struct {
	FirstName   string           `json:"first_name"`
	LastName    string           `json:"last_name"`
	DateOfBirth string           `json:"date_of_birth"`
	Gender      string           `json:"gender"`
	NationalID  string           `json:"national_id"`
	Phone       string           `json:"phone"`
	Email       string           `json:"email"`
	BloodType   string           `json:"blood_type"`
	Allergies   []string         `json:"allergies"`
	Conditions  []string         `json:"conditions"`
	Medications []string         `json:"medications"`
	Insurance   domain.Insurance `json:"insurance"`
}

// SubmitClaimInput contains the input data for an insurance claim.
type SubmitClaimInput struct {
	PatientID      string   `json:"patient_id"`
	DiagnosisCodes []string `json:"diagnosis_codes"`
	ServiceCodes   []string `json:"service_codes"`
	AmountHalalas  int64    `json:"amount_halalas"`
	ServiceDate    string   `json:"service_date"`
	Notes          string   `json:"notes"`
}

// AuditLogger records patient access events.
type AuditLogger interface {
	LogEvent(ctx context.Context, event *auditDomain.Event)
}

// UseCase defines the interface for patient business logic operations.
type UseCase interface {
	Create(ctx context.Context, actor *authDomain.User, input CreatePatientInput) (*domain.Patient, error)
	Get(ctx context.Context, actor *authDomain.User, id uuid.UUID) (*domain.Patient, error)
	List(ctx context.Context, actor *authDomain.User) ([]domain.Summary, error)
	Update(ctx context.Context, actor *authDomain.User, id uuid.UUID, input CreatePatientInput) (*domain.Patient, error)
	Delete(ctx context.Context, actor *authDomain.User, id uuid.UUID) error
	SubmitClaim(ctx context.Context, actor *authDomain.User, input SubmitClaimInput) (*domain.Claim, error)
}

// PatientUseCase handles patient-related business logic.
type PatientUseCase struct {
	storage *storage.SecureStorage
	auditor AuditLogger
}

// NewPatientUseCase creates a new PatientUseCase.
func NewPatientUseCase(secureStorage *storage.SecureStorage, auditor AuditLogger) *PatientUseCase {
	return &PatientUseCase{
		storage: secureStorage,
		auditor: auditor,
	}
}

// Create stores a new patient record.
func (uc *PatientUseCase) Create(ctx context.Context, actor *authDomain.User, input CreatePatientInput) (*domain.Patient, error) {
	if err := uc.validatePatientInput(input); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	patient := &domain.Patient{
		ID:          uuid.Must(uuid.NewV7()),
		FirstName:   strings.TrimSpace(input.FirstName),
		LastName:    strings.TrimSpace(input.LastName),
		DateOfBirth: input.DateOfBirth,
		Gender:      input.Gender,
		NationalID:  strings.TrimSpace(input.NationalID),
		Phone:       strings.TrimSpace(input.Phone),
		Email:       strings.TrimSpace(strings.ToLower(input.Email)),
		BloodType:   input.BloodType,
		Allergies:   input.Allergies,
		Conditions:  input.Conditions,
		Medications: input.Medications,
		Insurance:   input.Insurance,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := uc.storage.Set(ctx, patientKey(patient.ID), patient); err != nil {
		uc.audit(ctx, actor, auditDomain.ActionPatientCreated, patient.ID.String(), auditDomain.OutcomeFailure, nil)
		return nil, err
	}

	uc.audit(ctx, actor, auditDomain.ActionPatientCreated, patient.ID.String(), auditDomain.OutcomeSuccess, nil)
	return patient, nil
}

// Get retrieves a patient record by ID. The read itself is audited.
func (uc *PatientUseCase) Get(ctx context.Context, actor *authDomain.User, id uuid.UUID) (*domain.Patient, error) {
	var patient domain.Patient
	if err := uc.storage.Get(ctx, patientKey(id), &patient); err != nil {
		if apperrors.Is(err, apperrors.ErrNotFound) {
			return nil, ErrPatientNotFound
		}
		uc.audit(ctx, actor, auditDomain.ActionPatientViewed, id.String(), auditDomain.OutcomeFailure, nil)
		return nil, err
	}

	uc.audit(ctx, actor, auditDomain.ActionPatientViewed, id.String(), auditDomain.OutcomeSuccess, nil)
	return &patient, nil
}

// List returns listing summaries of all patient records, audited as a single
// bulk view.
func (uc *PatientUseCase) List(ctx context.Context, actor *authDomain.User) ([]domain.Summary, error) {
	keys, err := uc.storage.Keys(ctx, KeyPrefix)
	if err != nil {
		return nil, err
	}

	summaries := make([]domain.Summary, 0, len(keys))
	for _, key := range keys {
		var patient domain.Patient
		if err := uc.storage.Get(ctx, key, &patient); err != nil {
			if apperrors.Is(err, apperrors.ErrNotFound) {
				continue
			}
			return nil, err
		}
		summaries = append(summaries, patient.Summarize())
	}

	uc.audit(ctx, actor, auditDomain.ActionPatientViewed, "", auditDomain.OutcomeSuccess,
		map[string]any{"scope": "list", "count": len(summaries)})
	return summaries, nil
}

// Update overwrites the record for an existing patient.
func (uc *PatientUseCase) Update(ctx context.Context, actor *authDomain.User, id uuid.UUID, input CreatePatientInput) (*domain.Patient, error) {
	if err := uc.validatePatientInput(input); err != nil {
		return nil, err
	}

	var existing domain.Patient
	if err := uc.storage.Get(ctx, patientKey(id), &existing); err != nil {
		if apperrors.Is(err, apperrors.ErrNotFound) {
			return nil, ErrPatientNotFound
		}
		return nil, err
	}

	patient := &domain.Patient{
		ID:          id,
		FirstName:   strings.TrimSpace(input.FirstName),
		LastName:    strings.TrimSpace(input.LastName),
		DateOfBirth: input.DateOfBirth,
		Gender:      input.Gender,
		NationalID:  strings.TrimSpace(input.NationalID),
		Phone:       strings.TrimSpace(input.Phone),
		Email:       strings.TrimSpace(strings.ToLower(input.Email)),
		BloodType:   input.BloodType,
		Allergies:   input.Allergies,
		Conditions:  input.Conditions,
		Medications: input.Medications,
		Insurance:   input.Insurance,
		CreatedAt:   existing.CreatedAt,
		UpdatedAt:   time.Now().UTC(),
	}

	if err := uc.storage.Set(ctx, patientKey(id), patient); err != nil {
		uc.audit(ctx, actor, auditDomain.ActionPatientUpdated, id.String(), auditDomain.OutcomeFailure, nil)
		return nil, err
	}

	uc.audit(ctx, actor, auditDomain.ActionPatientUpdated, id.String(), auditDomain.OutcomeSuccess, nil)
	return patient, nil
}

// Delete removes a patient record. Admin only.
func (uc *PatientUseCase) Delete(ctx context.Context, actor *authDomain.User, id uuid.UUID) error {
	if !actor.IsAdmin() {
		uc.audit(ctx, actor, auditDomain.ActionPatientDeleted, id.String(), auditDomain.OutcomeFailure,
			map[string]any{"reason": "not admin"})
		return apperrors.Wrap(apperrors.ErrForbidden, "patient deletion requires admin role")
	}

	var existing domain.Patient
	if err := uc.storage.Get(ctx, patientKey(id), &existing); err != nil {
		if apperrors.Is(err, apperrors.ErrNotFound) {
			return ErrPatientNotFound
		}
		return err
	}

	if err := uc.storage.Delete(ctx, patientKey(id)); err != nil {
		uc.audit(ctx, actor, auditDomain.ActionPatientDeleted, id.String(), auditDomain.OutcomeFailure, nil)
		return err
	}

	uc.audit(ctx, actor, auditDomain.ActionPatientDeleted, id.String(), auditDomain.OutcomeSuccess, nil)
	return nil
}

// SubmitClaim validates and records an insurance claim against an existing
// patient. Claims are stored under the claim namespace, which the classifier
// also marks sensitive.
func (uc *PatientUseCase) SubmitClaim(ctx context.Context, actor *authDomain.User, input SubmitClaimInput) (*domain.Claim, error) {
	if err := uc.validateClaimInput(input); err != nil {
		return nil, err
	}

	patientID, err := uuid.Parse(input.PatientID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInvalidInput, "patient_id must be a valid uuid")
	}

	var patient domain.Patient
	if err := uc.storage.Get(ctx, patientKey(patientID), &patient); err != nil {
		if apperrors.Is(err, apperrors.ErrNotFound) {
			return nil, ErrPatientNotFound
		}
		return nil, err
	}

	claim := &domain.Claim{
		ID:             uuid.Must(uuid.NewV7()),
		PatientID:      patientID,
		DiagnosisCodes: input.DiagnosisCodes,
		ServiceCodes:   input.ServiceCodes,
		AmountHalalas:  input.AmountHalalas,
		ServiceDate:    input.ServiceDate,
		Notes:          strings.TrimSpace(input.Notes),
		SubmittedBy:    actor.ID.String(),
		SubmittedAt:    time.Now().UTC(),
	}

	if err := uc.storage.Set(ctx, claimKey(claim.ID), claim); err != nil {
		uc.audit(ctx, actor, auditDomain.ActionClaimSubmitted, claim.ID.String(), auditDomain.OutcomeFailure, nil)
		return nil, err
	}

	uc.audit(ctx, actor, auditDomain.ActionClaimSubmitted, claim.ID.String(), auditDomain.OutcomeSuccess,
		map[string]any{"patient_id": patientID.String()})
	return claim, nil
}

func (uc *PatientUseCase) audit(
	ctx context.Context,
	actor *authDomain.User,
	action, resourceID string,
	outcome auditDomain.Outcome,
	details map[string]any,
) {
	event := auditDomain.NewEvent(action, "patients", auditDomain.SeverityCritical, outcome)
	event.UserID = actor.ID.String()
	event.UserRole = string(actor.Role)
	event.ResourceID = resourceID
	event.Details = details
	uc.auditor.LogEvent(ctx, event)
}

func (uc *PatientUseCase) validatePatientInput(input CreatePatientInput) error {
	err := validation.ValidateStruct(&input,
		validation.Field(&input.FirstName,
			validation.Required.Error("first_name is required"),
			appValidation.NotBlank,
			validation.Length(1, 255).Error("first_name must be between 1 and 255 characters"),
		),
		validation.Field(&input.LastName,
			validation.Required.Error("last_name is required"),
			appValidation.NotBlank,
			validation.Length(1, 255).Error("last_name must be between 1 and 255 characters"),
		),
		validation.Field(&input.DateOfBirth,
			validation.Required.Error("date_of_birth is required"),
			validation.Match(dateRegex).Error("date_of_birth must be YYYY-MM-DD"),
		),
		validation.Field(&input.Gender,
			validation.Required.Error("gender is required"),
			validation.In("male", "female", "other").Error("gender must be one of male, female, other"),
		),
		validation.Field(&input.NationalID,
			validation.Required.Error("national_id is required"),
			appValidation.NotBlank,
			validation.Length(4, 32).Error("national_id must be between 4 and 32 characters"),
		),
		validation.Field(&input.Email,
			validation.When(input.Email != "", appValidation.Email),
		),
	)
	return appValidation.WrapValidationError(err)
}

func (uc *PatientUseCase) validateClaimInput(input SubmitClaimInput) error {
	err := validation.ValidateStruct(&input,
		validation.Field(&input.PatientID,
			validation.Required.Error("patient_id is required"),
		),
		validation.Field(&input.DiagnosisCodes,
			validation.Required.Error("diagnosis_codes is required"),
			validation.Each(validation.Match(codeRegex).Error("diagnosis code format is invalid")),
		),
		validation.Field(&input.ServiceCodes,
			validation.Required.Error("service_codes is required"),
			validation.Each(validation.Match(codeRegex).Error("service code format is invalid")),
		),
		validation.Field(&input.AmountHalalas,
			validation.Required.Error("amount_halalas is required"),
			validation.Min(int64(1)).Error("amount_halalas must be positive"),
		),
		validation.Field(&input.ServiceDate,
			validation.Required.Error("service_date is required"),
			validation.Match(dateRegex).Error("service_date must be YYYY-MM-DD"),
		),
	)
	return appValidation.WrapValidationError(err)
}

func patientKey(id uuid.UUID) string {
	return KeyPrefix + id.String()
}

func claimKey(id uuid.UUID) string {
	return "insurance-claim:" + id.String()
}
