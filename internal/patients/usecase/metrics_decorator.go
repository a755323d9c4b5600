package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	authDomain "github.com/Fadil369/brainsait-doctor-hub-sub001/internal/auth/domain"
	"github.com/Fadil369/brainsait-doctor-hub-sub001/internal/metrics"
	"github.com/Fadil369/brainsait-doctor-hub-sub001/internal/patients/domain"
)

// patientUseCaseWithMetrics decorates UseCase with metrics instrumentation.
type patientUseCaseWithMetrics struct {
	next    UseCase
	metrics metrics.BusinessMetrics
}

// NewUseCaseWithMetrics wraps a patient UseCase with metrics recording.
func NewUseCaseWithMetrics(useCase UseCase, m metrics.BusinessMetrics) UseCase {
	return &patientUseCaseWithMetrics{
		next:    useCase,
		metrics: m,
	}
}

func (p *patientUseCaseWithMetrics) record(ctx context.Context, operation string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	p.metrics.RecordOperation(ctx, "patients", operation, status)
	p.metrics.RecordDuration(ctx, "patients", operation, time.Since(start), status)
}

// Create records metrics for patient creation operations.
func (p *patientUseCaseWithMetrics) Create(
	ctx context.Context,
	actor *authDomain.User,
	input CreatePatientInput,
) (*domain.Patient, error) {
	start := time.Now()
	patient, err := p.next.Create(ctx, actor, input)
	p.record(ctx, "patient_create", start, err)
	return patient, err
}

// Get records metrics for patient retrieval operations.
func (p *patientUseCaseWithMetrics) Get(
	ctx context.Context,
	actor *authDomain.User,
	id uuid.UUID,
) (*domain.Patient, error) {
	start := time.Now()
	patient, err := p.next.Get(ctx, actor, id)
	p.record(ctx, "patient_get", start, err)
	return patient, err
}

// List records metrics for patient listing operations.
func (p *patientUseCaseWithMetrics) List(ctx context.Context, actor *authDomain.User) ([]domain.Summary, error) {
	start := time.Now()
	summaries, err := p.next.List(ctx, actor)
	p.record(ctx, "patient_list", start, err)
	return summaries, err
}

// Update records metrics for patient update operations.
func (p *patientUseCaseWithMetrics) Update(
	ctx context.Context,
	actor *authDomain.User,
	id uuid.UUID,
	input CreatePatientInput,
) (*domain.Patient, error) {
	start := time.Now()
	patient, err := p.next.Update(ctx, actor, id, input)
	p.record(ctx, "patient_update", start, err)
	return patient, err
}

// Delete records metrics for patient deletion operations.
func (p *patientUseCaseWithMetrics) Delete(ctx context.Context, actor *authDomain.User, id uuid.UUID) error {
	start := time.Now()
	err := p.next.Delete(ctx, actor, id)
	p.record(ctx, "patient_delete", start, err)
	return err
}

// SubmitClaim records metrics for claim submission operations.
func (p *patientUseCaseWithMetrics) SubmitClaim(
	ctx context.Context,
	actor *authDomain.User,
	input SubmitClaimInput,
) (*domain.Claim, error) {
	start := time.Now()
	claim, err := p.next.SubmitClaim(ctx, actor, input)
	p.record(ctx, "claim_submit", start, err)
	return claim, err
}
