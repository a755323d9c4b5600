// Package http provides HTTP handlers for patient records and claims.
package http

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	authDomain "github.com/Fadil369/brainsait-doctor-hub-sub001/internal/auth/domain"
	authHTTP "github.com/Fadil369/brainsait-doctor-hub-sub001/internal/auth/http"
	apperrors "github.com/Fadil369/brainsait-doctor-hub-sub001/internal/errors"
	"github.com/Fadil369/brainsait-doctor-hub-sub001/internal/httputil"
	patientUseCase "github.com/Fadil369/brainsait-doctor-hub-sub001/internal/patients/usecase"
)

// PatientHandler handles HTTP requests for PHI CRUD and claim submission.
type PatientHandler struct {
	patientUseCase patientUseCase.UseCase
	logger         *slog.Logger
}

// NewPatientHandler creates a new patient handler with required dependencies.
func NewPatientHandler(uc patientUseCase.UseCase, logger *slog.Logger) *PatientHandler {
	return &PatientHandler{
		patientUseCase: uc,
		logger:         logger,
	}
}

// ListHandler lists patient summaries.
// GET /api/patients
func (h *PatientHandler) ListHandler(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	summaries, err := h.patientUseCase.List(c.Request.Context(), actor)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, gin.H{"patients": summaries})
}

// CreateHandler creates a patient record.
// POST /api/patients - Returns 201 Created.
func (h *PatientHandler) CreateHandler(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	var input patientUseCase.CreatePatientInput
	if err := c.ShouldBindJSON(&input); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	patient, err := h.patientUseCase.Create(c.Request.Context(), actor, input)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusCreated, patient)
}

// GetHandler retrieves a patient record by ID.
// GET /api/patients/:id
func (h *PatientHandler) GetHandler(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	id, err := h.patientID(c)
	if err != nil {
		return
	}

	patient, err := h.patientUseCase.Get(c.Request.Context(), actor, id)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, patient)
}

// UpdateHandler overwrites a patient record.
// PUT /api/patients/:id
func (h *PatientHandler) UpdateHandler(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	id, err := h.patientID(c)
	if err != nil {
		return
	}

	var input patientUseCase.CreatePatientInput
	if err := c.ShouldBindJSON(&input); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	patient, err := h.patientUseCase.Update(c.Request.Context(), actor, id, input)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, patient)
}

// DeleteHandler removes a patient record. Admin only; the role check lives in
// the use case so it holds for every caller, not just this route.
// DELETE /api/patients/:id - Returns 204 No Content.
func (h *PatientHandler) DeleteHandler(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	id, err := h.patientID(c)
	if err != nil {
		return
	}

	if err := h.patientUseCase.Delete(c.Request.Context(), actor, id); err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.Data(http.StatusNoContent, "application/json", nil)
}

// SubmitClaimHandler validates and records an insurance claim.
// POST /api/claims - Returns 201 Created.
func (h *PatientHandler) SubmitClaimHandler(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	var input patientUseCase.SubmitClaimInput
	if err := c.ShouldBindJSON(&input); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	claim, err := h.patientUseCase.SubmitClaim(c.Request.Context(), actor, input)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusCreated, claim)
}

func (h *PatientHandler) actor(c *gin.Context) (*authDomain.User, bool) {
	sess, ok := authHTTP.GetSession(c.Request.Context())
	if !ok || sess == nil {
		httputil.HandleErrorGin(c, apperrors.ErrUnauthorized, h.logger)
		return nil, false
	}
	return &sess.User, true
}

func (h *PatientHandler) patientID(c *gin.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.HandleValidationErrorGin(c,
			fmt.Errorf("invalid patient ID format: must be a valid UUID"),
			h.logger)
		return uuid.Nil, err
	}
	return id, nil
}
