// Package http provides HTTP handlers for the LLM safety gate and the
// patient consent registry.
package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	authDomain "github.com/Fadil369/brainsait-doctor-hub-sub001/internal/auth/domain"
	authHTTP "github.com/Fadil369/brainsait-doctor-hub-sub001/internal/auth/http"
	apperrors "github.com/Fadil369/brainsait-doctor-hub-sub001/internal/errors"
	"github.com/Fadil369/brainsait-doctor-hub-sub001/internal/httputil"
	gateDomain "github.com/Fadil369/brainsait-doctor-hub-sub001/internal/llmgate/domain"
	gateUseCase "github.com/Fadil369/brainsait-doctor-hub-sub001/internal/llmgate/usecase"
)

// GateHandler handles HTTP requests for gate checks and consent changes.
type GateHandler struct {
	gateUseCase gateUseCase.UseCase
	logger      *slog.Logger
}

// NewGateHandler creates a new gate handler with required dependencies.
func NewGateHandler(uc gateUseCase.UseCase, logger *slog.Logger) *GateHandler {
	return &GateHandler{
		gateUseCase: uc,
		logger:      logger,
	}
}

// PrepareHandler runs the gate checks and, on success, returns the request
// with its prompt scrubbed plus the advisory safety score.
// POST /api/llm/prepare
func (h *GateHandler) PrepareHandler(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	var req gateDomain.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	prepared, err := h.gateUseCase.Prepare(c.Request.Context(), actor, req)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, prepared)
}

// SanitizeRequest contains a completion to scrub before it reaches a user.
type SanitizeRequest struct {
	Text string `json:"text"`
}

// SanitizeHandler scrubs an inbound completion with the gate's redaction
// rules.
// POST /api/llm/sanitize
func (h *GateHandler) SanitizeHandler(c *gin.Context) {
	if _, ok := h.actor(c); !ok {
		return
	}

	var req SanitizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, h.gateUseCase.SanitizeCompletion(req.Text))
}

// GrantConsentHandler records an affirmative consent for a patient.
// PUT /api/consent/:patientId
func (h *GateHandler) GrantConsentHandler(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	var input gateUseCase.GrantConsentInput
	if err := c.ShouldBindJSON(&input); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}
	input.PatientID = c.Param("patientId")

	consent, err := h.gateUseCase.GrantConsent(c.Request.Context(), actor, input)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, consent)
}

// RevokeConsentHandler withdraws a patient's consent.
// DELETE /api/consent/:patientId
func (h *GateHandler) RevokeConsentHandler(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	consent, err := h.gateUseCase.RevokeConsent(c.Request.Context(), actor, c.Param("patientId"))
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, consent)
}

// GetConsentHandler retrieves a patient's consent record.
// GET /api/consent/:patientId
func (h *GateHandler) GetConsentHandler(c *gin.Context) {
	if _, ok := h.actor(c); !ok {
		return
	}

	consent, err := h.gateUseCase.GetConsent(c.Request.Context(), c.Param("patientId"))
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, consent)
}

func (h *GateHandler) actor(c *gin.Context) (*authDomain.User, bool) {
	sess, ok := authHTTP.GetSession(c.Request.Context())
	if !ok || sess == nil {
		httputil.HandleErrorGin(c, apperrors.ErrUnauthorized, h.logger)
		return nil, false
	}
	return &sess.User, true
}
