// Package http provides HTTP handlers for audit trail queries.
package http

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	auditDomain "github.com/Fadil369/brainsait-doctor-hub-sub001/internal/audit/domain"
	auditUseCase "github.com/Fadil369/brainsait-doctor-hub-sub001/internal/audit/usecase"
	authDomain "github.com/Fadil369/brainsait-doctor-hub-sub001/internal/auth/domain"
	authHTTP "github.com/Fadil369/brainsait-doctor-hub-sub001/internal/auth/http"
	apperrors "github.com/Fadil369/brainsait-doctor-hub-sub001/internal/errors"
	"github.com/Fadil369/brainsait-doctor-hub-sub001/internal/httputil"
)

// AuditHandler handles HTTP requests for audit events, stats and export.
// Admins see the full trail; everyone else is restricted to the per-user
// index for their own user ID regardless of the filters they send.
type AuditHandler struct {
	auditUseCase auditUseCase.UseCase
	logger       *slog.Logger
}

// NewAuditHandler creates a new audit handler with required dependencies.
func NewAuditHandler(uc auditUseCase.UseCase, logger *slog.Logger) *AuditHandler {
	return &AuditHandler{
		auditUseCase: uc,
		logger:       logger,
	}
}

// EventsHandler returns events matching the query filters, newest first.
// GET /api/audit/events?user_id=&action=&resource=&severity=&outcome=&from=&until=&limit=
func (h *AuditHandler) EventsHandler(c *gin.Context) {
	filter, ok := h.scopedFilter(c)
	if !ok {
		return
	}

	events, err := h.auditUseCase.Query(c.Request.Context(), filter)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, gin.H{"events": events, "count": len(events)})
}

// StatsHandler returns aggregate counts over the matching events.
// GET /api/audit/stats
func (h *AuditHandler) StatsHandler(c *gin.Context) {
	filter, ok := h.scopedFilter(c)
	if !ok {
		return
	}

	stats, err := h.auditUseCase.Stats(c.Request.Context(), filter)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, stats)
}

// ExportHandler returns the full matching trail as a download. The export is
// itself a critical audit event, logged before the response is written.
// GET /api/audit/export
func (h *AuditHandler) ExportHandler(c *gin.Context) {
	filter, ok := h.scopedFilter(c)
	if !ok {
		return
	}
	// Exports are complete by definition.
	filter.Limit = 0

	sess, _ := authHTTP.GetSession(c.Request.Context())
	event := auditDomain.NewEvent(auditDomain.ActionAuditExported, "audit", auditDomain.SeverityCritical, auditDomain.OutcomeSuccess)
	event.UserID = sess.User.ID.String()
	event.UserRole = string(sess.User.Role)
	h.auditUseCase.LogEvent(c.Request.Context(), event)

	events, err := h.auditUseCase.Query(c.Request.Context(), filter)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=audit-export-%s.json",
		time.Now().UTC().Format("2006-01-02")))
	c.JSON(http.StatusOK, gin.H{"events": events, "count": len(events)})
}

// scopedFilter parses the query filters and clamps the user scope: non-admin
// callers are pinned to their own user ID.
func (h *AuditHandler) scopedFilter(c *gin.Context) (auditDomain.Filter, bool) {
	sess, ok := authHTTP.GetSession(c.Request.Context())
	if !ok || sess == nil {
		httputil.HandleErrorGin(c, apperrors.ErrUnauthorized, h.logger)
		return auditDomain.Filter{}, false
	}

	limit, err := httputil.ParseLimit(c)
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return auditDomain.Filter{}, false
	}

	filter := auditDomain.Filter{
		UserID:   c.Query("user_id"),
		Action:   c.Query("action"),
		Resource: c.Query("resource"),
		Severity: auditDomain.Severity(c.Query("severity")),
		Outcome:  auditDomain.Outcome(c.Query("outcome")),
		Limit:    limit,
	}

	if from := c.Query("from"); from != "" {
		t, err := time.Parse(time.RFC3339, from)
		if err != nil {
			httputil.HandleValidationErrorGin(c,
				fmt.Errorf("invalid from parameter: must be RFC 3339"), h.logger)
			return auditDomain.Filter{}, false
		}
		filter.From = t
	}
	if until := c.Query("until"); until != "" {
		t, err := time.Parse(time.RFC3339, until)
		if err != nil {
			httputil.HandleValidationErrorGin(c,
				fmt.Errorf("invalid until parameter: must be RFC 3339"), h.logger)
			return auditDomain.Filter{}, false
		}
		filter.Until = t
	}

	if sess.User.Role != authDomain.RoleAdmin {
		filter.UserID = sess.User.ID.String()
	}

	return filter, true
}
