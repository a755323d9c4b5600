// Package http provides HTTP handlers for the user-scoped storage routes.
package http

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"time"

	"github.com/gin-gonic/gin"

	auditDomain "github.com/Fadil369/brainsait-doctor-hub-sub001/internal/audit/domain"
	authHTTP "github.com/Fadil369/brainsait-doctor-hub-sub001/internal/auth/http"
	apperrors "github.com/Fadil369/brainsait-doctor-hub-sub001/internal/errors"
	"github.com/Fadil369/brainsait-doctor-hub-sub001/internal/httputil"
	"github.com/Fadil369/brainsait-doctor-hub-sub001/internal/session"
	"github.com/Fadil369/brainsait-doctor-hub-sub001/internal/storage"
)

// keyPattern bounds what client-chosen key names may look like: colons are
// reserved as the namespace separator.
var keyPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._\-]{0,127}$`)

// AuditLogger records storage access events.
type AuditLogger interface {
	LogEvent(ctx context.Context, event *auditDomain.Event)
}

// StorageHandler handles the user-scoped key-value passthrough. Every key is
// namespaced under the session's user, so one user can never address
// another's entries.
type StorageHandler struct {
	storage *storage.SecureStorage
	auditor AuditLogger
	logger  *slog.Logger
}

// NewStorageHandler creates a new storage handler with required dependencies.
func NewStorageHandler(secureStorage *storage.SecureStorage, auditor AuditLogger, logger *slog.Logger) *StorageHandler {
	return &StorageHandler{
		storage: secureStorage,
		auditor: auditor,
		logger:  logger,
	}
}

// PutRequest contains the parameters for storing a value.
type PutRequest struct {
	Value      json.RawMessage `json:"value"`
	Encrypt    bool            `json:"encrypt"`
	TTLSeconds int             `json:"ttlSeconds"`
}

// PutHandler stores a value under the caller's namespace.
// PUT /api/storage/:key - Optional encryption flag and TTL.
func (h *StorageHandler) PutHandler(c *gin.Context) {
	sess, key, ok := h.scopedKey(c)
	if !ok {
		return
	}

	var req PutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}
	if len(req.Value) == 0 {
		httputil.HandleValidationErrorGin(c,
			apperrors.Wrap(apperrors.ErrInvalidInput, "value is required"), h.logger)
		return
	}
	if req.TTLSeconds < 0 {
		httputil.HandleValidationErrorGin(c,
			apperrors.Wrap(apperrors.ErrInvalidInput, "ttlSeconds must not be negative"), h.logger)
		return
	}

	ttl := time.Duration(req.TTLSeconds) * time.Second
	if err := h.storage.SetWithOptions(c.Request.Context(), key, req.Value, req.Encrypt, ttl); err != nil {
		h.audit(c, sess, auditDomain.ActionStorageWrite, c.Param("key"), auditDomain.OutcomeFailure)
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	h.audit(c, sess, auditDomain.ActionStorageWrite, c.Param("key"), auditDomain.OutcomeSuccess)
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// GetHandler retrieves a value from the caller's namespace.
// GET /api/storage/:key
func (h *StorageHandler) GetHandler(c *gin.Context) {
	sess, key, ok := h.scopedKey(c)
	if !ok {
		return
	}

	var value json.RawMessage
	if err := h.storage.Get(c.Request.Context(), key, &value); err != nil {
		if !apperrors.Is(err, apperrors.ErrNotFound) {
			h.audit(c, sess, auditDomain.ActionStorageRead, c.Param("key"), auditDomain.OutcomeFailure)
		}
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	h.audit(c, sess, auditDomain.ActionStorageRead, c.Param("key"), auditDomain.OutcomeSuccess)
	c.JSON(http.StatusOK, gin.H{"key": c.Param("key"), "value": value})
}

// DeleteHandler removes a value from the caller's namespace.
// DELETE /api/storage/:key
func (h *StorageHandler) DeleteHandler(c *gin.Context) {
	sess, key, ok := h.scopedKey(c)
	if !ok {
		return
	}

	if err := h.storage.Delete(c.Request.Context(), key); err != nil {
		h.audit(c, sess, auditDomain.ActionStorageDeleted, c.Param("key"), auditDomain.OutcomeFailure)
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	h.audit(c, sess, auditDomain.ActionStorageDeleted, c.Param("key"), auditDomain.OutcomeSuccess)
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// scopedKey resolves the caller's session and builds the namespaced store key.
func (h *StorageHandler) scopedKey(c *gin.Context) (*session.Session, string, bool) {
	sess, ok := authHTTP.GetSession(c.Request.Context())
	if !ok || sess == nil {
		httputil.HandleErrorGin(c, apperrors.ErrUnauthorized, h.logger)
		return nil, "", false
	}

	name := c.Param("key")
	if !keyPattern.MatchString(name) {
		httputil.HandleValidationErrorGin(c,
			apperrors.Wrap(apperrors.ErrInvalidInput, "key format is invalid"), h.logger)
		return nil, "", false
	}

	return sess, fmt.Sprintf("user:%s:%s", sess.User.ID.String(), name), true
}

func (h *StorageHandler) audit(c *gin.Context, sess *session.Session, action, key string, outcome auditDomain.Outcome) {
	event := auditDomain.NewEvent(action, "storage", auditDomain.SeverityMedium, outcome)
	event.UserID = sess.User.ID.String()
	event.UserRole = string(sess.User.Role)
	event.ResourceID = key
	h.auditor.LogEvent(c.Request.Context(), event)
}
