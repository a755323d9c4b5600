package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	authDomain "github.com/Fadil369/brainsait-doctor-hub-sub001/internal/auth/domain"
	authUseCase "github.com/Fadil369/brainsait-doctor-hub-sub001/internal/auth/usecase"
	apperrors "github.com/Fadil369/brainsait-doctor-hub-sub001/internal/errors"
	"github.com/Fadil369/brainsait-doctor-hub-sub001/internal/httputil"
)

// AuthHandler handles HTTP requests for login, the MFA step-up, session
// validation and logout.
type AuthHandler struct {
	authUseCase authUseCase.UseCase
	logger      *slog.Logger
}

// NewAuthHandler creates a new auth handler with required dependencies.
func NewAuthHandler(uc authUseCase.UseCase, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		authUseCase: uc,
		logger:      logger,
	}
}

// LoginRequest contains the parameters for the primary credential check.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	DeviceID string `json:"deviceId"`
}

// LoginResponse is returned by both login steps. Token is empty while the
// MFA step-up is pending.
type LoginResponse struct {
	Success     bool             `json:"success"`
	RequiresMFA bool             `json:"requiresMFA,omitempty"`
	Token       string           `json:"token,omitempty"`
	User        *authDomain.User `json:"user,omitempty"`
	ExpiresAt   *time.Time       `json:"expiresAt,omitempty"`
}

// VerifyMFARequest contains the parameters for the MFA step-up.
type VerifyMFARequest struct {
	Username string `json:"username"`
	Code     string `json:"code"`
	DeviceID string `json:"deviceId"`
}

// ValidateResponse reports whether the presented session token is valid.
type ValidateResponse struct {
	Valid     bool             `json:"valid"`
	User      *authDomain.User `json:"user,omitempty"`
	ExpiresAt *time.Time       `json:"expiresAt,omitempty"`
}

// LoginHandler verifies primary credentials.
// POST /api/auth/login - Returns 200 with a token, or requiresMFA with no
// token, or 401 on invalid credentials and 429 once the attempt window for
// the username is exhausted.
func (h *AuthHandler) LoginHandler(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	output, err := h.authUseCase.Login(c.Request.Context(), authUseCase.LoginInput{
		Username: req.Username,
		Password: req.Password,
		DeviceID: req.DeviceID,
	})
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, loginResponse(output))
}

// VerifyMFAHandler completes the MFA step-up.
// POST /api/auth/mfa/verify - Same response shape as login.
func (h *AuthHandler) VerifyMFAHandler(c *gin.Context) {
	var req VerifyMFARequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	output, err := h.authUseCase.VerifyMFA(c.Request.Context(), authUseCase.VerifyMFAInput{
		Username: req.Username,
		Code:     req.Code,
		DeviceID: req.DeviceID,
	})
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, loginResponse(output))
}

// ValidateHandler checks the session behind the Bearer token.
// GET /api/auth/validate - Returns valid:false (not an error) for an expired
// or unknown token; the expired record is removed as part of the check.
func (h *AuthHandler) ValidateHandler(c *gin.Context) {
	token, ok := bearerToken(c)
	if !ok {
		httputil.HandleErrorGin(c, apperrors.ErrUnauthorized, h.logger)
		return
	}

	sess, err := h.authUseCase.Validate(c.Request.Context(), token)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrSessionExpired) {
			c.JSON(http.StatusOK, ValidateResponse{Valid: false})
			return
		}
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, ValidateResponse{
		Valid:     true,
		User:      &sess.User,
		ExpiresAt: &sess.ExpiresAt,
	})
}

// LogoutHandler destroys the session behind the Bearer token.
// POST /api/auth/logout - Always returns success; logout is best-effort.
func (h *AuthHandler) LogoutHandler(c *gin.Context) {
	if token, ok := bearerToken(c); ok {
		if err := h.authUseCase.Logout(c.Request.Context(), token); err != nil {
			h.logger.Warn("logout failed", slog.Any("error", err))
		}
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

func loginResponse(output *authUseCase.LoginOutput) LoginResponse {
	if output.RequiresMFA {
		return LoginResponse{Success: true, RequiresMFA: true}
	}
	return LoginResponse{
		Success:   true,
		Token:     output.Session.Token,
		User:      &output.Session.User,
		ExpiresAt: &output.Session.ExpiresAt,
	}
}
