package http

import (
	"log/slog"
	"strings"

	"github.com/gin-gonic/gin"

	authDomain "github.com/Fadil369/brainsait-doctor-hub-sub001/internal/auth/domain"
	authUseCase "github.com/Fadil369/brainsait-doctor-hub-sub001/internal/auth/usecase"
	apperrors "github.com/Fadil369/brainsait-doctor-hub-sub001/internal/errors"
	"github.com/Fadil369/brainsait-doctor-hub-sub001/internal/httputil"
)

// DeviceIDHeader carries the client device fingerprint a session is bound to.
const DeviceIDHeader = "X-Device-ID"

// SessionMiddleware authenticates requests via Bearer token in the
// Authorization header.
//
// The middleware:
//  1. Extracts the Bearer token (case-insensitive prefix)
//  2. Validates the session, which deletes an expired record as a side effect
//  3. Compares the X-Device-ID header against the session's device binding;
//     a bound session with a missing or mismatched header is rejected
//  4. Stores the session in the request context for handlers via GetSession
//
// The device check is a binding aid against token replay from another
// client, not an authentication factor: the fingerprint is client-derived.
func SessionMiddleware(authUC authUseCase.UseCase, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			logger.Debug("authentication failed: missing or malformed authorization header")
			httputil.HandleErrorGin(c, apperrors.ErrUnauthorized, logger)
			c.Abort()
			return
		}

		sess, err := authUC.Validate(c.Request.Context(), token)
		if err != nil {
			logger.Debug("authentication failed", slog.String("error", err.Error()))
			httputil.HandleErrorGin(c, err, logger)
			c.Abort()
			return
		}

		// Omitting the header must not bypass the binding.
		if sess.DeviceID != "" && c.GetHeader(DeviceIDHeader) != sess.DeviceID {
			logger.Warn("session device binding mismatch",
				slog.String("user_id", sess.User.ID.String()))
			httputil.HandleErrorGin(c, apperrors.ErrSessionExpired, logger)
			c.Abort()
			return
		}

		ctx := WithSession(c.Request.Context(), sess)
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

// AdminMiddleware rejects requests whose session principal is not an admin.
// MUST run after SessionMiddleware.
func AdminMiddleware(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, ok := GetSession(c.Request.Context())
		if !ok || sess == nil {
			httputil.HandleErrorGin(c, apperrors.ErrUnauthorized, logger)
			c.Abort()
			return
		}

		if sess.User.Role != authDomain.RoleAdmin {
			httputil.HandleErrorGin(c, apperrors.ErrForbidden, logger)
			c.Abort()
			return
		}

		c.Next()
	}
}

// bearerToken extracts the Bearer token from the Authorization header.
func bearerToken(c *gin.Context) (string, bool) {
	authHeader := c.GetHeader("Authorization")
	const bearerPrefix = "bearer "
	if len(authHeader) <= len(bearerPrefix) ||
		!strings.EqualFold(authHeader[:len(bearerPrefix)], bearerPrefix) {
		return "", false
	}

	token := authHeader[len(bearerPrefix):]
	if token == "" {
		return "", false
	}
	return token, true
}
