package http

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	auditDomain "github.com/Fadil369/brainsait-doctor-hub-sub001/internal/audit/domain"
	authDomain "github.com/Fadil369/brainsait-doctor-hub-sub001/internal/auth/domain"
	authRepository "github.com/Fadil369/brainsait-doctor-hub-sub001/internal/auth/repository"
	authService "github.com/Fadil369/brainsait-doctor-hub-sub001/internal/auth/service"
	authUseCase "github.com/Fadil369/brainsait-doctor-hub-sub001/internal/auth/usecase"
	"github.com/Fadil369/brainsait-doctor-hub-sub001/internal/kvstore"
	"github.com/Fadil369/brainsait-doctor-hub-sub001/internal/session"
)

type nullAuditor struct{}

func (nullAuditor) LogEvent(context.Context, *auditDomain.Event) {}

// newMiddlewareFixture wires a router guarded by SessionMiddleware and returns
// it with a token for a session bound to "device-1".
func newMiddlewareFixture(t *testing.T) (*gin.Engine, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := kvstore.NewMemoryStore()

	authUC := authUseCase.NewAuthUseCase(
		authRepository.NewKVUserRepository(store),
		authRepository.NewKVMFARepository(store, 5*time.Minute),
		session.NewStore(store, time.Hour),
		authService.NewPasswordService(),
		authService.NewMFAService(),
		authService.NewLoginLimiter(store, 5, 15*time.Minute),
		authUseCase.NewLogCodeDelivery(logger),
		nullAuditor{},
	)

	ctx := context.Background()
	_, err := authUC.RegisterUser(ctx, authUseCase.RegisterUserInput{
		Username: "dr.ahmed",
		Name:     "Ahmed Al-Zahrani",
		Email:    "ahmed@example.com",
		Password: "Str0ng!Passw0rd",
		Role:     string(authDomain.RoleDoctor),
	})
	require.NoError(t, err)

	out, err := authUC.Login(ctx, authUseCase.LoginInput{
		Username: "dr.ahmed",
		Password: "Str0ng!Passw0rd",
		DeviceID: "device-1",
	})
	require.NoError(t, err)
	require.NotNil(t, out.Session)

	router := gin.New()
	router.GET("/protected", SessionMiddleware(authUC, logger), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return router, out.Session.Token
}

// TestSessionMiddleware_DeviceBinding tests that a session bound to a device
// only passes when the request proves the same binding.
func TestSessionMiddleware_DeviceBinding(t *testing.T) {
	router, token := newMiddlewareFixture(t)

	do := func(deviceID string, withHeader bool) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		if withHeader {
			req.Header.Set(DeviceIDHeader, deviceID)
		}
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, req)
		return recorder
	}

	t.Run("Success_MatchingDevice", func(t *testing.T) {
		assert.Equal(t, http.StatusNoContent, do("device-1", true).Code)
	})

	t.Run("Error_WrongDevice", func(t *testing.T) {
		assert.Equal(t, http.StatusUnauthorized, do("device-2", true).Code)
	})

	t.Run("Error_OmittedHeaderDoesNotBypassBinding", func(t *testing.T) {
		assert.Equal(t, http.StatusUnauthorized, do("", false).Code)
	})

	t.Run("Error_MissingToken", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set(DeviceIDHeader, "device-1")
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, req)
		assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	})
}
