package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	auditDomain "github.com/Fadil369/brainsait-doctor-hub-sub001/internal/audit/domain"
	auditHTTP "github.com/Fadil369/brainsait-doctor-hub-sub001/internal/audit/http"
	auditRepository "github.com/Fadil369/brainsait-doctor-hub-sub001/internal/audit/repository"
	auditUseCase "github.com/Fadil369/brainsait-doctor-hub-sub001/internal/audit/usecase"
	authDomain "github.com/Fadil369/brainsait-doctor-hub-sub001/internal/auth/domain"
	authHTTP "github.com/Fadil369/brainsait-doctor-hub-sub001/internal/auth/http"
	authRepository "github.com/Fadil369/brainsait-doctor-hub-sub001/internal/auth/repository"
	authService "github.com/Fadil369/brainsait-doctor-hub-sub001/internal/auth/service"
	authUseCase "github.com/Fadil369/brainsait-doctor-hub-sub001/internal/auth/usecase"
	"github.com/Fadil369/brainsait-doctor-hub-sub001/internal/config"
	cryptoDomain "github.com/Fadil369/brainsait-doctor-hub-sub001/internal/crypto/domain"
	cryptoService "github.com/Fadil369/brainsait-doctor-hub-sub001/internal/crypto/service"
	"github.com/Fadil369/brainsait-doctor-hub-sub001/internal/kvstore"
	gateHTTP "github.com/Fadil369/brainsait-doctor-hub-sub001/internal/llmgate/http"
	gateRepository "github.com/Fadil369/brainsait-doctor-hub-sub001/internal/llmgate/repository"
	gateService "github.com/Fadil369/brainsait-doctor-hub-sub001/internal/llmgate/service"
	gateUseCase "github.com/Fadil369/brainsait-doctor-hub-sub001/internal/llmgate/usecase"
	"github.com/Fadil369/brainsait-doctor-hub-sub001/internal/metrics"
	patientsHTTP "github.com/Fadil369/brainsait-doctor-hub-sub001/internal/patients/http"
	patientUseCase "github.com/Fadil369/brainsait-doctor-hub-sub001/internal/patients/usecase"
	"github.com/Fadil369/brainsait-doctor-hub-sub001/internal/session"
	"github.com/Fadil369/brainsait-doctor-hub-sub001/internal/storage"
	storageHTTP "github.com/Fadil369/brainsait-doctor-hub-sub001/internal/storage/http"
)

const testAPIKey = "test-api-key"

type serverFixture struct {
	handler http.Handler
	authUC  *authUseCase.AuthUseCase
	store   *kvstore.MemoryStore
}

// newServerFixture wires a full server over the in-memory backend.
func newServerFixture(t *testing.T) *serverFixture {
	t.Helper()

	cfg := &config.Config{
		Environment:             "testing",
		ServerHost:              "127.0.0.1",
		ServerPort:              0,
		APIKey:                  testAPIKey,
		LogLevel:                "error",
		BackendAuthEnabled:      true,
		EncryptedStorageEnabled: true,
		AuditLoggingEnabled:     true,
		SessionTTL:              time.Hour,
		MFACodeTTL:              5 * time.Minute,
		LoginMaxAttempts:        5,
		LoginAttemptWindow:      15 * time.Minute,
		AuditRetention:          90 * 24 * time.Hour,
		StorageRetention:        7 * 24 * time.Hour,
		HealthCheckTimeout:      time.Second,
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := kvstore.NewMemoryStore()

	keyManager := cryptoService.NewKVKeyManager(store, nil, "test-secret")
	encryptor := cryptoService.NewBlobEncryptor(keyManager, cryptoService.NewAEADManager(), cryptoDomain.AESGCM)
	secureStorage := storage.NewSecureStorage(store, encryptor, storage.DefaultClassifier, cfg.StorageRetention, nil, logger)

	auditUC := auditUseCase.NewAuditUseCase(
		auditRepository.NewKVAuditRepository(store, cfg.AuditRetention),
		metrics.NewNoOpSecurityMetrics(),
		logger,
		false,
	)

	sessions := session.NewStore(store, cfg.SessionTTL)
	authUC := authUseCase.NewAuthUseCase(
		authRepository.NewKVUserRepository(store),
		authRepository.NewKVMFARepository(store, cfg.MFACodeTTL),
		sessions,
		authService.NewPasswordService(),
		authService.NewMFAService(),
		authService.NewLoginLimiter(store, cfg.LoginMaxAttempts, cfg.LoginAttemptWindow),
		authUseCase.NewLogCodeDelivery(logger),
		auditUC,
	)

	patientUC := patientUseCase.NewPatientUseCase(secureStorage, auditUC)
	gateUC := gateUseCase.NewGateUseCase(
		gateUseCase.DefaultConfig(),
		gateRepository.NewKVConsentRepository(store),
		gateService.NewRedactor(gateService.DefaultRules()),
		auditUC,
	)

	handlers := Handlers{
		Auth:     authHTTP.NewAuthHandler(authUC, logger),
		Storage:  storageHTTP.NewStorageHandler(secureStorage, auditUC, logger),
		Patients: patientsHTTP.NewPatientHandler(patientUC, logger),
		Audit:    auditHTTP.NewAuditHandler(auditUC, logger),
		Gate:     gateHTTP.NewGateHandler(gateUC, logger),
	}

	server := NewServer(cfg, store, authUC, handlers, nil, logger)
	return &serverFixture{handler: server.GetHandler(), authUC: authUC, store: store}
}

func (f *serverFixture) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(APIKeyHeader, testAPIKey)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set(authHTTP.DeviceIDHeader, "device-1")
	}

	recorder := httptest.NewRecorder()
	f.handler.ServeHTTP(recorder, req)
	return recorder
}

func (f *serverFixture) login(t *testing.T) string {
	t.Helper()

	_, err := f.authUC.RegisterUser(context.Background(), authUseCase.RegisterUserInput{
		Username: "dr.ahmed",
		Name:     "Ahmed Al-Zahrani",
		Email:    "ahmed@example.com",
		Password: "Str0ng!Passw0rd",
		Role:     string(authDomain.RoleDoctor),
	})
	if err != nil {
		require.ErrorIs(t, err, authDomain.ErrUserAlreadyExists)
	}

	recorder := f.do(t, http.MethodPost, "/api/auth/login", "", body{
		"username": "dr.ahmed",
		"password": "Str0ng!Passw0rd",
		"deviceId": "device-1",
	})
	require.Equal(t, http.StatusOK, recorder.Code)

	var resp struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)
	return resp.Token
}

type body = map[string]any

// TestServer_Health tests the liveness endpoints.
func TestServer_Health(t *testing.T) {
	f := newServerFixture(t)

	t.Run("Success_Healthy", func(t *testing.T) {
		recorder := f.do(t, http.MethodGet, "/health", "", nil)
		assert.Equal(t, http.StatusOK, recorder.Code)
		assert.Contains(t, recorder.Body.String(), `"healthy"`)
	})

	t.Run("Success_DetailedListsNamespaces", func(t *testing.T) {
		recorder := f.do(t, http.MethodGet, "/health/detailed", "", nil)
		assert.Equal(t, http.StatusOK, recorder.Code)

		var resp struct {
			Status     string                    `json:"status"`
			Namespaces map[string]map[string]any `json:"namespaces"`
		}
		require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &resp))
		assert.Equal(t, "healthy", resp.Status)
		for _, namespace := range healthNamespaces {
			assert.Contains(t, resp.Namespaces, namespace)
		}
	})
}

// TestServer_APIKey tests the X-API-Key gate on the /api prefix.
func TestServer_APIKey(t *testing.T) {
	f := newServerFixture(t)

	t.Run("Error_MissingKey", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/auth/login", bytes.NewReader([]byte("{}")))
		recorder := httptest.NewRecorder()
		f.handler.ServeHTTP(recorder, req)
		assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	})

	t.Run("Success_HealthNeedsNoKey", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		recorder := httptest.NewRecorder()
		f.handler.ServeHTTP(recorder, req)
		assert.Equal(t, http.StatusOK, recorder.Code)
	})
}

// TestServer_AuthFlow tests login, validate and logout over the wire.
func TestServer_AuthFlow(t *testing.T) {
	f := newServerFixture(t)
	token := f.login(t)

	t.Run("Success_Validate", func(t *testing.T) {
		recorder := f.do(t, http.MethodGet, "/api/auth/validate", token, nil)
		require.Equal(t, http.StatusOK, recorder.Code)

		var resp struct {
			Valid bool `json:"valid"`
		}
		require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &resp))
		assert.True(t, resp.Valid)
	})

	t.Run("Error_InvalidCredentialsReturn401", func(t *testing.T) {
		recorder := f.do(t, http.MethodPost, "/api/auth/login", "", body{
			"username": "dr.ahmed",
			"password": "wrong-password",
			"deviceId": "device-1",
		})
		assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	})

	t.Run("Success_LogoutInvalidatesToken", func(t *testing.T) {
		recorder := f.do(t, http.MethodPost, "/api/auth/logout", token, nil)
		require.Equal(t, http.StatusOK, recorder.Code)

		recorder = f.do(t, http.MethodGet, "/api/auth/validate", token, nil)
		require.Equal(t, http.StatusOK, recorder.Code)

		var resp struct {
			Valid bool `json:"valid"`
		}
		require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &resp))
		assert.False(t, resp.Valid)
	})
}

// TestServer_ProtectedRoutes tests the session gate in front of the API.
func TestServer_ProtectedRoutes(t *testing.T) {
	f := newServerFixture(t)

	t.Run("Error_NoToken", func(t *testing.T) {
		recorder := f.do(t, http.MethodGet, "/api/patients", "", nil)
		assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	})

	t.Run("Success_PatientLifecycleOverHTTP", func(t *testing.T) {
		token := f.login(t)

		create := f.do(t, http.MethodPost, "/api/patients", token, body{
			"first_name":    "Ahmed",
			"last_name":     "Al-Zahrani",
			"date_of_birth": "1987-04-12",
			"gender":        "male",
			"national_id":   "1012345678",
		})
		require.Equal(t, http.StatusCreated, create.Code)

		var created struct {
			ID string `json:"id"`
		}
		require.NoError(t, json.Unmarshal(create.Body.Bytes(), &created))
		require.NotEmpty(t, created.ID)

		get := f.do(t, http.MethodGet, "/api/patients/"+created.ID, token, nil)
		require.Equal(t, http.StatusOK, get.Code)
		assert.Contains(t, get.Body.String(), "Ahmed")

		// Doctors cannot delete records.
		del := f.do(t, http.MethodDelete, "/api/patients/"+created.ID, token, nil)
		assert.Equal(t, http.StatusForbidden, del.Code)
	})

	t.Run("Error_MissingDeviceHeaderRejected", func(t *testing.T) {
		token := f.login(t)

		req := httptest.NewRequest(http.MethodGet, "/api/patients", nil)
		req.Header.Set(APIKeyHeader, testAPIKey)
		req.Header.Set("Authorization", "Bearer "+token)
		recorder := httptest.NewRecorder()
		f.handler.ServeHTTP(recorder, req)
		assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	})

	t.Run("Success_AuditTrailQueryable", func(t *testing.T) {
		token := f.login(t)

		recorder := f.do(t, http.MethodGet, "/api/audit/events?limit=10", token, nil)
		require.Equal(t, http.StatusOK, recorder.Code)
		assert.Contains(t, recorder.Body.String(), auditDomain.ActionLoginSuccess)
	})

	t.Run("Success_LLMPrepareRedacts", func(t *testing.T) {
		token := f.login(t)

		recorder := f.do(t, http.MethodPost, "/api/llm/prepare", token, body{
			"model":  "clinical-assist-v2",
			"prompt": "Patient 1012345678 needs a medication review",
		})
		require.Equal(t, http.StatusOK, recorder.Code)
		assert.Contains(t, recorder.Body.String(), "[NATIONAL-ID]")
		assert.NotContains(t, recorder.Body.String(), "1012345678")
	})
}
