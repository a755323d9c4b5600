// Package http provides the HTTP server, route table and shared middleware.
package http

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/metric"

	auditHTTP "github.com/Fadil369/brainsait-doctor-hub-sub001/internal/audit/http"
	authHTTP "github.com/Fadil369/brainsait-doctor-hub-sub001/internal/auth/http"
	authUseCase "github.com/Fadil369/brainsait-doctor-hub-sub001/internal/auth/usecase"
	"github.com/Fadil369/brainsait-doctor-hub-sub001/internal/config"
	apperrors "github.com/Fadil369/brainsait-doctor-hub-sub001/internal/errors"
	"github.com/Fadil369/brainsait-doctor-hub-sub001/internal/kvstore"
	gateHTTP "github.com/Fadil369/brainsait-doctor-hub-sub001/internal/llmgate/http"
	appMetrics "github.com/Fadil369/brainsait-doctor-hub-sub001/internal/metrics"
	patientsHTTP "github.com/Fadil369/brainsait-doctor-hub-sub001/internal/patients/http"
	storageHTTP "github.com/Fadil369/brainsait-doctor-hub-sub001/internal/storage/http"
)

// healthNamespaces are the KV prefixes probed by the detailed health check.
var healthNamespaces = []string{"session", "patient", "user-record", "audit", "consent"}

// Handlers groups the per-domain HTTP handlers mounted on the server.
type Handlers struct {
	Auth     *authHTTP.AuthHandler
	Storage  *storageHTTP.StorageHandler
	Patients *patientsHTTP.PatientHandler
	Audit    *auditHTTP.AuditHandler
	Gate     *gateHTTP.GateHandler
}

// Server represents the HTTP API server.
type Server struct {
	server *http.Server
	config *config.Config
	store  kvstore.Store
	logger *slog.Logger
}

// NewServer creates a new HTTP server with the full route table wired.
func NewServer(
	cfg *config.Config,
	store kvstore.Store,
	authUC authUseCase.UseCase,
	handlers Handlers,
	meterProvider metric.MeterProvider,
	logger *slog.Logger,
) *Server {
	s := &Server{
		config: cfg,
		store:  store,
		logger: logger,
	}

	s.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.ServerHost, cfg.ServerPort),
		Handler:      s.buildRouter(authUC, handlers, meterProvider),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// buildRouter assembles the gin engine, middleware chain and route table.
func (s *Server) buildRouter(
	authUC authUseCase.UseCase,
	handlers Handlers,
	meterProvider metric.MeterProvider,
) *gin.Engine {
	gin.SetMode(s.config.GetGinMode())

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestid.New(requestid.WithGenerator(func() string {
		return uuid.Must(uuid.NewV7()).String()
	})))
	router.Use(CustomLoggerMiddleware(s.logger))

	if corsMiddleware := createCORSMiddleware(s.config.CORSEnabled, s.config.CORSAllowOrigins, s.logger); corsMiddleware != nil {
		router.Use(corsMiddleware)
	}

	if s.config.MetricsEnabled && meterProvider != nil {
		router.Use(appMetrics.HTTPMetricsMiddleware(meterProvider, s.config.MetricsNamespace))
	}

	router.GET("/health", s.healthHandler)
	router.GET("/health/detailed", s.healthDetailedHandler)

	api := router.Group("/api")
	api.Use(APIKeyMiddleware(s.config, s.logger))

	// Login, MFA verify, validate and logout carry their own credentials and
	// sit outside the session middleware.
	api.POST("/auth/login", handlers.Auth.LoginHandler)
	api.POST("/auth/mfa/verify", handlers.Auth.VerifyMFAHandler)
	api.GET("/auth/validate", handlers.Auth.ValidateHandler)
	api.POST("/auth/logout", handlers.Auth.LogoutHandler)

	protected := api.Group("")
	protected.Use(authHTTP.SessionMiddleware(authUC, s.logger))
	if s.config.RateLimitEnabled {
		protected.Use(authHTTP.RateLimitMiddleware(
			s.config.RateLimitRequestsPerSec,
			s.config.RateLimitBurst,
			s.logger,
		))
	}

	protected.PUT("/storage/:key", handlers.Storage.PutHandler)
	protected.GET("/storage/:key", handlers.Storage.GetHandler)
	protected.DELETE("/storage/:key", handlers.Storage.DeleteHandler)

	protected.GET("/patients", handlers.Patients.ListHandler)
	protected.POST("/patients", handlers.Patients.CreateHandler)
	protected.GET("/patients/:id", handlers.Patients.GetHandler)
	protected.PUT("/patients/:id", handlers.Patients.UpdateHandler)
	protected.DELETE("/patients/:id", handlers.Patients.DeleteHandler)
	protected.POST("/claims", handlers.Patients.SubmitClaimHandler)

	protected.GET("/audit/events", handlers.Audit.EventsHandler)
	protected.GET("/audit/stats", handlers.Audit.StatsHandler)
	protected.GET("/audit/export", handlers.Audit.ExportHandler)

	protected.POST("/llm/prepare", handlers.Gate.PrepareHandler)
	protected.POST("/llm/sanitize", handlers.Gate.SanitizeHandler)
	protected.PUT("/consent/:patientId", handlers.Gate.GrantConsentHandler)
	protected.DELETE("/consent/:patientId", handlers.Gate.RevokeConsentHandler)
	protected.GET("/consent/:patientId", handlers.Gate.GetConsentHandler)

	return router
}

// GetHandler returns the http.Handler for testing purposes.
func (s *Server) GetHandler() http.Handler {
	return s.server.Handler
}

// healthHandler reports overall service health via a single KV probe.
// GET /health
func (s *Server) healthHandler(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), s.config.HealthCheckTimeout)
	defer cancel()

	status := http.StatusOK
	response := gin.H{
		"status": "healthy",
		"checks": gin.H{"kv": "ok"},
	}

	if err := s.probeStore(ctx, "health"); err != nil {
		s.logger.Error("health check failed", slog.Any("error", err))
		status = http.StatusServiceUnavailable
		response["status"] = "degraded"
		response["checks"] = gin.H{"kv": "error"}
	}

	c.JSON(status, response)
}

// healthDetailedHandler probes each KV namespace and reports per-namespace
// latency. A degraded namespace degrades the whole response.
// GET /health/detailed
func (s *Server) healthDetailedHandler(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), s.config.HealthCheckTimeout)
	defer cancel()

	overall := "healthy"
	namespaces := make(gin.H, len(healthNamespaces))

	for _, namespace := range healthNamespaces {
		start := time.Now()
		err := s.probeStore(ctx, namespace)
		latency := time.Since(start)

		if err != nil {
			s.logger.Error("namespace health check failed",
				slog.String("namespace", namespace),
				slog.Any("error", err))
			overall = "degraded"
			namespaces[namespace] = gin.H{
				"status":     "error",
				"latency_ms": latency.Milliseconds(),
			}
			continue
		}

		namespaces[namespace] = gin.H{
			"status":     "ok",
			"latency_ms": latency.Milliseconds(),
		}
	}

	status := http.StatusOK
	if overall != "healthy" {
		status = http.StatusServiceUnavailable
	}

	c.JSON(status, gin.H{
		"status":     overall,
		"namespaces": namespaces,
		"timestamp":  time.Now().UTC().Format(time.RFC3339),
	})
}

// probeStore reads a synthetic key in the given namespace. A miss proves the
// store round-trip works; only transport or backend failures count as errors.
func (s *Server) probeStore(ctx context.Context, namespace string) error {
	_, err := s.store.Get(ctx, fmt.Sprintf("%s:healthcheck-probe", namespace))
	if err != nil && !apperrors.Is(err, kvstore.ErrKeyNotFound) {
		return err
	}
	return nil
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start(ctx context.Context) error {
	s.logger.Info("starting http server", slog.String("addr", s.server.Addr))

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.server.Shutdown(ctx)
}
