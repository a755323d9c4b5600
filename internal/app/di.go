// Package app provides the dependency injection container for assembling
// application components.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"sync"

	auditRepository "github.com/Fadil369/brainsait-doctor-hub-sub001/internal/audit/repository"
	auditUseCase "github.com/Fadil369/brainsait-doctor-hub-sub001/internal/audit/usecase"
	authUseCase "github.com/Fadil369/brainsait-doctor-hub-sub001/internal/auth/usecase"
	"github.com/Fadil369/brainsait-doctor-hub-sub001/internal/config"
	cryptoService "github.com/Fadil369/brainsait-doctor-hub-sub001/internal/crypto/service"
	"github.com/Fadil369/brainsait-doctor-hub-sub001/internal/database"
	"github.com/Fadil369/brainsait-doctor-hub-sub001/internal/http"
	"github.com/Fadil369/brainsait-doctor-hub-sub001/internal/kvstore"
	gateUseCase "github.com/Fadil369/brainsait-doctor-hub-sub001/internal/llmgate/usecase"
	"github.com/Fadil369/brainsait-doctor-hub-sub001/internal/metrics"
	patientUseCase "github.com/Fadil369/brainsait-doctor-hub-sub001/internal/patients/usecase"
	"github.com/Fadil369/brainsait-doctor-hub-sub001/internal/session"
	"github.com/Fadil369/brainsait-doctor-hub-sub001/internal/storage"
)

// Container holds all application dependencies and provides methods to access
// them. It follows the lazy initialization pattern - components are created on
// first access.
type Container struct {
	// Configuration
	config *config.Config

	// Infrastructure
	logger          *slog.Logger
	db              *sql.DB
	kvStore         kvstore.Store
	metricsProvider *metrics.Provider
	securityMetrics metrics.SecurityMetrics
	businessMetrics metrics.BusinessMetrics

	// Crypto
	kmsKeeper  cryptoService.KMSKeeper
	keyManager cryptoService.KeyManager
	encryptor  cryptoService.Encryptor

	// Storage
	secureStorage *storage.SecureStorage

	// Sessions and authentication
	sessionStore *session.Store
	authUC       authUseCase.UseCase

	// Audit
	auditRepo      *auditRepository.KVAuditRepository
	auditUC        auditUseCase.UseCase
	auditForwarder *auditUseCase.Forwarder

	// Domain use cases
	patientUC patientUseCase.UseCase
	gateUC    gateUseCase.UseCase

	// Servers
	httpServer    *http.Server
	metricsServer *http.MetricsServer

	// Initialization flags and mutex for thread-safety
	mu                  sync.Mutex
	loggerInit          sync.Once
	dbInit              sync.Once
	kvStoreInit         sync.Once
	metricsProviderInit sync.Once
	securityMetricsInit sync.Once
	businessMetricsInit sync.Once
	kmsKeeperInit       sync.Once
	keyManagerInit      sync.Once
	encryptorInit       sync.Once
	secureStorageInit   sync.Once
	sessionStoreInit    sync.Once
	authUCInit          sync.Once
	auditRepoInit       sync.Once
	auditUCInit         sync.Once
	auditForwarderInit  sync.Once
	patientUCInit       sync.Once
	gateUCInit          sync.Once
	httpServerInit      sync.Once
	metricsServerInit   sync.Once
	initErrors          map[string]error
}

// NewContainer creates a new dependency injection container with the provided
// configuration.
func NewContainer(cfg *config.Config) *Container {
	return &Container{
		config:     cfg,
		initErrors: make(map[string]error),
	}
}

// Config returns the application configuration.
func (c *Container) Config() *config.Config {
	return c.config
}

// Logger returns the configured logger instance.
// It creates a new logger on first access based on the log level in configuration.
func (c *Container) Logger() *slog.Logger {
	c.loggerInit.Do(func() {
		c.logger = c.initLogger()
	})
	return c.logger
}

// DB returns the database connection backing the SQL key-value stores.
func (c *Container) DB() (*sql.DB, error) {
	var err error
	c.dbInit.Do(func() {
		c.db, err = c.initDB()
		if err != nil {
			c.initErrors["db"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["db"]; exists {
		return nil, storedErr
	}
	return c.db, nil
}

// KVStore returns the key-value store selected by the configured driver.
func (c *Container) KVStore() (kvstore.Store, error) {
	var err error
	c.kvStoreInit.Do(func() {
		c.kvStore, err = c.initKVStore()
		if err != nil {
			c.initErrors["kvStore"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["kvStore"]; exists {
		return nil, storedErr
	}
	return c.kvStore, nil
}

// MetricsProvider returns the metrics provider instance, or nil when metrics
// are disabled.
func (c *Container) MetricsProvider() (*metrics.Provider, error) {
	var err error
	c.metricsProviderInit.Do(func() {
		if !c.config.MetricsEnabled {
			return
		}
		c.metricsProvider, err = metrics.NewProvider(c.config.MetricsNamespace)
		if err != nil {
			c.initErrors["metricsProvider"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["metricsProvider"]; exists {
		return nil, storedErr
	}
	return c.metricsProvider, nil
}

// SecurityMetrics returns the security metrics instance, falling back to the
// no-op implementation when metrics are disabled.
func (c *Container) SecurityMetrics() (metrics.SecurityMetrics, error) {
	var err error
	c.securityMetricsInit.Do(func() {
		c.securityMetrics, err = c.initSecurityMetrics()
		if err != nil {
			c.initErrors["securityMetrics"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["securityMetrics"]; exists {
		return nil, storedErr
	}
	return c.securityMetrics, nil
}

// BusinessMetrics returns the business metrics instance, falling back to the
// no-op implementation when metrics are disabled.
func (c *Container) BusinessMetrics() (metrics.BusinessMetrics, error) {
	var err error
	c.businessMetricsInit.Do(func() {
		c.businessMetrics, err = c.initBusinessMetrics()
		if err != nil {
			c.initErrors["businessMetrics"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["businessMetrics"]; exists {
		return nil, storedErr
	}
	return c.businessMetrics, nil
}

// HTTPServer returns the HTTP server instance with the full route table wired.
func (c *Container) HTTPServer() (*http.Server, error) {
	var err error
	c.httpServerInit.Do(func() {
		c.httpServer, err = c.initHTTPServer()
		if err != nil {
			c.initErrors["httpServer"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["httpServer"]; exists {
		return nil, storedErr
	}
	return c.httpServer, nil
}

// MetricsServer returns the Prometheus metrics server instance.
func (c *Container) MetricsServer() (*http.MetricsServer, error) {
	var err error
	c.metricsServerInit.Do(func() {
		c.metricsServer, err = c.initMetricsServer()
		if err != nil {
			c.initErrors["metricsServer"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["metricsServer"]; exists {
		return nil, storedErr
	}
	return c.metricsServer, nil
}

// Shutdown performs cleanup of all initialized resources.
// It should be called when the application is shutting down.
func (c *Container) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var shutdownErrors []error

	if c.httpServer != nil {
		if err := c.httpServer.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("http server shutdown: %w", err))
		}
	}

	if c.metricsServer != nil {
		if err := c.metricsServer.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("metrics server shutdown: %w", err))
		}
	}

	if c.metricsProvider != nil {
		if err := c.metricsProvider.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("metrics provider shutdown: %w", err))
		}
	}

	if c.db != nil {
		if err := c.db.Close(); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("database close: %w", err))
		}
	}

	if len(shutdownErrors) > 0 {
		return fmt.Errorf("shutdown errors: %v", shutdownErrors)
	}

	return nil
}

// initLogger creates and configures a structured logger based on the log level.
func (c *Container) initLogger() *slog.Logger {
	var logLevel slog.Level
	switch c.config.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})

	return slog.New(handler)
}

// initDB creates and configures the database connection.
func (c *Container) initDB() (*sql.DB, error) {
	db, err := database.Connect(database.Config{
		Driver:             c.config.KVDriver,
		ConnectionString:   c.config.KVConnectionString,
		MaxOpenConnections: c.config.KVMaxOpenConnections,
		MaxIdleConnections: c.config.KVMaxIdleConnections,
		ConnMaxLifetime:    c.config.KVConnMaxLifetime,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// initKVStore creates the key-value store based on the configured driver.
func (c *Container) initKVStore() (kvstore.Store, error) {
	switch c.config.KVDriver {
	case "memory":
		return kvstore.NewMemoryStore(), nil
	case "postgres":
		db, err := c.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to get database for kv store: %w", err)
		}
		return kvstore.NewPostgreSQLStore(db), nil
	case "mysql":
		db, err := c.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to get database for kv store: %w", err)
		}
		return kvstore.NewMySQLStore(db), nil
	default:
		return nil, fmt.Errorf("unsupported kv driver: %s", c.config.KVDriver)
	}
}

// initSecurityMetrics creates the security metrics instance.
func (c *Container) initSecurityMetrics() (metrics.SecurityMetrics, error) {
	if !c.config.MetricsEnabled {
		return metrics.NewNoOpSecurityMetrics(), nil
	}

	provider, err := c.MetricsProvider()
	if err != nil {
		return nil, fmt.Errorf("failed to get metrics provider for security metrics: %w", err)
	}

	return metrics.NewSecurityMetrics(provider.MeterProvider(), c.config.MetricsNamespace)
}

// initBusinessMetrics creates the business metrics instance.
func (c *Container) initBusinessMetrics() (metrics.BusinessMetrics, error) {
	if !c.config.MetricsEnabled {
		return metrics.NewNoOpBusinessMetrics(), nil
	}

	provider, err := c.MetricsProvider()
	if err != nil {
		return nil, fmt.Errorf("failed to get metrics provider for business metrics: %w", err)
	}

	return metrics.NewBusinessMetrics(provider.MeterProvider(), c.config.MetricsNamespace)
}

// initHTTPServer creates the HTTP server with all its dependencies.
func (c *Container) initHTTPServer() (*http.Server, error) {
	store, err := c.KVStore()
	if err != nil {
		return nil, fmt.Errorf("failed to get kv store for http server: %w", err)
	}

	authUC, err := c.AuthUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get auth use case for http server: %w", err)
	}

	handlers, err := c.httpHandlers()
	if err != nil {
		return nil, err
	}

	var meterProvider *metrics.Provider
	if c.config.MetricsEnabled {
		meterProvider, err = c.MetricsProvider()
		if err != nil {
			return nil, fmt.Errorf("failed to get metrics provider for http server: %w", err)
		}
	}

	if meterProvider != nil {
		return http.NewServer(c.config, store, authUC, handlers, meterProvider.MeterProvider(), c.Logger()), nil
	}
	return http.NewServer(c.config, store, authUC, handlers, nil, c.Logger()), nil
}

// initMetricsServer creates the Prometheus metrics server.
func (c *Container) initMetricsServer() (*http.MetricsServer, error) {
	provider, err := c.MetricsProvider()
	if err != nil {
		return nil, fmt.Errorf("failed to get metrics provider for metrics server: %w", err)
	}

	return http.NewMetricsServer(c.config.ServerHost, c.config.MetricsPort, c.Logger(), provider), nil
}
