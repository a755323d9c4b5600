package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/Fadil369/brainsait-doctor-hub-sub001/internal/app"
	"github.com/Fadil369/brainsait-doctor-hub-sub001/internal/config"
)

// RunServer starts the HTTP server with graceful shutdown support.
// Loads configuration, initializes the DI container and starts the API and
// metrics servers plus the background workers: the sensitive-storage retention
// sweep and, when a collector is configured, the audit event forwarder.
// Blocks until receiving SIGINT/SIGTERM or encountering a fatal error.
func RunServer(ctx context.Context, version string) error {
	cfg := config.Load()

	// Production refuses to start without backend auth, audit logging, an API
	// key and a KMS-wrapped storage key.
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	container := app.NewContainer(cfg)

	logger := container.Logger()
	logger.Info("starting server", slog.String("version", version))

	defer closeContainer(container, logger)

	server, err := container.HTTPServer()
	if err != nil {
		return fmt.Errorf("failed to initialize HTTP server: %w", err)
	}

	var metricsServer interface {
		Start(ctx context.Context) error
		Shutdown(ctx context.Context) error
	}
	if cfg.MetricsEnabled {
		ms, err := container.MetricsServer()
		if err != nil {
			return fmt.Errorf("failed to initialize metrics server: %w", err)
		}
		metricsServer = ms
	}

	secureStorage, err := container.SecureStorage()
	if err != nil {
		return fmt.Errorf("failed to initialize secure storage: %w", err)
	}

	forwarder, err := container.AuditForwarder()
	if err != nil {
		return fmt.Errorf("failed to initialize audit forwarder: %w", err)
	}

	// Setup graceful shutdown
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Background workers stop with the signal context.
	go secureStorage.RunCleanupLoop(ctx, cfg.StorageCleanupInterval)
	if forwarder != nil {
		go func() {
			if err := forwarder.Start(ctx); err != nil {
				logger.Error("audit forwarder stopped", slog.Any("error", err))
			}
		}()
	}

	serverErr := make(chan error, 2)
	go func() {
		if err := server.Start(ctx); err != nil {
			serverErr <- fmt.Errorf("api server error: %w", err)
		}
	}()

	if metricsServer != nil {
		go func() {
			if err := metricsServer.Start(ctx); err != nil {
				serverErr <- fmt.Errorf("metrics server error: %w", err)
			}
		}()
	}

	// Both servers shut down concurrently inside the same timeout.
	shutdownServers := func() error {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.HealthCheckTimeout)
		defer shutdownCancel()

		g, gctx := errgroup.WithContext(shutdownCtx)
		g.Go(func() error {
			if err := server.Shutdown(gctx); err != nil {
				return fmt.Errorf("api server shutdown: %w", err)
			}
			return nil
		})
		if metricsServer != nil {
			g.Go(func() error {
				if err := metricsServer.Shutdown(gctx); err != nil {
					return fmt.Errorf("metrics server shutdown: %w", err)
				}
				return nil
			})
		}
		return g.Wait()
	}

	// Wait for shutdown signal or server error
	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
		return shutdownServers()
	case err := <-serverErr:
		logger.Error("server error, initiating shutdown", slog.Any("error", err))
		return errors.Join(err, shutdownServers())
	}
}
