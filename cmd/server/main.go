// Package main is the entry point for the bizdesk API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"bizdesk/internal/config"
	"bizdesk/internal/domain/documents/sale"
	"bizdesk/internal/domain/documents/service_order"
	v1 "bizdesk/internal/infrastructure/http/v1"
	"bizdesk/internal/infrastructure/http/v1/handlers"
	"bizdesk/internal/infrastructure/numerator"
	"bizdesk/internal/infrastructure/storage"
	"bizdesk/internal/infrastructure/storage/memory"
	"bizdesk/internal/infrastructure/storage/postgres"
	"bizdesk/internal/infrastructure/storage/postgres/document_repo"
	"bizdesk/internal/infrastructure/worker"
	"bizdesk/pkg/logger"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	var configPath string

	cmd := &cobra.Command{
		Use:           "bizdesk-server",
		Short:         "Run the bizdesk HTTP API",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), configPath)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to YAML config (default $"+config.EnvConfigPath+")")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "bizdesk-server: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath string) error {
	cfg, err := config.Load(config.ResolvePath(configPath))
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logger.New(logger.Config{
		Level:       cfg.Log.Level,
		Development: cfg.App.Development(),
	})
	if err != nil {
		return fmt.Errorf("initialize logger: %w", err)
	}
	defer func() { _ = log.Sync() }()
	ctx = logger.WithLogger(ctx, log)

	log.Infow("starting bizdesk server", "version", version, "driver", cfg.Store.Driver)

	// --- Counter store ---
	backend, err := storage.Open(ctx, cfg.Store)
	if err != nil {
		return fmt.Errorf("open %s store: %w", cfg.Store.Driver, err)
	}
	defer backend.Close()

	// --- Numerator Service ---
	allocator := numerator.New(backend.Counters, numerator.OptionsFromConfig(cfg.Numbering)...)

	routerCfg := v1.RouterConfig{
		Logger:       log,
		Numerator:    allocator,
		HealthChecks: map[string]handlers.Pinger{"store": backend},
		Info: handlers.AppInfo{
			Name:        cfg.App.Name,
			Version:     version,
			Environment: cfg.App.Env,
			StoreDriver: cfg.Store.Driver,
		},
		Debug: cfg.App.Development(),
	}

	var cleanup *worker.Cleanup
	if txm := backend.Postgres; txm != nil {
		// --- Documents, audit log and idempotency keys (PostgreSQL only) ---
		auditService, err := postgres.NewAuditService(txm)
		if err != nil {
			return fmt.Errorf("create audit service: %w", err)
		}
		routerCfg.Sales = sale.NewService(document_repo.NewSaleRepo(txm), allocator, txm, auditService)
		routerCfg.ServiceOrders = service_order.NewService(document_repo.NewServiceOrderRepo(txm), allocator, txm, auditService)
		routerCfg.AuditHistory = auditService

		if cfg.Idempotency.Enabled {
			store := postgres.NewIdempotencyStore(txm, cfg.Idempotency.TTL)
			routerCfg.Idempotency = store
			cleanup = worker.NewCleanup("idempotency", store, time.Hour, log)
		}
	} else {
		log.Infow("document routes disabled; they require the postgres driver")
		if cfg.Idempotency.Enabled {
			store := memory.NewIdempotencyStore(cfg.Idempotency.TTL)
			routerCfg.Idempotency = store
			cleanup = worker.NewCleanup("idempotency", store, 10*time.Minute, log)
		}
	}

	if cleanup != nil {
		go cleanup.Run(ctx)
	}

	// --- HTTP Server ---
	server := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      v1.NewRouter(routerCfg),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infow("server starting", "port", cfg.App.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// --- Graceful shutdown ---
	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
	}

	log.Info("shutting down server...")

	// Give outstanding requests 30 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Info("server stopped")
	return nil
}
