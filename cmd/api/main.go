package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"buildops/internal/api"
	"buildops/internal/config"
	"buildops/internal/database"
	"buildops/internal/domain"
	"buildops/internal/events"
	"buildops/internal/logging"
	"buildops/internal/metrics"
	"buildops/internal/repository"
	"buildops/internal/service"
	"buildops/internal/worker"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	cfg, logger, closer, err := loadConfigAndLogger()
	if err != nil {
		return err
	}
	if closer != nil {
		defer (func() { _ = closer.Close() })()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics.Register()

	blobs, closeStore, err := repository.Open(ctx, cfg.Storage, logging.Component(logger, "storage"))
	if err != nil {
		logger.Error().Err(err).Str("backend", cfg.Storage.Backend).Msg("open storage")
		return err
	}
	defer (func() { _ = closeStore() })()

	persister, stopPersister := initPersister(cfg, blobs, logger)
	defer stopPersister()

	seeds := service.DefaultSeeds()
	if catalog := cfg.Services(); catalog != nil {
		seeds.Services = catalog
	}
	state, err := service.LoadState(ctx, blobs, seeds, persister,
		logging.Component(logger, "state"), service.WithLocation(cfg.Location()))
	if err != nil {
		logger.Error().Err(err).Msg("load state")
		return err
	}

	eventBus := initEventBus(logging.Component(logger, "events"))

	httpServer := api.NewHTTPServer(cfg.API, api.Services{
		Clients:   service.NewClientService(state),
		Catalog:   service.NewCatalogService(state),
		Inventory: service.NewInventoryService(state),
		Bookings:  service.NewBookingService(state, eventBus, logging.Component(logger, "bookings")),
		Reports:   service.NewReportService(state),
		Store:     blobs,
		Location:  cfg.Location(),
		Now:       state.Now,
	}, logging.Component(logger, "http"))

	startBackups(ctx, cfg, logger)
	startMetrics(ctx, cfg, logger)

	return startServer(ctx, httpServer, cfg, logger)
}

func loadConfigAndLogger() (*config.Config, *zerolog.Logger, io.Closer, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load config: %w", err)
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("init logger: %w", err)
	}

	return cfg, logging.Component(baseLogger, "api-main"), closer, nil
}

// initPersister picks between inline writes and the background worker.
// The worker is stopped by the returned func after the HTTP server drained.
func initPersister(cfg *config.Config, blobs domain.BlobStore, logger *zerolog.Logger) (domain.Persister, func()) {
	if !cfg.Persistence.Async {
		return service.NewSyncPersister(blobs), func() {}
	}

	w := worker.NewSnapshotWorker(blobs, worker.RetryPolicyFromConfig(cfg.Persistence.Retry), logging.Component(logger, "snapshot-worker"))
	w.Start(context.Background())
	logger.Info().Msg("async snapshot persistence enabled")
	return w, w.Stop
}

func initEventBus(logger *zerolog.Logger) *events.EventBus {
	bus := events.NewEventBus()
	bus.SubscribeAll(func(event *events.Event) error {
		logger.Debug().
			Int64("event_id", event.ID).
			Str("type", event.Type).
			RawJSON("payload", event.Payload).
			Msg("domain event")
		return nil
	})
	return bus
}

func startBackups(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) {
	if !cfg.Backup.Enabled || cfg.Storage.Backend != config.BackendSQLite {
		return
	}
	backups := database.NewBackupService(cfg.Storage.SQLite.Path, cfg.Backup, logging.Component(logger, "backup"))
	go backups.Start(ctx)
}

func startMetrics(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) {
	if !cfg.Monitoring.PrometheusEnabled {
		return
	}
	go startMetricsServer(ctx, cfg.Monitoring.PrometheusPort, logger)
}

func startServer(ctx context.Context, httpServer *api.HTTPServer, cfg *config.Config, logger *zerolog.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.Start()
	}()

	logger.Info().
		Int("http_port", cfg.API.HTTP.Port).
		Str("backend", cfg.Storage.Backend).
		Bool("async_persistence", cfg.Persistence.Async).
		Msg("API server started")

	select {
	case <-ctx.Done():
		logger.Info().Msg("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			logger.Error().Err(err).Msg("http server stopped")
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("http shutdown")
	}

	logger.Info().Msg("API server stopped")
	return nil
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
