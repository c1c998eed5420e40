package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"buildops/internal/config"
	"buildops/internal/export"
	"buildops/internal/logging"
	"buildops/internal/models"
	"buildops/internal/repository"
	"buildops/internal/service"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configPath = flag.String("config", "configs/config.yaml", "path to config.yaml")
		clientID   = flag.Int64("client", 0, "client id, 0 for all clients")
		startDate  = flag.String("from", "", "first day, YYYY-MM-DD")
		endDate    = flag.String("to", "", "last day, YYYY-MM-DD")
		outDir     = flag.String("out", "", "output directory (defaults to exports.path)")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	if closer != nil {
		defer closer.Close()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	blobs, closeStore, err := repository.Open(ctx, cfg.Storage, logging.Component(logger, "storage"))
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer closeStore()

	// экспорт только читает состояние, сиды не записываются
	state, err := service.LoadState(ctx, blobs, service.DefaultSeeds(), service.NewSyncPersister(blobs),
		logging.Component(logger, "state"), service.WithLocation(cfg.Location()))
	if err != nil {
		return fmt.Errorf("load state: %w", err)
	}

	st, err := service.NewReportService(state).BillingStatement(ctx, service.StatementFilter{
		ClientID:  *clientID,
		StartDate: models.Day(*startDate),
		EndDate:   models.Day(*endDate),
	})
	if err != nil {
		return fmt.Errorf("build statement: %w", err)
	}

	dir := *outDir
	if dir == "" {
		dir = cfg.Exports.Path
	}
	path, err := export.SaveStatement(dir, st, cfg.Location())
	if err != nil {
		return fmt.Errorf("save statement: %w", err)
	}

	logger.Info().
		Str("path", path).
		Int("rows", st.Totals.Count).
		Str("total", st.Totals.Total.StringFixed(2)).
		Msg("statement exported")
	fmt.Printf("done: %s (%d payments)\n", path, st.Totals.Count)
	return nil
}
