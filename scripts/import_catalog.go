package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"buildops/internal/config"
	"buildops/internal/repository"
	"buildops/internal/service"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// CatalogFile mirrors the catalog section of config.yaml.
type CatalogFile struct {
	Catalog []config.CatalogEntry `yaml:"catalog"`
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	var (
		catalogPath = flag.String("catalog", "configs/catalog.yaml", "path to catalog.yaml")
		configPath  = flag.String("config", "configs/config.yaml", "path to config.yaml")
	)
	flag.Parse()

	data, err := os.ReadFile(*catalogPath)
	if err != nil {
		return fmt.Errorf("read catalog: %w", err)
	}
	var file CatalogFile
	if err = yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parse catalog: %w", err)
	}
	if len(file.Catalog) == 0 {
		return fmt.Errorf("no services in yaml")
	}
	if err = config.ValidateCatalog(file.Catalog); err != nil {
		return err
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.Storage.Backend == config.BackendMemory {
		return fmt.Errorf("memory backend keeps nothing, configure a persistent storage.backend")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	blobs, closeStore, err := repository.Open(ctx, cfg.Storage, &logger)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer closeStore()

	state, err := service.LoadState(ctx, blobs, service.DefaultSeeds(), service.NewSyncPersister(blobs), &logger)
	if err != nil {
		return fmt.Errorf("load state: %w", err)
	}

	imported := (&config.Config{Catalog: file.Catalog}).Services()
	created, updated, err := service.NewCatalogService(state).Upsert(ctx, imported)
	if err != nil {
		return fmt.Errorf("upsert catalog: %w", err)
	}

	fmt.Printf("done: created=%d updated=%d\n", created, updated)
	return nil
}
