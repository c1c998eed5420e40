package repository

import (
	"context"
	"fmt"

	"buildops/internal/config"
	"buildops/internal/database"
	"buildops/internal/domain"

	"github.com/rs/zerolog"
)

// Open builds the blob store for the configured backend. The returned close
// func releases connections and is never nil.
func Open(ctx context.Context, cfg config.StorageConfig, logger *zerolog.Logger) (domain.BlobStore, func() error, error) {
	var (
		store   domain.BlobStore
		closeFn = func() error { return nil }
	)

	switch cfg.Backend {
	case config.BackendMemory, "":
		store = NewMemoryBlobStore()
	case config.BackendRedis:
		client := NewRedisClient(cfg.Redis)
		if err := Ping(ctx, client); err != nil && !cfg.Failover {
			_ = client.Close()
			return nil, nil, err
		}
		store = NewRedisBlobStore(client, cfg.KeyPrefix, 0)
		closeFn = func() error { return Close(client) }
	case config.BackendSQLite:
		db, err := database.NewDB(cfg.SQLite.Path, logger)
		if err != nil {
			return nil, nil, err
		}
		store = db
		closeFn = db.Close
	case config.BackendPostgres:
		pg, err := database.NewPostgresStore(ctx, cfg.Postgres, logger)
		if err != nil {
			return nil, nil, err
		}
		store = pg
		closeFn = func() error { pg.Close(); return nil }
	default:
		return nil, nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}

	if cfg.Failover && cfg.Backend != config.BackendMemory {
		logger.Info().Str("backend", cfg.Backend).Msg("Memory failover enabled for blob store")
		store = NewFailoverBlobStore(store, NewMemoryBlobStore(), logger)
	}
	return store, closeFn, nil
}
