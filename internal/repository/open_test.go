package repository

import (
	"context"
	"path/filepath"
	"testing"

	"buildops/internal/config"
	"buildops/internal/database"

	"github.com/alicebob/miniredis/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen(t *testing.T) {
	logger := zerolog.Nop()
	ctx := context.Background()

	t.Run("memory", func(t *testing.T) {
		store, closeFn, err := Open(ctx, config.StorageConfig{Backend: config.BackendMemory}, &logger)
		require.NoError(t, err)
		defer closeFn()
		assert.IsType(t, &MemoryBlobStore{}, store)
	})

	t.Run("redis", func(t *testing.T) {
		mr := miniredis.RunT(t)
		cfg := config.StorageConfig{
			Backend:   config.BackendRedis,
			KeyPrefix: "test:",
			Redis:     config.RedisConfig{Address: mr.Addr()},
		}
		store, closeFn, err := Open(ctx, cfg, &logger)
		require.NoError(t, err)
		defer closeFn()

		require.NoError(t, store.Put(ctx, "clients", []byte("[]")))
		assert.True(t, mr.Exists("test:clients"))
	})

	t.Run("redis unreachable", func(t *testing.T) {
		mr := miniredis.RunT(t)
		addr := mr.Addr()
		mr.Close()

		_, _, err := Open(ctx, config.StorageConfig{
			Backend: config.BackendRedis,
			Redis:   config.RedisConfig{Address: addr},
		}, &logger)
		assert.Error(t, err)
	})

	t.Run("redis unreachable with failover", func(t *testing.T) {
		mr := miniredis.RunT(t)
		addr := mr.Addr()
		mr.Close()

		store, closeFn, err := Open(ctx, config.StorageConfig{
			Backend:  config.BackendRedis,
			Failover: true,
			Redis:    config.RedisConfig{Address: addr},
		}, &logger)
		require.NoError(t, err)
		defer closeFn()
		assert.IsType(t, &FailoverBlobStore{}, store)

		require.NoError(t, store.Put(ctx, "clients", []byte("[1]")))
		got, err := store.Get(ctx, "clients")
		require.NoError(t, err)
		assert.Equal(t, "[1]", string(got))
	})

	t.Run("sqlite", func(t *testing.T) {
		store, closeFn, err := Open(ctx, config.StorageConfig{
			Backend: config.BackendSQLite,
			SQLite:  config.SQLiteConfig{Path: filepath.Join(t.TempDir(), "buildops.db")},
		}, &logger)
		require.NoError(t, err)
		defer closeFn()
		assert.IsType(t, &database.DB{}, store)
	})

	t.Run("unknown", func(t *testing.T) {
		_, _, err := Open(ctx, config.StorageConfig{Backend: "etcd"}, &logger)
		assert.Error(t, err)
	})
}
