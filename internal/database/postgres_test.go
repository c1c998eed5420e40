package database

import (
	"context"
	"os"
	"testing"

	"buildops/internal/config"
	"buildops/internal/domain"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Runs only against a real server: BUILDOPS_TEST_POSTGRES_DSN=postgres://...
func TestPostgresStore(t *testing.T) {
	dsn := os.Getenv("BUILDOPS_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("BUILDOPS_TEST_POSTGRES_DSN not set")
	}

	logger := zerolog.Nop()
	ctx := context.Background()
	store, err := NewPostgresStore(ctx, config.PostgresConfig{DSN: dsn, MaxConnections: 2}, &logger)
	require.NoError(t, err)
	defer store.Close()

	key := "test_snapshot"
	t.Cleanup(func() { _ = store.Delete(ctx, key) })

	require.NoError(t, store.Put(ctx, key, []byte(`[1]`)))
	require.NoError(t, store.Put(ctx, key, []byte(`[1,2]`)))

	got, err := store.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, `[1,2]`, string(got))

	require.NoError(t, store.Delete(ctx, key))
	_, err = store.Get(ctx, key)
	assert.ErrorIs(t, err, domain.ErrBlobNotFound)
	assert.NoError(t, store.Ping(ctx))
}

func TestPostgresStore_BadDSN(t *testing.T) {
	logger := zerolog.Nop()
	_, err := NewPostgresStore(context.Background(), config.PostgresConfig{DSN: "://not a dsn"}, &logger)
	assert.Error(t, err)
}
