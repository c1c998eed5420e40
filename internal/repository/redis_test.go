package repository

import (
	"context"
	"testing"
	"time"

	"buildops/internal/config"
	"buildops/internal/domain"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisBlobStore(t *testing.T) {
	s, err := miniredis.Run()
	require.NoError(t, err)
	defer s.Close()

	client := NewRedisClient(config.RedisConfig{Address: s.Addr()})
	defer client.Close()

	repo := NewRedisBlobStore(client, "buildops:", 0)
	ctx := context.Background()

	t.Run("PutAndGet", func(t *testing.T) {
		payload := []byte(`[{"id":1,"name":"Plumbing","hourlyRate":"75"}]`)
		require.NoError(t, repo.Put(ctx, "services", payload))

		got, err := repo.Get(ctx, "services")
		require.NoError(t, err)
		assert.Equal(t, payload, got)

		raw, err := s.Get("buildops:services")
		require.NoError(t, err)
		assert.Equal(t, string(payload), raw)
		assert.Equal(t, time.Duration(0), s.TTL("buildops:services"))
	})

	t.Run("GetMissing", func(t *testing.T) {
		_, err := repo.Get(ctx, "payments")
		assert.ErrorIs(t, err, domain.ErrBlobNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, repo.Put(ctx, "bookings", []byte("[]")))
		require.NoError(t, repo.Delete(ctx, "bookings"))
		assert.False(t, s.Exists("buildops:bookings"))
	})

	t.Run("TTL", func(t *testing.T) {
		expiring := NewRedisBlobStore(client, "tmp:", time.Minute)
		require.NoError(t, expiring.Put(ctx, "clients", []byte("[]")))
		assert.Equal(t, time.Minute, s.TTL("tmp:clients"))

		s.FastForward(2 * time.Minute)
		_, err := expiring.Get(ctx, "clients")
		assert.ErrorIs(t, err, domain.ErrBlobNotFound)
	})

	t.Run("ServerError", func(t *testing.T) {
		s.SetError("LOADING")
		defer s.SetError("")
		_, err := repo.Get(ctx, "services")
		assert.Error(t, err)
		assert.NotErrorIs(t, err, domain.ErrBlobNotFound)
	})

	t.Run("NilClient", func(t *testing.T) {
		repo := NewRedisBlobStore(nil, "", 0)
		_, err := repo.Get(ctx, "clients")
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "redis client is nil")
		assert.Error(t, repo.Put(ctx, "clients", nil))
		assert.Error(t, repo.Delete(ctx, "clients"))
		assert.Error(t, repo.Ping(ctx))
	})

	t.Run("Ping", func(t *testing.T) {
		assert.NoError(t, repo.Ping(ctx))
	})

	t.Run("Close", func(t *testing.T) {
		other := redis.NewClient(&redis.Options{Addr: s.Addr()})
		assert.NoError(t, Close(other))
		assert.NoError(t, Close(nil))
	})
}
