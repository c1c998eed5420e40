package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"buildops/internal/config"
	"buildops/internal/domain"

	"github.com/redis/go-redis/v9"
)

type RedisBlobStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisClient создает новый клиент Redis на основе конфигурации
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	options := &redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	}

	return redis.NewClient(options)
}

// NewRedisBlobStore stores each snapshot under prefix+key. A zero ttl keeps
// snapshots forever.
func NewRedisBlobStore(client *redis.Client, prefix string, ttl time.Duration) *RedisBlobStore {
	return &RedisBlobStore{
		client: client,
		prefix: prefix,
		ttl:    ttl,
	}
}

func (r *RedisBlobStore) key(key string) string {
	return r.prefix + key
}

func (r *RedisBlobStore) Get(ctx context.Context, key string) ([]byte, error) {
	if r.client == nil {
		return nil, fmt.Errorf("redis client is nil")
	}
	val, err := r.client.Get(ctx, r.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrBlobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get snapshot %s from redis: %w", key, err)
	}
	return val, nil
}

func (r *RedisBlobStore) Put(ctx context.Context, key string, data []byte) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	if err := r.client.Set(ctx, r.key(key), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set snapshot %s in redis: %w", key, err)
	}
	return nil
}

func (r *RedisBlobStore) Delete(ctx context.Context, key string) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	if err := r.client.Del(ctx, r.key(key)).Err(); err != nil {
		return fmt.Errorf("failed to delete snapshot %s from redis: %w", key, err)
	}
	return nil
}

func (r *RedisBlobStore) Ping(ctx context.Context) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	return Ping(ctx, r.client)
}

// Ping проверяет соединение с Redis
func Ping(ctx context.Context, client *redis.Client) error {
	_, err := client.Ping(ctx).Result()
	if err != nil {
		return fmt.Errorf("failed to ping Redis: %w", err)
	}
	return nil
}

// Close закрывает соединение с Redis
func Close(client *redis.Client) error {
	if client != nil {
		return client.Close()
	}
	return nil
}
