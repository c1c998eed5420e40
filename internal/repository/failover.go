package repository

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"buildops/internal/domain"

	"github.com/rs/zerolog"
)

const failoverRecoveryInterval = time.Minute

// FailoverBlobStore writes to primary and switches to fallback while primary
// is failing. Recovery is attempted at most once per minute.
type FailoverBlobStore struct {
	primary  domain.BlobStore
	fallback domain.BlobStore
	logger   *zerolog.Logger
	isDown   atomic.Bool

	mu        sync.Mutex
	lastCheck time.Time
}

func NewFailoverBlobStore(primary, fallback domain.BlobStore, logger *zerolog.Logger) *FailoverBlobStore {
	return &FailoverBlobStore{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
	}
}

func (r *FailoverBlobStore) markDown(err error) {
	r.logger.Error().Err(err).Msg("Primary blob store failed, falling back to memory")
	r.isDown.Store(true)
	r.mu.Lock()
	r.lastCheck = time.Now()
	r.mu.Unlock()
}

// usePrimary reports whether the next call should go to primary: either it is
// healthy or the recovery interval has elapsed.
func (r *FailoverBlobStore) usePrimary() bool {
	if !r.isDown.Load() {
		return true
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if time.Since(r.lastCheck) > failoverRecoveryInterval {
		r.lastCheck = time.Now()
		return true
	}
	return false
}

func (r *FailoverBlobStore) call(fn func(store domain.BlobStore) error) error {
	if r.usePrimary() {
		err := fn(r.primary)
		if err == nil || errors.Is(err, domain.ErrBlobNotFound) {
			if r.isDown.Swap(false) {
				r.logger.Info().Msg("Primary blob store recovered")
			}
			return err
		}
		r.markDown(err)
	}
	return fn(r.fallback)
}

func (r *FailoverBlobStore) Get(ctx context.Context, key string) ([]byte, error) {
	var data []byte
	err := r.call(func(store domain.BlobStore) error {
		var err error
		data, err = store.Get(ctx, key)
		return err
	})
	return data, err
}

func (r *FailoverBlobStore) Put(ctx context.Context, key string, data []byte) error {
	return r.call(func(store domain.BlobStore) error {
		return store.Put(ctx, key, data)
	})
}

func (r *FailoverBlobStore) Delete(ctx context.Context, key string) error {
	return r.call(func(store domain.BlobStore) error {
		return store.Delete(ctx, key)
	})
}

func (r *FailoverBlobStore) Ping(ctx context.Context) error {
	return r.call(func(store domain.BlobStore) error {
		return store.Ping(ctx)
	})
}
