package repository

import (
	"context"
	"sync"

	"buildops/internal/domain"
)

// MemoryBlobStore keeps snapshots in process memory. Used as the failover
// target and for the memory storage backend.
type MemoryBlobStore struct {
	blobs sync.Map
}

func NewMemoryBlobStore() *MemoryBlobStore {
	return &MemoryBlobStore{}
}

func (r *MemoryBlobStore) Get(ctx context.Context, key string) ([]byte, error) {
	val, ok := r.blobs.Load(key)
	if !ok {
		return nil, domain.ErrBlobNotFound
	}
	data := val.([]byte)
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

func (r *MemoryBlobStore) Put(ctx context.Context, key string, data []byte) error {
	stored := make([]byte, len(data))
	copy(stored, data)
	r.blobs.Store(key, stored)
	return nil
}

func (r *MemoryBlobStore) Delete(ctx context.Context, key string) error {
	r.blobs.Delete(key)
	return nil
}

func (r *MemoryBlobStore) Ping(ctx context.Context) error {
	return nil
}
