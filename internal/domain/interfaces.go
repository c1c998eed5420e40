package domain

import (
	"context"
	"errors"
)

// ErrBlobNotFound is returned by BlobStore.Get when the key was never written.
var ErrBlobNotFound = errors.New("blob not found")

// BlobStore keeps whole serialized collections under fixed keys.
type BlobStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, data []byte) error
	Delete(ctx context.Context, key string) error
	Ping(ctx context.Context) error
}

// Persister receives a snapshot after every mutation of a collection.
// Implementations may write synchronously or queue the write.
type Persister interface {
	Persist(ctx context.Context, key string, data []byte) error
}

type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}
