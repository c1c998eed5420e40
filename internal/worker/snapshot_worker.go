package worker

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"buildops/internal/domain"
	"buildops/internal/metrics"

	"github.com/rs/zerolog"
)

// ErrWorkerStopped is returned by Persist after Stop.
var ErrWorkerStopped = errors.New("snapshot worker stopped")

const shutdownFlushTimeout = 10 * time.Second

// SnapshotWorker writes collection snapshots to a blob store in the
// background. Only the latest snapshot per key is kept while a write is
// pending, so a burst of mutations costs one write per collection.
type SnapshotWorker struct {
	store  domain.BlobStore
	retry  RetryPolicy
	logger *zerolog.Logger

	mu      sync.Mutex
	pending map[string][]byte
	stopped bool
	notify  chan struct{}

	// writeMu keeps batches in order between the loop and Flush
	writeMu sync.Mutex

	cancel context.CancelFunc
	done   chan struct{}
}

// NewSnapshotWorker builds a worker with sane defaults.
func NewSnapshotWorker(store domain.BlobStore, retry RetryPolicy, logger *zerolog.Logger) *SnapshotWorker {
	if retry.MaxRetries == 0 {
		retry.MaxRetries = 3
	}
	if retry.InitialDelay == 0 {
		retry.InitialDelay = 200 * time.Millisecond
	}
	if retry.MaxDelay == 0 {
		retry.MaxDelay = 5 * time.Second
	}
	if retry.BackoffFactor == 0 {
		retry.BackoffFactor = 2
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	return &SnapshotWorker{
		store:   store,
		retry:   retry,
		logger:  logger,
		pending: make(map[string][]byte),
		notify:  make(chan struct{}, 1),
	}
}

// Persist queues a snapshot. It never blocks on the store.
func (w *SnapshotWorker) Persist(_ context.Context, key string, data []byte) error {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return ErrWorkerStopped
	}
	w.pending[key] = data
	w.mu.Unlock()

	select {
	case w.notify <- struct{}{}:
	default:
	}
	return nil
}

// Pending reports how many collections wait to be written.
func (w *SnapshotWorker) Pending() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.pending)
}

// Start launches the write loop. Only Stop ends it: cancelling ctx does not,
// so snapshots from requests still draining after a shutdown signal are kept.
func (w *SnapshotWorker) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	w.cancel = cancel
	w.done = make(chan struct{})

	go func() {
		defer close(w.done)
		w.logger.Info().Msg("snapshot worker started")
		for {
			select {
			case <-ctx.Done():
				w.shutdown()
				return
			case <-w.notify:
				w.writeBatch(ctx, w.takePending())
			}
		}
	}()
}

// Stop rejects new snapshots, drains the queue and waits for the loop.
func (w *SnapshotWorker) Stop() {
	if w.cancel == nil {
		w.shutdown()
		return
	}
	w.cancel()
	<-w.done
}

func (w *SnapshotWorker) shutdown() {
	w.mu.Lock()
	w.stopped = true
	w.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), shutdownFlushTimeout)
	defer cancel()
	if err := w.Flush(ctx); err != nil {
		w.logger.Error().Err(err).Msg("final snapshot flush incomplete")
	}
	w.logger.Info().Msg("snapshot worker stopped")
}

// Flush writes everything pending right now and returns the first failure.
func (w *SnapshotWorker) Flush(ctx context.Context) error {
	return w.writeBatch(ctx, w.takePending())
}

func (w *SnapshotWorker) takePending() map[string][]byte {
	w.mu.Lock()
	defer w.mu.Unlock()
	batch := w.pending
	w.pending = make(map[string][]byte)
	return batch
}

func (w *SnapshotWorker) writeBatch(ctx context.Context, batch map[string][]byte) error {
	if len(batch) == 0 {
		return nil
	}
	w.writeMu.Lock()
	defer w.writeMu.Unlock()

	keys := make([]string, 0, len(batch))
	for key := range batch {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var firstErr error
	for _, key := range keys {
		if err := w.write(ctx, key, batch[key]); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (w *SnapshotWorker) write(ctx context.Context, key string, data []byte) error {
	var err error
	for attempt := 1; attempt <= w.retry.Attempts(); attempt++ {
		err = w.store.Put(ctx, key, data)
		metrics.IncSnapshotWrite(key, err)
		if err == nil {
			return nil
		}
		if w.superseded(key) {
			// a newer snapshot is queued and will be written instead
			w.logger.Warn().Err(err).Str("collection", key).Msg("snapshot write failed, newer snapshot pending")
			return nil
		}
		if attempt == w.retry.Attempts() {
			break
		}
		delay := w.retry.NextDelay(attempt)
		w.logger.Warn().Err(err).Str("collection", key).Int("attempt", attempt).Dur("retry_in", delay).Msg("snapshot write failed")
		if sleepErr := sleep(ctx, delay); sleepErr != nil {
			w.requeue(key, data)
			return sleepErr
		}
	}

	w.logger.Error().Err(err).Str("collection", key).Msg("snapshot write gave up")
	return err
}

func (w *SnapshotWorker) superseded(key string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, ok := w.pending[key]
	return ok
}

// requeue puts data back unless a newer snapshot arrived meanwhile.
func (w *SnapshotWorker) requeue(key string, data []byte) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.pending[key]; !ok {
		w.pending[key] = data
	}
}
