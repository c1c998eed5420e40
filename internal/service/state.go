package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"buildops/internal/domain"
	"buildops/internal/metrics"
	"buildops/internal/models"
	"buildops/internal/store"

	"github.com/rs/zerolog"
)

// Seeds are the collections used when a snapshot is absent or unreadable.
type Seeds struct {
	Clients   []models.Client
	Services  []models.Service
	Bookings  []models.Booking
	Inventory []models.InventoryItem
	Payments  []models.Payment
}

func DefaultSeeds() Seeds {
	return Seeds{
		Clients:   models.DefaultClients(),
		Services:  models.DefaultServices(),
		Inventory: models.DefaultInventory(),
	}
}

// State is the application state shared by every service. All five
// collections live here and a single mutex serialises every operation.
type State struct {
	mu        sync.Mutex
	clients   *store.Collection[models.Client]
	services  *store.Collection[models.Service]
	bookings  *store.Collection[models.Booking]
	inventory *store.Collection[models.InventoryItem]
	payments  *store.Collection[models.Payment]

	// persistMu keeps snapshot writes in mutation order
	persistMu sync.Mutex
	persister domain.Persister

	ids    *store.IDGenerator
	now    func() time.Time
	loc    *time.Location
	logger *zerolog.Logger
}

type StateOption func(*State)

// WithClock replaces the time source for timestamps and identifiers.
func WithClock(now func() time.Time) StateOption {
	return func(s *State) { s.now = now }
}

// WithLocation sets the zone used for calendar-day boundaries.
func WithLocation(loc *time.Location) StateOption {
	return func(s *State) {
		if loc != nil {
			s.loc = loc
		}
	}
}

func NewState(seeds Seeds, persister domain.Persister, logger *zerolog.Logger, opts ...StateOption) *State {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	s := &State{
		clients:   store.NewCollection(seeds.Clients),
		services:  store.NewCollection(seeds.Services),
		bookings:  store.NewCollection(seeds.Bookings),
		inventory: store.NewCollection(seeds.Inventory),
		payments:  store.NewCollection(seeds.Payments),
		persister: persister,
		now:       time.Now,
		loc:       time.UTC,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(s)
	}

	var maxID int64
	for _, id := range []int64{
		s.clients.MaxID(), s.services.MaxID(), s.bookings.MaxID(),
		s.inventory.MaxID(), s.payments.MaxID(),
	} {
		maxID = max(maxID, id)
	}
	s.ids = store.NewIDGenerator(maxID).WithClock(s.now)
	return s
}

// LoadState reads every collection from blobs. A missing or undecodable
// snapshot falls back to its seed; a failing store is an error.
func LoadState(ctx context.Context, blobs domain.BlobStore, seeds Seeds, persister domain.Persister, logger *zerolog.Logger, opts ...StateOption) (*State, error) {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	var err error
	loaded := seeds
	if loaded.Clients, err = loadCollection(ctx, blobs, models.KeyClients, seeds.Clients, logger); err != nil {
		return nil, err
	}
	if loaded.Services, err = loadCollection(ctx, blobs, models.KeyServices, seeds.Services, logger); err != nil {
		return nil, err
	}
	if loaded.Bookings, err = loadCollection(ctx, blobs, models.KeyBookings, seeds.Bookings, logger); err != nil {
		return nil, err
	}
	if loaded.Inventory, err = loadCollection(ctx, blobs, models.KeyInventory, seeds.Inventory, logger); err != nil {
		return nil, err
	}
	if loaded.Payments, err = loadCollection(ctx, blobs, models.KeyPayments, seeds.Payments, logger); err != nil {
		return nil, err
	}

	return NewState(loaded, persister, logger, opts...), nil
}

func loadCollection[T any](ctx context.Context, blobs domain.BlobStore, key string, seed []T, logger *zerolog.Logger) ([]T, error) {
	data, err := blobs.Get(ctx, key)
	if errors.Is(err, domain.ErrBlobNotFound) {
		logger.Info().Str("collection", key).Int("records", len(seed)).Msg("no snapshot, using seed")
		return seed, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", key, err)
	}

	var items []T
	if err := json.Unmarshal(data, &items); err != nil {
		logger.Warn().Err(err).Str("collection", key).Msg("snapshot unreadable, using seed")
		return seed, nil
	}
	logger.Debug().Str("collection", key).Int("records", len(items)).Msg("snapshot loaded")
	return items, nil
}

// Location returns the zone used for calendar-day boundaries.
func (s *State) Location() *time.Location {
	return s.loc
}

// Now returns the state clock.
func (s *State) Now() time.Time {
	return s.now()
}

// read runs fn under the state lock.
func (s *State) read(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn()
}

// mutate runs fn under the state lock and persists the collections named by
// the returned keys. Persistence failures are logged, never returned.
func (s *State) mutate(ctx context.Context, fn func() ([]string, error)) error {
	s.mu.Lock()
	keys, err := fn()
	if err != nil {
		s.mu.Unlock()
		return err
	}
	snapshots := s.encode(keys)
	s.persistMu.Lock()
	s.mu.Unlock()

	defer s.persistMu.Unlock()
	// the mutation is already visible, a caller going away must not cancel the write
	s.persist(context.WithoutCancel(ctx), snapshots)
	return nil
}

type snapshot struct {
	key  string
	data []byte
}

// encode must be called with mu held.
func (s *State) encode(keys []string) []snapshot {
	out := make([]snapshot, 0, len(keys))
	for _, key := range keys {
		var (
			data []byte
			err  error
		)
		switch key {
		case models.KeyClients:
			data, err = json.Marshal(s.clients.All())
		case models.KeyServices:
			data, err = json.Marshal(s.services.All())
		case models.KeyBookings:
			data, err = json.Marshal(s.bookings.All())
		case models.KeyInventory:
			data, err = json.Marshal(s.inventory.All())
		case models.KeyPayments:
			data, err = json.Marshal(s.payments.All())
		default:
			err = fmt.Errorf("unknown collection %q", key)
		}
		if err != nil {
			s.logger.Error().Err(err).Str("collection", key).Msg("encode snapshot")
			continue
		}
		out = append(out, snapshot{key: key, data: data})
	}
	return out
}

func (s *State) persist(ctx context.Context, snapshots []snapshot) {
	if s.persister == nil {
		return
	}
	for _, snap := range snapshots {
		if err := s.persister.Persist(ctx, snap.key, snap.data); err != nil {
			s.logger.Error().Err(err).Str("collection", snap.key).Msg("persist snapshot failed, continuing in memory")
		}
	}
}

// SyncPersister writes each snapshot to the blob store before returning.
type SyncPersister struct {
	store domain.BlobStore
}

func NewSyncPersister(store domain.BlobStore) *SyncPersister {
	return &SyncPersister{store: store}
}

func (p *SyncPersister) Persist(ctx context.Context, key string, data []byte) error {
	err := p.store.Put(ctx, key, data)
	metrics.IncSnapshotWrite(key, err)
	return err
}
