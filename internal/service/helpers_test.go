package service

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"buildops/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

var testNow = time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)

// recordingPersister keeps the last snapshot per key.
type recordingPersister struct {
	mu     sync.Mutex
	writes map[string][]byte
	calls  []string
	err    error
}

func newRecordingPersister() *recordingPersister {
	return &recordingPersister{writes: make(map[string][]byte)}
}

func (p *recordingPersister) Persist(_ context.Context, key string, data []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, key)
	if p.err != nil {
		return p.err
	}
	p.writes[key] = data
	return nil
}

func (p *recordingPersister) keys() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.calls...)
}

func (p *recordingPersister) reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = nil
}

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) PublishJSON(eventType string, payload interface{}) error {
	return m.Called(eventType, payload).Error(0)
}

// tickingClock advances one second per call.
func tickingClock(start time.Time) func() time.Time {
	var mu sync.Mutex
	cur := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		cur = cur.Add(time.Second)
		return cur
	}
}

func scenarioSeeds() Seeds {
	return Seeds{
		Clients:  []models.Client{{ID: 1, Name: "John Doe"}},
		Services: []models.Service{{ID: 1, Name: "Plumbing", HourlyRate: decimal.NewFromInt(75)}},
	}
}

type fixture struct {
	state     *State
	persister *recordingPersister
	bookings  *BookingService
	reports   *ReportService
	clients   *ClientService
	catalog   *CatalogService
	inventory *InventoryService
}

func newFixture(seeds Seeds) *fixture {
	p := newRecordingPersister()
	st := NewState(seeds, p, nil, WithClock(tickingClock(testNow)))
	return &fixture{
		state:     st,
		persister: p,
		bookings:  NewBookingService(st, nil, nil),
		reports:   NewReportService(st),
		clients:   NewClientService(st),
		catalog:   NewCatalogService(st),
		inventory: NewInventoryService(st),
	}
}

func hours(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func money(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

var errStoreDown = errors.New("store down")

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}
