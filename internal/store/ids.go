package store

import (
	"sync"
	"time"
)

// IDGenerator issues identifiers derived from the millisecond clock. An id is
// always strictly greater than the previous one, so two records created in the
// same millisecond never collide.
type IDGenerator struct {
	mu   sync.Mutex
	last int64
	now  func() time.Time
}

func NewIDGenerator(floor int64) *IDGenerator {
	return &IDGenerator{last: floor, now: time.Now}
}

// WithClock replaces the time source. Used by tests.
func (g *IDGenerator) WithClock(now func() time.Time) *IDGenerator {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.now = now
	return g
}

func (g *IDGenerator) Next() int64 {
	g.mu.Lock()
	defer g.mu.Unlock()

	id := g.now().UnixMilli()
	if id <= g.last {
		id = g.last + 1
	}
	g.last = id
	return id
}

// Observe raises the floor so ids loaded from a snapshot are never reissued.
func (g *IDGenerator) Observe(id int64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if id > g.last {
		g.last = id
	}
}
