package task

import (
	"sync"
	"time"
)

// IDGenerator hands out task ids. Ids must increase with creation order
// because the default view sorts newest-first by id.
type IDGenerator interface {
	NextID() int64
}

// ClockIDs issues millisecond Unix timestamps, bumped by one when two ids
// are requested within the same millisecond.
type ClockIDs struct {
	mu   sync.Mutex
	now  func() time.Time
	last int64
}

// NewClockIDs returns a clock-based generator. A nil now uses time.Now.
func NewClockIDs(now func() time.Time) *ClockIDs {
	if now == nil {
		now = time.Now
	}
	return &ClockIDs{now: now}
}

// NextID returns max(now in ms, previous+1).
func (g *ClockIDs) NextID() int64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	id := g.now().UnixMilli()
	if id <= g.last {
		id = g.last + 1
	}
	g.last = id
	return id
}

// Counter issues consecutive ids starting after Start. Tests use it for
// deterministic ids.
type Counter struct {
	mu   sync.Mutex
	next int64
}

// NewCounter returns a counter whose first id is start+1.
func NewCounter(start int64) *Counter {
	return &Counter{next: start}
}

// NextID returns the next id.
func (c *Counter) NextID() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.next++
	return c.next
}
