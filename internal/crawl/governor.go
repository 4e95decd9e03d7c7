package crawl

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"
)

// DefaultPermits is the number of jobs allowed in their fetch phase at once
const DefaultPermits = 3

// Governor bounds how many jobs page through history concurrently.
// Waiters are served in FIFO order.
type Governor struct {
	sem      *semaphore.Weighted
	capacity int64
}

// NewGovernor creates a governor with n permits
func NewGovernor(n int) *Governor {
	if n < 1 {
		n = 1
	}
	return &Governor{sem: semaphore.NewWeighted(int64(n)), capacity: int64(n)}
}

// Capacity returns the number of permits
func (g *Governor) Capacity() int {
	return int(g.capacity)
}

// Acquire blocks until a permit is free or ctx is done
func (g *Governor) Acquire(ctx context.Context) (*Permit, error) {
	if err := g.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	return &Permit{sem: g.sem}, nil
}

// TryAcquire returns a permit only if one is free right now
func (g *Governor) TryAcquire() (*Permit, bool) {
	if !g.sem.TryAcquire(1) {
		return nil, false
	}
	return &Permit{sem: g.sem}, true
}

// Permit is one slot of a Governor
type Permit struct {
	sem  *semaphore.Weighted
	once sync.Once
}

// Release returns the slot. Calls after the first are no-ops.
func (p *Permit) Release() {
	if p == nil {
		return
	}
	p.once.Do(func() { p.sem.Release(1) })
}
