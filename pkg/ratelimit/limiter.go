package ratelimit

import (
	"context"
	"sync"
	"time"
)

// DefaultPageDelay is the pause between successive history page requests
const DefaultPageDelay = 250 * time.Millisecond

// Limiter defines the interface for request pacing
type Limiter interface {
	// Wait blocks until the next request may be issued
	Wait(ctx context.Context) error
	// Reset makes the next Wait return immediately
	Reset()
}

// Interval lets the first request through at once and pauses a fixed
// delay before each one after it.
type Interval struct {
	delay   time.Duration
	started bool
	mu      sync.Mutex
}

// NewInterval creates a pacer with the given delay
func NewInterval(delay time.Duration) *Interval {
	return &Interval{delay: delay}
}

// Wait pauses for the configured delay unless this is the first call
func (iv *Interval) Wait(ctx context.Context) error {
	iv.mu.Lock()
	first := !iv.started
	iv.started = true
	iv.mu.Unlock()

	if first || iv.delay <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(iv.delay)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Reset makes the next Wait behave like the first
func (iv *Interval) Reset() {
	iv.mu.Lock()
	defer iv.mu.Unlock()
	iv.started = false
}
