package crawl

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGovernorCapacity(t *testing.T) {
	g := NewGovernor(DefaultPermits)
	assert.Equal(t, 3, g.Capacity())

	var permits []*Permit
	for i := 0; i < 3; i++ {
		p, ok := g.TryAcquire()
		require.True(t, ok)
		permits = append(permits, p)
	}
	_, ok := g.TryAcquire()
	assert.False(t, ok)

	permits[0].Release()
	_, ok = g.TryAcquire()
	assert.True(t, ok)
}

func TestPermitReleaseIsIdempotent(t *testing.T) {
	g := NewGovernor(1)
	p, err := g.Acquire(context.Background())
	require.NoError(t, err)

	p.Release()
	p.Release()

	first, ok := g.TryAcquire()
	require.True(t, ok)
	_, ok = g.TryAcquire()
	assert.False(t, ok, "a double release must not mint a second permit")
	first.Release()

	var nilPermit *Permit
	assert.NotPanics(t, nilPermit.Release)
}

func TestGovernorAcquireHonoursContext(t *testing.T) {
	g := NewGovernor(1)
	held, err := g.Acquire(context.Background())
	require.NoError(t, err)
	defer held.Release()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err = g.Acquire(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestNewGovernorClampsToOne(t *testing.T) {
	assert.Equal(t, 1, NewGovernor(0).Capacity())
}
