package pool

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeResource is a no-op Resource double standing in for an
// internal/session.Session, letting the pool's lease/release/validate
// bookkeeping be tested without a real network connection.
type fakeResource struct {
	closed    int32
	failPing  bool
	failReset bool
}

func (f *fakeResource) Close() error {
	atomic.StoreInt32(&f.closed, 1)
	return nil
}

func (f *fakeResource) Reset(ctx context.Context) error {
	if f.failReset {
		return assert.AnError
	}
	return nil
}

func (f *fakeResource) Ping(ctx context.Context, timeout time.Duration) error {
	if f.failPing {
		return assert.AnError
	}
	return nil
}

func (f *fakeResource) RunTestQuery(ctx context.Context, query string, timeout time.Duration) error {
	if f.failPing {
		return assert.AnError
	}
	return nil
}

func newTestPool(cfg Config) (*Pool, *[]*fakeResource) {
	var made []*fakeResource
	factory := func(ctx context.Context) (Resource, error) {
		r := &fakeResource{}
		made = append(made, r)
		return r, nil
	}
	return New(cfg, factory, nil), &made
}

func TestPool_AcquireRelease_StatsInvariant(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxConnections = 3
	p, _ := newTestPool(cfg)

	ctx := context.Background()
	l1, err := p.Acquire(ctx)
	require.NoError(t, err)
	l2, err := p.Acquire(ctx)
	require.NoError(t, err)

	stats := p.Stats()
	assert.Equal(t, 2, stats.CurrentSize)
	assert.Equal(t, 2, stats.LeasedCount)
	assert.Equal(t, 0, stats.IdleCount)
	assert.Equal(t, stats.IdleCount+stats.LeasedCount, stats.CurrentSize, "idle+leased must equal current_size")

	require.NoError(t, p.Release(ctx, l1))
	stats = p.Stats()
	assert.Equal(t, 1, stats.IdleCount)
	assert.Equal(t, 1, stats.LeasedCount)
	assert.Equal(t, stats.IdleCount+stats.LeasedCount, stats.CurrentSize)

	require.NoError(t, p.Release(ctx, l2))
	stats = p.Stats()
	assert.Equal(t, 2, stats.IdleCount)
	assert.Equal(t, 0, stats.LeasedCount)
}

func TestPool_NeverExceedsMaxConnections(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxConnections = 2
	cfg.ConnectionTimeout = 100 * time.Millisecond
	p, _ := newTestPool(cfg)

	ctx := context.Background()
	_, err := p.Acquire(ctx)
	require.NoError(t, err)
	_, err = p.Acquire(ctx)
	require.NoError(t, err)

	_, err = p.Acquire(ctx)
	assert.Error(t, err, "a third acquire beyond MaxConnections must time out rather than exceed the cap")
	var timeoutErr *TimeoutError
	assert.ErrorAs(t, err, &timeoutErr)
	assert.LessOrEqual(t, p.Stats().CurrentSize, cfg.MaxConnections)
}

func TestPool_ReleaseWakesWaitingAcquirer(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxConnections = 1
	cfg.ConnectionTimeout = 2 * time.Second
	p, _ := newTestPool(cfg)

	ctx := context.Background()
	l1, err := p.Acquire(ctx)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := p.Acquire(ctx)
		done <- err
	}()

	// Give the second Acquire time to enqueue as a FIFO waiter before the
	// first lease is released.
	time.Sleep(20 * time.Millisecond)
	require.NoError(t, p.Release(ctx, l1))

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("waiter was never woken after Release")
	}
}

func TestPool_StaleReleaseIsIgnoredNotCorrupting(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxConnections = 1
	p, _ := newTestPool(cfg)

	ctx := context.Background()
	l, err := p.Acquire(ctx)
	require.NoError(t, err)
	require.NoError(t, p.Release(ctx, l))

	// The lease's generation still matches the entry, since nothing has
	// recycled it; bump it by hand to simulate a recycle and assert the
	// generation check rejects the mismatched release.
	stale := l
	stale.Generation++

	err = p.Release(ctx, stale)
	assert.NoError(t, err, "a stale release must be a silent no-op, not an error")
	assert.Equal(t, 1, p.Stats().IdleCount, "the real entry must remain idle and untouched by the stale release")
}

func TestPool_ReleaseOfFailedResetDiscardsEntry(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxConnections = 1
	p, made := newTestPool(cfg)

	ctx := context.Background()
	l, err := p.Acquire(ctx)
	require.NoError(t, err)
	(*made)[0].failReset = true

	require.NoError(t, p.Release(ctx, l))
	assert.Equal(t, 0, p.Stats().CurrentSize, "a resource that fails Reset on release must be discarded, not recycled")
	assert.Equal(t, int32(1), atomic.LoadInt32(&(*made)[0].closed))
}

func TestPool_IdleEntryFailingValidationIsDiscardedAndReplaced(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxConnections = 1
	cfg.IdleTimeout = time.Hour
	p, made := newTestPool(cfg)

	ctx := context.Background()
	l, err := p.Acquire(ctx)
	require.NoError(t, err)
	require.NoError(t, p.Release(ctx, l))

	(*made)[0].failPing = true

	l2, err := p.Acquire(ctx)
	require.NoError(t, err, "a failed validation must fall through to creating a fresh entry, not fail outright")
	assert.NotNil(t, l2.Resource)
	assert.NotSame(t, (*made)[0], l2.Resource, "the unhealthy resource must not be handed back out")
}

func TestPool_CloseDrainsIdleAndRejectsNewAcquires(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxConnections = 2
	p, made := newTestPool(cfg)

	ctx := context.Background()
	l, err := p.Acquire(ctx)
	require.NoError(t, err)
	require.NoError(t, p.Release(ctx, l))

	p.Close()

	assert.Equal(t, int32(1), atomic.LoadInt32(&(*made)[0].closed))

	_, err = p.Acquire(ctx)
	assert.ErrorIs(t, err, ErrClosed)
}
