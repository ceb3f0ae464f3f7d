// Package pool implements the connection pool of spec.md §4.6 (C6): an
// arena of entries indexed by id, a FIFO waiter queue, a maintainer loop
// enforcing min/idle/max, and leak detection — grounded on the shape of
// vitess's pools.ResourcePool, generalized with the generation-counter
// lease validation spec.md's Design Notes call for.
package pool

import (
	"container/list"
	"context"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"

	"github.com/takapi327/ldbc-sub016/internal/logging"
)

// Pool manages a bounded set of Resources behind Acquire/Release.
type Pool struct {
	cfg     Config
	factory Factory
	log     logging.Logger

	mu       sync.Mutex
	entries  map[uuid.UUID]*entry
	idle     *list.List // of *entry, LIFO: most-recently-returned first
	waiters  *list.List // of *waiter, FIFO
	draining bool

	maintainerStop chan struct{}
	maintainerDone chan struct{}
}

type waiter struct {
	ch chan acquireResult
}

type acquireResult struct {
	lease Lease
	err   error
}

// New creates a Pool. It does not pre-create MinConnections connections
// synchronously; the maintainer loop brings the pool up to MinConnections
// in the background once Start is called.
func New(cfg Config, factory Factory, log logging.Logger) *Pool {
	if log == nil {
		log = logging.Noop()
	}
	p := &Pool{
		cfg:     cfg.normalize(),
		factory: factory,
		log:     log,
		entries: make(map[uuid.UUID]*entry),
		idle:    list.New(),
		waiters: list.New(),
	}
	return p
}

// Start launches the maintainer loop: every KeepAliveInterval (one minute
// when unset) it tops up to MinConnections, evicts idle entries past
// IdleTimeout or MaxLifetime, and logs leases held past
// LeakDetectionThreshold. The loop does not ping idle entries; they are
// validated only when Acquire hands them out. Callers that don't
// need background maintenance (tests, short-lived tools) can skip calling
// Start and rely purely on Acquire/Release.
func (p *Pool) Start(ctx context.Context) {
	p.maintainerStop = make(chan struct{})
	p.maintainerDone = make(chan struct{})
	go p.maintain(ctx)
}

// Acquire implements the lease algorithm of spec.md §4.6:
//  1. pop an idle entry if one validates, else
//  2. create a new entry if current_size < max, else
//  3. enqueue as a FIFO waiter until connection_timeout.
func (p *Pool) Acquire(ctx context.Context) (Lease, error) {
	deadline := time.Now().Add(p.cfg.ConnectionTimeout)
	ctx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()

	for {
		lease, w, err := p.tryAcquireOrEnqueue(ctx)
		if err != nil {
			return Lease{}, err
		}
		if w == nil {
			return lease, nil
		}

		select {
		case res := <-w.ch:
			if res.err == ErrRetry {
				continue
			}
			if res.err != nil {
				return Lease{}, res.err
			}
			return res.lease, nil
		case <-ctx.Done():
			p.removeWaiter(w)
			return Lease{}, &TimeoutError{Waited: p.cfg.ConnectionTimeout}
		}
	}
}

// tryAcquireOrEnqueue returns either a ready Lease, or a waiter to block
// on, or an error. It retries idle-entry validation failures internally
// (bounded by ctx's deadline) via cenkalti/backoff, matching spec.md's
// "On failure, discard and retry (bounded by connection_timeout)".
func (p *Pool) tryAcquireOrEnqueue(ctx context.Context) (Lease, *waiter, error) {
	boff := backoff.WithContext(backoff.NewExponentialBackOff(), ctx)

	for {
		p.mu.Lock()
		if p.draining {
			p.mu.Unlock()
			return Lease{}, nil, ErrClosed
		}

		if el := p.idle.Front(); el != nil {
			e := el.Value.(*entry)
			p.idle.Remove(el)
			p.mu.Unlock()

			if p.validate(ctx, e) {
				p.mu.Lock()
				lease := e.lease()
				p.mu.Unlock()
				return lease, nil, nil
			}
			p.discard(e)
			p.mu.Lock()
			delete(p.entries, e.id)
			p.mu.Unlock()

			wait := boff.NextBackOff()
			if wait == backoff.Stop {
				return Lease{}, nil, &TimeoutError{Waited: p.cfg.ConnectionTimeout}
			}
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return Lease{}, nil, &TimeoutError{Waited: p.cfg.ConnectionTimeout}
			}
			continue
		}

		if len(p.entries) < p.cfg.MaxConnections {
			e := newEntry()
			p.entries[e.id] = e
			p.mu.Unlock()

			lease, err := p.createInto(ctx, e)
			if err != nil {
				p.mu.Lock()
				delete(p.entries, e.id)
				p.mu.Unlock()
				return Lease{}, nil, err
			}
			return lease, nil, nil
		}

		w := &waiter{ch: make(chan acquireResult, 1)}
		p.waiters.PushBack(w)
		p.mu.Unlock()
		return Lease{}, w, nil
	}
}

func (p *Pool) createInto(ctx context.Context, e *entry) (Lease, error) {
	r, err := p.newResource(ctx, e)
	if err != nil {
		return Lease{}, err
	}
	p.mu.Lock()
	e.recycle(r)
	lease := e.lease()
	p.mu.Unlock()
	return lease, nil
}

// createIdle is like createInto but leaves the entry Idle rather than
// Leased, for the maintainer's min-connection top-up.
func (p *Pool) createIdle(ctx context.Context, e *entry) error {
	r, err := p.newResource(ctx, e)
	if err != nil {
		return err
	}
	p.mu.Lock()
	e.recycle(r)
	p.mu.Unlock()
	return nil
}

func (p *Pool) newResource(ctx context.Context, e *entry) (Resource, error) {
	_ = e
	return p.factory(ctx)
}

// validate runs the configured test query/ping against an idle entry
// before handing it out, per spec.md §4.6 step 1.
func (p *Pool) validate(ctx context.Context, e *entry) bool {
	if e.resource == nil {
		return false
	}
	if p.cfg.IdleTimeout > 0 && time.Since(e.lastUsedAt) > p.cfg.IdleTimeout {
		return false
	}
	vctx, cancel := context.WithTimeout(ctx, p.cfg.ValidationTimeout)
	defer cancel()
	var err error
	if p.cfg.ConnectionTestQuery != "" {
		err = e.resource.RunTestQuery(vctx, p.cfg.ConnectionTestQuery, p.cfg.ValidationTimeout)
	} else {
		err = e.resource.Ping(vctx, p.cfg.ValidationTimeout)
	}
	if err != nil {
		p.log.Warnf("pool: idle entry %s failed validation: %v", e.id, err)
		return false
	}
	return true
}

func (p *Pool) discard(e *entry) {
	if e.resource != nil {
		_ = e.resource.Close()
	}
	p.mu.Lock()
	e.state = stateClosed
	e.resource = nil
	p.mu.Unlock()
}

// Release returns a leased Resource to idle, per spec.md §4.6 step 4: if
// the resource is healthy and resets to a fresh baseline, it rejoins the
// idle set and wakes one FIFO waiter; otherwise it is closed and the
// entry is freed for recreation.
func (p *Pool) Release(ctx context.Context, l Lease) error {
	p.mu.Lock()
	e, ok := p.entries[l.EntryID]
	if !ok || e.generation != l.Generation {
		p.mu.Unlock()
		// Stale release: the entry was already recycled or removed.
		// Nothing to do — the caller's view of the world is out of date,
		// not an error worth surfacing.
		return nil
	}
	if p.draining {
		delete(p.entries, e.id)
		p.mu.Unlock()
		p.discard(e)
		return nil
	}
	p.mu.Unlock()

	if err := l.Resource.Reset(ctx); err != nil {
		p.log.Warnf("pool: entry %s failed reset on release, closing: %v", e.id, err)
		p.discard(e)
		p.mu.Lock()
		delete(p.entries, e.id)
		p.mu.Unlock()
		p.wakeOneWaiter()
		return nil
	}

	p.mu.Lock()
	e.state = stateIdle
	e.lastUsedAt = time.Now()
	if p.handWaiter(e) {
		p.mu.Unlock()
		return nil
	}
	p.idle.PushFront(e)
	p.mu.Unlock()
	return nil
}

// handWaiter must be called with p.mu held. If a waiter is queued, it
// hands the entry directly to the oldest one instead of pushing to idle,
// keeping the FIFO fairness guarantee of spec.md §5.
func (p *Pool) handWaiter(e *entry) bool {
	el := p.waiters.Front()
	if el == nil {
		return false
	}
	p.waiters.Remove(el)
	w := el.Value.(*waiter)
	lease := e.lease()
	w.ch <- acquireResult{lease: lease}
	return true
}

func (p *Pool) wakeOneWaiter() {
	p.mu.Lock()
	el := p.waiters.Front()
	if el == nil {
		p.mu.Unlock()
		return
	}
	p.waiters.Remove(el)
	p.mu.Unlock()
	w := el.Value.(*waiter)
	w.ch <- acquireResult{err: ErrRetry}
}

func (p *Pool) removeWaiter(target *waiter) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for el := p.waiters.Front(); el != nil; el = el.Next() {
		if el.Value.(*waiter) == target {
			p.waiters.Remove(el)
			return
		}
	}
}

// maintain runs the min/idle/max upkeep loop: top up to MinConnections,
// evict idle entries past IdleTimeout, rotate entries past MaxLifetime,
// and warn about leased entries held past LeakDetectionThreshold, until
// Close or ctx cancellation.
func (p *Pool) maintain(ctx context.Context) {
	defer close(p.maintainerDone)
	interval := p.cfg.KeepAliveInterval
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.maintainerStop:
			return
		case <-ticker.C:
			p.topUp(ctx)
			p.evictExpired(ctx)
			p.detectLeaks()
		}
	}
}

// detectLeaks warns about entries held leased longer than
// LeakDetectionThreshold, per spec.md §4.6. It only logs; a leaked lease
// is still the caller's to release or let Close tear down.
func (p *Pool) detectLeaks() {
	if p.cfg.LeakDetectionThreshold <= 0 {
		return
	}
	now := time.Now()
	p.mu.Lock()
	defer p.mu.Unlock()
	for id, e := range p.entries {
		if e.state == stateLeased && now.Sub(e.leasedAt) > p.cfg.LeakDetectionThreshold {
			p.log.Warnf("pool: entry %s has been leased for %s, exceeding leak_detection_threshold %s", id, now.Sub(e.leasedAt), p.cfg.LeakDetectionThreshold)
		}
	}
}

func (p *Pool) topUp(ctx context.Context) {
	p.mu.Lock()
	deficit := p.cfg.MinConnections - len(p.entries)
	p.mu.Unlock()
	for i := 0; i < deficit; i++ {
		e := newEntry()
		p.mu.Lock()
		p.entries[e.id] = e
		p.mu.Unlock()
		if err := p.createIdle(ctx, e); err != nil {
			p.log.Warnf("pool: maintainer failed to top up connection: %v", err)
			p.mu.Lock()
			delete(p.entries, e.id)
			p.mu.Unlock()
			continue
		}
		p.mu.Lock()
		p.idle.PushBack(e)
		p.mu.Unlock()
	}
}

func (p *Pool) evictExpired(ctx context.Context) {
	now := time.Now()
	var toClose []*entry

	p.mu.Lock()
	for el := p.idle.Front(); el != nil; {
		next := el.Next()
		e := el.Value.(*entry)
		expired := (p.cfg.IdleTimeout > 0 && now.Sub(e.lastUsedAt) > p.cfg.IdleTimeout) ||
			(p.cfg.MaxLifetime > 0 && now.Sub(e.createdAt) > p.cfg.MaxLifetime)
		if expired && len(p.entries) > p.cfg.MinConnections {
			p.idle.Remove(el)
			delete(p.entries, e.id)
			toClose = append(toClose, e)
		}
		el = next
	}
	p.mu.Unlock()

	for _, e := range toClose {
		p.discard(e)
	}
}

// Close drains the pool: stops the maintainer, closes every idle entry,
// and marks the pool so in-flight Acquire calls fail fast. Leased entries
// are closed as they are Released rather than forcibly torn down.
func (p *Pool) Close() {
	p.mu.Lock()
	p.draining = true
	var toClose []*entry
	for el := p.idle.Front(); el != nil; el = el.Next() {
		toClose = append(toClose, el.Value.(*entry))
	}
	p.idle.Init()
	for _, e := range toClose {
		delete(p.entries, e.id)
	}
	p.mu.Unlock()

	for _, e := range toClose {
		p.discard(e)
	}
	if p.maintainerStop != nil {
		close(p.maintainerStop)
		<-p.maintainerDone
	}
}

// Stats reports a point-in-time snapshot of pool occupancy, satisfying
// the invariant idle_count + leased_count = current_size.
type Stats struct {
	CurrentSize int
	IdleCount   int
	LeasedCount int
	WaiterCount int
}

func (p *Pool) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Stats{
		CurrentSize: len(p.entries),
		IdleCount:   p.idle.Len(),
		LeasedCount: len(p.entries) - p.idle.Len(),
		WaiterCount: p.waiters.Len(),
	}
}
