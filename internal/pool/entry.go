package pool

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Resource is anything the pool can lease out and reclaim: a physical,
// authenticated session. internal/session.Session implements this so the
// pool never needs to know about the MySQL wire protocol.
type Resource interface {
	// Close tears the resource down permanently (transport + socket).
	Close() error
	// Reset clears session state (rolls back open transactions, restores
	// autocommit, clears temp tables/prepared statements) before the
	// resource is returned to idle, per spec.md §4.6 "Session reset on
	// return". An error here means the resource cannot be safely reused.
	Reset(ctx context.Context) error
	// Ping validates liveness, used for idle-entry revalidation and
	// is_valid(timeout).
	Ping(ctx context.Context, timeout time.Duration) error
	// RunTestQuery validates liveness by executing query instead of
	// COM_PING, used when Config.ConnectionTestQuery is set.
	RunTestQuery(ctx context.Context, query string, timeout time.Duration) error
}

// Factory creates a new, authenticated Resource.
type Factory func(ctx context.Context) (Resource, error)

type entryState int

const (
	stateNew entryState = iota
	stateAuthenticating
	stateIdle
	stateLeased
	stateClosing
	stateClosed
)

// entry is one slot in the pool's arena. Entries are never moved or
// reallocated; a Lease references one by (id, generation) so that a
// stale release — one issued against an entry that has since been
// recycled for a different physical connection — is detected rather than
// silently corrupting pool accounting, per the arena-of-entries design in
// spec.md Design Notes §9.
type entry struct {
	id         uuid.UUID
	generation uint64

	state      entryState
	resource   Resource
	createdAt  time.Time
	lastUsedAt time.Time
	leasedAt   time.Time
}

// Lease is the caller-visible handle returned by Pool.Acquire. It carries
// enough identity to validate a Release call against the entry it came
// from without exposing the entry itself.
type Lease struct {
	EntryID    uuid.UUID
	Generation uint64
	Resource   Resource
}

func newEntry() *entry {
	return &entry{id: uuid.New(), state: stateNew}
}

// recycle bumps the generation counter and installs a new resource in
// place of a closed one, invalidating any outstanding Lease referencing
// the old generation.
func (e *entry) recycle(r Resource) {
	e.generation++
	e.resource = r
	e.state = stateIdle
	now := time.Now()
	e.createdAt = now
	e.lastUsedAt = now
}

func (e *entry) lease() Lease {
	e.state = stateLeased
	e.leasedAt = time.Now()
	return Lease{EntryID: e.id, Generation: e.generation, Resource: e.resource}
}
