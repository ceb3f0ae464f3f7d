package pool

import (
	"fmt"
	"time"
)

// ErrClosed is returned by Acquire once the pool has started draining.
var ErrClosed = poolError("pool: closed")

// ErrRetry signals an internal requeue (a woken waiter whose entry was
// discarded before it could claim it); Acquire loops rather than
// surfacing this to the caller.
var ErrRetry = poolError("pool: retry")

type poolError string

func (e poolError) Error() string { return string(e) }

// TimeoutError is returned when Acquire's connection_timeout elapses
// before a Lease becomes available, per spec.md §4.6 step 3.
type TimeoutError struct {
	Waited time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("pool: timed out waiting %s for a connection", e.Waited)
}
