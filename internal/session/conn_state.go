package session

import (
	"sync/atomic"

	"github.com/pkg/errors"
)

// ConnState is the command-phase state machine of spec.md §4.4/§9: a
// session has at most one command in flight at a time, enforced here with
// a single atomic word rather than a mutex so busy-session detection never
// blocks the caller that's already holding the session.
type ConnState int32

const (
	StateIdle ConnState = iota
	StateInQuery
	StateInPrepare
	StateInExecute
	StateClosed
)

func (s ConnState) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateInQuery:
		return "InQuery"
	case StateInPrepare:
		return "InPrepare"
	case StateInExecute:
		return "InExecute"
	case StateClosed:
		return "Closed"
	default:
		return "Unknown"
	}
}

// stateMachine guards the single-in-flight-command contract.
type stateMachine struct {
	state int32
}

// begin transitions Idle → target, failing if a command is already in
// flight or the session is closed.
func (m *stateMachine) begin(target ConnState) error {
	if !atomic.CompareAndSwapInt32(&m.state, int32(StateIdle), int32(target)) {
		cur := ConnState(atomic.LoadInt32(&m.state))
		if cur == StateClosed {
			return errors.New("session: connection is closed")
		}
		return errors.Errorf("session: command rejected, connection busy in %s", cur)
	}
	return nil
}

// end transitions back to Idle, regardless of which in-flight state it was
// in (callers only ever hold one at a time by construction).
func (m *stateMachine) end() {
	atomic.StoreInt32(&m.state, int32(StateIdle))
}

func (m *stateMachine) close() {
	atomic.StoreInt32(&m.state, int32(StateClosed))
}

func (m *stateMachine) current() ConnState {
	return ConnState(atomic.LoadInt32(&m.state))
}
