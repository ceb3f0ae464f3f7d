package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateMachine_BeginEndRoundTrip(t *testing.T) {
	var m stateMachine
	assert.Equal(t, StateIdle, m.current())

	require.NoError(t, m.begin(StateInQuery))
	assert.Equal(t, StateInQuery, m.current())

	m.end()
	assert.Equal(t, StateIdle, m.current())
}

func TestStateMachine_RejectsSecondInFlightCommand(t *testing.T) {
	var m stateMachine
	require.NoError(t, m.begin(StateInQuery))

	err := m.begin(StateInExecute)
	assert.Error(t, err, "a second command must be rejected while one is already in flight")
	assert.Equal(t, StateInQuery, m.current(), "the original in-flight state must be unaffected by the rejected attempt")
}

func TestStateMachine_ClosedRejectsFurtherCommands(t *testing.T) {
	var m stateMachine
	m.close()

	err := m.begin(StateInQuery)
	assert.Error(t, err)
	assert.Equal(t, StateClosed, m.current())
}

func TestStateMachine_EndReturnsToIdleFromAnyInFlightState(t *testing.T) {
	var m stateMachine
	require.NoError(t, m.begin(StateInPrepare))
	m.end()
	assert.Equal(t, StateIdle, m.current())

	require.NoError(t, m.begin(StateInExecute))
	m.end()
	assert.Equal(t, StateIdle, m.current())
}
