package state

import (
	"testing"

	"github.com/containust/containust/internal/ctsterr"
	"github.com/stretchr/testify/assert"
)

func TestContainerStateString(t *testing.T) {
	tests := []struct {
		state    ContainerState
		expected string
	}{
		{StateCreated, "created"},
		{StateRunning, "running"},
		{StateStopped, "stopped"},
		{StateFailed, "failed"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.state.String())
		})
	}
}

func TestContainerStateHelpers(t *testing.T) {
	assert.True(t, StateStopped.IsTerminal())
	assert.True(t, StateFailed.IsTerminal())
	assert.False(t, StateCreated.IsTerminal())
	assert.False(t, StateRunning.IsTerminal())

	assert.True(t, StateRunning.CanStop())
	assert.False(t, StateStopped.CanStop())

	assert.True(t, StateRunning.CanExec())
	assert.False(t, StateCreated.CanExec())
}

func TestCanTransition(t *testing.T) {
	assert.True(t, CanTransition(StateCreated, StateRunning))
	assert.True(t, CanTransition(StateRunning, StateStopped))
	assert.True(t, CanTransition(StateRunning, StateFailed))

	assert.False(t, CanTransition(StateCreated, StateStopped))
	assert.False(t, CanTransition(StateStopped, StateRunning))
	assert.False(t, CanTransition(StateFailed, StateRunning))
}

func TestTransitionReturnsRestartFromHaltedForTerminalToRunning(t *testing.T) {
	err := Transition(StateStopped, StateRunning)
	assert.Error(t, err)
	assert.Equal(t, ctsterr.CodeRestartFromHalted, ctsterr.GetCode(err))

	err = Transition(StateFailed, StateRunning)
	assert.Equal(t, ctsterr.CodeRestartFromHalted, ctsterr.GetCode(err))
}

func TestTransitionReturnsInvalidTransitionForOtherIllegalEdges(t *testing.T) {
	err := Transition(StateCreated, StateStopped)
	assert.Error(t, err)
	assert.Equal(t, ctsterr.CodeInvalidTransition, ctsterr.GetCode(err))
}

func TestTransitionNilOnLegalEdge(t *testing.T) {
	assert.NoError(t, Transition(StateCreated, StateRunning))
	assert.NoError(t, Transition(StateRunning, StateStopped))
}
