package runtime

import (
	"context"
	"testing"

	"github.com/containust/containust/internal/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShutdownTearsDownInReversePhaseOrder(t *testing.T) {
	backend := newFakeBackend()
	e := newTestEngine(t, "")
	e.backend = backend
	comp, plan := twoPhaseComposition(t)

	require.NoError(t, e.Deploy(context.Background(), comp, plan))
	require.NoError(t, e.Shutdown(context.Background(), comp, plan, false))

	records, err := e.index.List()
	require.NoError(t, err)
	assert.Len(t, records, 2)
	for _, r := range records {
		assert.Equal(t, state.StateStopped, r.State)
	}
	assert.Empty(t, backend.created, "Shutdown should have removed every container")
}

func TestStopCancelsMonitorBeforeStopping(t *testing.T) {
	backend := newFakeBackend()
	e := newTestEngine(t, "")
	e.backend = backend
	comp, plan := twoPhaseComposition(t)
	require.NoError(t, e.Deploy(context.Background(), comp, plan))

	var anyID string
	for id := range backend.created {
		anyID = id
		break
	}
	require.NotEmpty(t, anyID)

	require.NoError(t, e.Stop(context.Background(), anyID, true))

	e.mu.Lock()
	_, stillMonitored := e.monitors[anyID]
	e.mu.Unlock()
	assert.False(t, stillMonitored)
}
