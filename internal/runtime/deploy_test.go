package runtime

import (
	"context"
	"errors"
	"testing"

	"github.com/containust/containust/internal/ctstlang"
	"github.com/containust/containust/internal/graph"
	"github.com/containust/containust/internal/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func twoPhaseComposition(t *testing.T) (*ctstlang.Composition, *graph.Plan) {
	t.Helper()
	imgDir := "file://" + newTestImageDir(t)
	comp := &ctstlang.Composition{
		Components: []ctstlang.Component{
			{Name: "db", ImageURI: imgDir, Ports: []int{5432}},
			{Name: "web", ImageURI: imgDir, Command: []string{"serve"}},
		},
		Connects: []ctstlang.ConnectionEdge{{Source: "web", Target: "db"}},
	}
	plan, err := graph.Build(comp)
	require.NoError(t, err)
	return comp, plan
}

func TestDeployStartsEveryComponentInPhaseOrder(t *testing.T) {
	backend := newFakeBackend()
	e := newTestEngine(t, "")
	e.backend = backend
	comp, plan := twoPhaseComposition(t)

	err := e.Deploy(context.Background(), comp, plan)
	require.NoError(t, err)

	assert.Len(t, backend.created, 2)
	for _, running := range backend.running {
		assert.True(t, running)
	}

	records, err := e.index.List()
	require.NoError(t, err)
	assert.Len(t, records, 2)
	for _, r := range records {
		assert.Equal(t, state.StateRunning, r.State)
	}

	for _, id := range e.monitors {
		assert.NotNil(t, id)
	}
	e.Close()
}

func TestDeployInjectsConnectionEnvVars(t *testing.T) {
	backend := newFakeBackend()
	e := newTestEngine(t, "")
	e.backend = backend
	comp, plan := twoPhaseComposition(t)

	require.NoError(t, e.Deploy(context.Background(), comp, plan))

	found := false
	for _, cfg := range backend.created {
		for _, kv := range cfg.Env {
			if kv == "DB_HOST=db" {
				found = true
			}
		}
	}
	assert.True(t, found, "expected web's config to carry DB_HOST=db")
	e.Close()
}

func TestDeployRollsBackOnComponentFailure(t *testing.T) {
	backend := newFakeBackend()
	e := newTestEngine(t, "")
	e.backend = backend
	comp, plan := twoPhaseComposition(t)
	backend.startErr = errors.New("start failed")

	err := e.Deploy(context.Background(), comp, plan)
	assert.Error(t, err)

	records, listErr := e.index.List()
	require.NoError(t, listErr)
	for _, r := range records {
		assert.Equal(t, state.StateStopped, r.State)
	}
}
