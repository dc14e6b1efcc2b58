package ctst

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/containust/containust/internal/imagestore"
	"github.com/containust/containust/internal/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine(t *testing.T) (*Engine, *imagestore.Store, *state.Index) {
	t.Helper()
	store, err := imagestore.Open(t.TempDir(), false)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	index := state.OpenIndex(filepath.Join(t.TempDir(), "state.json"))

	e, err := NewEngine(EngineOptions{Backend: newFakeBackend(), Images: store, Index: index})
	require.NoError(t, err)
	t.Cleanup(e.Close)
	return e, store, index
}

func TestNewEngineRequiresBackend(t *testing.T) {
	store, err := imagestore.Open(t.TempDir(), false)
	require.NoError(t, err)
	defer store.Close()
	index := state.OpenIndex(filepath.Join(t.TempDir(), "state.json"))

	_, err = NewEngine(EngineOptions{Images: store, Index: index})
	require.Error(t, err)
}

func TestEngineDeployAndShutdown(t *testing.T) {
	e, _, index := newTestEngine(t)
	ctx := context.Background()

	r := NewGraphResolver(t.TempDir(), false)
	g, err := r.Resolve(writeSingleComponentComposition(t))
	require.NoError(t, err)
	require.NoError(t, e.Deploy(ctx, g))

	recs, err := index.List()
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, state.StateRunning, recs[0].State)

	require.NoError(t, e.Shutdown(ctx, g, false))
	recs, err = index.List()
	require.NoError(t, err)
	assert.Equal(t, state.StateStopped, recs[0].State)
}

func TestEngineStopResolvesByName(t *testing.T) {
	e, _, index := newTestEngine(t)
	ctx := context.Background()

	r := NewGraphResolver(t.TempDir(), false)
	g, err := r.Resolve(writeSingleComponentComposition(t))
	require.NoError(t, err)
	require.NoError(t, e.Deploy(ctx, g))

	recs, err := index.List()
	require.NoError(t, err)
	require.Len(t, recs, 1)

	require.NoError(t, e.Stop(ctx, recs[0].Name, false))
}

func TestEngineImagesListsResolvedLayers(t *testing.T) {
	e, _, _ := newTestEngine(t)
	ctx := context.Background()

	r := NewGraphResolver(t.TempDir(), false)
	g, err := r.Resolve(writeSingleComponentComposition(t))
	require.NoError(t, err)
	require.NoError(t, e.Deploy(ctx, g))

	imgs, err := e.Images()
	require.NoError(t, err)
	require.Len(t, imgs, 1)
	assert.Equal(t, 1, imgs[0].RefCount)
}

func TestEngineRemoveImageRefusesWhileReferenced(t *testing.T) {
	e, _, _ := newTestEngine(t)
	ctx := context.Background()

	r := NewGraphResolver(t.TempDir(), false)
	g, err := r.Resolve(writeSingleComponentComposition(t))
	require.NoError(t, err)
	require.NoError(t, e.Deploy(ctx, g))

	imgs, err := e.Images()
	require.NoError(t, err)
	require.Len(t, imgs, 1)

	err = e.RemoveImage(imgs[0].Hash.String())
	require.Error(t, err)
}

// writeSingleComponentComposition writes a one-component composition whose
// image URI points at a freshly created temp directory, so imagestore can
// resolve it as a file:// source without any network access.
func writeSingleComponentComposition(t *testing.T) string {
	t.Helper()
	imgDir := t.TempDir()
	content := "COMPONENT app { image = \"file://" + imgDir + "\" }\n"
	return writeComposition(t, content)
}
