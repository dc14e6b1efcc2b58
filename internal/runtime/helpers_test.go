package runtime

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/containust/containust/internal/imagestore"
	"github.com/containust/containust/internal/state"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *imagestore.Store {
	t.Helper()
	store, err := imagestore.Open(t.TempDir(), false)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func newTestIndex(t *testing.T) *state.Index {
	t.Helper()
	return state.OpenIndex(filepath.Join(t.TempDir(), "state.json"))
}

// newTestImageDir creates a throwaway directory suitable for a file://
// image source: resolveFile only requires the directory to exist and
// contain something to hash, not any particular layout.
func newTestImageDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "marker"), []byte("containust-test-image"), 0o644))
	return dir
}
