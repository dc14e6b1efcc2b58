package state

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/containust/containust/internal/ctsterr"
	"github.com/containust/containust/internal/identity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestIndex(t *testing.T) *Index {
	return OpenIndex(filepath.Join(t.TempDir(), "state.json"))
}

func TestIndexInsertAndList(t *testing.T) {
	ix := newTestIndex(t)
	img := identity.NewImageID([]identity.ContentHash{identity.NewContentHash([]byte("base")), identity.NewContentHash([]byte("overlay"))})
	rec := Record{ID: "abc12345", Name: "web", Image: img, State: StateCreated, CreatedAt: time.Now()}

	require.NoError(t, ix.Insert(rec))

	records, err := ix.List()
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "web", records[0].Name)
}

func TestIndexListOnMissingFileIsEmpty(t *testing.T) {
	ix := newTestIndex(t)
	records, err := ix.List()
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestIndexUpdateChangesStateAndPID(t *testing.T) {
	ix := newTestIndex(t)
	require.NoError(t, ix.Insert(Record{ID: "abc12345", Name: "web", State: StateCreated}))

	require.NoError(t, ix.Update("abc12345", StateRunning, 4242))

	records, err := ix.List()
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, StateRunning, records[0].State)
	assert.Equal(t, 4242, records[0].PID)
}

func TestIndexRemoveDeletesRecord(t *testing.T) {
	ix := newTestIndex(t)
	require.NoError(t, ix.Insert(Record{ID: "abc12345", Name: "web"}))
	require.NoError(t, ix.Insert(Record{ID: "def67890", Name: "db"}))

	require.NoError(t, ix.Remove("abc12345"))

	records, err := ix.List()
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "db", records[0].Name)
}

func TestFindByNameOrPrefixExactName(t *testing.T) {
	ix := newTestIndex(t)
	require.NoError(t, ix.Insert(Record{ID: "abc12345", Name: "web"}))

	rec, err := ix.FindByNameOrPrefix("web")
	require.NoError(t, err)
	assert.Equal(t, "abc12345", rec.ID)
}

func TestFindByNameOrPrefixUnambiguousID(t *testing.T) {
	ix := newTestIndex(t)
	require.NoError(t, ix.Insert(Record{ID: "abc12345ffff", Name: "web"}))

	rec, err := ix.FindByNameOrPrefix("abc12345")
	require.NoError(t, err)
	assert.Equal(t, "abc12345ffff", rec.ID)
}

func TestFindByNameOrPrefixAmbiguousIsError(t *testing.T) {
	ix := newTestIndex(t)
	require.NoError(t, ix.Insert(Record{ID: "abc12345aaaa", Name: "web"}))
	require.NoError(t, ix.Insert(Record{ID: "abc12345bbbb", Name: "db"}))

	_, err := ix.FindByNameOrPrefix("abc12345")
	require.Error(t, err)
	assert.Equal(t, ctsterr.CodeAmbiguousRef, ctsterr.GetCode(err))
}

func TestFindByNameOrPrefixNoMatchIsNotFound(t *testing.T) {
	ix := newTestIndex(t)
	_, err := ix.FindByNameOrPrefix("ghost")
	require.Error(t, err)
	assert.Equal(t, ctsterr.CodeContainerNotFound, ctsterr.GetCode(err))
}

func TestIndexCorruptFileSurfacesStateCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0o644))

	ix := OpenIndex(path)
	_, err := ix.List()
	require.Error(t, err)
	assert.Equal(t, ctsterr.CodeStateCorrupt, ctsterr.GetCode(err))
}

func TestIndexPersistsVersionedEnvelope(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	mem := int64(128 << 20)
	rec := Record{ID: "abc12345", Name: "web", State: StateCreated, Limits: Limits{MemoryBytes: &mem}}
	require.NoError(t, OpenIndex(path).Insert(rec))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"version": 1`)
	assert.Contains(t, string(data), `"containers"`)
	assert.Contains(t, string(data), `"memory_bytes": 134217728`)
}

func TestIndexPersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, OpenIndex(path).Insert(Record{ID: "abc12345", Name: "web"}))

	records, err := OpenIndex(path).List()
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "web", records[0].Name)
}
