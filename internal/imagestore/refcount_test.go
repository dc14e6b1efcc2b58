package imagestore

import (
	"path/filepath"
	"testing"

	"github.com/containust/containust/internal/identity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRefcounts(t *testing.T) *refcounts {
	r, err := openRefcounts(filepath.Join(t.TempDir(), "layers.db"))
	require.NoError(t, err)
	t.Cleanup(func() { r.Close() })
	return r
}

func TestRefcountsAcquireIncrementsFromZero(t *testing.T) {
	r := newTestRefcounts(t)
	hash := identity.NewContentHash([]byte("layer"))

	count, err := r.Acquire(hash)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	count, err = r.Acquire(hash)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestRefcountsReleaseDecrements(t *testing.T) {
	r := newTestRefcounts(t)
	hash := identity.NewContentHash([]byte("layer"))

	_, err := r.Acquire(hash)
	require.NoError(t, err)
	_, err = r.Acquire(hash)
	require.NoError(t, err)

	count, err := r.Release(hash)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestRefcountsReleaseNeverGoesNegative(t *testing.T) {
	r := newTestRefcounts(t)
	hash := identity.NewContentHash([]byte("never-acquired"))

	count, err := r.Release(hash)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestRefcountsCountIsReadOnly(t *testing.T) {
	r := newTestRefcounts(t)
	hash := identity.NewContentHash([]byte("layer"))

	_, err := r.Acquire(hash)
	require.NoError(t, err)

	count, err := r.Count(hash)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	count, err = r.Count(hash)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestRefcountsPersistAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "layers.db")
	hash := identity.NewContentHash([]byte("layer"))

	r1, err := openRefcounts(path)
	require.NoError(t, err)
	_, err = r1.Acquire(hash)
	require.NoError(t, err)
	require.NoError(t, r1.Close())

	r2, err := openRefcounts(path)
	require.NoError(t, err)
	defer r2.Close()

	count, err := r2.Count(hash)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
