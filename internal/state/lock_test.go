package state

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLockAcquireRelease(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.lock")
	l := NewLock(path)

	require.NoError(t, l.Acquire(time.Second))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, strconv.Itoa(os.Getpid()), string(data))

	require.NoError(t, l.Release())
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestLockReleaseWithoutAcquireIsIdempotent(t *testing.T) {
	l := NewLock(filepath.Join(t.TempDir(), "index.lock"))
	assert.NoError(t, l.Release())
}

func TestLockReclaimsStaleHolder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.lock")
	// A pid unlikely to be alive: write it directly, bypassing Acquire.
	require.NoError(t, os.WriteFile(path, []byte("999999999"), 0o644))

	l := NewLock(path)
	require.NoError(t, l.Acquire(2*time.Second))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, strconv.Itoa(os.Getpid()), string(data))
}

func TestLockTimesOutAgainstLiveHolder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.lock")
	require.NoError(t, os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0o644))

	l := NewLock(path)
	err := l.Acquire(50 * time.Millisecond)
	assert.Error(t, err)
}
