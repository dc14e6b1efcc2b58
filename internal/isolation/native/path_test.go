package native

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveInPathAbsoluteNameIsUsedAsIs(t *testing.T) {
	t.Parallel()

	got, err := resolveInPath("/bin/sh", nil)
	require.NoError(t, err)
	assert.Equal(t, "/bin/sh", got)
}

func TestResolveInPathRelativeNameIsUsedAsIs(t *testing.T) {
	t.Parallel()

	got, err := resolveInPath("./entrypoint.sh", nil)
	require.NoError(t, err)
	assert.Equal(t, "./entrypoint.sh", got)
}

func TestResolveInPathSearchesPATH(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	bin := filepath.Join(dir, "mytool")
	require.NoError(t, os.WriteFile(bin, []byte("#!/bin/sh\n"), 0o755))

	got, err := resolveInPath("mytool", []string{"PATH=" + dir})
	require.NoError(t, err)
	assert.Equal(t, bin, got)
}

func TestResolveInPathSkipsNonExecutableMatch(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	bin := filepath.Join(dir, "mytool")
	require.NoError(t, os.WriteFile(bin, []byte("data"), 0o644))

	_, err := resolveInPath("mytool", []string{"PATH=" + dir})
	assert.Error(t, err)
}

func TestResolveInPathNotFound(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	_, err := resolveInPath("doesnotexist", []string{"PATH=" + dir})
	assert.Error(t, err)
}

func TestResolveInPathFallsBackToDefaultPATH(t *testing.T) {
	t.Parallel()

	got, err := resolveInPath("sh", []string{})
	if err == nil {
		assert.True(t, filepath.IsAbs(got))
	}
}

func TestLookupEnv(t *testing.T) {
	t.Parallel()

	env := []string{"HOME=/root", "PATH=/usr/bin:/bin"}
	assert.Equal(t, "/usr/bin:/bin", lookupEnv(env, "PATH"))
	assert.Equal(t, "", lookupEnv(env, "MISSING"))
}
