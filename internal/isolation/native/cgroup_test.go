package native

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCgroupPathIsScopedUnderPrivateParent(t *testing.T) {
	t.Parallel()

	got := cgroupPath("abc123")
	assert.Equal(t, filepath.Join(cgroupRoot, "abc123"), got)
	assert.Contains(t, got, "/containust/")
}
