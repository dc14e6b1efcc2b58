package vm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHostAddrUsesGuestAgentPort(t *testing.T) {
	t.Parallel()
	assert.Contains(t, hostAddr(), "9771")
}

func TestIsAvailableWithoutLimaIsFalse(t *testing.T) {
	t.Parallel()

	b := New()
	if limaInstalled() {
		t.Skip("limactl is installed in this environment")
	}
	assert.False(t, b.IsAvailable())
}
