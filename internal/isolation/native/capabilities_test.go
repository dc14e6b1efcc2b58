package native

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAllowedCapabilitiesHasNoDuplicates(t *testing.T) {
	t.Parallel()

	seen := map[string]bool{}
	for _, c := range allowedCapabilities {
		name := c.String()
		assert.False(t, seen[name], "duplicate capability %s in allowlist", name)
		seen[name] = true
	}
}
