package identity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContentHashRoundTrip(t *testing.T) {
	h := NewContentHash([]byte("hello"))
	parsed, err := ParseContentHash(h.String())
	require.NoError(t, err)
	assert.True(t, h.Equal(parsed))
	assert.Len(t, h.Hex(), 64)
}

func TestParseContentHashRejectsMalformed(t *testing.T) {
	tests := []string{
		"",
		"not-a-hash",
		"sha256:tooshort",
		"sha512:0000000000000000000000000000000000000000000000000000000000000000",
	}
	for _, in := range tests {
		_, err := ParseContentHash(in)
		assert.Error(t, err, "input %q", in)
	}
}

func TestContentHashHasPrefix(t *testing.T) {
	h := NewContentHash([]byte("layer-bytes"))
	assert.True(t, h.HasPrefix(h.Hex()[:8]))
	assert.False(t, h.HasPrefix("ffffffff"))
}

func TestContainerIDValidation(t *testing.T) {
	id := NewContainerID()
	require.NoError(t, id.Validate())

	derived, err := DerivedContainerID("Web-Api")
	require.NoError(t, err)
	assert.Equal(t, ContainerID("web-api"), derived)

	_, err = ParseContainerID("")
	assert.Error(t, err)

	_, err = ParseContainerID("Has Spaces")
	assert.Error(t, err)
}

func TestImageIDOrderSensitive(t *testing.T) {
	a := NewContentHash([]byte("base"))
	b := NewContentHash([]byte("overlay"))

	forward := NewImageID([]ContentHash{a, b})
	reversed := NewImageID([]ContentHash{b, a})

	assert.False(t, forward.Equal(reversed.ContentHash), "layer order must affect the image id")
}
