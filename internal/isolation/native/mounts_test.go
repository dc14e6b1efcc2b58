package native

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReverseOrdersHighestPriorityFirst(t *testing.T) {
	t.Parallel()

	got := reverse([]string{"base", "mid", "top"})
	assert.Equal(t, []string{"top", "mid", "base"}, got)
}

func TestReverseEmpty(t *testing.T) {
	t.Parallel()

	assert.Empty(t, reverse(nil))
}

func TestReverseDoesNotMutateInput(t *testing.T) {
	t.Parallel()

	in := []string{"a", "b", "c"}
	_ = reverse(in)
	assert.Equal(t, []string{"a", "b", "c"}, in)
}
