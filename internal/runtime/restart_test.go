package runtime

import (
	"testing"

	"github.com/containust/containust/internal/ctstlang"
	"github.com/containust/containust/internal/isolation"
	"github.com/stretchr/testify/assert"
)

func TestShouldRestart(t *testing.T) {
	cases := []struct {
		name   string
		policy ctstlang.RestartPolicy
		failed bool
		want   bool
	}{
		{"always restarts on clean exit", ctstlang.RestartAlways, false, true},
		{"always restarts on failure", ctstlang.RestartAlways, true, true},
		{"on-failure skips clean exit", ctstlang.RestartOnFailure, false, false},
		{"on-failure restarts on failure", ctstlang.RestartOnFailure, true, true},
		{"never never restarts", ctstlang.RestartNever, true, false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.want, shouldRestart(c.policy, c.failed))
		})
	}
}

func TestFindRecord(t *testing.T) {
	records := []isolation.Record{{ID: "a"}, {ID: "b"}}

	rec, ok := findRecord(records, "b")
	assert.True(t, ok)
	assert.Equal(t, "b", rec.ID)

	_, ok = findRecord(records, "missing")
	assert.False(t, ok)
}
