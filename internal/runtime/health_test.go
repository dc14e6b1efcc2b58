package runtime

import (
	"context"
	"testing"
	"time"

	"github.com/containust/containust/internal/ctstlang"
	"github.com/stretchr/testify/assert"
)

func TestExecProbeSuccess(t *testing.T) {
	backend := newFakeBackend()
	backend.execCode = 0
	e := newTestEngine(t, "")
	e.backend = backend

	ok := e.execProbe(context.Background(), "c1", ctstlang.HealthProbe{Command: []string{"true"}, Timeout: time.Second})
	assert.True(t, ok)
}

func TestExecProbeFailureExitCode(t *testing.T) {
	backend := newFakeBackend()
	backend.execCode = 1
	e := newTestEngine(t, "")
	e.backend = backend

	ok := e.execProbe(context.Background(), "c1", ctstlang.HealthProbe{Command: []string{"false"}, Timeout: time.Second})
	assert.False(t, ok)
}

func TestProbeOnceSucceedsImmediately(t *testing.T) {
	backend := newFakeBackend()
	backend.execCode = 0
	e := newTestEngine(t, "")
	e.backend = backend

	ok := e.probeOnce(context.Background(), "c1", ctstlang.HealthProbe{
		Command: []string{"true"}, Interval: 10 * time.Millisecond, Timeout: time.Second, Retries: 1,
	})
	assert.True(t, ok)
}

func TestProbeOnceFailsAfterRetriesExhausted(t *testing.T) {
	backend := newFakeBackend()
	backend.execCode = 1
	e := newTestEngine(t, "")
	e.backend = backend

	ok := e.probeOnce(context.Background(), "c1", ctstlang.HealthProbe{
		Command: []string{"false"}, Interval: 5 * time.Millisecond, Timeout: time.Second, Retries: 2,
	})
	assert.False(t, ok)
}

func TestRunHealthProbeOngoingCallsOnUnhealthyRepeatedly(t *testing.T) {
	backend := newFakeBackend()
	backend.execCode = 1
	e := newTestEngine(t, "")
	e.backend = backend

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
	defer cancel()

	count := 0
	_, _ = e.runHealthProbe(ctx, "c1", ctstlang.HealthProbe{
		Command: []string{"false"}, Interval: 5 * time.Millisecond, Timeout: time.Second, Retries: 1,
	}, false, func() { count++ })

	assert.Greater(t, count, 1)
}
