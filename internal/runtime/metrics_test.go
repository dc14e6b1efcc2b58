package runtime

import (
	"context"
	"errors"
	"testing"

	"github.com/containust/containust/internal/isolation"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type statsBackend struct {
	*fakeBackend
	stats isolation.Stats
	err   error
}

func (s *statsBackend) Stats(context.Context, string) (isolation.Stats, error) {
	return s.stats, s.err
}

func TestSampleMetricsRecordsAndEmits(t *testing.T) {
	backend := &statsBackend{fakeBackend: newFakeBackend(), stats: isolation.Stats{CPUUsageUsec: 100, MemoryBytes: 200, IOBytes: 300}}
	e := newTestEngine(t, "")
	e.backend = backend

	e.sampleMetrics(context.Background(), "c1")

	value := testutil.ToFloat64(e.metrics.cpu.WithLabelValues("c1"))
	assert.Equal(t, float64(100), value)

	select {
	case ev := <-e.Events():
		require.Equal(t, EventMetricsUpdate, ev.Kind)
		require.NotNil(t, ev.Metrics)
		assert.Equal(t, "c1", ev.Metrics.ID)
	default:
		t.Fatal("expected a MetricsUpdate event")
	}
}

func TestSampleMetricsSkipsNonProvider(t *testing.T) {
	e := newTestEngine(t, "")
	e.backend = newFakeBackend()

	e.sampleMetrics(context.Background(), "c1")

	select {
	case ev := <-e.Events():
		t.Fatalf("unexpected event from a backend with no StatsProvider: %+v", ev)
	default:
	}
}

func TestSampleMetricsSwallowsProviderError(t *testing.T) {
	backend := &statsBackend{fakeBackend: newFakeBackend(), err: errors.New("boom")}
	e := newTestEngine(t, "")
	e.backend = backend

	e.sampleMetrics(context.Background(), "c1")

	select {
	case ev := <-e.Events():
		t.Fatalf("unexpected event on provider error: %+v", ev)
	default:
	}
}

func TestMetricsForgetClearsLabels(t *testing.T) {
	e := newTestEngine(t, "")
	e.metrics.observe("c1", isolation.Stats{CPUUsageUsec: 42})
	assert.Equal(t, float64(42), testutil.ToFloat64(e.metrics.cpu.WithLabelValues("c1")))

	e.metrics.forget("c1")
	assert.Equal(t, float64(0), testutil.ToFloat64(e.metrics.cpu.WithLabelValues("c1")))
}
