package runtime

import (
	"context"

	"github.com/containust/containust/internal/isolation"
	"github.com/prometheus/client_golang/prometheus"
)

// metricsRegistry wraps a private prometheus.Registry, not the global
// default one: an embedder may construct more than one Engine in the same
// process (tests do this routinely), and the global registry panics on a
// second MustRegister of the same metric name.
type metricsRegistry struct {
	registry *prometheus.Registry
	cpu      *prometheus.GaugeVec
	memory   *prometheus.GaugeVec
	io       *prometheus.GaugeVec
}

func newMetricsRegistry() *metricsRegistry {
	reg := prometheus.NewRegistry()
	m := &metricsRegistry{
		registry: reg,
		cpu: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "containust_container_cpu_usage_usec",
			Help: "Cumulative CPU time consumed by the container, in microseconds.",
		}, []string{"id"}),
		memory: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "containust_container_memory_bytes",
			Help: "Current memory usage of the container, in bytes.",
		}, []string{"id"}),
		io: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "containust_container_io_bytes",
			Help: "Cumulative block I/O bytes (read + written) for the container.",
		}, []string{"id"}),
	}
	reg.MustRegister(m.cpu, m.memory, m.io)
	return m
}

func (m *metricsRegistry) observe(id string, stats isolation.Stats) {
	m.cpu.WithLabelValues(id).Set(float64(stats.CPUUsageUsec))
	m.memory.WithLabelValues(id).Set(float64(stats.MemoryBytes))
	m.io.WithLabelValues(id).Set(float64(stats.IOBytes))
}

func (m *metricsRegistry) forget(id string) {
	m.cpu.DeleteLabelValues(id)
	m.memory.DeleteLabelValues(id)
	m.io.DeleteLabelValues(id)
}

// Registry exposes the engine's private metrics registry for an embedder
// to scrape over its own HTTP transport. containust itself exposes no
// /metrics endpoint.
func (e *Engine) Registry() *prometheus.Registry { return e.metrics.registry }

// sampleMetrics takes one resource-usage sample for id, if the backend
// supports it, records it, and emits a MetricsUpdateEvent. A backend that
// does not implement isolation.StatsProvider (e.g. the VM backend, at
// least until its guest agent grows a stats RPC) is silently skipped.
func (e *Engine) sampleMetrics(ctx context.Context, id string) {
	provider, ok := e.backend.(isolation.StatsProvider)
	if !ok {
		return
	}
	stats, err := provider.Stats(ctx, id)
	if err != nil {
		e.logger.Debug("metrics sample failed", "id", id, "error", err)
		return
	}
	e.metrics.observe(id, stats)
	e.emit(Event{Kind: EventMetricsUpdate, Metrics: &MetricsUpdateEvent{ID: id, Stats: stats}})
}
