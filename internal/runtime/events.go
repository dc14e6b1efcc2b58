package runtime

import (
	"github.com/containust/containust/internal/isolation"
	"github.com/containust/containust/internal/state"
)

// EventKind discriminates the two event shapes the engine's event stream
// emits.
type EventKind string

const (
	EventStateChange   EventKind = "state_change"
	EventMetricsUpdate EventKind = "metrics_update"
)

// StateChangeEvent reports one container's observed state-machine
// transition.
type StateChangeEvent struct {
	ID   string
	From state.ContainerState
	To   state.ContainerState
}

// MetricsUpdateEvent carries one resource-usage sample for a container.
type MetricsUpdateEvent struct {
	ID    string
	Stats isolation.Stats
}

// Event is the engine's single event-stream value type: exactly one of
// StateChange or Metrics is populated, matching Kind.
type Event struct {
	Kind        EventKind
	StateChange *StateChangeEvent
	Metrics     *MetricsUpdateEvent
}
