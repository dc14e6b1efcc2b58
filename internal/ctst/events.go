package ctst

import "github.com/containust/containust/internal/runtime"

// Event, EventKind, StateChangeEvent and MetricsUpdateEvent re-export
// internal/runtime's event-stream vocabulary so a caller of this package
// never needs to import internal/runtime directly.
type (
	Event              = runtime.Event
	EventKind          = runtime.EventKind
	StateChangeEvent   = runtime.StateChangeEvent
	MetricsUpdateEvent = runtime.MetricsUpdateEvent
)

const (
	EventStateChange   = runtime.EventStateChange
	EventMetricsUpdate = runtime.EventMetricsUpdate
)

// EventStream is the read side of an Engine's deployment event stream.
type EventStream struct {
	ch <-chan Event
}

// Chan returns the underlying channel for a caller that wants to select
// on it directly alongside other work.
func (s *EventStream) Chan() <-chan Event { return s.ch }
