// Package runtime drives a deployment end to end: it consults the planner
// for phases, materialises images through the image store, invokes the
// isolation backend for each component in phase order, records state
// transitions in the state index, supervises restart policy and health
// probes for containers once running, and tears everything down on
// shutdown. It is the engine spec.md names in §4.5, consumed by
// internal/ctst and, through that, by cmd/ctst.
package runtime

import (
	"context"
	"log/slog"
	"sync"

	"github.com/containust/containust/internal/ctsterr"
	"github.com/containust/containust/internal/ctstlang"
	"github.com/containust/containust/internal/imagestore"
	"github.com/containust/containust/internal/isolation"
	"github.com/containust/containust/internal/secrets"
	"github.com/containust/containust/internal/state"
)

// Engine is the runtime core. One Engine drives one project's deployment
// against one isolation backend, image store, and state index; it holds no
// state beyond what is needed to supervise containers it started itself —
// containers from a prior process invocation are reconciled by the caller
// reading the state index, not by the Engine re-discovering them.
type Engine struct {
	backend isolation.Backend
	images  *imagestore.Store
	index   *state.Index
	secrets *secrets.Resolver
	logger  *slog.Logger
	metrics *metricsRegistry
	events  chan Event

	mu       sync.Mutex
	monitors map[string]context.CancelFunc
	layers   map[string][]imagestore.Layer

	secretMu     sync.Mutex
	knownSecrets []secrets.Secret
}

// Options configures a new Engine. Backend, Images, and Index are
// required; Secrets defaults to an environment-only resolver and Logger to
// the standard library's default slog logger.
type Options struct {
	Backend isolation.Backend
	Images  *imagestore.Store
	Index   *state.Index
	Secrets *secrets.Resolver
	Logger  *slog.Logger
}

// New validates opts and returns a ready Engine.
func New(opts Options) (*Engine, error) {
	if opts.Backend == nil {
		return nil, ctsterr.New(ctsterr.CategoryConfig, ctsterr.CodeConfigInvalid, "runtime.Engine requires a Backend")
	}
	if opts.Images == nil {
		return nil, ctsterr.New(ctsterr.CategoryConfig, ctsterr.CodeConfigInvalid, "runtime.Engine requires an image Store")
	}
	if opts.Index == nil {
		return nil, ctsterr.New(ctsterr.CategoryConfig, ctsterr.CodeConfigInvalid, "runtime.Engine requires a state Index")
	}
	if opts.Secrets == nil {
		opts.Secrets = secrets.NewResolver("")
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	return &Engine{
		backend:  opts.Backend,
		images:   opts.Images,
		index:    opts.Index,
		secrets:  opts.Secrets,
		logger:   opts.Logger,
		metrics:  newMetricsRegistry(),
		events:   make(chan Event, 256),
		monitors: make(map[string]context.CancelFunc),
		layers:   make(map[string][]imagestore.Layer),
	}, nil
}

// PrimeSecrets seeds the engine's known-secret set from outside the
// interpolation path, for a CLI verb (e.g. `exec`) run in a fresh process
// that never itself deployed the container and so never resolved any
// secret through interpolate.go. The composition's referenced secret
// names, resolved ahead of time by the caller, still get masked out of
// this process's own Exec output.
func (e *Engine) PrimeSecrets(known []secrets.Secret) {
	for _, s := range known {
		e.recordSecret(s)
	}
}

// recordSecret remembers a secret value resolved during interpolation so
// exec-output streams can mask it even though it was resolved before the
// Exec call that might echo it back.
func (e *Engine) recordSecret(s secrets.Secret) {
	e.secretMu.Lock()
	defer e.secretMu.Unlock()
	e.knownSecrets = append(e.knownSecrets, s)
}

// secretSnapshot returns every secret value resolved so far, for building a
// secrets.MaskingWriter around an exec session's output streams.
func (e *Engine) secretSnapshot() []secrets.Secret {
	e.secretMu.Lock()
	defer e.secretMu.Unlock()
	out := make([]secrets.Secret, len(e.knownSecrets))
	copy(out, e.knownSecrets)
	return out
}

// Events returns the engine's event stream in emission order. The engine
// never closes it; a caller that stops reading simply stops seeing events
// once the buffer fills (emit then drops and logs rather than blocking a
// deploy on a slow or absent reader).
func (e *Engine) Events() <-chan Event { return e.events }

func (e *Engine) emit(ev Event) {
	select {
	case e.events <- ev:
	default:
		e.logger.Warn("event stream full, dropping event", "kind", ev.Kind)
	}
}

func (e *Engine) emitStateChange(id string, from, to state.ContainerState) {
	e.emit(Event{Kind: EventStateChange, StateChange: &StateChangeEvent{ID: id, From: from, To: to}})
}

func (e *Engine) trackLayers(id string, layers []imagestore.Layer) {
	e.mu.Lock()
	e.layers[id] = layers
	e.mu.Unlock()
}

// releaseLayers drops the image-store reference this container's layers
// were holding. Safe to call on an id with no tracked layers (no-op).
func (e *Engine) releaseLayers(id string) {
	e.mu.Lock()
	layers := e.layers[id]
	delete(e.layers, id)
	e.mu.Unlock()
	if layers != nil {
		_ = e.images.Release(layers)
	}
}

// startMonitor launches id's restart-policy/health supervisor goroutine.
// Exactly one monitor runs per container the engine itself started. cfg is
// kept so a restart can recreate the container from the same
// configuration rather than merely restarting a process that has already
// exited.
func (e *Engine) startMonitor(id string, c ctstlang.Component, cfg isolation.Config) {
	ctx, cancel := context.WithCancel(context.Background())
	e.mu.Lock()
	e.monitors[id] = cancel
	e.mu.Unlock()
	go e.superviseContainer(ctx, id, c, cfg)
}

// stopMonitor cancels id's supervisor goroutine, if one is running. It does
// not stop or remove the container itself.
func (e *Engine) stopMonitor(id string) {
	e.mu.Lock()
	cancel, ok := e.monitors[id]
	delete(e.monitors, id)
	e.mu.Unlock()
	if ok {
		cancel()
	}
}

// Close stops every container's supervisor goroutine without stopping the
// containers themselves. Use Shutdown to also stop and remove them.
func (e *Engine) Close() {
	e.mu.Lock()
	monitors := e.monitors
	e.monitors = make(map[string]context.CancelFunc)
	e.mu.Unlock()
	for _, cancel := range monitors {
		cancel()
	}
}
