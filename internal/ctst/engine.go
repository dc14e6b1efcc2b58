package ctst

import (
	"context"
	"io"
	"log/slog"

	"github.com/containust/containust/internal/identity"
	"github.com/containust/containust/internal/imagestore"
	"github.com/containust/containust/internal/isolation"
	"github.com/containust/containust/internal/runtime"
	"github.com/containust/containust/internal/secrets"
	"github.com/containust/containust/internal/state"
)

// EngineOptions configures a new Engine. It mirrors runtime.Options so
// embedding code never has to import internal/runtime to construct one.
type EngineOptions struct {
	Backend isolation.Backend
	Images  *imagestore.Store
	Index   *state.Index
	Secrets *secrets.Resolver
	Logger  *slog.Logger
}

// Engine drives deployments against one isolation backend, image store,
// and state index. It is the type behind the run/exec/stop/images/logs
// verbs in cmd/ctst; build, plan and ps go to the image store, the graph
// resolver and the state index directly.
type Engine struct {
	rt     *runtime.Engine
	index  *state.Index
	images *imagestore.Store
}

// NewEngine validates opts and returns a ready Engine.
func NewEngine(opts EngineOptions) (*Engine, error) {
	rt, err := runtime.New(runtime.Options{
		Backend: opts.Backend,
		Images:  opts.Images,
		Index:   opts.Index,
		Secrets: opts.Secrets,
		Logger:  opts.Logger,
	})
	if err != nil {
		return nil, err
	}
	return &Engine{rt: rt, index: opts.Index, images: opts.Images}, nil
}

// Deploy starts every component in g in phase order, rolling back on
// failure.
func (e *Engine) Deploy(ctx context.Context, g *ResolvedGraph) error {
	return e.rt.Deploy(ctx, g.Composition, g.Plan)
}

// Shutdown tears every component in g down in reverse phase order.
func (e *Engine) Shutdown(ctx context.Context, g *ResolvedGraph, force bool) error {
	return e.rt.Shutdown(ctx, g.Composition, g.Plan, force)
}

// Stop tears down a single container by exact name or unambiguous id
// prefix (at least 8 characters), resolved through the state index the
// same way the CLI's `stop`/`exec` verbs do.
func (e *Engine) Stop(ctx context.Context, ref string, force bool) error {
	id, err := e.resolveRef(ref)
	if err != nil {
		return err
	}
	return e.rt.Stop(ctx, id, force)
}

// PrimeSecrets seeds the engine's known-secret set ahead of Exec, for a
// caller (the CLI's `exec` verb) running in a fresh process that never
// itself deployed the container and so never resolved any `${secret.x}`
// reference through a live deployment.
func (e *Engine) PrimeSecrets(known []secrets.Secret) { e.rt.PrimeSecrets(known) }

// Exec runs cmd inside ref (an exact name or unambiguous id prefix) attached
// to the host terminal when one is present.
func (e *Engine) Exec(ctx context.Context, ref string, cmd []string) (int, error) {
	id, err := e.resolveRef(ref)
	if err != nil {
		return -1, err
	}
	return e.rt.ExecInteractive(ctx, id, cmd)
}

// Logs returns ref's log stream (an exact name or unambiguous id prefix,
// resolved the same way Stop and Exec do). Closing the returned reader
// stops following.
func (e *Engine) Logs(ctx context.Context, ref string) (io.ReadCloser, error) {
	id, err := e.resolveRef(ref)
	if err != nil {
		return nil, err
	}
	return e.rt.Logs(ctx, id)
}

// Images lists every layer materialised in the local cache, for the
// `ctst images` verb.
func (e *Engine) Images() ([]imagestore.CachedLayer, error) {
	return e.images.List()
}

// RemoveImage evicts a cached layer by its content hash (as reported by
// Images). It refuses while the layer is still referenced by any image.
func (e *Engine) RemoveImage(hash string) error {
	h, err := identity.ParseContentHash(hash)
	if err != nil {
		return err
	}
	return e.images.Remove(h)
}

func (e *Engine) resolveRef(ref string) (string, error) {
	rec, err := e.index.FindByNameOrPrefix(ref)
	if err != nil {
		return "", err
	}
	return rec.ID, nil
}

// Events returns the engine's deployment event stream.
func (e *Engine) Events() *EventStream {
	return &EventStream{ch: e.rt.Events()}
}

// Close stops every container's supervisor goroutine without stopping the
// containers themselves.
func (e *Engine) Close() { e.rt.Close() }
