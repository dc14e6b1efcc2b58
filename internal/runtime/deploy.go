package runtime

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/containust/containust/internal/ctsterr"
	"github.com/containust/containust/internal/ctstlang"
	"github.com/containust/containust/internal/graph"
	"github.com/containust/containust/internal/identity"
	"github.com/containust/containust/internal/imagestore"
	"github.com/containust/containust/internal/isolation"
	"github.com/containust/containust/internal/state"
	"golang.org/x/sync/errgroup"
)

// gracefulStopTimeout is the fixed grace period between SIGTERM and
// SIGKILL the engine gives a container, both for operator-requested stops
// and for rollback.
const gracefulStopTimeout = 10 * time.Second

// Deploy starts every component in comp according to plan's phase order.
// Within a phase every component is created and started concurrently;
// the engine only begins the next phase once every component in the
// current one has reached Running (and healthy, if probed). A component
// that fails during its own phase aborts the deployment: the engine
// refuses to start any later phase and rolls back everything already
// started, in reverse phase order.
func (e *Engine) Deploy(ctx context.Context, comp *ctstlang.Composition, plan *graph.Plan) error {
	var started []string

	for _, phase := range plan.Phases {
		g, gctx := errgroup.WithContext(ctx)
		ids := make([]string, len(phase.Components))

		for i, name := range phase.Components {
			i, name := i, name
			g.Go(func() error {
				id, err := e.startComponent(gctx, comp, plan, name)
				if id != "" {
					ids[i] = id
				}
				if err != nil {
					return fmt.Errorf("component %q: %w", name, err)
				}
				return nil
			})
		}

		err := g.Wait()
		for _, id := range ids {
			if id != "" {
				started = append(started, id)
			}
		}
		if err != nil {
			e.rollback(context.Background(), started)
			return err
		}
	}
	return nil
}

// rollback stops and removes every container in ids, last-started first,
// best-effort: a failure tearing one down does not stop the rest from
// being torn down too.
func (e *Engine) rollback(ctx context.Context, ids []string) {
	for i := len(ids) - 1; i >= 0; i-- {
		id := ids[i]
		e.stopMonitor(id)
		if err := e.backend.Stop(ctx, id, gracefulStopTimeout); err != nil {
			e.logger.Warn("rollback: stop failed", "id", id, "error", err)
		}
		if err := e.backend.Remove(ctx, id); err != nil {
			e.logger.Warn("rollback: remove failed", "id", id, "error", err)
		}
		_ = e.index.Update(id, state.StateStopped, 0)
		e.releaseLayers(id)
	}
}

// startComponent materialises one component's image, resolves its
// interpolated configuration, creates and starts it through the backend,
// records it in the state index, waits out its startup health probe if
// one is configured, and — once Running — launches its restart-policy
// monitor. The returned id is non-empty as soon as backend.Create
// succeeds, even on a later failure, so the caller can still roll the
// partially-created container back.
func (e *Engine) startComponent(ctx context.Context, comp *ctstlang.Composition, plan *graph.Plan, name string) (string, error) {
	c, ok := comp.ByName(name)
	if !ok {
		return "", ctsterr.Newf(ctsterr.CategoryConfig, ctsterr.CodeUndefinedReference, "unknown component %q", name)
	}

	layers, err := e.images.Resolve(c.ImageURI, "")
	if err != nil {
		return "", err
	}

	cfg, err := e.buildConfig(comp, plan, c, layers)
	if err != nil {
		_ = e.images.Release(layers)
		return "", err
	}

	id, err := e.backend.Create(ctx, cfg)
	if err != nil {
		_ = e.images.Release(layers)
		return "", err
	}
	e.trackLayers(id, layers)

	hashes := make([]identity.ContentHash, len(layers))
	for i, l := range layers {
		hashes[i] = l.Hash
	}
	imgID := identity.NewImageID(hashes)

	now := time.Now()
	if err := e.index.Insert(state.Record{
		ID: id, Name: c.Name, Image: imgID,
		State: state.StateCreated, CreatedAt: now, UpdatedAt: now,
		Limits: recordLimits(c.Limits),
	}); err != nil {
		_ = e.backend.Remove(ctx, id)
		e.releaseLayers(id)
		return id, err
	}

	pid, err := e.backend.Start(ctx, id)
	if err != nil {
		_ = e.index.Update(id, state.StateFailed, 0)
		e.emitStateChange(id, state.StateCreated, state.StateFailed)
		return id, err
	}

	if c.Health != nil {
		if !e.probeOnce(ctx, id, *c.Health) {
			_ = e.index.Update(id, state.StateFailed, pid)
			e.emitStateChange(id, state.StateCreated, state.StateFailed)
			return id, ctsterr.Newf(ctsterr.CategoryConfig, ctsterr.CodeInvalidTransition,
				"component %q failed its startup health probe", c.Name)
		}
	}

	_ = e.index.Update(id, state.StateRunning, pid)
	e.emitStateChange(id, state.StateCreated, state.StateRunning)
	e.startMonitor(id, c, cfg)
	return id, nil
}

// buildConfig resolves c's interpolated fields and assembles the backend
// Config that creates it: entrypoint and command concatenated into one
// argv (entrypoint first, Docker-style), auto-injected connection env vars
// appended after c's own (already-deduplicated by internal/graph), and
// only the EXPOSE records that name this component.
func (e *Engine) buildConfig(comp *ctstlang.Composition, plan *graph.Plan, c ctstlang.Component, layers []imagestore.Layer) (isolation.Config, error) {
	workDir, err := e.resolveInterpolations(c.WorkDir, comp)
	if err != nil {
		return isolation.Config{}, err
	}
	user, err := e.resolveInterpolations(c.User, comp)
	if err != nil {
		return isolation.Config{}, err
	}
	hostname, err := e.resolveInterpolations(c.Hostname, comp)
	if err != nil {
		return isolation.Config{}, err
	}
	if hostname == "" {
		hostname = c.Name
	}

	entrypoint, err := e.resolveStrings(c.Entrypoint, comp)
	if err != nil {
		return isolation.Config{}, err
	}
	command, err := e.resolveStrings(c.Command, comp)
	if err != nil {
		return isolation.Config{}, err
	}
	argv := make([]string, 0, len(entrypoint)+len(command))
	argv = append(argv, entrypoint...)
	argv = append(argv, command...)

	env, err := e.resolveEnv(c, comp, plan)
	if err != nil {
		return isolation.Config{}, err
	}

	mounts := make([]isolation.Mount, 0, len(c.Volumes))
	for _, v := range c.Volumes {
		hostPath, err := e.resolveInterpolations(v.HostPath, comp)
		if err != nil {
			return isolation.Config{}, err
		}
		ctrPath, err := e.resolveInterpolations(v.ContainerPath, comp)
		if err != nil {
			return isolation.Config{}, err
		}
		mounts = append(mounts, isolation.Mount{Source: hostPath, Target: ctrPath, ReadOnly: c.ReadOnly})
	}

	var ports []isolation.PortForward
	for _, exp := range plan.Exposed {
		if exp.Component == c.Name {
			ports = append(ports, isolation.PortForward{HostPort: exp.HostPort, ContainerPort: exp.CtrPort})
		}
	}

	rootfs := make([]string, len(layers))
	for i, l := range layers {
		rootfs[i] = l.Path
	}

	id := identity.NewContainerID()

	return isolation.Config{
		ID:           id.String(),
		Hostname:     hostname,
		Command:      argv,
		Env:          env,
		WorkingDir:   workDir,
		User:         user,
		RootfsLayers: rootfs,
		Writable:     !c.ReadOnly,
		Mounts:       mounts,
		Resources: isolation.Resources{
			CPUWeight:        nonNegative(c.Limits.CPUWeight),
			MemoryLimitBytes: c.Limits.MemoryByte,
			IOWeight:         nonNegative(c.Limits.IOWeight),
		},
		Ports: ports,
	}, nil
}

// recordLimits converts a component's resource limits to the state index's
// persisted shape: a zero ResourceLimits field means "unset" at the
// ctstlang layer, recorded as a nil pointer rather than a literal zero.
func recordLimits(l ctstlang.ResourceLimits) state.Limits {
	var out state.Limits
	if l.MemoryByte != 0 {
		v := l.MemoryByte
		out.MemoryBytes = &v
	}
	if l.CPUWeight != 0 {
		v := l.CPUWeight
		out.CPUShares = &v
	}
	return out
}

func nonNegative(v int64) uint64 {
	if v < 0 {
		return 0
	}
	return uint64(v)
}

// resolveEnv merges c's own interpolated environment (sorted by key for
// deterministic ordering) with the plan's auto-injected connection vars
// for c, which internal/graph has already filtered to exclude anything c
// overrides itself.
func (e *Engine) resolveEnv(c ctstlang.Component, comp *ctstlang.Composition, plan *graph.Plan) ([]string, error) {
	keys := make([]string, 0, len(c.Env))
	for k := range c.Env {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]string, 0, len(c.Env)+len(plan.EnvVars[c.Name]))
	for _, k := range keys {
		v, err := e.resolveInterpolations(c.Env[k], comp)
		if err != nil {
			return nil, err
		}
		out = append(out, k+"="+v)
	}
	for _, ev := range plan.EnvVars[c.Name] {
		out = append(out, ev.Key+"="+ev.Value)
	}
	return out, nil
}
