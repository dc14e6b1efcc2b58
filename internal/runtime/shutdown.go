package runtime

import (
	"context"

	"github.com/containust/containust/internal/ctstlang"
	"github.com/containust/containust/internal/graph"
	"github.com/containust/containust/internal/state"
)

// Shutdown tears down every component in plan's phases in reverse order,
// each component stopped gracefully (SIGTERM, gracefulStopTimeout grace
// period) unless force is set, in which case the backend is asked to kill
// it immediately. Every component's restart-policy monitor is cancelled
// before it is stopped so a crash during teardown is never mistaken for
// one requiring a restart.
func (e *Engine) Shutdown(ctx context.Context, comp *ctstlang.Composition, plan *graph.Plan, force bool) error {
	var firstErr error
	record := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}

	records, err := e.index.List()
	if err != nil {
		return err
	}
	byName := make(map[string]string, len(records))
	for _, r := range records {
		byName[r.Name] = r.ID
	}

	for i := len(plan.Phases) - 1; i >= 0; i-- {
		for _, name := range plan.Phases[i].Components {
			id, ok := byName[name]
			if !ok {
				continue
			}
			record(e.stopOne(ctx, id, force))
		}
	}
	return firstErr
}

// Stop tears down a single container by id, identical to one component's
// step of Shutdown.
func (e *Engine) Stop(ctx context.Context, id string, force bool) error {
	return e.stopOne(ctx, id, force)
}

func (e *Engine) stopOne(ctx context.Context, id string, force bool) error {
	e.stopMonitor(id)

	if force {
		if err := e.backend.Stop(ctx, id, 0); err != nil {
			e.logger.Warn("shutdown: forced stop failed", "id", id, "error", err)
		}
	} else if err := e.backend.Stop(ctx, id, gracefulStopTimeout); err != nil {
		e.logger.Warn("shutdown: stop failed", "id", id, "error", err)
	}

	if err := e.backend.Remove(ctx, id); err != nil {
		e.logger.Warn("shutdown: remove failed", "id", id, "error", err)
	}
	e.releaseLayers(id)
	if err := e.index.Update(id, state.StateStopped, 0); err != nil {
		return err
	}
	e.emitStateChange(id, state.StateRunning, state.StateStopped)
	return nil
}
