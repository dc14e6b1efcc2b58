package runtime

import (
	"context"
	"time"

	"github.com/containust/containust/internal/backoff"
	"github.com/containust/containust/internal/ctstlang"
	"github.com/containust/containust/internal/isolation"
	"github.com/containust/containust/internal/state"
)

// pollInterval is how often superviseContainer asks the backend to list
// containers to detect an exit the backend never told anyone about
// directly (there is no push notification from native/vm backends today).
const pollInterval = 500 * time.Millisecond

// metricsSampleInterval is how often a running container's resource usage
// is sampled into the metrics registry and event stream.
const metricsSampleInterval = 5 * time.Second

// superviseContainer owns id's restart-policy and health-probe lifecycle
// for as long as ctx lives. Everything mutable here (attempt, runningSince)
// is local to this one goroutine: no other goroutine ever touches a given
// container's restart state, so none of it needs a lock.
func (e *Engine) superviseContainer(ctx context.Context, id string, c ctstlang.Component, cfg isolation.Config) {
	attempt := 0
	runningSince := time.Now()
	resetAfter := 30 * time.Second
	if c.Health != nil && c.Health.Interval > resetAfter {
		resetAfter = c.Health.Interval
	}

	var unhealthy chan struct{}
	if c.Health != nil {
		unhealthy = make(chan struct{}, 1)
		go func() {
			_, _ = e.runHealthProbe(ctx, id, *c.Health, false, func() {
				select {
				case unhealthy <- struct{}{}:
				default:
				}
			})
		}()
	}

	poll := time.NewTicker(pollInterval)
	defer poll.Stop()
	metricsTick := time.NewTicker(metricsSampleInterval)
	defer metricsTick.Stop()

	// handleExit reacts to id no longer being healthy/running. stopFirst is
	// true for the health-probe path, where the process may still
	// technically be running and must be stopped before a fresh one is
	// created; it is false for the poll-detected-exit path, where the
	// process has already exited on its own. It returns whether
	// supervision should continue: true after a successful restart, false
	// once the container is left stopped/failed for good.
	handleExit := func(failed, stopFirst bool) bool {
		if stopFirst {
			_ = e.backend.Stop(context.Background(), id, gracefulStopTimeout)
		}
		to := state.StateStopped
		if failed {
			to = state.StateFailed
		}
		_ = e.index.Update(id, to, 0)
		e.emitStateChange(id, state.StateRunning, to)

		if !shouldRestart(c.Restart, failed) {
			if err := e.backend.Remove(context.Background(), id); err != nil {
				e.logger.Warn("restart: remove failed", "id", id, "error", err)
			}
			e.releaseLayers(id)
			return false
		}

		if time.Since(runningSince) >= resetAfter {
			attempt = 0
		}
		delay := backoff.Default.Next(attempt)
		attempt++
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return false
		}

		if err := e.backend.Remove(context.Background(), id); err != nil {
			e.logger.Warn("restart: remove failed", "id", id, "error", err)
		}
		// The container is recreated under the same id (cfg.ID is fixed),
		// so the state index entry and any external references stay valid
		// across a restart.
		newID, err := e.backend.Create(ctx, cfg)
		if err != nil {
			e.logger.Error("restart: create failed", "id", id, "error", err)
			e.releaseLayers(id)
			_ = e.index.Update(id, state.StateFailed, 0)
			return false
		}
		pid, err := e.backend.Start(ctx, newID)
		if err != nil {
			e.logger.Error("restart: start failed", "id", id, "error", err)
			_ = e.index.Update(id, state.StateFailed, 0)
			return false
		}
		_ = e.index.Update(id, state.StateRunning, pid)
		e.emitStateChange(id, to, state.StateRunning)
		runningSince = time.Now()
		return true
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-unhealthy:
			if !handleExit(true, true) {
				return
			}
		case <-metricsTick.C:
			e.sampleMetrics(ctx, id)
		case <-poll.C:
			records, err := e.backend.List(ctx)
			if err != nil {
				e.logger.Warn("restart: list failed", "error", err)
				continue
			}
			rec, found := findRecord(records, id)
			if !found || rec.Running {
				continue
			}
			failed := rec.ExitCode == nil || *rec.ExitCode != 0
			if !handleExit(failed, false) {
				return
			}
		}
	}
}

// shouldRestart evaluates policy against whether the container's exit was
// a failure (non-zero or unknown exit code, or a declared-unhealthy
// condition).
func shouldRestart(policy ctstlang.RestartPolicy, failed bool) bool {
	switch policy {
	case ctstlang.RestartAlways:
		return true
	case ctstlang.RestartOnFailure:
		return failed
	default:
		return false
	}
}

func findRecord(records []isolation.Record, id string) (isolation.Record, bool) {
	for _, r := range records {
		if r.ID == id {
			return r, true
		}
	}
	return isolation.Record{}, false
}
