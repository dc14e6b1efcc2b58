package runtime

import (
	"context"
	"time"

	"github.com/containust/containust/internal/ctstlang"
	"github.com/containust/containust/internal/isolation"
)

// probeOnce waits out probe's StartPeriod once and then polls until either
// a successful probe is observed or probe.Retries consecutive failures have
// accumulated, whichever comes first. It is the startup-gating use of the
// health probe: a component that never reaches healthy within its own
// retry budget fails to start.
func (e *Engine) probeOnce(ctx context.Context, id string, probe ctstlang.HealthProbe) bool {
	ok, _ := e.runHealthProbe(ctx, id, probe, true, nil)
	return ok
}

// runHealthProbe is the shared probe loop behind both probeOnce's
// startup-gating use (onlyFirst true, returns on the first definitive
// result) and superviseContainer's ongoing-monitor use (onlyFirst false,
// runs until ctx is cancelled, calling onUnhealthy every time the failure
// count reaches probe.Retries and then resetting to keep watching). The
// returned bool is only meaningful when onlyFirst is true.
func (e *Engine) runHealthProbe(ctx context.Context, id string, probe ctstlang.HealthProbe, onlyFirst bool, onUnhealthy func()) (bool, error) {
	if probe.StartPeriod > 0 {
		select {
		case <-time.After(probe.StartPeriod):
		case <-ctx.Done():
			return false, ctx.Err()
		}
	}

	retries := probe.Retries
	if retries <= 0 {
		retries = 1
	}

	failures := 0
	ticker := time.NewTicker(probe.Interval)
	defer ticker.Stop()

	for {
		if e.execProbe(ctx, id, probe) {
			if onlyFirst {
				return true, nil
			}
			failures = 0
		} else {
			failures++
			if failures >= retries {
				if onUnhealthy != nil {
					onUnhealthy()
				}
				if onlyFirst {
					return false, nil
				}
				failures = 0
			}
		}

		select {
		case <-ticker.C:
		case <-ctx.Done():
			return false, ctx.Err()
		}
	}
}

// execProbe runs probe.Command inside id and reports whether it exited
// cleanly within probe.Timeout.
func (e *Engine) execProbe(ctx context.Context, id string, probe ctstlang.HealthProbe) bool {
	pctx, cancel := context.WithTimeout(ctx, probe.Timeout)
	defer cancel()
	code, err := e.backend.Exec(pctx, id, probe.Command, isolation.ExecIO{})
	return err == nil && code == 0
}
