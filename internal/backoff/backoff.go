// Package backoff implements the bounded exponential back-off shape used
// both by internal/runtime's restart policy (spec.md S4.5: initial 100ms,
// doubling, capped) and by the VM-mediated isolation backend's transport
// retries (spec.md S5), generalized from the teacher's restart-policy
// back-off into a single reusable sequence generator.
package backoff

import "time"

// Policy generates a non-decreasing sequence of delays, doubling from
// Initial up to Max.
type Policy struct {
	Initial time.Duration
	Max     time.Duration
}

// Default is spec.md's restart-policy back-off: 100ms initial, doubling,
// capped at 30s.
var Default = Policy{Initial: 100 * time.Millisecond, Max: 30 * time.Second}

// Next returns the delay for the attempt'th retry (0-indexed): Initial *
// 2^attempt, capped at Max.
func (p Policy) Next(attempt int) time.Duration {
	d := p.Initial
	for i := 0; i < attempt; i++ {
		d *= 2
		if d >= p.Max {
			return p.Max
		}
	}
	if d > p.Max {
		return p.Max
	}
	return d
}
