package state

import "github.com/containust/containust/internal/ctsterr"

// ValidTransitions enumerates every legal edge of the container state
// machine (spec.md S4.7). Created->Stopped, Stopped->Running, and
// Failed->Running are deliberately absent: they return R006/R007 below.
var ValidTransitions = map[ContainerState][]ContainerState{
	StateCreated: {StateRunning},
	StateRunning: {StateStopped, StateFailed},
}

// CanTransition reports whether from->to is a legal edge.
func CanTransition(from, to ContainerState) bool {
	for _, s := range ValidTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Transition validates from->to and returns the appropriate structured
// error for the two named-invalid edges (R007) or any other illegal edge
// (R006), nil if the transition is legal.
func Transition(from, to ContainerState) error {
	if CanTransition(from, to) {
		return nil
	}
	switch {
	case (from == StateStopped || from == StateFailed) && to == StateRunning:
		return ctsterr.RestartFromHalted(from.String())
	default:
		return ctsterr.InvalidTransition(from.String(), to.String())
	}
}
