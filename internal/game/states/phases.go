package states

import "fmt"

// GamePhase represents the current phase of an episode
type GamePhase int

const (
	// PhaseUninitialized - Engine constructed, reset not yet called
	PhaseUninitialized GamePhase = iota

	// PhaseActive - Episode in progress, at least one legal move remains
	PhaseActive

	// PhaseTerminal - No legal move remains; only reset leaves this phase
	PhaseTerminal
)

// String returns the string representation of a GamePhase
func (p GamePhase) String() string {
	switch p {
	case PhaseUninitialized:
		return "Uninitialized"
	case PhaseActive:
		return "Active"
	case PhaseTerminal:
		return "Terminal"
	default:
		return fmt.Sprintf("Unknown(%d)", p)
	}
}

// IsTerminal returns true if the phase represents a finished episode
func (p GamePhase) IsTerminal() bool {
	return p == PhaseTerminal
}

// CanReceiveActions returns true if step may be called in this phase
func (p GamePhase) CanReceiveActions() bool {
	return p == PhaseActive
}

// AllowedTransitions returns the valid phases this phase can transition to.
// Active -> Active is a reset in the middle of an episode.
func (p GamePhase) AllowedTransitions() []GamePhase {
	switch p {
	case PhaseUninitialized:
		return []GamePhase{PhaseActive}
	case PhaseActive:
		return []GamePhase{PhaseActive, PhaseTerminal}
	case PhaseTerminal:
		return []GamePhase{PhaseActive}
	default:
		return []GamePhase{}
	}
}

// CanTransitionTo checks if a transition from this phase to the target phase is allowed
func (p GamePhase) CanTransitionTo(target GamePhase) bool {
	for _, phase := range p.AllowedTransitions() {
		if phase == target {
			return true
		}
	}
	return false
}

// ParsePhase converts a string to a GamePhase
func ParsePhase(s string) GamePhase {
	switch s {
	case "Active":
		return PhaseActive
	case "Terminal":
		return PhaseTerminal
	default:
		return PhaseUninitialized
	}
}
