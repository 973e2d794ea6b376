package events

import (
	"time"

	"github.com/mitchelldurbincs/NumGridGame/internal/game/core"
)

// Event type constants
const (
	TypeEpisodeStarted  = "episode.started"
	TypeEpisodeEnded    = "episode.ended"
	TypeMoveExecuted    = "move.executed"
	TypeMoveRejected    = "move.rejected"
	TypeStateTransition = "state.transition"
)

func newBase(eventType, gameID string) BaseEvent {
	return BaseEvent{
		EventType: eventType,
		Time:      time.Now(),
		Game:      gameID,
	}
}

// EpisodeStartedEvent is published by every reset
type EpisodeStartedEvent struct {
	BaseEvent
	Rows    int
	Columns int
	Start   core.Coordinate
	// LegalMoves is the number of playable jumps from Start
	LegalMoves int
}

// NewEpisodeStartedEvent creates a new EpisodeStartedEvent
func NewEpisodeStartedEvent(gameID string, rows, columns int, start core.Coordinate, legalMoves int) *EpisodeStartedEvent {
	return &EpisodeStartedEvent{
		BaseEvent:  newBase(TypeEpisodeStarted, gameID),
		Rows:       rows,
		Columns:    columns,
		Start:      start,
		LegalMoves: legalMoves,
	}
}

// EpisodeEndedEvent is published once the mask has no true entry left
type EpisodeEndedEvent struct {
	BaseEvent
	Metadata    EventMetadata
	FinalStep   int
	FilledCells int
	TotalReward float64
	Duration    time.Duration
}

// NewEpisodeEndedEvent creates a new EpisodeEndedEvent
func NewEpisodeEndedEvent(gameID string, finalStep, filledCells int, totalReward float64, duration time.Duration) *EpisodeEndedEvent {
	return &EpisodeEndedEvent{
		BaseEvent:   newBase(TypeEpisodeEnded, gameID),
		Metadata:    EventMetadata{Step: finalStep},
		FinalStep:   finalStep,
		FilledCells: filledCells,
		TotalReward: totalReward,
		Duration:    duration,
	}
}

// MoveExecutedEvent is published after a successful step
type MoveExecutedEvent struct {
	BaseEvent
	Metadata EventMetadata
	Action   int
	From     core.Coordinate
	To       core.Coordinate
	Reward   float64
	Done     bool
}

// NewMoveExecutedEvent creates a new MoveExecutedEvent
func NewMoveExecutedEvent(gameID string, step, action int, from, to core.Coordinate, reward float64, done bool) *MoveExecutedEvent {
	return &MoveExecutedEvent{
		BaseEvent: newBase(TypeMoveExecuted, gameID),
		Metadata:  EventMetadata{Step: step},
		Action:    action,
		From:      from,
		To:        to,
		Reward:    reward,
		Done:      done,
	}
}

// MoveRejectedEvent is published when a step is refused
type MoveRejectedEvent struct {
	BaseEvent
	Metadata EventMetadata
	Action   int
	Reason   string
}

// NewMoveRejectedEvent creates a new MoveRejectedEvent
func NewMoveRejectedEvent(gameID string, step, action int, reason string) *MoveRejectedEvent {
	return &MoveRejectedEvent{
		BaseEvent: newBase(TypeMoveRejected, gameID),
		Metadata:  EventMetadata{Step: step},
		Action:    action,
		Reason:    reason,
	}
}

// StateTransitionEvent is published when the state machine transitions between phases
type StateTransitionEvent struct {
	BaseEvent
	FromPhase string
	ToPhase   string
	Reason    string
}

// NewStateTransitionEvent creates a new StateTransitionEvent
func NewStateTransitionEvent(gameID, fromPhase, toPhase, reason string) *StateTransitionEvent {
	return &StateTransitionEvent{
		BaseEvent: newBase(TypeStateTransition, gameID),
		FromPhase: fromPhase,
		ToPhase:   toPhase,
		Reason:    reason,
	}
}
