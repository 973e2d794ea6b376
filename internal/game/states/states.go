package states

import (
	"fmt"
	"time"
)

// UninitializedState is the phase before the first reset
type UninitializedState struct{}

func NewUninitializedState() State {
	return &UninitializedState{}
}

func (s *UninitializedState) Phase() GamePhase {
	return PhaseUninitialized
}

func (s *UninitializedState) Enter(ctx *GameContext) error {
	ctx.Logger.Debug().Msg("Entering Uninitialized state")
	return nil
}

func (s *UninitializedState) Exit(ctx *GameContext) error {
	ctx.Logger.Debug().Msg("Exiting Uninitialized state")
	return nil
}

func (s *UninitializedState) Validate(ctx *GameContext) error {
	return nil
}

// ActiveState represents an episode in progress
type ActiveState struct{}

func NewActiveState() State {
	return &ActiveState{}
}

func (s *ActiveState) Phase() GamePhase {
	return PhaseActive
}

// Enter starts a new episode: every transition into Active is a reset.
func (s *ActiveState) Enter(ctx *GameContext) error {
	ctx.Episode++
	ctx.StartTime = time.Now()
	ctx.EndTime = time.Time{}
	for k := range ctx.Metadata {
		delete(ctx.Metadata, k)
	}
	ctx.Logger.Debug().
		Int("episode", ctx.Episode).
		Time("start_time", ctx.StartTime).
		Msg("Episode started")
	return nil
}

func (s *ActiveState) Exit(ctx *GameContext) error {
	ctx.Logger.Debug().
		Int("episode", ctx.Episode).
		Int("step", ctx.Step).
		Dur("elapsed", ctx.GetElapsedTime()).
		Msg("Exiting active state")
	return nil
}

func (s *ActiveState) Validate(ctx *GameContext) error {
	if ctx.Rows <= 0 || ctx.Columns <= 0 {
		return fmt.Errorf("grid dimensions must be positive, got %dx%d", ctx.Rows, ctx.Columns)
	}
	return nil
}

// TerminalState represents a finished episode
type TerminalState struct{}

func NewTerminalState() State {
	return &TerminalState{}
}

func (s *TerminalState) Phase() GamePhase {
	return PhaseTerminal
}

func (s *TerminalState) Enter(ctx *GameContext) error {
	ctx.EndTime = time.Now()
	ctx.Logger.Info().
		Int("episode", ctx.Episode).
		Int("final_step", ctx.Step).
		Dur("episode_duration", ctx.GetElapsedTime()).
		Msg("Episode ended")
	return nil
}

func (s *TerminalState) Exit(ctx *GameContext) error {
	ctx.Logger.Debug().Msg("Exiting terminal state")
	return nil
}

func (s *TerminalState) Validate(ctx *GameContext) error {
	if ctx.StartTime.IsZero() {
		return fmt.Errorf("cannot end an episode that never started")
	}
	return nil
}
