package game

import "github.com/mitchelldurbincs/NumGridGame/internal/game/core"

// GameState is the mutable per-episode state owned by the engine
type GameState struct {
	Grid        *core.Grid
	Position    core.Coordinate
	Previous    core.Coordinate
	HasPrevious bool
	Step        int
	TotalReward float64
}

func newGameState(rows, cols int) *GameState {
	return &GameState{Grid: core.NewGrid(rows, cols)}
}

// Clone returns a deep copy of the state
func (gs *GameState) Clone() GameState {
	clone := *gs
	clone.Grid = gs.Grid.Clone()
	return clone
}

// Observation is a row-major snapshot of cell values. It never aliases engine state.
type Observation [][]int

// Shape returns (rows, columns)
func (o Observation) Shape() (int, int) {
	if len(o) == 0 {
		return 0, 0
	}
	return len(o), len(o[0])
}

// StepResult is returned by a successful step
type StepResult struct {
	Observation Observation
	Reward      float64
	Done        bool
	Info        map[string]any
}
