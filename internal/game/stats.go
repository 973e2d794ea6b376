package game

import "github.com/mitchelldurbincs/NumGridGame/internal/game/core"

// EpisodeStats summarizes the grid at the current step
type EpisodeStats struct {
	Step        int
	FilledCells int
	EmptyCells  int
	LegalMoves  int
	Coverage    float64
	TotalReward float64
}

// Stats recalculates episode statistics from the grid
func (e *Engine) Stats() EpisodeStats {
	return EpisodeStats{
		Step:        e.gs.Step,
		FilledCells: e.gs.Grid.Count(core.CellFilled),
		EmptyCells:  e.gs.Grid.Count(core.CellEmpty),
		LegalMoves:  e.actionSpace.Len(),
		Coverage:    e.terminal.Coverage(e.gs.Grid),
		TotalReward: e.gs.TotalReward,
	}
}

// summary builds the end-of-episode record handed to collectors
func (e *Engine) summary() EpisodeSummary {
	stats := e.Stats()
	return EpisodeSummary{
		GameID:      e.gameID,
		Steps:       stats.Step,
		FilledCells: stats.FilledCells,
		TotalReward: stats.TotalReward,
		Coverage:    stats.Coverage,
		Duration:    e.stateMachine.Context().GetElapsedTime(),
	}
}
