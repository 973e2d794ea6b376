package rules

import (
	"github.com/mitchelldurbincs/NumGridGame/internal/game/core"
	"github.com/rs/zerolog"
)

// TerminalChecker handles end of episode detection
type TerminalChecker struct {
	logger zerolog.Logger
}

// NewTerminalChecker creates a new terminal checker
func NewTerminalChecker(logger zerolog.Logger) *TerminalChecker {
	return &TerminalChecker{
		logger: logger.With().Str("component", "TerminalChecker").Logger(),
	}
}

// CheckDone reports whether the mask leaves no legal move.
func (tc *TerminalChecker) CheckDone(mask []bool) bool {
	legal := 0
	for _, ok := range mask {
		if ok {
			legal++
		}
	}
	tc.logger.Debug().Int("legal_moves", legal).Msg("Terminal check complete")
	return legal == 0
}

// Coverage returns the fraction of the grid that has been visited
// (filled plus the current cell).
func (tc *TerminalChecker) Coverage(grid *core.Grid) float64 {
	total := len(grid.Cells)
	if total == 0 {
		return 0
	}
	visited := grid.Count(core.CellFilled) + grid.Count(core.CellCurrent)
	return float64(visited) / float64(total)
}
