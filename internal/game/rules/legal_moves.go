package rules

import "github.com/mitchelldurbincs/NumGridGame/internal/game/core"

// LegalMoveCalculator computes which of the nine jumps are playable
type LegalMoveCalculator struct{}

// NewLegalMoveCalculator creates a new legal move calculator
func NewLegalMoveCalculator() *LegalMoveCalculator {
	return &LegalMoveCalculator{}
}

// GetLegalActionMask returns one entry per move in core.MoveOffsets order.
// An entry is true when the destination is on the grid and still empty.
// Stay always lands on the current cell, so it is never legal.
func (lmc *LegalMoveCalculator) GetLegalActionMask(grid *core.Grid, from core.Coordinate) []bool {
	mask := make([]bool, core.NumMoves)
	for i, dest := range core.Destinations(from) {
		mask[i] = grid.IsEmpty(dest)
	}
	return mask
}

// LegalDestinations returns the destinations whose mask entry is true.
func (lmc *LegalMoveCalculator) LegalDestinations(grid *core.Grid, from core.Coordinate) []core.Coordinate {
	var dests []core.Coordinate
	for _, dest := range core.Destinations(from) {
		if grid.IsEmpty(dest) {
			dests = append(dests, dest)
		}
	}
	return dests
}
