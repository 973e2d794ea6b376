package testutil

import (
	"github.com/mitchelldurbincs/NumGridGame/internal/game/core"
)

// CreateTestGrid creates an empty grid with a single current cell at pos
func CreateTestGrid(rows, cols int, pos core.Coordinate) *core.Grid {
	grid := core.NewGrid(rows, cols)
	grid.Set(pos, core.CellCurrent)
	return grid
}

// CreateFilledGrid creates a grid where every cell is filled except the
// current cell at pos and the listed empty cells
func CreateFilledGrid(rows, cols int, pos core.Coordinate, empty ...core.Coordinate) *core.Grid {
	grid := core.NewGrid(rows, cols)
	for i := range grid.Cells {
		grid.Cells[i] = core.CellFilled
	}
	for _, c := range empty {
		grid.Set(c, core.CellEmpty)
	}
	grid.Set(pos, core.CellCurrent)
	return grid
}

// CenterMask is the legality mask from (5,5) on a fresh 10x10 grid
func CenterMask() []bool {
	return []bool{true, true, true, true, false, true, true, true, true}
}
