package core

// Grid holds the cell states for a rows x columns board.
type Grid struct {
	Rows, Cols int
	Cells      []CellState // length = Rows*Cols (row-major)
}

// NewGrid returns an all-empty grid.
func NewGrid(rows, cols int) *Grid {
	return &Grid{Rows: rows, Cols: cols, Cells: make([]CellState, rows*cols)}
}

// GridFromRows builds a grid from a 2D slice of cell values.
// Rows shorter than the first row are padded with empty cells.
func GridFromRows(values [][]int) *Grid {
	if len(values) == 0 {
		return NewGrid(0, 0)
	}
	g := NewGrid(len(values), len(values[0]))
	for r, row := range values {
		for c := 0; c < g.Cols && c < len(row); c++ {
			g.Cells[g.Idx(r, c)] = CellState(row[c])
		}
	}
	return g
}

func (g *Grid) Idx(row, col int) int { return row*g.Cols + col }

// InBounds checks if the coordinate lies on the grid
func (g *Grid) InBounds(c Coordinate) bool {
	return c.IsValid(g.Rows, g.Cols)
}

// At returns the state at c. Out-of-bounds reads return CellFilled so that
// callers treating "not empty" as "blocked" need no separate bounds check.
func (g *Grid) At(c Coordinate) CellState {
	if !g.InBounds(c) {
		return CellFilled
	}
	return g.Cells[g.Idx(c.Row, c.Col)]
}

// Set writes s at c. Out-of-bounds writes are ignored.
func (g *Grid) Set(c Coordinate, s CellState) {
	if !g.InBounds(c) {
		return
	}
	g.Cells[g.Idx(c.Row, c.Col)] = s
}

// IsEmpty reports whether c is on the grid and empty.
func (g *Grid) IsEmpty(c Coordinate) bool {
	return g.InBounds(c) && g.Cells[g.Idx(c.Row, c.Col)] == CellEmpty
}

// Count returns how many cells hold s.
func (g *Grid) Count(s CellState) int {
	n := 0
	for _, cell := range g.Cells {
		if cell == s {
			n++
		}
	}
	return n
}

// Find returns every coordinate holding s, in row-major order.
func (g *Grid) Find(s CellState) []Coordinate {
	var found []Coordinate
	for i, cell := range g.Cells {
		if cell == s {
			found = append(found, FromIndex(i, g.Cols))
		}
	}
	return found
}

// Snapshot copies the grid into a fresh 2D slice.
func (g *Grid) Snapshot() [][]int {
	out := make([][]int, g.Rows)
	for r := 0; r < g.Rows; r++ {
		row := make([]int, g.Cols)
		for c := 0; c < g.Cols; c++ {
			row[c] = int(g.Cells[g.Idx(r, c)])
		}
		out[r] = row
	}
	return out
}

// Clone returns a deep copy of the grid.
func (g *Grid) Clone() *Grid {
	cells := make([]CellState, len(g.Cells))
	copy(cells, g.Cells)
	return &Grid{Rows: g.Rows, Cols: g.Cols, Cells: cells}
}
