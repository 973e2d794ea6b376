package core

import "fmt"

// CellState is the value stored at each grid position.
type CellState int

const (
	CellEmpty   CellState = 0
	CellFilled  CellState = 1
	CellCurrent CellState = 2
)

func (s CellState) String() string {
	switch s {
	case CellEmpty:
		return "Empty"
	case CellFilled:
		return "Filled"
	case CellCurrent:
		return "Current"
	default:
		return fmt.Sprintf("Unknown(%d)", int(s))
	}
}

// IsValid reports whether s is one of the three known cell states.
func (s CellState) IsValid() bool {
	return s >= CellEmpty && s <= CellCurrent
}
