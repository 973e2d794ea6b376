package core

import "fmt"

// Move indexes one of the nine candidate jumps. The ordering is part of the
// action space contract and must not change.
type Move int

const (
	MoveDownLeft Move = iota
	MoveDown
	MoveDownRight
	MoveLeft
	MoveStay
	MoveRight
	MoveUpLeft
	MoveUp
	MoveUpRight
)

// NumMoves is the size of the action space.
const NumMoves = 9

// MoveOffsets provides the (row, col) displacement for each move.
// Straight jumps cover three cells, diagonal jumps two.
var MoveOffsets = [NumMoves]Coordinate{
	MoveDownLeft:  {Row: 2, Col: -2},
	MoveDown:      {Row: 3, Col: 0},
	MoveDownRight: {Row: 2, Col: 2},
	MoveLeft:      {Row: 0, Col: -3},
	MoveStay:      {Row: 0, Col: 0},
	MoveRight:     {Row: 0, Col: 3},
	MoveUpLeft:    {Row: -2, Col: -2},
	MoveUp:        {Row: -3, Col: 0},
	MoveUpRight:   {Row: -2, Col: 2},
}

var moveNames = [NumMoves]string{
	"down-left", "down", "down-right",
	"left", "stay", "right",
	"up-left", "up", "up-right",
}

func (m Move) String() string {
	if !m.IsValid() {
		return fmt.Sprintf("Unknown(%d)", int(m))
	}
	return moveNames[m]
}

// IsValid reports whether m indexes one of the nine candidates.
func (m Move) IsValid() bool {
	return m >= 0 && m < NumMoves
}

// Offset returns the displacement for m. Unknown moves map to stay.
func (m Move) Offset() Coordinate {
	if !m.IsValid() {
		return MoveOffsets[MoveStay]
	}
	return MoveOffsets[m]
}

// Destinations applies every move offset to from, in action order.
func Destinations(from Coordinate) [NumMoves]Coordinate {
	var dests [NumMoves]Coordinate
	for i, off := range MoveOffsets {
		dests[i] = from.Add(off)
	}
	return dests
}

// MoveBetween finds the move that jumps from one cell to another. Stay is
// never reported.
func MoveBetween(from, to Coordinate) (Move, bool) {
	delta := to.Sub(from)
	for i, off := range MoveOffsets {
		if Move(i) != MoveStay && off == delta {
			return Move(i), true
		}
	}
	return MoveStay, false
}
