package core

import "fmt"

// Coordinate represents a cell on the grid as (row, column)
type Coordinate struct {
	Row, Col int
}

// NewCoordinate creates a new coordinate with the given row and column
func NewCoordinate(row, col int) Coordinate {
	return Coordinate{Row: row, Col: col}
}

// FromIndex creates a coordinate from a grid array index using row-major ordering
func FromIndex(idx, columns int) Coordinate {
	return Coordinate{
		Row: idx / columns,
		Col: idx % columns,
	}
}

// IsValid checks if the coordinate is within the given bounds
func (c Coordinate) IsValid(rows, columns int) bool {
	return c.Row >= 0 && c.Row < rows && c.Col >= 0 && c.Col < columns
}

// ToIndex converts the coordinate to a grid array index using row-major ordering
func (c Coordinate) ToIndex(columns int) int {
	return c.Row*columns + c.Col
}

// Add returns a new coordinate that is the sum of this coordinate and another
func (c Coordinate) Add(other Coordinate) Coordinate {
	return Coordinate{
		Row: c.Row + other.Row,
		Col: c.Col + other.Col,
	}
}

// Sub returns a new coordinate that is the difference between this coordinate and another
func (c Coordinate) Sub(other Coordinate) Coordinate {
	return Coordinate{
		Row: c.Row - other.Row,
		Col: c.Col - other.Col,
	}
}

// Equal checks if two coordinates are equal
func (c Coordinate) Equal(other Coordinate) bool {
	return c.Row == other.Row && c.Col == other.Col
}

// String returns a string representation of the coordinate
func (c Coordinate) String() string {
	return fmt.Sprintf("(%d,%d)", c.Row, c.Col)
}
