package core

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCoordinateIndexRoundTrip(t *testing.T) {
	tests := []struct {
		name    string
		coord   Coordinate
		columns int
		index   int
	}{
		{"origin", NewCoordinate(0, 0), 10, 0},
		{"first row end", NewCoordinate(0, 9), 10, 9},
		{"second row", NewCoordinate(1, 0), 10, 10},
		{"center", NewCoordinate(5, 5), 10, 55},
		{"rectangular", NewCoordinate(2, 3), 7, 17},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.index, tt.coord.ToIndex(tt.columns))
			assert.Equal(t, tt.coord, FromIndex(tt.index, tt.columns))
		})
	}
}

func TestCoordinateArithmetic(t *testing.T) {
	a := NewCoordinate(5, 5)
	b := NewCoordinate(-2, 3)

	assert.Equal(t, NewCoordinate(3, 8), a.Add(b))
	assert.Equal(t, NewCoordinate(7, 2), a.Sub(b))
	assert.True(t, a.Equal(NewCoordinate(5, 5)))
	assert.False(t, a.Equal(b))
	assert.Equal(t, "(5,5)", a.String())
}

func TestCoordinateIsValid(t *testing.T) {
	assert.True(t, NewCoordinate(0, 0).IsValid(1, 1))
	assert.True(t, NewCoordinate(9, 9).IsValid(10, 10))
	assert.False(t, NewCoordinate(10, 0).IsValid(10, 10))
	assert.False(t, NewCoordinate(0, -1).IsValid(10, 10))
}

func TestCellStateString(t *testing.T) {
	assert.Equal(t, "Empty", CellEmpty.String())
	assert.Equal(t, "Filled", CellFilled.String())
	assert.Equal(t, "Current", CellCurrent.String())
	assert.Equal(t, "Unknown(5)", CellState(5).String())
	assert.True(t, CellCurrent.IsValid())
	assert.False(t, CellState(3).IsValid())
}

func TestStepErrorWrapsCause(t *testing.T) {
	err := NewStepError(3, 4, ErrIllegalMove)
	require.Error(t, err)

	assert.True(t, errors.Is(err, ErrIllegalMove))
	assert.Equal(t, "step 3: action 4: illegal move", err.Error())

	var stepErr *StepError
	require.True(t, errors.As(err, &stepErr))
	assert.Equal(t, 3, stepErr.Step)
	assert.Equal(t, 4, stepErr.Action)

	assert.NoError(t, NewStepError(1, 1, nil))
}
