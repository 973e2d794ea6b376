package game

import (
	"fmt"
	"strings"

	"github.com/mitchelldurbincs/NumGridGame/internal/game/core"
)

// RenderMode selects a registered renderer
type RenderMode string

const (
	RenderHuman RenderMode = "human" // ebiten window
	RenderANSI  RenderMode = "ansi"  // lipgloss text
)

// RenderCategory is how a cell is displayed
type RenderCategory int

const (
	CategoryEmpty RenderCategory = iota
	CategoryFilled
	CategoryCurrent
	CategoryLegal // empty cell reachable by a legal move
)

func (c RenderCategory) String() string {
	switch c {
	case CategoryEmpty:
		return "empty"
	case CategoryFilled:
		return "filled"
	case CategoryCurrent:
		return "current"
	case CategoryLegal:
		return "legal"
	default:
		return fmt.Sprintf("Unknown(%d)", int(c))
	}
}

// Symbol is the single-character glyph used by text renderers
func (c RenderCategory) Symbol() string {
	switch c {
	case CategoryFilled:
		return "#"
	case CategoryCurrent:
		return "@"
	case CategoryLegal:
		return "+"
	default:
		return "·"
	}
}

// Frame is everything a renderer needs to draw one step
type Frame struct {
	Grid        [][]int
	Previous    core.Coordinate
	HasPrevious bool
	Current     core.Coordinate
	Legal       []core.Coordinate
	Step        int
}

// Renderer draws frames. Close releases whatever the renderer holds open.
type Renderer interface {
	Render(frame Frame) error
	Close() error
}

// Categories maps every cell to a display category. Legal destinations win
// over empty.
func (f Frame) Categories() [][]RenderCategory {
	out := make([][]RenderCategory, len(f.Grid))
	for r, row := range f.Grid {
		out[r] = make([]RenderCategory, len(row))
		for c, v := range row {
			switch core.CellState(v) {
			case core.CellFilled:
				out[r][c] = CategoryFilled
			case core.CellCurrent:
				out[r][c] = CategoryCurrent
			default:
				out[r][c] = CategoryEmpty
			}
		}
	}
	for _, dest := range f.Legal {
		if dest.Row < 0 || dest.Row >= len(out) || dest.Col < 0 || dest.Col >= len(out[dest.Row]) {
			continue
		}
		if out[dest.Row][dest.Col] == CategoryEmpty {
			out[dest.Row][dest.Col] = CategoryLegal
		}
	}
	return out
}

// String draws the frame as plain text with row and column headers
func (f Frame) String() string {
	cats := f.Categories()
	cols := 0
	if len(cats) > 0 {
		cols = len(cats[0])
	}

	var sb strings.Builder
	sb.Grow((cols*2 + 4) * (len(cats) + 3))

	sb.WriteString("   ")
	for c := 0; c < cols; c++ {
		fmt.Fprintf(&sb, "%2d", c)
	}
	sb.WriteString("\n")

	for r, row := range cats {
		fmt.Fprintf(&sb, "%2d ", r)
		for _, cat := range row {
			sb.WriteString(" ")
			sb.WriteString(cat.Symbol())
		}
		sb.WriteString("\n")
	}

	fmt.Fprintf(&sb, "step %d  ", f.Step)
	sb.WriteString(CategoryCurrent.Symbol() + "=current " + CategoryFilled.Symbol() + "=filled " + CategoryLegal.Symbol() + "=legal\n")
	return sb.String()
}

// frame builds a render frame from the current engine state
func (e *Engine) frame() Frame {
	return Frame{
		Grid:        e.gs.Grid.Snapshot(),
		Previous:    e.gs.Previous,
		HasPrevious: e.gs.HasPrevious,
		Current:     e.gs.Position,
		Legal:       e.PossibleMoves(),
		Step:        e.gs.Step,
	}
}
