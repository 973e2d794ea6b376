package terminal

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/mitchelldurbincs/NumGridGame/internal/common"
	"github.com/mitchelldurbincs/NumGridGame/internal/game"
)

// Renderer is the ansi render mode: every frame is written to out as a
// colored text grid.
type Renderer struct {
	out    io.Writer
	styles map[game.RenderCategory]lipgloss.Style
	header lipgloss.Style
	closed bool
}

var _ game.Renderer = (*Renderer)(nil)

// NewRenderer creates a renderer writing to out. Color output depends on
// what out supports; plain writers get plain text.
func NewRenderer(out io.Writer, palette common.Palette) *Renderer {
	lg := lipgloss.NewRenderer(out)
	styles := make(map[game.RenderCategory]lipgloss.Style, 4)
	for _, c := range []game.RenderCategory{game.CategoryEmpty, game.CategoryFilled, game.CategoryCurrent, game.CategoryLegal} {
		styles[c] = lg.NewStyle().
			Background(lipgloss.Color(common.Hex(palette.ForCategory(c)))).
			Foreground(lipgloss.Color(common.Hex(palette.Text)))
	}
	return &Renderer{
		out:    out,
		styles: styles,
		header: lg.NewStyle().Bold(true),
	}
}

// Render writes frame to the output
func (r *Renderer) Render(frame game.Frame) error {
	if r.closed {
		return fmt.Errorf("terminal renderer closed")
	}
	_, err := io.WriteString(r.out, r.View(frame)+"\n")
	return err
}

// View returns the styled text of frame without writing it
func (r *Renderer) View(frame game.Frame) string {
	var sb strings.Builder
	sb.WriteString(r.header.Render(fmt.Sprintf("step %d  legal %d", frame.Step, len(frame.Legal))))

	for i, row := range frame.Categories() {
		sb.WriteString(fmt.Sprintf("\n%2d ", i))
		for _, c := range row {
			sb.WriteString(r.styles[c].Render(" " + c.Symbol() + " "))
		}
	}
	return sb.String()
}

// Close stops further rendering. Calling it again is a no-op.
func (r *Renderer) Close() error {
	r.closed = true
	return nil
}
