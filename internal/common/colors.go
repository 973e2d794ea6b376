package common

import (
	"fmt"
	"image/color"

	"github.com/mitchelldurbincs/NumGridGame/internal/config"
	"github.com/mitchelldurbincs/NumGridGame/internal/game"
)

// Default cell colors
var (
	EmptyColor   = color.RGBA{255, 255, 255, 255}
	FilledColor  = color.RGBA{255, 255, 51, 255}
	CurrentColor = color.RGBA{255, 191, 51, 255}
	LegalColor   = color.RGBA{127, 255, 255, 255}
)

// UI colors
var (
	BackgroundColor = color.RGBA{0, 0, 0, 255}
	GridLineColor   = color.RGBA{50, 50, 50, 255}
	TextColor       = color.RGBA{0, 0, 0, 255}
)

// Palette maps render categories to colors
type Palette struct {
	Empty      color.RGBA
	Filled     color.RGBA
	Current    color.RGBA
	Legal      color.RGBA
	Background color.RGBA
	GridLines  color.RGBA
	Text       color.RGBA
}

// DefaultPalette returns the built-in colors
func DefaultPalette() Palette {
	return Palette{
		Empty:      EmptyColor,
		Filled:     FilledColor,
		Current:    CurrentColor,
		Legal:      LegalColor,
		Background: BackgroundColor,
		GridLines:  GridLineColor,
		Text:       TextColor,
	}
}

// PaletteFromConfig builds a palette from validated config colors
func PaletteFromConfig(c config.ColorsConfig) Palette {
	return Palette{
		Empty:      rgb(c.Empty),
		Filled:     rgb(c.Filled),
		Current:    rgb(c.Current),
		Legal:      rgb(c.Legal),
		Background: rgb(c.Background),
		GridLines:  rgb(c.GridLines),
		Text:       rgb(c.Text),
	}
}

// ForCategory returns the fill color of a render category. Unknown
// categories use the background color.
func (p Palette) ForCategory(c game.RenderCategory) color.RGBA {
	switch c {
	case game.CategoryEmpty:
		return p.Empty
	case game.CategoryFilled:
		return p.Filled
	case game.CategoryCurrent:
		return p.Current
	case game.CategoryLegal:
		return p.Legal
	default:
		return p.Background
	}
}

// Hex formats c as #rrggbb
func Hex(c color.RGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

func rgb(v [3]int) color.RGBA {
	return color.RGBA{uint8(v[0]), uint8(v[1]), uint8(v[2]), 255}
}
