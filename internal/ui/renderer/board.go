package renderer

import (
	"image/color"
	"strconv"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/text"
	"github.com/hajimehoshi/ebiten/v2/vector"
	"golang.org/x/image/font"

	"github.com/mitchelldurbincs/NumGridGame/internal/common"
	"github.com/mitchelldurbincs/NumGridGame/internal/game"
	"github.com/mitchelldurbincs/NumGridGame/internal/game/core"
)

var (
	PreviousBorderColor = color.RGBA{200, 120, 0, 255}
	HoverColor          = color.RGBA{255, 255, 255, 64} // Semi-transparent white
)

// BoardRenderer draws a game.Frame as a grid of colored tiles
type BoardRenderer struct {
	tileSize        int
	defaultFont     font.Face
	palette         common.Palette
	showCoordinates bool

	hover    core.Coordinate
	hasHover bool
}

// NewBoardRenderer returns a renderer ready to use.
func NewBoardRenderer(tileSize int, f font.Face, palette common.Palette) *BoardRenderer {
	return &BoardRenderer{tileSize: tileSize, defaultFont: f, palette: palette}
}

// SetShowCoordinates toggles "row,col" labels on every tile
func (br *BoardRenderer) SetShowCoordinates(show bool) {
	br.showCoordinates = show
}

// SetHover highlights the tile under the cursor
func (br *BoardRenderer) SetHover(cell core.Coordinate, ok bool) {
	br.hover, br.hasHover = cell, ok
}

// TileSize returns the edge length of one tile in pixels
func (br *BoardRenderer) TileSize() int {
	return br.tileSize
}

// Draw renders the frame on the supplied Ebiten screen.
func (br *BoardRenderer) Draw(screen *ebiten.Image, frame game.Frame) {
	size := float32(br.tileSize)

	for r, row := range frame.Categories() {
		for c, category := range row {
			x := float32(c * br.tileSize)
			y := float32(r * br.tileSize)

			vector.DrawFilledRect(screen, x, y, size, size, br.palette.ForCategory(category), false)
			vector.StrokeRect(screen, x, y, size, size, 1, br.palette.GridLines, false)

			if br.showCoordinates && br.defaultFont != nil {
				label := strconv.Itoa(r) + "," + strconv.Itoa(c)
				text.Draw(screen, label, br.defaultFont, int(x)+3, int(y)+13, br.palette.Text)
			}
		}
	}

	if frame.HasPrevious {
		br.drawBorder(screen, frame.Previous, PreviousBorderColor)
	}

	if br.hasHover && br.hover.IsValid(len(frame.Grid), gridColumns(frame)) {
		x := float32(br.hover.Col * br.tileSize)
		y := float32(br.hover.Row * br.tileSize)
		vector.DrawFilledRect(screen, x, y, size, size, HoverColor, false)
	}

	if br.defaultFont != nil {
		br.drawCentered(screen, frame.Current, "@")
	}
}

func (br *BoardRenderer) drawBorder(screen *ebiten.Image, cell core.Coordinate, c color.Color) {
	x := float32(cell.Col * br.tileSize)
	y := float32(cell.Row * br.tileSize)
	size := float32(br.tileSize)
	thickness := float32(3)

	vector.DrawFilledRect(screen, x, y, size, thickness, c, false)
	vector.DrawFilledRect(screen, x, y+size-thickness, size, thickness, c, false)
	vector.DrawFilledRect(screen, x, y, thickness, size, c, false)
	vector.DrawFilledRect(screen, x+size-thickness, y, thickness, size, c, false)
}

func (br *BoardRenderer) drawCentered(screen *ebiten.Image, cell core.Coordinate, s string) {
	b := text.BoundString(br.defaultFont, s)
	textW := b.Max.X - b.Min.X
	textH := b.Max.Y - b.Min.Y

	x := cell.Col*br.tileSize + (br.tileSize-textW)/2
	y := cell.Row*br.tileSize + (br.tileSize+textH)/2
	text.Draw(screen, s, br.defaultFont, x, y, br.palette.Text)
}

func gridColumns(frame game.Frame) int {
	if len(frame.Grid) == 0 {
		return 0
	}
	return len(frame.Grid[0])
}
