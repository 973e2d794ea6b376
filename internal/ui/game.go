package ui

import (
	"errors"
	"fmt"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/rs/zerolog"
	"golang.org/x/image/font/basicfont"

	"github.com/mitchelldurbincs/NumGridGame/internal/common"
	"github.com/mitchelldurbincs/NumGridGame/internal/config"
	"github.com/mitchelldurbincs/NumGridGame/internal/game"
	"github.com/mitchelldurbincs/NumGridGame/internal/game/core"
	"github.com/mitchelldurbincs/NumGridGame/internal/ui/input"
	"github.com/mitchelldurbincs/NumGridGame/internal/ui/renderer"
)

const statusBarHeight = 20

// UIGame drives an engine from the ebiten loop. A random agent plays while
// auto mode is on; clicking a highlighted cell plays that move.
type UIGame struct {
	engine        *game.Engine
	window        *WindowRenderer
	boardRenderer *renderer.BoardRenderer
	inputHandler  *input.Handler
	logger        zerolog.Logger

	auto         bool
	stepInterval int
	stepTimer    int

	episodes int
	status   string
}

// NewUIGame creates a new Ebitengine game instance and resets the engine.
func NewUIGame(engine *game.Engine, cfg *config.Config, logger zerolog.Logger) *UIGame {
	g := &UIGame{
		engine:       engine,
		window:       NewWindowRenderer(),
		inputHandler: input.NewHandler(cfg.UI.Game.TileSize),
		logger:       logger.With().Str("component", "ui").Logger(),
		auto:         true,
		stepInterval: cfg.UI.Game.StepInterval,
	}

	g.boardRenderer = renderer.NewBoardRenderer(cfg.UI.Game.TileSize, basicfont.Face7x13, common.PaletteFromConfig(cfg.Colors))
	g.boardRenderer.SetShowCoordinates(cfg.Development.ShowCoordinates)

	engine.SetRenderer(game.RenderHuman, g.window)
	g.reset()
	return g
}

// Run opens the window and blocks until it is closed.
func Run(g *UIGame, cfg config.WindowConfig) error {
	ebiten.SetWindowSize(cfg.Width, cfg.Height)
	ebiten.SetWindowTitle(cfg.Title)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)

	err := ebiten.RunGame(g)
	if closeErr := g.engine.Close(); closeErr != nil {
		g.logger.Warn().Err(closeErr).Msg("Failed to close engine")
	}
	if errors.Is(err, ebiten.Termination) {
		return nil
	}
	return err
}

// Update proceeds the game state.
func (g *UIGame) Update() error {
	g.inputHandler.Update()
	g.boardRenderer.SetHover(g.inputHandler.HoveredCell(), true)

	for _, cmd := range g.inputHandler.TakeCommands() {
		switch cmd {
		case input.CommandQuit:
			return ebiten.Termination
		case input.CommandToggleAuto:
			g.auto = !g.auto
		case input.CommandReset:
			g.reset()
		case input.CommandStep:
			g.stepRandom()
		}
	}

	if cell, ok := g.inputHandler.TakeClick(); ok {
		g.stepTowards(cell)
	}

	if !g.auto {
		return nil
	}

	g.stepTimer++
	if g.stepTimer < g.stepInterval {
		return nil
	}
	g.stepTimer = 0

	if g.engine.IsTerminal() {
		g.reset()
		return nil
	}
	g.stepRandom()
	return nil
}

func (g *UIGame) reset() {
	g.engine.Reset()
	g.episodes++
	g.status = ""
	g.render()
}

func (g *UIGame) stepRandom() {
	if g.engine.IsTerminal() {
		return
	}
	action, err := g.engine.ActionSpace().Sample()
	if err != nil {
		g.status = err.Error()
		return
	}
	g.step(action)
}

func (g *UIGame) stepTowards(cell core.Coordinate) {
	move, ok := core.MoveBetween(g.engine.Position(), cell)
	if !ok {
		g.status = fmt.Sprintf("%s is not a jump away", cell)
		return
	}
	g.step(int(move))
}

func (g *UIGame) step(action int) {
	res, err := g.engine.Step(action)
	if err != nil {
		g.status = err.Error()
		return
	}
	g.status = ""
	if res.Done {
		stats := g.engine.Stats()
		g.status = fmt.Sprintf("episode over: %d cells filled", stats.FilledCells)
		g.logger.Info().
			Int("episode", g.episodes).
			Int("steps", stats.Step).
			Float64("coverage", stats.Coverage).
			Msg("Episode finished")
	}
	g.render()
}

func (g *UIGame) render() {
	if err := g.engine.Render(game.RenderHuman); err != nil {
		g.logger.Error().Err(err).Msg("Failed to render frame")
	}
}

// Draw renders the game screen.
func (g *UIGame) Draw(screen *ebiten.Image) {
	screen.Fill(common.BackgroundColor)

	frame, ok := g.window.Frame()
	if !ok {
		return
	}
	g.boardRenderer.Draw(screen, frame)

	mode := "manual"
	if g.auto {
		mode = "auto"
	}
	line := fmt.Sprintf("Episode %d  Step %d  Legal %d  [%s]  %s", g.episodes, frame.Step, len(frame.Legal), mode, g.status)
	ebitenutil.DebugPrintAt(screen, line, 5, g.engine.Rows()*g.boardRenderer.TileSize()+2)
}

// Layout defines the Ebitengine screen size.
func (g *UIGame) Layout(outsideWidth, outsideHeight int) (screenWidth, screenHeight int) {
	tile := g.boardRenderer.TileSize()
	return g.engine.Columns() * tile, g.engine.Rows()*tile + statusBarHeight
}
