package input

import (
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"

	"github.com/mitchelldurbincs/NumGridGame/internal/game/core"
)

// Command is a keyboard request from the viewer
type Command int

const (
	CommandNone Command = iota
	CommandToggleAuto
	CommandStep
	CommandReset
	CommandQuit
)

// Handler turns mouse and keyboard state into board clicks and commands
type Handler struct {
	mouseX, mouseY int

	tileSize     int
	boardOffsetX int
	boardOffsetY int

	clicked  core.Coordinate
	hasClick bool
	commands []Command
}

func NewHandler(tileSize int) *Handler {
	return &Handler{tileSize: tileSize}
}

// Update polls input. Call once per frame.
func (h *Handler) Update() {
	h.mouseX, h.mouseY = ebiten.CursorPosition()

	if inpututil.IsMouseButtonJustPressed(ebiten.MouseButtonLeft) {
		h.clicked = h.screenToCell(h.mouseX, h.mouseY)
		h.hasClick = true
	}
	if inpututil.IsMouseButtonJustPressed(ebiten.MouseButtonRight) {
		h.hasClick = false
	}

	h.handleKeyboard()
}

func (h *Handler) handleKeyboard() {
	switch {
	case inpututil.IsKeyJustPressed(ebiten.KeySpace):
		h.commands = append(h.commands, CommandToggleAuto)
	case inpututil.IsKeyJustPressed(ebiten.KeyN):
		h.commands = append(h.commands, CommandStep)
	case inpututil.IsKeyJustPressed(ebiten.KeyR):
		h.commands = append(h.commands, CommandReset)
	case inpututil.IsKeyJustPressed(ebiten.KeyEscape):
		h.commands = append(h.commands, CommandQuit)
	}
}

func (h *Handler) screenToCell(x, y int) core.Coordinate {
	return core.NewCoordinate((y-h.boardOffsetY)/h.tileSize, (x-h.boardOffsetX)/h.tileSize)
}

func (h *Handler) SetBoardOffset(x, y int) {
	h.boardOffsetX = x
	h.boardOffsetY = y
}

// HoveredCell returns the cell under the cursor
func (h *Handler) HoveredCell() core.Coordinate {
	return h.screenToCell(h.mouseX, h.mouseY)
}

// TakeClick returns the last clicked cell once
func (h *Handler) TakeClick() (core.Coordinate, bool) {
	c, ok := h.clicked, h.hasClick
	h.hasClick = false
	return c, ok
}

// TakeCommands returns and clears the queued commands
func (h *Handler) TakeCommands() []Command {
	cmds := h.commands
	h.commands = nil
	return cmds
}
