package ui

import (
	"errors"
	"sync"

	"github.com/mitchelldurbincs/NumGridGame/internal/game"
)

// ErrWindowClosed is returned when rendering into a closed window
var ErrWindowClosed = errors.New("window closed")

// WindowRenderer is the human render mode. The engine pushes frames into it
// and the ebiten loop draws the latest one.
type WindowRenderer struct {
	mu     sync.Mutex
	frame  game.Frame
	has    bool
	closed bool
}

var _ game.Renderer = (*WindowRenderer)(nil)

func NewWindowRenderer() *WindowRenderer {
	return &WindowRenderer{}
}

// Render stores frame for the next draw
func (w *WindowRenderer) Render(frame game.Frame) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrWindowClosed
	}
	w.frame, w.has = frame, true
	return nil
}

// Frame returns the latest frame, if any
func (w *WindowRenderer) Frame() (game.Frame, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.frame, w.has
}

// Close drops the stored frame. Later renders fail.
func (w *WindowRenderer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	w.has = false
	return nil
}
