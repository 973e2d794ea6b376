package states

import (
	"time"

	"github.com/rs/zerolog"
)

// GameContext provides episode information to states for making decisions
type GameContext struct {
	// GameID uniquely identifies the engine instance
	GameID string

	// Logger for state-specific logging
	Logger zerolog.Logger

	// Rows and Columns are the grid dimensions
	Rows    int
	Columns int

	// Episode counts resets performed so far
	Episode int

	// Step mirrors the engine step counter
	Step int

	// StartTime is when the current episode entered PhaseActive
	StartTime time.Time

	// EndTime is when the current episode entered PhaseTerminal
	EndTime time.Time

	// Metadata for custom state data
	Metadata map[string]interface{}
}

// NewGameContext creates a new game context
func NewGameContext(gameID string, rows, columns int, logger zerolog.Logger) *GameContext {
	return &GameContext{
		GameID:   gameID,
		Rows:     rows,
		Columns:  columns,
		Logger:   logger.With().Str("game_id", gameID).Logger(),
		Metadata: make(map[string]interface{}),
	}
}

// GetElapsedTime returns the duration of the current episode. A finished
// episode reports its final duration.
func (gc *GameContext) GetElapsedTime() time.Duration {
	if gc.StartTime.IsZero() {
		return 0
	}
	if !gc.EndTime.IsZero() && gc.EndTime.After(gc.StartTime) {
		return gc.EndTime.Sub(gc.StartTime)
	}
	return time.Since(gc.StartTime)
}

// SetMetadata stores custom data for states
func (gc *GameContext) SetMetadata(key string, value interface{}) {
	gc.Metadata[key] = value
}

// GetMetadata retrieves custom data stored by states
func (gc *GameContext) GetMetadata(key string) (interface{}, bool) {
	val, exists := gc.Metadata[key]
	return val, exists
}
