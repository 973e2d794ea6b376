package game

import (
	"github.com/mitchelldurbincs/NumGridGame/internal/game/events"
	"github.com/rs/zerolog"
)

// GameConfig configures a new engine. The zero value is usable.
type GameConfig struct {
	Rows    int // non-positive means DefaultRows
	Columns int // non-positive means DefaultColumns

	// Seed, when set, seeds the random source at construction. Otherwise the
	// first reset seeds it from the clock.
	Seed *uint64

	// GameID identifies the engine in logs, events and experiences.
	// A uuid is generated when empty.
	GameID string

	Logger              zerolog.Logger
	EventBus            *events.EventBus
	ExperienceCollector ExperienceCollector
}
