package game

import (
	"time"

	"github.com/mitchelldurbincs/NumGridGame/internal/game/core"
)

// Transition captures one successful step for experience collection
type Transition struct {
	GameID         string
	Step           int
	State          Observation
	Action         int
	Reward         float64
	NextState      Observation
	Done           bool
	ActionMask     []bool
	NextActionMask []bool
	From           core.Coordinate
	To             core.Coordinate
}

// EpisodeSummary describes a finished episode
type EpisodeSummary struct {
	GameID      string
	Steps       int
	FilledCells int
	TotalReward float64
	Coverage    float64
	Duration    time.Duration
}

// ExperienceCollector is an interface for collecting experiences during gameplay
type ExperienceCollector interface {
	// OnTransition is called after each successful step
	OnTransition(t Transition)

	// OnEpisodeEnd is called when the episode reaches a terminal state
	OnEpisodeEnd(summary EpisodeSummary)
}
