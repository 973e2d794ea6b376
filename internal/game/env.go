package game

import "github.com/mitchelldurbincs/NumGridGame/internal/game/spaces"

// Env is the reinforcement-learning environment contract
type Env interface {
	Reset() Observation
	Step(action int) (StepResult, error)
	Seed(seed *uint64) []uint64
	Render(mode RenderMode) error
	Close() error
	ActionSpace() *spaces.MaskedDiscrete
}

var _ Env = (*Engine)(nil)
