package core

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidMask           = errors.New("invalid action mask")
	ErrEmptyActionSpace      = errors.New("no legal action to sample")
	ErrIllegalMove           = errors.New("illegal move")
	ErrNotReset              = errors.New("environment has not been reset")
	ErrEpisodeOver           = errors.New("episode is over")
	ErrUnsupportedRenderMode = errors.New("unsupported render mode")
)

// StepError records which step and action produced an error.
type StepError struct {
	Step   int
	Action int
	Err    error
}

// NewStepError wraps err with step context. Returns nil for a nil err.
func NewStepError(step, action int, err error) error {
	if err == nil {
		return nil
	}
	return &StepError{Step: step, Action: action, Err: err}
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %d: action %d: %v", e.Step, e.Action, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}
