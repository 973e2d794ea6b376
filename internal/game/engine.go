package game

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/exp/rand"

	"github.com/mitchelldurbincs/NumGridGame/internal/game/core"
	"github.com/mitchelldurbincs/NumGridGame/internal/game/events"
	"github.com/mitchelldurbincs/NumGridGame/internal/game/rules"
	"github.com/mitchelldurbincs/NumGridGame/internal/game/spaces"
	"github.com/mitchelldurbincs/NumGridGame/internal/game/states"
)

// NumActions is the size of the action space
const NumActions = core.NumMoves

// Engine runs one grid-filling game. It is not safe for concurrent use.
type Engine struct {
	gameID string
	rows   int
	cols   int

	gs     *GameState
	rng    *rand.Rand
	seeded bool

	actionSpace *spaces.MaskedDiscrete

	logger       zerolog.Logger
	eventBus     *events.EventBus
	stateMachine *states.StateMachine
	legalMoves   *rules.LegalMoveCalculator
	terminal     *rules.TerminalChecker
	collector    ExperienceCollector

	renderers map[RenderMode]Renderer
	closed    bool
}

// NewEngine creates a new engine. Call Reset before Step.
func NewEngine(cfg GameConfig) *Engine {
	return NewEngineInitializer(cfg).Initialize()
}

// Seed reseeds the shared random source in place. A nil seed is derived
// from the clock. Returns the seed actually used.
func (e *Engine) Seed(seed *uint64) []uint64 {
	var s uint64
	if seed != nil {
		s = *seed
	} else {
		s = uint64(time.Now().UnixNano())
	}
	e.rng.Seed(s)
	e.seeded = true
	e.logger.Debug().Uint64("seed", s).Msg("Random source seeded")
	return []uint64{s}
}

// Reset starts a new episode from a random start cell and returns the
// first observation.
func (e *Engine) Reset() Observation {
	if !e.seeded {
		e.Seed(nil)
	}

	start := core.NewCoordinate(e.randomStart(e.rows), e.randomStart(e.cols))

	e.gs = newGameState(e.rows, e.cols)
	e.gs.Grid.Set(start, core.CellCurrent)
	e.gs.Position = start
	e.gs.Step = 1

	e.refreshMask()

	ctx := e.stateMachine.Context()
	ctx.Step = e.gs.Step
	if err := e.stateMachine.TransitionTo(states.PhaseActive, "reset"); err != nil {
		e.logger.Error().Err(err).Msg("Failed to enter active phase on reset")
	}

	legal := e.actionSpace.Len()
	e.eventBus.Publish(events.NewEpisodeStartedEvent(e.gameID, e.rows, e.cols, start, legal))
	e.logger.Debug().
		Str("start", start.String()).
		Int("legal_moves", legal).
		Msg("Episode reset")

	if e.terminal.CheckDone(e.actionSpace.Mask()) {
		e.logger.Warn().Str("start", start.String()).Msg("Start cell has no legal move")
		e.endEpisode("boxed in at start")
	}

	return e.Observation()
}

// randomStart draws from [1, n). Dimensions below 2 have no such value and yield 0.
func (e *Engine) randomStart(n int) int {
	if n < 2 {
		return 0
	}
	return 1 + e.rng.Intn(n-1)
}

// Step applies one move. Rejected actions leave the engine untouched and
// return a *core.StepError wrapping ErrNotReset, ErrEpisodeOver or ErrIllegalMove.
func (e *Engine) Step(action int) (StepResult, error) {
	switch phase := e.stateMachine.CurrentPhase(); {
	case phase == states.PhaseUninitialized:
		return StepResult{}, e.reject(action, core.ErrNotReset)
	case phase.IsTerminal():
		return StepResult{}, e.reject(action, core.ErrEpisodeOver)
	case !e.actionSpace.Contains(action):
		return StepResult{}, e.reject(action, core.ErrIllegalMove)
	}

	var prevObs Observation
	var prevMask []bool
	if e.collector != nil {
		prevObs = e.Observation()
		prevMask = e.actionSpace.Mask()
	}

	e.gs.Step++
	from := e.gs.Position
	e.gs.Previous, e.gs.HasPrevious = from, true
	e.gs.Grid.Set(from, core.CellFilled)

	to := from.Add(core.MoveOffsets[action])
	e.gs.Grid.Set(to, core.CellCurrent)
	e.gs.Position = to

	e.refreshMask()
	done := e.terminal.CheckDone(e.actionSpace.Mask())

	e.gs.TotalReward += StepReward
	e.stateMachine.Context().Step = e.gs.Step

	obs := e.Observation()
	e.eventBus.Publish(events.NewMoveExecutedEvent(e.gameID, e.gs.Step, action, from, to, StepReward, done))

	if e.collector != nil {
		e.collector.OnTransition(Transition{
			GameID:         e.gameID,
			Step:           e.gs.Step,
			State:          prevObs,
			Action:         action,
			Reward:         StepReward,
			NextState:      e.Observation(),
			Done:           done,
			ActionMask:     prevMask,
			NextActionMask: e.actionSpace.Mask(),
			From:           from,
			To:             to,
		})
	}

	if done {
		e.endEpisode("no legal moves")
	}

	return StepResult{
		Observation: obs,
		Reward:      StepReward,
		Done:        done,
		Info:        map[string]any{},
	}, nil
}

func (e *Engine) reject(action int, cause error) error {
	err := core.NewStepError(e.gs.Step, action, cause)
	e.eventBus.Publish(events.NewMoveRejectedEvent(e.gameID, e.gs.Step, action, cause.Error()))
	e.logger.Debug().Err(err).Msg("Step rejected")
	return err
}

// refreshMask recomputes legality from scratch and pushes it into the action space
func (e *Engine) refreshMask() {
	mask := e.legalMoves.GetLegalActionMask(e.gs.Grid, e.gs.Position)
	if err := e.actionSpace.SetMask(mask); err != nil {
		// mask length always matches NumActions
		e.logger.Error().Err(err).Msg("Failed to update action mask")
	}
}

func (e *Engine) endEpisode(reason string) {
	if err := e.stateMachine.TransitionTo(states.PhaseTerminal, reason); err != nil {
		e.logger.Error().Err(err).Msg("Failed to enter terminal phase")
	}

	summary := e.summary()
	e.eventBus.Publish(events.NewEpisodeEndedEvent(e.gameID, summary.Steps, summary.FilledCells, summary.TotalReward, summary.Duration))
	if e.collector != nil {
		e.collector.OnEpisodeEnd(summary)
	}
}

// GetMoves returns the destination of every move from the current position,
// legal or not.
func (e *Engine) GetMoves() [core.NumMoves]core.Coordinate {
	return core.Destinations(e.gs.Position)
}

// GetMask returns the legality of every move from the current position
func (e *Engine) GetMask() []bool {
	return e.legalMoves.GetLegalActionMask(e.gs.Grid, e.gs.Position)
}

// PossibleMoves returns the legal destinations in action order
func (e *Engine) PossibleMoves() []core.Coordinate {
	return e.legalMoves.LegalDestinations(e.gs.Grid, e.gs.Position)
}

// SetRenderer registers r for mode, replacing any previous renderer
func (e *Engine) SetRenderer(mode RenderMode, r Renderer) {
	e.renderers[mode] = r
}

// Render hands the current frame to the renderer registered for mode
func (e *Engine) Render(mode RenderMode) error {
	if e.stateMachine.CurrentPhase() == states.PhaseUninitialized {
		return core.ErrNotReset
	}
	r, ok := e.renderers[mode]
	if !ok || r == nil {
		return fmt.Errorf("render mode %q: %w", mode, core.ErrUnsupportedRenderMode)
	}
	if err := r.Render(e.frame()); err != nil {
		return fmt.Errorf("render mode %q: %w", mode, err)
	}
	return nil
}

// Close releases every registered renderer. Renderer failures are logged,
// never returned. Calling Close again is a no-op.
func (e *Engine) Close() error {
	if e.closed {
		return nil
	}
	e.closed = true
	for mode, r := range e.renderers {
		if r == nil {
			continue
		}
		if err := r.Close(); err != nil {
			e.logger.Warn().Err(err).Str("mode", string(mode)).Msg("Renderer failed to close")
		}
	}
	e.logger.Debug().Msg("Engine closed")
	return nil
}

// Public accessors
func (e *Engine) ActionSpace() *spaces.MaskedDiscrete { return e.actionSpace }
func (e *Engine) Position() core.Coordinate          { return e.gs.Position }
func (e *Engine) StepCount() int                     { return e.gs.Step }
func (e *Engine) GameID() string                     { return e.gameID }
func (e *Engine) Rows() int                          { return e.rows }
func (e *Engine) Columns() int                       { return e.cols }
func (e *Engine) Phase() states.GamePhase            { return e.stateMachine.CurrentPhase() }
func (e *Engine) IsTerminal() bool                   { return e.stateMachine.CurrentPhase().IsTerminal() }
func (e *Engine) EventBus() *events.EventBus         { return e.eventBus }
func (e *Engine) GameState() GameState               { return e.gs.Clone() }

// PreviousPosition returns the cell left by the last step. The bool is false
// until the first step of an episode.
func (e *Engine) PreviousPosition() (core.Coordinate, bool) {
	return e.gs.Previous, e.gs.HasPrevious
}

// Observation returns a fresh copy of the grid
func (e *Engine) Observation() Observation {
	return Observation(e.gs.Grid.Snapshot())
}

// ObservationShape returns (rows, columns) of every observation
func (e *Engine) ObservationShape() (int, int) {
	return e.rows, e.cols
}

// History returns the phase transitions recorded by the engine
func (e *Engine) History() []states.Transition {
	return e.stateMachine.History()
}
