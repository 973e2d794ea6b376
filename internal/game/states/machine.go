package states

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/mitchelldurbincs/NumGridGame/internal/game/events"
)

// defaultHistoryLimit caps recorded phase changes per engine
const defaultHistoryLimit = 1000

// ErrInvalidTransition is returned when the current phase cannot move to the requested one
var ErrInvalidTransition = errors.New("invalid transition")

// State hooks run when the engine enters or leaves a phase
type State interface {
	Phase() GamePhase
	// Validate runs before Exit on the old phase; an error aborts the change.
	Validate(ctx *GameContext) error
	Enter(ctx *GameContext) error
	Exit(ctx *GameContext) error
}

// Transition is one recorded phase change
type Transition struct {
	From      GamePhase
	To        GamePhase
	Timestamp time.Time
	Reason    string
}

// StateMachine tracks the engine's episode phase. Reset moves it to Active,
// running out of legal moves moves it to Terminal.
type StateMachine struct {
	mu      sync.RWMutex
	phase   GamePhase
	states  map[GamePhase]State
	ctx     *GameContext
	bus     *events.EventBus
	history []Transition
	limit   int
}

// NewStateMachine starts in PhaseUninitialized. bus may be nil.
func NewStateMachine(ctx *GameContext, bus *events.EventBus) *StateMachine {
	sm := &StateMachine{
		phase:  PhaseUninitialized,
		states: make(map[GamePhase]State, 3),
		ctx:    ctx,
		bus:    bus,
		limit:  defaultHistoryLimit,
	}
	for _, s := range []State{NewUninitializedState(), NewActiveState(), NewTerminalState()} {
		sm.states[s.Phase()] = s
	}
	return sm
}

// RegisterState replaces the hooks for s.Phase()
func (sm *StateMachine) RegisterState(s State) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.states[s.Phase()] = s
}

func (sm *StateMachine) CurrentPhase() GamePhase {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.phase
}

// TransitionTo moves to target. A failed Enter leaves the machine in its
// previous phase with nothing recorded; a failed Exit is only logged.
func (sm *StateMachine) TransitionTo(target GamePhase, reason string) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	from := sm.phase
	if !from.CanTransitionTo(target) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, target)
	}
	next, ok := sm.states[target]
	if !ok {
		return fmt.Errorf("no hooks registered for phase %s", target)
	}
	if err := next.Validate(sm.ctx); err != nil {
		return fmt.Errorf("cannot enter %s: %w", target, err)
	}

	if prev, ok := sm.states[from]; ok {
		if err := prev.Exit(sm.ctx); err != nil {
			sm.ctx.Logger.Error().Err(err).
				Str("from_phase", from.String()).
				Str("to_phase", target.String()).
				Msg("Leaving phase failed, continuing")
		}
	}

	sm.phase = target
	if err := next.Enter(sm.ctx); err != nil {
		sm.phase = from
		return fmt.Errorf("enter %s: %w", target, err)
	}

	sm.record(Transition{From: from, To: target, Timestamp: time.Now(), Reason: reason})

	if sm.bus != nil {
		sm.bus.Publish(events.NewStateTransitionEvent(sm.ctx.GameID, from.String(), target.String(), reason))
	}

	sm.ctx.Logger.Debug().
		Str("from_phase", from.String()).
		Str("to_phase", target.String()).
		Str("reason", reason).
		Int("episode", sm.ctx.Episode).
		Msg("Phase changed")
	return nil
}

// record appends t and keeps only the newest sm.limit entries
func (sm *StateMachine) record(t Transition) {
	sm.history = append(sm.history, t)
	if over := len(sm.history) - sm.limit; over > 0 {
		sm.history = append(sm.history[:0], sm.history[over:]...)
	}
}

// History returns a copy of the recorded phase changes, oldest first
func (sm *StateMachine) History() []Transition {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return append([]Transition(nil), sm.history...)
}

// Context returns the shared episode context
func (sm *StateMachine) Context() *GameContext {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.ctx
}

func (sm *StateMachine) ClearHistory() {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.history = sm.history[:0]
}

// SetMaxHistorySize changes the history cap. Values below 1 are ignored.
func (sm *StateMachine) SetMaxHistorySize(size int) {
	if size < 1 {
		return
	}
	sm.mu.Lock()
	defer sm.mu.Unlock()

	sm.limit = size
	if over := len(sm.history) - size; over > 0 {
		sm.history = append(sm.history[:0], sm.history[over:]...)
	}
}
