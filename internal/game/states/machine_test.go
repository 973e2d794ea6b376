package states

import (
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mitchelldurbincs/NumGridGame/internal/game/events"
)

func TestGamePhase_String(t *testing.T) {
	tests := []struct {
		phase    GamePhase
		expected string
	}{
		{PhaseUninitialized, "Uninitialized"},
		{PhaseActive, "Active"},
		{PhaseTerminal, "Terminal"},
		{GamePhase(999), "Unknown(999)"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.phase.String())
		})
	}
}

func TestParsePhase(t *testing.T) {
	assert.Equal(t, PhaseActive, ParsePhase("Active"))
	assert.Equal(t, PhaseTerminal, ParsePhase("Terminal"))
	assert.Equal(t, PhaseUninitialized, ParsePhase("Uninitialized"))
	assert.Equal(t, PhaseUninitialized, ParsePhase("bogus"))
}

func TestGamePhase_Properties(t *testing.T) {
	t.Run("IsTerminal", func(t *testing.T) {
		assert.True(t, PhaseTerminal.IsTerminal())
		assert.False(t, PhaseActive.IsTerminal())
		assert.False(t, PhaseUninitialized.IsTerminal())
	})

	t.Run("CanReceiveActions", func(t *testing.T) {
		assert.True(t, PhaseActive.CanReceiveActions())
		assert.False(t, PhaseUninitialized.CanReceiveActions())
		assert.False(t, PhaseTerminal.CanReceiveActions())
	})
}

func TestGamePhase_Transitions(t *testing.T) {
	allPhases := []GamePhase{PhaseUninitialized, PhaseActive, PhaseTerminal}

	tests := []struct {
		from    GamePhase
		allowed []GamePhase
	}{
		{PhaseUninitialized, []GamePhase{PhaseActive}},
		{PhaseActive, []GamePhase{PhaseActive, PhaseTerminal}},
		{PhaseTerminal, []GamePhase{PhaseActive}},
		{GamePhase(42), []GamePhase{}},
	}

	for _, tt := range tests {
		t.Run(tt.from.String(), func(t *testing.T) {
			assert.Equal(t, tt.allowed, tt.from.AllowedTransitions())

			for _, target := range allPhases {
				shouldAllow := false
				for _, allowed := range tt.allowed {
					if target == allowed {
						shouldAllow = true
						break
					}
				}
				assert.Equal(t, shouldAllow, tt.from.CanTransitionTo(target), "%s -> %s", tt.from, target)
			}
		})
	}
}

func TestGameContext(t *testing.T) {
	logger := zerolog.Nop()

	t.Run("NewGameContext", func(t *testing.T) {
		ctx := NewGameContext("test-game", 10, 8, logger)
		assert.Equal(t, "test-game", ctx.GameID)
		assert.Equal(t, 10, ctx.Rows)
		assert.Equal(t, 8, ctx.Columns)
		assert.Zero(t, ctx.Episode)
		assert.NotNil(t, ctx.Metadata)
	})

	t.Run("GetElapsedTime", func(t *testing.T) {
		ctx := NewGameContext("test-game", 10, 10, logger)

		assert.Equal(t, time.Duration(0), ctx.GetElapsedTime())

		ctx.StartTime = time.Now().Add(-10 * time.Second)
		elapsed := ctx.GetElapsedTime()
		assert.Greater(t, elapsed, 9*time.Second)
		assert.Less(t, elapsed, 11*time.Second)

		// a finished episode reports a frozen duration
		ctx.EndTime = ctx.StartTime.Add(3 * time.Second)
		assert.Equal(t, 3*time.Second, ctx.GetElapsedTime())
	})

	t.Run("Metadata", func(t *testing.T) {
		ctx := NewGameContext("test-game", 10, 10, logger)

		ctx.SetMetadata("key1", "value1")
		ctx.SetMetadata("key2", 42)

		val1, exists1 := ctx.GetMetadata("key1")
		assert.True(t, exists1)
		assert.Equal(t, "value1", val1)

		val2, exists2 := ctx.GetMetadata("key2")
		assert.True(t, exists2)
		assert.Equal(t, 42, val2)

		_, exists3 := ctx.GetMetadata("nonexistent")
		assert.False(t, exists3)
	})
}

func TestStateMachine(t *testing.T) {
	logger := zerolog.Nop()

	setup := func() (*StateMachine, *GameContext, *events.EventBus) {
		ctx := NewGameContext("test-game", 10, 10, logger)
		eventBus := events.NewEventBus(logger)
		sm := NewStateMachine(ctx, eventBus)
		return sm, ctx, eventBus
	}

	t.Run("NewStateMachine", func(t *testing.T) {
		sm, _, _ := setup()
		assert.Equal(t, PhaseUninitialized, sm.CurrentPhase())
		assert.Len(t, sm.states, 3)
		assert.Empty(t, sm.History())
	})

	t.Run("Episode lifecycle", func(t *testing.T) {
		sm, ctx, _ := setup()

		require.NoError(t, sm.TransitionTo(PhaseActive, "reset"))
		assert.Equal(t, PhaseActive, sm.CurrentPhase())
		assert.Equal(t, 1, ctx.Episode)
		assert.False(t, ctx.StartTime.IsZero())

		// reset during an episode
		require.NoError(t, sm.TransitionTo(PhaseActive, "reset"))
		assert.Equal(t, 2, ctx.Episode)

		require.NoError(t, sm.TransitionTo(PhaseTerminal, "no legal moves"))
		assert.Equal(t, PhaseTerminal, sm.CurrentPhase())
		assert.False(t, ctx.EndTime.IsZero())

		require.NoError(t, sm.TransitionTo(PhaseActive, "reset"))
		assert.Equal(t, 3, ctx.Episode)
		assert.True(t, ctx.EndTime.IsZero())
	})

	t.Run("Invalid Transitions", func(t *testing.T) {
		sm, _, _ := setup()

		err := sm.TransitionTo(PhaseTerminal, "skip active")
		require.ErrorIs(t, err, ErrInvalidTransition)
		assert.Contains(t, err.Error(), "Uninitialized -> Terminal")
		assert.Equal(t, PhaseUninitialized, sm.CurrentPhase())

		err = sm.TransitionTo(PhaseUninitialized, "go back")
		assert.ErrorIs(t, err, ErrInvalidTransition)

		require.NoError(t, sm.TransitionTo(PhaseActive, "reset"))
		require.NoError(t, sm.TransitionTo(PhaseTerminal, "done"))
		err = sm.TransitionTo(PhaseTerminal, "done again")
		assert.Error(t, err)
		assert.Equal(t, PhaseTerminal, sm.CurrentPhase())
	})

	t.Run("State Validation", func(t *testing.T) {
		sm, ctx, _ := setup()
		ctx.Rows = 0

		err := sm.TransitionTo(PhaseActive, "reset")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "grid dimensions must be positive")
		assert.Equal(t, PhaseUninitialized, sm.CurrentPhase())
	})

	t.Run("History Tracking", func(t *testing.T) {
		sm, _, _ := setup()

		_ = sm.TransitionTo(PhaseActive, "reason1")
		_ = sm.TransitionTo(PhaseTerminal, "reason2")
		_ = sm.TransitionTo(PhaseActive, "reason3")

		history := sm.History()
		require.Len(t, history, 3)

		assert.Equal(t, PhaseUninitialized, history[0].From)
		assert.Equal(t, PhaseActive, history[0].To)
		assert.Equal(t, "reason1", history[0].Reason)

		assert.Equal(t, PhaseActive, history[1].From)
		assert.Equal(t, PhaseTerminal, history[1].To)

		assert.Equal(t, PhaseTerminal, history[2].From)
		assert.Equal(t, PhaseActive, history[2].To)
		assert.Equal(t, "reason3", history[2].Reason)

		sm.ClearHistory()
		assert.Empty(t, sm.History())
	})

	t.Run("History is bounded", func(t *testing.T) {
		sm, _, _ := setup()
		sm.SetMaxHistorySize(2)

		for i := 0; i < 5; i++ {
			require.NoError(t, sm.TransitionTo(PhaseActive, "reset"))
		}
		assert.Len(t, sm.History(), 2)

		sm.SetMaxHistorySize(1)
		assert.Len(t, sm.History(), 1)
		sm.SetMaxHistorySize(0)
		assert.Len(t, sm.History(), 1)
	})

	t.Run("Publishes transitions", func(t *testing.T) {
		sm, _, bus := setup()

		var got []*events.StateTransitionEvent
		bus.SubscribeFunc(events.TypeStateTransition, func(e events.Event) {
			got = append(got, e.(*events.StateTransitionEvent))
		})

		require.NoError(t, sm.TransitionTo(PhaseActive, "reset"))
		require.Len(t, got, 1)
		assert.Equal(t, "Uninitialized", got[0].FromPhase)
		assert.Equal(t, "Active", got[0].ToPhase)
		assert.Equal(t, "reset", got[0].Reason)
		assert.Equal(t, "test-game", got[0].GameID())
	})

	t.Run("Nil event bus", func(t *testing.T) {
		sm := NewStateMachine(NewGameContext("g", 3, 3, logger), nil)
		assert.NoError(t, sm.TransitionTo(PhaseActive, "reset"))
	})
}

// MockState for testing custom state implementations
type MockState struct {
	phase       GamePhase
	enterCalled bool
	exitCalled  bool
	enterError  error
	exitError   error
}

func (m *MockState) Phase() GamePhase            { return m.phase }
func (m *MockState) Enter(*GameContext) error    { m.enterCalled = true; return m.enterError }
func (m *MockState) Exit(*GameContext) error     { m.exitCalled = true; return m.exitError }
func (m *MockState) Validate(*GameContext) error { return nil }

func TestStateMachine_CustomStates(t *testing.T) {
	logger := zerolog.Nop()

	t.Run("StateCallbacks", func(t *testing.T) {
		sm := NewStateMachine(NewGameContext("test-game", 10, 10, logger), nil)
		activeMock := &MockState{phase: PhaseActive}
		terminalMock := &MockState{phase: PhaseTerminal}
		sm.RegisterState(activeMock)
		sm.RegisterState(terminalMock)

		require.NoError(t, sm.TransitionTo(PhaseActive, "test"))
		assert.True(t, activeMock.enterCalled)
		assert.False(t, activeMock.exitCalled)

		require.NoError(t, sm.TransitionTo(PhaseTerminal, "test"))
		assert.True(t, activeMock.exitCalled)
		assert.True(t, terminalMock.enterCalled)
	})

	t.Run("Exit errors do not block the transition", func(t *testing.T) {
		sm := NewStateMachine(NewGameContext("test-game", 10, 10, logger), nil)
		sm.RegisterState(&MockState{phase: PhaseActive, exitError: errors.New("exit failed")})

		require.NoError(t, sm.TransitionTo(PhaseActive, "test"))
		assert.NoError(t, sm.TransitionTo(PhaseTerminal, "test"))
	})

	t.Run("Enter errors roll back", func(t *testing.T) {
		sm := NewStateMachine(NewGameContext("test-game", 10, 10, logger), nil)
		sm.RegisterState(&MockState{phase: PhaseActive, enterError: errors.New("enter failed")})

		err := sm.TransitionTo(PhaseActive, "test")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "enter Active")
		assert.Equal(t, PhaseUninitialized, sm.CurrentPhase())
		assert.Empty(t, sm.History(), "a failed enter is not recorded")
	})
}
