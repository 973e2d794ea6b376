package events

import (
	"bytes"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mitchelldurbincs/NumGridGame/internal/game/core"
)

func TestEventBus(t *testing.T) {
	bus := NewEventBus(zerolog.Nop())

	received := false
	var receivedEvent Event

	bus.SubscribeFunc(TypeEpisodeStarted, func(e Event) {
		received = true
		receivedEvent = e
	})

	bus.Publish(NewEpisodeStartedEvent("test-game", 10, 10, core.NewCoordinate(5, 5), 8))

	assert.True(t, received, "Event handler should have been called")
	require.NotNil(t, receivedEvent)
	assert.Equal(t, TypeEpisodeStarted, receivedEvent.Type())
	assert.Equal(t, "test-game", receivedEvent.GameID())

	started, ok := receivedEvent.(*EpisodeStartedEvent)
	require.True(t, ok)
	assert.Equal(t, core.NewCoordinate(5, 5), started.Start)
	assert.Equal(t, 8, started.LegalMoves)
}

func TestEventBusMultipleSubscribers(t *testing.T) {
	bus := NewEventBus(zerolog.Nop())

	handler1Called := false
	handler2Called := false

	id1 := bus.SubscribeFunc(TypeMoveExecuted, func(e Event) {
		handler1Called = true
	})
	id2 := bus.SubscribeFunc(TypeMoveExecuted, func(e Event) {
		handler2Called = true
	})

	bus.Publish(NewMoveExecutedEvent("test-game", 2, 1, core.NewCoordinate(5, 5), core.NewCoordinate(8, 5), 1.0, false))

	assert.True(t, handler1Called, "Handler 1 should have been called")
	assert.True(t, handler2Called, "Handler 2 should have been called")
	assert.NotEqual(t, id1, id2)
	assert.Equal(t, "move.executed_func_2", id2)
	assert.Equal(t, 2, bus.GetFuncHandlerCount(TypeMoveExecuted))
}

// TestSubscriber is a test implementation of Subscriber
type TestSubscriber struct {
	id              string
	interestedTypes map[string]bool
	receivedEvents  []Event
}

func (ts *TestSubscriber) ID() string {
	return ts.id
}

func (ts *TestSubscriber) HandleEvent(e Event) {
	ts.receivedEvents = append(ts.receivedEvents, e)
}

func (ts *TestSubscriber) InterestedIn(eventType string) bool {
	if ts.interestedTypes == nil {
		return true
	}
	return ts.interestedTypes[eventType]
}

func TestEventBusSubscriber(t *testing.T) {
	bus := NewEventBus(zerolog.Nop())

	subscriber := &TestSubscriber{
		id: "test-subscriber",
		interestedTypes: map[string]bool{
			TypeEpisodeStarted: true,
			TypeEpisodeEnded:   true,
		},
	}
	bus.Subscribe(subscriber)
	assert.Equal(t, 1, bus.GetSubscriberCount())

	bus.Publish(NewEpisodeStartedEvent("test-game", 10, 10, core.NewCoordinate(1, 1), 3))
	bus.Publish(NewMoveRejectedEvent("test-game", 1, 4, "illegal move"))
	bus.Publish(NewEpisodeEndedEvent("test-game", 12, 11, 11.0, time.Second))

	require.Len(t, subscriber.receivedEvents, 2)
	assert.Equal(t, TypeEpisodeStarted, subscriber.receivedEvents[0].Type())
	assert.Equal(t, TypeEpisodeEnded, subscriber.receivedEvents[1].Type())

	bus.Unsubscribe(subscriber.ID())
	bus.Publish(NewEpisodeStartedEvent("test-game", 10, 10, core.NewCoordinate(1, 1), 3))

	assert.Len(t, subscriber.receivedEvents, 2)
	assert.Zero(t, bus.GetSubscriberCount())
}

type panickingSubscriber struct{}

func (panickingSubscriber) ID() string                { return "panicker" }
func (panickingSubscriber) HandleEvent(Event)         { panic("boom") }
func (panickingSubscriber) InterestedIn(string) bool { return true }

func TestEventBusRecoversFromPanics(t *testing.T) {
	var buf bytes.Buffer
	bus := NewEventBus(zerolog.New(&buf))

	healthy := &TestSubscriber{id: "healthy"}
	bus.Subscribe(panickingSubscriber{})
	bus.Subscribe(healthy)

	handlerRan := false
	bus.SubscribeFunc(TypeStateTransition, func(Event) { panic("handler boom") })
	bus.SubscribeFunc(TypeStateTransition, func(Event) { handlerRan = true })

	assert.NotPanics(t, func() {
		bus.Publish(NewStateTransitionEvent("g", "Uninitialized", "Active", "reset"))
	})

	assert.Len(t, healthy.receivedEvents, 1)
	assert.True(t, handlerRan)
	assert.Contains(t, buf.String(), "Event receiver panicked")
	assert.Contains(t, buf.String(), `"receiver":"panicker"`)
	assert.Contains(t, buf.String(), `"receiver":"state.transition_func_1"`)
}

func TestEventBusHandlerCanSubscribeDuringPublish(t *testing.T) {
	bus := NewEventBus(zerolog.Nop())

	late := 0
	bus.SubscribeFunc(TypeEpisodeStarted, func(Event) {
		bus.SubscribeFunc(TypeEpisodeEnded, func(Event) { late++ })
	})

	done := make(chan struct{})
	go func() {
		defer close(done)
		bus.Publish(NewEpisodeStartedEvent("g", 3, 3, core.NewCoordinate(1, 1), 8))
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Publish blocked while a handler subscribed")
	}

	bus.Publish(NewEpisodeEndedEvent("g", 2, 1, 1.0, time.Millisecond))
	assert.Equal(t, 1, late)
	assert.Equal(t, 1, bus.GetFuncHandlerCount(TypeEpisodeEnded))
}

func TestEventMetadataCarriesStep(t *testing.T) {
	ended := NewEpisodeEndedEvent("g", 7, 6, 6.0, time.Millisecond)
	assert.Equal(t, 7, ended.Metadata.Step)
	assert.Equal(t, 7, ended.FinalStep)
	assert.False(t, ended.Timestamp().IsZero())
}
