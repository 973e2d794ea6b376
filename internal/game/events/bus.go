package events

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog"
)

// EventBus delivers engine events synchronously on the publishing goroutine
type EventBus struct {
	mu          sync.RWMutex
	subscribers map[string]Subscriber
	handlers    map[string][]EventHandler
	logger      zerolog.Logger
}

// NewEventBus creates an empty bus. Handler panics are logged through logger.
func NewEventBus(logger zerolog.Logger) *EventBus {
	return &EventBus{
		subscribers: make(map[string]Subscriber),
		handlers:    make(map[string][]EventHandler),
		logger:      logger.With().Str("component", "event_bus").Logger(),
	}
}

// Subscribe registers s, replacing any subscriber with the same ID
func (eb *EventBus) Subscribe(s Subscriber) {
	eb.mu.Lock()
	eb.subscribers[s.ID()] = s
	eb.mu.Unlock()

	eb.logger.Debug().Str("subscriber_id", s.ID()).Msg("Subscriber registered")
}

// Unsubscribe drops the subscriber with the given ID
func (eb *EventBus) Unsubscribe(id string) {
	eb.mu.Lock()
	delete(eb.subscribers, id)
	eb.mu.Unlock()

	eb.logger.Debug().Str("subscriber_id", id).Msg("Subscriber dropped")
}

// SubscribeFunc registers fn for one event type and returns a handler id
func (eb *EventBus) SubscribeFunc(eventType string, fn EventHandler) string {
	eb.mu.Lock()
	eb.handlers[eventType] = append(eb.handlers[eventType], fn)
	id := fmt.Sprintf("%s_func_%d", eventType, len(eb.handlers[eventType]))
	eb.mu.Unlock()

	eb.logger.Debug().Str("event_type", eventType).Str("handler_id", id).Msg("Handler registered")
	return id
}

// Publish hands event to every interested subscriber, then to the handlers
// registered for its type. Handlers may subscribe from inside a callback.
func (eb *EventBus) Publish(event Event) {
	eventType := event.Type()

	eb.mu.RLock()
	targets := make([]Subscriber, 0, len(eb.subscribers))
	for _, s := range eb.subscribers {
		if s.InterestedIn(eventType) {
			targets = append(targets, s)
		}
	}
	fns := append([]EventHandler(nil), eb.handlers[eventType]...)
	eb.mu.RUnlock()

	eb.logger.Debug().
		Str("event_type", eventType).
		Str("game_id", event.GameID()).
		Int("receivers", len(targets)+len(fns)).
		Msg("Publishing")

	for _, s := range targets {
		s := s
		eb.deliver(eventType, s.ID(), func() { s.HandleEvent(event) })
	}
	for i, fn := range fns {
		fn := fn
		eb.deliver(eventType, fmt.Sprintf("%s_func_%d", eventType, i+1), func() { fn(event) })
	}
}

// deliver runs call and logs a panic instead of propagating it
func (eb *EventBus) deliver(eventType, receiver string, call func()) {
	defer func() {
		if r := recover(); r != nil {
			eb.logger.Error().
				Str("event_type", eventType).
				Str("receiver", receiver).
				Interface("panic", r).
				Msg("Event receiver panicked")
		}
	}()
	call()
}

// GetSubscriberCount returns how many subscribers are registered
func (eb *EventBus) GetSubscriberCount() int {
	eb.mu.RLock()
	defer eb.mu.RUnlock()
	return len(eb.subscribers)
}

// GetFuncHandlerCount returns how many handlers are registered for eventType
func (eb *EventBus) GetFuncHandlerCount(eventType string) int {
	eb.mu.RLock()
	defer eb.mu.RUnlock()
	return len(eb.handlers[eventType])
}
