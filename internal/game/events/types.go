package events

import "time"

// Event is anything the engine publishes on the bus
type Event interface {
	Type() string
	Timestamp() time.Time
	// GameID is the engine that produced the event
	GameID() string
}

// BaseEvent carries the fields shared by every engine event
type BaseEvent struct {
	EventType string    `json:"type"`
	Time      time.Time `json:"timestamp"`
	Game      string    `json:"game_id"`
}

func (e BaseEvent) Type() string         { return e.EventType }
func (e BaseEvent) Timestamp() time.Time { return e.Time }
func (e BaseEvent) GameID() string       { return e.Game }

// EventHandler receives events of the type it was registered for
type EventHandler func(Event)

// Subscriber receives every event type it reports interest in
type Subscriber interface {
	ID() string
	HandleEvent(Event)
	InterestedIn(eventType string) bool
}

// EventMetadata is episode context attached to step-level events
type EventMetadata struct {
	Step  int                    `json:"step,omitempty"`
	Extra map[string]interface{} `json:"extra,omitempty"`
}
