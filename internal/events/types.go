package events

import (
	"github.com/KirkDiggler/sheet-sync/internal/domain/session"
)

// EventType represents the kind of session event
type EventType string

const (
	// EventTypeMessageReceived fires for every live log insert
	EventTypeMessageReceived EventType = "message_received"

	// EventTypeDamageTaken fires when a combat message lowered the local character's HP
	EventTypeDamageTaken EventType = "damage_taken"

	// EventTypePresenceChanged fires when a peer joins, updates or leaves
	EventTypePresenceChanged EventType = "presence_changed"

	// EventTypeConnectionState fires on every connection state transition
	EventTypeConnectionState EventType = "connection_state"
)

// Event is what listeners receive. Only the fields relevant to Type are set.
type Event struct {
	Type      EventType
	SessionID string

	Message  *session.Message
	Presence *session.PresenceEvent

	// Damage taken and HP left, for EventTypeDamageTaken
	Damage    int
	CurrentHP int

	// State name and cause, for EventTypeConnectionState
	State string
	Err   error
}

// EventListener processes events
type EventListener interface {
	HandleEvent(event *Event) error
	Priority() int
	ID() string
}

// ListenerFunc adapts a function into an EventListener with priority 100
type ListenerFunc struct {
	Name string
	Fn   func(event *Event) error
}

func (l *ListenerFunc) HandleEvent(event *Event) error { return l.Fn(event) }
func (l *ListenerFunc) Priority() int                  { return 100 }
func (l *ListenerFunc) ID() string                     { return l.Name }
