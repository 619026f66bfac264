package domain

import "time"

// EventType identifies a track lifecycle event pushed to websocket clients
type EventType string

const (
	EventTrackCreated        EventType = "track_created"
	EventTrackDeleted        EventType = "track_deleted"
	EventGenerationStarted   EventType = "generation_started"
	EventGenerationCompleted EventType = "generation_completed"
	EventGenerationFailed    EventType = "generation_failed"
)

// Event is broadcast to every connected client
type Event struct {
	Type      EventType `json:"type"`
	TrackID   string    `json:"track_id,omitempty"`
	Payload   any       `json:"payload,omitempty"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewEvent creates an event stamped with the current time
func NewEvent(eventType EventType, trackID string, payload any) Event {
	return Event{
		Type:      eventType,
		TrackID:   trackID,
		Payload:   payload,
		Timestamp: time.Now(),
	}
}
