package types

import "time"

// Event represents a scheduled activity owned by exactly one user.
type Event struct {
	// ID is the document identifier of the event.
	ID string `json:"id"`

	// Name is the human-readable title of the event.
	Name string `json:"name"`

	// Description is free text shown on the event detail screen.
	Description string `json:"description"`

	// StartTime is the instant the event starts. All time-based
	// partitioning (upcoming vs past) is keyed on this field.
	StartTime time.Time `json:"startTime"`

	// EventType is the key of the EventType this event belongs to.
	// It may reference a type that no longer exists.
	EventType string `json:"eventType"`

	// Image references the banner image in object storage.
	Image string `json:"image,omitempty"`

	// IsPublished is nil when the stored document has no publication flag.
	// Use Published to read it.
	IsPublished *bool `json:"isPublished,omitempty"`

	// OwnerID is the identifier of the user that owns the event.
	OwnerID string `json:"owner"`
}

// Published reports whether the event is visible in the public feed.
// Events are published unless the flag is explicitly false.
func (e Event) Published() bool {
	return e.IsPublished == nil || *e.IsPublished
}

// EventType is a reference category applied to events. The document
// identifier doubles as the key stored on events.
type EventType struct {
	Key  string `json:"key"`
	Name string `json:"name"`
}

// Skill is a reference attribute users rate themselves on from 0 to 100.
type Skill struct {
	Key  string `json:"key"`
	Name string `json:"name"`
}
