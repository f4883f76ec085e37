package types

// EventView is an event denormalized for list screens (home feed, past
// events, calendar). Owner, EventType and Role are only populated by the
// aggregations that need them.
type EventView struct {
	Event

	Owner     *User      `json:"_owner,omitempty"`
	EventType *EventType `json:"_eventType,omitempty"`
	Role      Role       `json:"_role,omitempty"`
}

// EventDetail is the event detail screen's view model.
type EventDetail struct {
	Event Event `json:"event"`
	Owner *User `json:"owner"`

	// EventType is nil when the event's key matches no known type.
	EventType *EventType `json:"eventType"`

	Judges         []User   `json:"judges"`
	Participants   []User   `json:"participants"`
	JudgeIDs       []string `json:"judgeIds"`
	ParticipantIDs []string `json:"participantIds"`

	// ViewerRole is the requesting user's role on the event.
	ViewerRole Role `json:"viewerRole"`
}

// EventEditForm prefills the edit-event screen.
type EventEditForm struct {
	Event        Event       `json:"event"`
	EventTypes   []EventType `json:"eventTypes"`
	Judges       []User      `json:"judges"`
	Participants []User      `json:"participants"`
}
