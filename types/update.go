package types

import "time"

// EventUpdate is a partial event edit. Nil fields are left unchanged.
type EventUpdate struct {
	Name        *string    `json:"name,omitempty"`
	Description *string    `json:"description,omitempty"`
	StartTime   *time.Time `json:"startTime,omitempty"`
	EventType   *string    `json:"eventType,omitempty"`
	Image       *string    `json:"image,omitempty"`
	IsPublished *bool      `json:"isPublished,omitempty"`
}

// Empty reports whether the update changes nothing.
func (u EventUpdate) Empty() bool {
	return u.Name == nil && u.Description == nil && u.StartTime == nil &&
		u.EventType == nil && u.Image == nil && u.IsPublished == nil
}

// UserUpdate is a partial profile edit. Nil fields are left unchanged;
// Skills and Socials replace the stored value wholesale when set.
type UserUpdate struct {
	Name     *string        `json:"name,omitempty"`
	Username *string        `json:"username,omitempty"`
	PhotoURL *string        `json:"photoURL,omitempty"`
	Skills   map[string]int `json:"skills,omitempty"`
	Socials  *SocialHandles `json:"socials,omitempty"`
}

func (u UserUpdate) Empty() bool {
	return u.Name == nil && u.Username == nil && u.PhotoURL == nil &&
		u.Skills == nil && u.Socials == nil
}
