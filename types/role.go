package types

// Role tags a user's relationship to an event.
type Role string

const (
	RoleNone        Role = ""
	RoleOwner       Role = "owner"
	RoleJudge       Role = "judge"
	RoleParticipant Role = "participant"
)

// Valid reports whether r is one of the assignable role tags.
func (r Role) Valid() bool {
	switch r {
	case RoleOwner, RoleJudge, RoleParticipant:
		return true
	default:
		return false
	}
}

// RoleAssignment links a user to an event with a role tag.
type RoleAssignment struct {
	ID      string `json:"id"`
	EventID string `json:"event"`
	UserID  string `json:"user"`
	Role    Role   `json:"role"`
}
