// Package roles derives a user's relationship to an event.
package roles

import (
	"slices"

	"github.com/eventhub/apiserver/types"
)

// Resolve returns the viewer's role on an event. Judge is checked first,
// then participant, then owner.
func Resolve(viewerID, ownerID string, judgeIDs, participantIDs []string) types.Role {
	switch {
	case viewerID == "":
		return types.RoleNone
	case slices.Contains(judgeIDs, viewerID):
		return types.RoleJudge
	case slices.Contains(participantIDs, viewerID):
		return types.RoleParticipant
	case viewerID == ownerID:
		return types.RoleOwner
	default:
		return types.RoleNone
	}
}

func rank(r types.Role) int {
	switch r {
	case types.RoleJudge:
		return 3
	case types.RoleParticipant:
		return 2
	case types.RoleOwner:
		return 1
	default:
		return 0
	}
}

// Stronger returns whichever of a and b wins when one user holds several
// tags on the same event: judge, then participant, then owner.
func Stronger(a, b types.Role) types.Role {
	if rank(b) > rank(a) {
		return b
	}
	return a
}

// Partition splits assignments into judge and participant user ids in
// first-seen order. Owner tags are ignored.
func Partition(assignments []types.RoleAssignment) (judgeIDs, participantIDs []string) {
	judgeIDs = []string{}
	participantIDs = []string{}
	for _, a := range assignments {
		switch a.Role {
		case types.RoleJudge:
			if !slices.Contains(judgeIDs, a.UserID) {
				judgeIDs = append(judgeIDs, a.UserID)
			}
		case types.RoleParticipant:
			if !slices.Contains(participantIDs, a.UserID) {
				participantIDs = append(participantIDs, a.UserID)
			}
		}
	}
	return judgeIDs, participantIDs
}

// ByEvent folds a user's assignments into one role per event id.
func ByEvent(assignments []types.RoleAssignment) map[string]types.Role {
	out := make(map[string]types.Role, len(assignments))
	for _, a := range assignments {
		out[a.EventID] = Stronger(out[a.EventID], a.Role)
	}
	return out
}
