package store

import (
	"context"
	"fmt"

	"github.com/eventhub/apiserver/internal/docstore"
	"github.com/eventhub/apiserver/types"
)

// RoleAssignmentRepository handles the event/user join collection.
type RoleAssignmentRepository struct {
	backend docstore.Backend
}

func NewRoleAssignmentRepository(backend docstore.Backend) *RoleAssignmentRepository {
	return &RoleAssignmentRepository{backend: backend}
}

// AssignmentID is the document id of a role assignment. One document per
// (event, user, role) keeps each role tag unique per user and event.
func AssignmentID(eventID, userID string, role types.Role) string {
	return fmt.Sprintf("%s_%s_%s", eventID, userID, role)
}

// ListByEvent returns every assignment on the event.
func (r *RoleAssignmentRepository) ListByEvent(ctx context.Context, eventID string) ([]types.RoleAssignment, error) {
	return r.list(ctx, docstore.Query{Collection: CollectionEventRoles}.Where(fieldEvent, eventID))
}

// ListByUser returns every assignment held by the user.
func (r *RoleAssignmentRepository) ListByUser(ctx context.Context, userID string) ([]types.RoleAssignment, error) {
	return r.list(ctx, docstore.Query{Collection: CollectionEventRoles}.Where(fieldUser, userID))
}

func (r *RoleAssignmentRepository) list(ctx context.Context, q docstore.Query) ([]types.RoleAssignment, error) {
	recs, err := r.backend.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	out := make([]types.RoleAssignment, 0, len(recs))
	for _, rec := range recs {
		out = append(out, decodeRoleAssignment(rec))
	}
	return out, nil
}

// Assign tags the user with role on the event. Assigning an existing tag
// rewrites the same document.
func (r *RoleAssignmentRepository) Assign(ctx context.Context, eventID, userID string, role types.Role) (types.RoleAssignment, error) {
	if !role.Valid() {
		return types.RoleAssignment{}, fmt.Errorf("assign role %q: invalid role", role)
	}
	assignment := types.RoleAssignment{
		ID:      AssignmentID(eventID, userID, role),
		EventID: eventID,
		UserID:  userID,
		Role:    role,
	}
	fields := map[string]any{
		fieldEvent:     eventID,
		fieldUser:      userID,
		fieldRole:      string(role),
		fieldCreatedAt: utcNow(),
	}
	if err := r.backend.Create(ctx, CollectionEventRoles, assignment.ID, fields); err != nil {
		return types.RoleAssignment{}, fmt.Errorf("assign role: %w", err)
	}
	return assignment, nil
}

// Revoke removes the role tag. Revoking a missing tag is not an error.
func (r *RoleAssignmentRepository) Revoke(ctx context.Context, eventID, userID string, role types.Role) error {
	return r.backend.Delete(ctx, CollectionEventRoles, AssignmentID(eventID, userID, role))
}
