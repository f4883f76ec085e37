package services

import (
	"context"

	"github.com/eventhub/apiserver/internal/docstore"
	"github.com/eventhub/apiserver/types"
)

// EventRepository defines persistence operations for events.
type EventRepository interface {
	Get(ctx context.Context, id string) (*types.Event, error)
	GetMany(ctx context.Context, ids []string) ([]types.Event, error)
	ListAll(ctx context.Context) ([]types.Event, error)
	ListPublished(ctx context.Context) ([]types.Event, error)
	ListByOwner(ctx context.Context, ownerID string) ([]types.Event, error)
	Create(ctx context.Context, event types.Event) (types.Event, error)
	Update(ctx context.Context, id string, u types.EventUpdate) error
}

// UserRepository defines persistence operations for users.
type UserRepository interface {
	Get(ctx context.Context, id string) (*types.User, error)
	GetRecord(ctx context.Context, id string) (docstore.Record, error)
	GetMany(ctx context.Context, ids []string) ([]types.User, error)
	FindByUsername(ctx context.Context, username string) (*types.User, error)
	Create(ctx context.Context, user types.User, provider string) (types.User, error)
	Delete(ctx context.Context, id string) error
	Update(ctx context.Context, id string, u types.UserUpdate) error
	RecordLogin(ctx context.Context, id string) error
}

// EventTypeRepository reads event types.
type EventTypeRepository interface {
	Get(ctx context.Context, key string) (*types.EventType, error)
	List(ctx context.Context) ([]types.EventType, error)
}

// SkillRepository reads skills.
type SkillRepository interface {
	Get(ctx context.Context, key string) (*types.Skill, error)
	List(ctx context.Context) ([]types.Skill, error)
}

// RoleAssignmentRepository defines persistence operations for event roles.
type RoleAssignmentRepository interface {
	ListByEvent(ctx context.Context, eventID string) ([]types.RoleAssignment, error)
	ListByUser(ctx context.Context, userID string) ([]types.RoleAssignment, error)
	Assign(ctx context.Context, eventID, userID string, role types.Role) (types.RoleAssignment, error)
	Revoke(ctx context.Context, eventID, userID string, role types.Role) error
}

// AccountRepository defines persistence operations for credentials.
type AccountRepository interface {
	Get(ctx context.Context, email string) (*types.Account, error)
	Create(ctx context.Context, account types.Account) error
}
