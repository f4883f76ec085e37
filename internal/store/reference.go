package store

import (
	"context"

	"github.com/eventhub/apiserver/internal/docstore"
	"github.com/eventhub/apiserver/types"
)

// EventTypeRepository reads the event type lookup collection.
type EventTypeRepository struct {
	backend docstore.Backend
}

func NewEventTypeRepository(backend docstore.Backend) *EventTypeRepository {
	return &EventTypeRepository{backend: backend}
}

// Get returns the event type with the given key, or nil.
func (r *EventTypeRepository) Get(ctx context.Context, key string) (*types.EventType, error) {
	rec, err := r.backend.Get(ctx, CollectionEventTypes, key)
	if err != nil || rec == nil {
		return nil, err
	}
	return &types.EventType{Key: rec.ID(), Name: rec.String(fieldName)}, nil
}

// List returns every event type alphabetically by name.
func (r *EventTypeRepository) List(ctx context.Context) ([]types.EventType, error) {
	recs, err := r.backend.Query(ctx, docstore.Query{Collection: CollectionEventTypes, OrderBy: fieldName})
	if err != nil {
		return nil, err
	}
	out := make([]types.EventType, 0, len(recs))
	for _, rec := range recs {
		out = append(out, types.EventType{Key: rec.ID(), Name: rec.String(fieldName)})
	}
	return out, nil
}

// SkillRepository reads the skill lookup collection.
type SkillRepository struct {
	backend docstore.Backend
}

func NewSkillRepository(backend docstore.Backend) *SkillRepository {
	return &SkillRepository{backend: backend}
}

// Get returns the skill with the given key, or nil.
func (r *SkillRepository) Get(ctx context.Context, key string) (*types.Skill, error) {
	rec, err := r.backend.Get(ctx, CollectionSkills, key)
	if err != nil || rec == nil {
		return nil, err
	}
	return &types.Skill{Key: rec.ID(), Name: rec.String(fieldName)}, nil
}

// List returns every skill alphabetically by name.
func (r *SkillRepository) List(ctx context.Context) ([]types.Skill, error) {
	recs, err := r.backend.Query(ctx, docstore.Query{Collection: CollectionSkills, OrderBy: fieldName})
	if err != nil {
		return nil, err
	}
	out := make([]types.Skill, 0, len(recs))
	for _, rec := range recs {
		out = append(out, types.Skill{Key: rec.ID(), Name: rec.String(fieldName)})
	}
	return out, nil
}
