package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/eventhub/apiserver/internal/docstore"
	"github.com/eventhub/apiserver/types"
)

// EventRepository handles persistence for events.
type EventRepository struct {
	backend docstore.Backend
}

func NewEventRepository(backend docstore.Backend) *EventRepository {
	return &EventRepository{backend: backend}
}

// Get returns the event, or nil when it does not exist.
func (r *EventRepository) Get(ctx context.Context, id string) (*types.Event, error) {
	rec, err := r.backend.Get(ctx, CollectionEvents, id)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, nil
	}
	event := decodeEvent(rec)
	return &event, nil
}

// GetMany returns the existing events among ids. An empty id set returns
// an empty slice without touching the backend.
func (r *EventRepository) GetMany(ctx context.Context, ids []string) ([]types.Event, error) {
	ids = uniqueIDs(ids)
	if len(ids) == 0 {
		return []types.Event{}, nil
	}
	recs, err := r.backend.GetMany(ctx, CollectionEvents, ids)
	if err != nil {
		return nil, err
	}
	return decodeEvents(recs), nil
}

// ListAll returns every event, published or not, by start time.
func (r *EventRepository) ListAll(ctx context.Context) ([]types.Event, error) {
	return r.list(ctx, docstore.Query{Collection: CollectionEvents, OrderBy: fieldStartTime})
}

// ListPublished returns published events by start time. A missing
// publication flag counts as published, so the flag is checked here rather
// than as a backend filter.
func (r *EventRepository) ListPublished(ctx context.Context) ([]types.Event, error) {
	all, err := r.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	published := all[:0]
	for _, event := range all {
		if event.Published() {
			published = append(published, event)
		}
	}
	return published, nil
}

// ListByOwner returns the events owned by ownerID by start time.
func (r *EventRepository) ListByOwner(ctx context.Context, ownerID string) ([]types.Event, error) {
	q := docstore.Query{Collection: CollectionEvents, OrderBy: fieldStartTime}.Where(fieldOwner, ownerID)
	return r.list(ctx, q)
}

func (r *EventRepository) list(ctx context.Context, q docstore.Query) ([]types.Event, error) {
	recs, err := r.backend.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	return decodeEvents(recs), nil
}

// Create stores a new event under a fresh identifier.
func (r *EventRepository) Create(ctx context.Context, event types.Event) (types.Event, error) {
	event.ID = uuid.NewString()
	fields := encodeEvent(event)
	fields[fieldCreatedAt] = utcNow()
	if err := r.backend.Create(ctx, CollectionEvents, event.ID, fields); err != nil {
		return types.Event{}, fmt.Errorf("create event: %w", err)
	}
	return event, nil
}

// Update merges the set fields of u into the event.
func (r *EventRepository) Update(ctx context.Context, id string, u types.EventUpdate) error {
	if u.Empty() {
		return nil
	}
	fields := make(map[string]any)
	if u.Name != nil {
		fields[fieldName] = *u.Name
	}
	if u.Description != nil {
		fields[fieldDescription] = *u.Description
	}
	if u.StartTime != nil {
		fields[fieldStartTime] = u.StartTime.UTC()
	}
	if u.EventType != nil {
		fields[fieldEventType] = *u.EventType
	}
	if u.Image != nil {
		fields[fieldImage] = *u.Image
	}
	if u.IsPublished != nil {
		fields[fieldIsPublished] = *u.IsPublished
	}
	return mapMergeErr(r.backend.Merge(ctx, CollectionEvents, id, fields))
}
