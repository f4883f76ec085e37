package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/eventhub/apiserver/internal/docstore"
	"github.com/eventhub/apiserver/internal/mq"
	"github.com/eventhub/apiserver/internal/session"
	"github.com/eventhub/apiserver/internal/store"
	"github.com/eventhub/apiserver/types"
)

var testNow = time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)

type fixture struct {
	backend    *docstore.MemoryBackend
	events     *store.EventRepository
	users      *store.UserRepository
	eventTypes *store.EventTypeRepository
	skills     *store.SkillRepository
	roles      *store.RoleAssignmentRepository
	accounts   *store.AccountRepository
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	backend := docstore.NewMemoryBackend()
	f := &fixture{
		backend:    backend,
		events:     store.NewEventRepository(backend),
		users:      store.NewUserRepository(backend),
		eventTypes: store.NewEventTypeRepository(backend),
		skills:     store.NewSkillRepository(backend),
		roles:      store.NewRoleAssignmentRepository(backend),
		accounts:   store.NewAccountRepository(backend),
	}

	ctx := context.Background()
	for key, name := range map[string]string{"jam": "Jam", "meetup": "Meetup"} {
		f.mustCreate(t, store.CollectionEventTypes, key, map[string]any{"name": name})
	}
	for key, name := range map[string]string{"technique": "Technique", "creativity": "Creativity"} {
		f.mustCreate(t, store.CollectionSkills, key, map[string]any{"name": name})
	}
	for _, u := range []types.User{
		{ID: "A", Name: "Ana", Username: "ana"},
		{ID: "B", Name: "Bo", Username: "bobo"},
		{ID: "C", Name: "Cy", Username: "cyan"},
	} {
		if _, err := f.users.Create(ctx, u, "password"); err != nil {
			t.Fatalf("create user %s: %v", u.ID, err)
		}
	}
	return f
}

func (f *fixture) mustCreate(t *testing.T, collection, id string, fields map[string]any) {
	t.Helper()
	if err := f.backend.Create(context.Background(), collection, id, fields); err != nil {
		t.Fatalf("create %s/%s: %v", collection, id, err)
	}
}

func (f *fixture) event(t *testing.T, id, owner, eventType string, start time.Time, published *bool) {
	t.Helper()
	fields := map[string]any{
		"name":      id,
		"owner":     owner,
		"eventType": eventType,
		"startTime": start,
	}
	if published != nil {
		fields["isPublished"] = *published
	}
	f.mustCreate(t, store.CollectionEvents, id, fields)
}

func (f *fixture) assign(t *testing.T, eventID, userID string, role types.Role) {
	t.Helper()
	if _, err := f.roles.Assign(context.Background(), eventID, userID, role); err != nil {
		t.Fatalf("assign %s %s %s: %v", eventID, userID, role, err)
	}
}

func (f *fixture) aggregation(opts ...AggregationOption) *AggregationService {
	opts = append([]AggregationOption{WithClock(func() time.Time { return testNow })}, opts...)
	return NewAggregationService(f.events, f.users, f.eventTypes, f.roles, opts...)
}

func sessionFor(userID string) *session.Session {
	s := session.New()
	if userID != "" {
		s.SetSession(userID, docstore.Record{"id": userID})
	}
	return s
}

func boolPtr(b bool) *bool { return &b }

func strPtr(s string) *string { return &s }

func eventIDs(views []types.EventView) []string {
	out := make([]string, 0, len(views))
	for _, v := range views {
		out = append(out, v.ID)
	}
	return out
}

func userIDs(users []types.User) []string {
	out := make([]string, 0, len(users))
	for _, u := range users {
		out = append(out, u.ID)
	}
	return out
}

type observation struct {
	name  string
	items int
	err   error
}

type recordingObserver struct {
	mu  sync.Mutex
	obs []observation
}

func (r *recordingObserver) ObserveAggregation(name string, _ time.Duration, items int, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.obs = append(r.obs, observation{name: name, items: items, err: err})
}

type recordingPublisher struct {
	mu      sync.Mutex
	changes []mq.Change
}

func (r *recordingPublisher) PublishChange(_ context.Context, c mq.Change) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.changes = append(r.changes, c)
	return nil
}

func (r *recordingPublisher) kinds() []mq.ChangeKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]mq.ChangeKind, 0, len(r.changes))
	for _, c := range r.changes {
		out = append(out, c.Kind)
	}
	return out
}

type fakeImages struct {
	keys    []string
	deleted []string
}

func (f *fakeImages) PutProfilePhoto(_ context.Context, userID string, r io.Reader, _ int64, _ string) (string, error) {
	if _, err := io.ReadAll(r); err != nil {
		return "", err
	}
	key := fmt.Sprintf("users/%s/photo-%d.png", userID, len(f.keys)+1)
	f.keys = append(f.keys, key)
	return key, nil
}

func (f *fakeImages) PutEventBanner(_ context.Context, eventID string, r io.Reader, _ int64, _ string) (string, error) {
	if _, err := io.ReadAll(r); err != nil {
		return "", err
	}
	key := fmt.Sprintf("events/%s/banner-%d.png", eventID, len(f.keys)+1)
	f.keys = append(f.keys, key)
	return key, nil
}

func (f *fakeImages) DeleteImage(_ context.Context, key string) error {
	f.deleted = append(f.deleted, key)
	return nil
}

// keyedEventTypes fails Get on an empty key like a document store does.
type keyedEventTypes struct {
	EventTypeRepository
}

func (k keyedEventTypes) Get(ctx context.Context, key string) (*types.EventType, error) {
	if key == "" {
		return nil, errors.New("invalid document path")
	}
	return k.EventTypeRepository.Get(ctx, key)
}
