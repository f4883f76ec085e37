package services

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/eventhub/apiserver/internal/mq"
	"github.com/eventhub/apiserver/internal/session"
	"github.com/eventhub/apiserver/pkg/logger"
	"github.com/eventhub/apiserver/types"
)

// ChangePublisher announces mutations on the change feed.
type ChangePublisher interface {
	PublishChange(ctx context.Context, c mq.Change) error
}

// ImageStore uploads profile photos and event banners.
type ImageStore interface {
	PutProfilePhoto(ctx context.Context, userID string, r io.Reader, size int64, contentType string) (string, error)
	PutEventBanner(ctx context.Context, eventID string, r io.Reader, size int64, contentType string) (string, error)
	DeleteImage(ctx context.Context, key string) error
}

// EventInput is the payload of the create-event form.
type EventInput struct {
	Name        string    `json:"name"`
	Description string    `json:"description"`
	StartTime   time.Time `json:"startTime"`
	EventType   string    `json:"eventType"`
	IsPublished *bool     `json:"isPublished"`
}

// EventService encapsulates event write use-cases. Every mutation is
// restricted to the event's owner.
type EventService struct {
	events     EventRepository
	users      UserRepository
	eventTypes EventTypeRepository
	roles      RoleAssignmentRepository
	images     ImageStore
	publisher  ChangePublisher
	log        logger.Logger
}

func NewEventService(
	events EventRepository,
	users UserRepository,
	eventTypes EventTypeRepository,
	roleRepo RoleAssignmentRepository,
	images ImageStore,
	publisher ChangePublisher,
	log logger.Logger,
) *EventService {
	if log == nil {
		log = logger.Nop()
	}
	return &EventService{
		events:     events,
		users:      users,
		eventTypes: eventTypes,
		roles:      roleRepo,
		images:     images,
		publisher:  publisher,
		log:        log,
	}
}

// Create stores a new event owned by the session user and tags the owner
// in the role collection. Events are published unless told otherwise.
func (s *EventService) Create(ctx context.Context, sess *session.Session, in EventInput) (types.Event, error) {
	ownerID := sess.CurrentUserID()
	if ownerID == "" {
		return types.Event{}, ErrUnauthenticated
	}

	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	in.EventType = strings.TrimSpace(in.EventType)
	if in.Name == "" {
		return types.Event{}, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if in.StartTime.IsZero() {
		return types.Event{}, fmt.Errorf("%w: start time is required", ErrInvalidInput)
	}
	if err := s.checkEventType(ctx, in.EventType); err != nil {
		return types.Event{}, err
	}

	published := true
	if in.IsPublished != nil {
		published = *in.IsPublished
	}

	event, err := s.events.Create(ctx, types.Event{
		Name:        in.Name,
		Description: in.Description,
		StartTime:   in.StartTime.UTC(),
		EventType:   in.EventType,
		IsPublished: &published,
		OwnerID:     ownerID,
	})
	if err != nil {
		return types.Event{}, err
	}
	if _, err := s.roles.Assign(ctx, event.ID, ownerID, types.RoleOwner); err != nil {
		return types.Event{}, err
	}

	s.publish(ctx, mq.Change{Kind: mq.EventCreated, EventID: event.ID, ActorID: ownerID})
	return event, nil
}

// Update applies a partial edit to an event the session user owns.
func (s *EventService) Update(ctx context.Context, sess *session.Session, eventID string, u types.EventUpdate) (*types.Event, error) {
	if _, err := s.ownedEvent(ctx, sess, eventID); err != nil {
		return nil, err
	}

	if u.Name != nil {
		name := strings.TrimSpace(*u.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
		}
		u.Name = &name
	}
	if u.StartTime != nil && u.StartTime.IsZero() {
		return nil, fmt.Errorf("%w: start time is required", ErrInvalidInput)
	}
	if u.EventType != nil {
		key := strings.TrimSpace(*u.EventType)
		if err := s.checkEventType(ctx, key); err != nil {
			return nil, err
		}
		u.EventType = &key
	}

	if err := s.events.Update(ctx, eventID, u); err != nil {
		return nil, mapStoreErr(err)
	}
	s.publish(ctx, mq.Change{Kind: mq.EventUpdated, EventID: eventID, ActorID: sess.CurrentUserID()})
	return s.events.Get(ctx, eventID)
}

// UploadBanner stores a new banner image and points the event at it.
func (s *EventService) UploadBanner(ctx context.Context, sess *session.Session, eventID string, r io.Reader, size int64, contentType string) (*types.Event, error) {
	if s.images == nil {
		return nil, ErrStorageDisabled
	}
	event, err := s.ownedEvent(ctx, sess, eventID)
	if err != nil {
		return nil, err
	}

	key, err := s.images.PutEventBanner(ctx, eventID, r, size, contentType)
	if err != nil {
		return nil, wrapUploadErr(err)
	}
	if err := s.events.Update(ctx, eventID, types.EventUpdate{Image: &key}); err != nil {
		return nil, mapStoreErr(err)
	}
	discardImage(ctx, s.images, s.log, event.Image)
	s.publish(ctx, mq.Change{Kind: mq.EventUpdated, EventID: eventID, ActorID: sess.CurrentUserID()})
	return s.events.Get(ctx, eventID)
}

// AssignRole tags a user as judge or participant on an owned event.
func (s *EventService) AssignRole(ctx context.Context, sess *session.Session, eventID, userID string, role types.Role) (types.RoleAssignment, error) {
	if role != types.RoleJudge && role != types.RoleParticipant {
		return types.RoleAssignment{}, fmt.Errorf("%w: role must be judge or participant", ErrInvalidInput)
	}
	if _, err := s.ownedEvent(ctx, sess, eventID); err != nil {
		return types.RoleAssignment{}, err
	}

	user, err := s.users.Get(ctx, userID)
	if err != nil {
		return types.RoleAssignment{}, err
	}
	if user == nil {
		return types.RoleAssignment{}, fmt.Errorf("%w: unknown user %q", ErrInvalidInput, userID)
	}

	assignment, err := s.roles.Assign(ctx, eventID, userID, role)
	if err != nil {
		return types.RoleAssignment{}, err
	}
	s.publish(ctx, mq.Change{Kind: mq.RoleAssigned, EventID: eventID, UserID: userID, Role: string(role), ActorID: sess.CurrentUserID()})
	return assignment, nil
}

// RevokeRole removes a judge or participant tag from an owned event.
func (s *EventService) RevokeRole(ctx context.Context, sess *session.Session, eventID, userID string, role types.Role) error {
	if role != types.RoleJudge && role != types.RoleParticipant {
		return fmt.Errorf("%w: role must be judge or participant", ErrInvalidInput)
	}
	if _, err := s.ownedEvent(ctx, sess, eventID); err != nil {
		return err
	}
	if err := s.roles.Revoke(ctx, eventID, userID, role); err != nil {
		return err
	}
	s.publish(ctx, mq.Change{Kind: mq.RoleRevoked, EventID: eventID, UserID: userID, Role: string(role), ActorID: sess.CurrentUserID()})
	return nil
}

func (s *EventService) ownedEvent(ctx context.Context, sess *session.Session, eventID string) (*types.Event, error) {
	viewer := sess.CurrentUserID()
	if viewer == "" {
		return nil, ErrUnauthenticated
	}
	event, err := s.events.Get(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if event == nil {
		return nil, ErrNotFound
	}
	if event.OwnerID != viewer {
		return nil, ErrForbidden
	}
	return event, nil
}

// checkEventType accepts an empty key or a key naming a known type.
func (s *EventService) checkEventType(ctx context.Context, key string) error {
	if key == "" {
		return nil
	}
	eventType, err := s.eventTypes.Get(ctx, key)
	if err != nil {
		return err
	}
	if eventType == nil {
		return fmt.Errorf("%w: unknown event type %q", ErrInvalidInput, key)
	}
	return nil
}

// publish reports a change. Feed failures are logged, never returned.
func (s *EventService) publish(ctx context.Context, c mq.Change) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishChange(ctx, c); err != nil {
		s.log.Warn(ctx, "publish change failed", logger.String("kind", string(c.Kind)), logger.String("event_id", c.EventID), logger.Error(err))
	}
}

// discardImage removes a replaced upload. Failures only leave an orphaned object.
func discardImage(ctx context.Context, images ImageStore, log logger.Logger, key string) {
	if key == "" {
		return
	}
	if err := images.DeleteImage(ctx, key); err != nil {
		log.Warn(ctx, "delete replaced image failed", logger.String("key", key), logger.Error(err))
	}
}
