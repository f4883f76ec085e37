package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/eventhub/apiserver/internal/roles"
	"github.com/eventhub/apiserver/internal/session"
	"github.com/eventhub/apiserver/pkg/logger"
	"github.com/eventhub/apiserver/types"
)

// UpcomingWindow is how far into the past an event may have started and
// still count as upcoming. It also separates upcoming from past events.
const UpcomingWindow = 25 * time.Hour

const defaultEnrichLimit = 8

// Aggregation names reported to the observer.
const (
	aggHomeFeed     = "home_feed"
	aggPastEvents   = "past_events"
	aggUserCalendar = "user_calendar"
	aggEventDetail  = "event_detail"
	aggEditForm     = "edit_event_form"
)

// AggregationObserver receives one observation per aggregation call.
type AggregationObserver interface {
	ObserveAggregation(name string, d time.Duration, items int, err error)
}

// AggregationService composes the collection accessors into the view
// models the screens render.
type AggregationService struct {
	events      EventRepository
	users       UserRepository
	eventTypes  EventTypeRepository
	roles       RoleAssignmentRepository
	now         func() time.Time
	observer    AggregationObserver
	log         logger.Logger
	enrichLimit int
}

// AggregationOption configures an AggregationService.
type AggregationOption func(*AggregationService)

// WithClock overrides the time source used for the upcoming/past cutoff.
func WithClock(now func() time.Time) AggregationOption {
	return func(s *AggregationService) { s.now = now }
}

func WithAggregationObserver(o AggregationObserver) AggregationOption {
	return func(s *AggregationService) { s.observer = o }
}

func WithAggregationLogger(l logger.Logger) AggregationOption {
	return func(s *AggregationService) { s.log = l }
}

// WithEnrichLimit bounds the concurrent owner/type lookups per list.
func WithEnrichLimit(n int) AggregationOption {
	return func(s *AggregationService) {
		if n > 0 {
			s.enrichLimit = n
		}
	}
}

func NewAggregationService(
	events EventRepository,
	users UserRepository,
	eventTypes EventTypeRepository,
	roleRepo RoleAssignmentRepository,
	opts ...AggregationOption,
) *AggregationService {
	s := &AggregationService{
		events:      events,
		users:       users,
		eventTypes:  eventTypes,
		roles:       roleRepo,
		now:         time.Now,
		log:         logger.Nop(),
		enrichLimit: defaultEnrichLimit,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *AggregationService) cutoff() time.Time {
	return s.now().Add(-UpcomingWindow)
}

func (s *AggregationService) observe(ctx context.Context, name string, start time.Time, items int, err error) {
	d := time.Since(start)
	if s.observer != nil {
		s.observer.ObserveAggregation(name, d, items, err)
	}
	if err != nil {
		s.log.Warn(ctx, "aggregation failed", logger.String("aggregation", name), logger.Duration("took", d), logger.Error(err))
		return
	}
	s.log.Debug(ctx, "aggregation done", logger.String("aggregation", name), logger.Int("items", items), logger.Duration("took", d))
}

// HomeFeed returns published events that started no earlier than
// UpcomingWindow ago, each with its owner and event type attached.
func (s *AggregationService) HomeFeed(ctx context.Context) (views []types.EventView, err error) {
	defer func(start time.Time) { s.observe(ctx, aggHomeFeed, start, len(views), err) }(time.Now())

	events, err := s.events.ListPublished(ctx)
	if err != nil {
		return nil, fmt.Errorf("list published events: %w", err)
	}
	cutoff := s.cutoff()
	return s.enrich(ctx, filterEvents(events, func(e types.Event) bool {
		return !e.StartTime.Before(cutoff)
	}))
}

// PastEvents returns every event, published or not, that started at or
// before UpcomingWindow ago, enriched like HomeFeed. An event starting
// exactly at the cutoff appears in both lists.
func (s *AggregationService) PastEvents(ctx context.Context) (views []types.EventView, err error) {
	defer func(start time.Time) { s.observe(ctx, aggPastEvents, start, len(views), err) }(time.Now())

	events, err := s.events.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	cutoff := s.cutoff()
	return s.enrich(ctx, filterEvents(events, func(e types.Event) bool {
		return !e.StartTime.After(cutoff)
	}))
}

// enrich attaches owner and event type to each event. Owner lookups run
// concurrently; results keep the input order.
func (s *AggregationService) enrich(ctx context.Context, events []types.Event) ([]types.EventView, error) {
	views := make([]types.EventView, len(events))
	if len(events) == 0 {
		return views, nil
	}
	byKey, err := s.eventTypesByKey(ctx)
	if err != nil {
		return nil, err
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.enrichLimit)
	for i, event := range events {
		g.Go(func() error {
			owner, err := s.users.Get(gctx, event.OwnerID)
			if err != nil {
				return fmt.Errorf("get owner %s of event %s: %w", event.OwnerID, event.ID, err)
			}
			views[i] = types.EventView{Event: event, Owner: owner, EventType: byKey[event.EventType]}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return views, nil
}

// UserCalendar returns the upcoming events the user holds a role on or
// owns, sorted by start time, each tagged with the user's role and type.
func (s *AggregationService) UserCalendar(ctx context.Context, userID string) (views []types.EventView, err error) {
	defer func(start time.Time) { s.observe(ctx, aggUserCalendar, start, len(views), err) }(time.Now())

	assignments, err := s.roles.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list roles of user %s: %w", userID, err)
	}
	roleByEvent := roles.ByEvent(assignments)
	eventIDs := make([]string, 0, len(roleByEvent))
	for _, a := range assignments {
		eventIDs = append(eventIDs, a.EventID)
	}

	assigned, err := s.events.GetMany(ctx, eventIDs)
	if err != nil {
		return nil, fmt.Errorf("get assigned events: %w", err)
	}

	merged := make([]types.EventView, 0, len(assigned))
	present := make(map[string]struct{}, len(assigned))
	for _, event := range assigned {
		merged = append(merged, types.EventView{Event: event, Role: roleByEvent[event.ID]})
		present[event.ID] = struct{}{}
	}

	owned, err := s.events.ListByOwner(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list events owned by %s: %w", userID, err)
	}
	for _, event := range owned {
		if _, ok := present[event.ID]; ok {
			continue
		}
		merged = append(merged, types.EventView{Event: event, Role: types.RoleOwner})
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].StartTime.Before(merged[j].StartTime)
	})

	cutoff := s.cutoff()
	upcoming := merged[:0]
	for _, view := range merged {
		if !view.StartTime.Before(cutoff) {
			upcoming = append(upcoming, view)
		}
	}
	if len(upcoming) == 0 {
		return []types.EventView{}, nil
	}

	byKey, err := s.eventTypesByKey(ctx)
	if err != nil {
		return nil, err
	}
	for i := range upcoming {
		upcoming[i].EventType = byKey[upcoming[i].Event.EventType]
	}
	return upcoming, nil
}

// CalendarFor returns userID's calendar as seen by the session's user.
// Viewers other than userID only see published events and events they own.
func (s *AggregationService) CalendarFor(ctx context.Context, sess *session.Session, userID string) ([]types.EventView, error) {
	views, err := s.UserCalendar(ctx, userID)
	if err != nil {
		return nil, err
	}
	viewer := sess.CurrentUserID()
	if viewer != "" && viewer == userID {
		return views, nil
	}
	visible := views[:0]
	for _, view := range views {
		if view.Published() || (viewer != "" && view.OwnerID == viewer) {
			visible = append(visible, view)
		}
	}
	return visible, nil
}

// EventDetail returns the event detail view, or nil when the event does
// not exist. ViewerRole is resolved for the session's user.
func (s *AggregationService) EventDetail(ctx context.Context, sess *session.Session, eventID string) (detail *types.EventDetail, err error) {
	defer func(start time.Time) {
		items := 0
		if detail != nil {
			items = 1
		}
		s.observe(ctx, aggEventDetail, start, items, err)
	}(time.Now())

	event, err := s.events.Get(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("get event %s: %w", eventID, err)
	}
	if event == nil {
		return nil, nil
	}

	var (
		owner       *types.User
		byKey       map[string]*types.EventType
		assignments []types.RoleAssignment
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if owner, err = s.users.Get(gctx, event.OwnerID); err != nil {
			return fmt.Errorf("get owner %s: %w", event.OwnerID, err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		byKey, err = s.eventTypesByKey(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		if assignments, err = s.roles.ListByEvent(gctx, eventID); err != nil {
			return fmt.Errorf("list roles of event %s: %w", eventID, err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	judgeIDs, participantIDs := roles.Partition(assignments)
	judges, participants, err := s.roleUsers(ctx, judgeIDs, participantIDs)
	if err != nil {
		return nil, err
	}

	return &types.EventDetail{
		Event:          *event,
		Owner:          owner,
		EventType:      byKey[event.EventType],
		Judges:         judges,
		Participants:   participants,
		JudgeIDs:       judgeIDs,
		ParticipantIDs: participantIDs,
		ViewerRole:     roles.Resolve(sess.CurrentUserID(), event.OwnerID, judgeIDs, participantIDs),
	}, nil
}

// EditEventForm returns the prefill for the edit-event screen, or nil when
// the event does not exist. Only the owner may load it.
func (s *AggregationService) EditEventForm(ctx context.Context, sess *session.Session, eventID string) (form *types.EventEditForm, err error) {
	defer func(start time.Time) {
		items := 0
		if form != nil {
			items = 1
		}
		s.observe(ctx, aggEditForm, start, items, err)
	}(time.Now())

	event, err := s.events.Get(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("get event %s: %w", eventID, err)
	}
	if event == nil {
		return nil, nil
	}
	if viewer := sess.CurrentUserID(); viewer == "" || viewer != event.OwnerID {
		return nil, ErrForbidden
	}

	var (
		eventTypes  []types.EventType
		assignments []types.RoleAssignment
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if eventTypes, err = s.eventTypes.List(gctx); err != nil {
			return fmt.Errorf("list event types: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if assignments, err = s.roles.ListByEvent(gctx, eventID); err != nil {
			return fmt.Errorf("list roles of event %s: %w", eventID, err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	judgeIDs, participantIDs := roles.Partition(assignments)
	judges, participants, err := s.roleUsers(ctx, judgeIDs, participantIDs)
	if err != nil {
		return nil, err
	}

	return &types.EventEditForm{
		Event:        *event,
		EventTypes:   eventTypes,
		Judges:       judges,
		Participants: participants,
	}, nil
}

func (s *AggregationService) roleUsers(ctx context.Context, judgeIDs, participantIDs []string) (judges, participants []types.User, err error) {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if judges, err = s.users.GetMany(gctx, judgeIDs); err != nil {
			return fmt.Errorf("get judges: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if participants, err = s.users.GetMany(gctx, participantIDs); err != nil {
			return fmt.Errorf("get participants: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return judges, participants, nil
}

func (s *AggregationService) eventTypesByKey(ctx context.Context) (map[string]*types.EventType, error) {
	list, err := s.eventTypes.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list event types: %w", err)
	}
	byKey := make(map[string]*types.EventType, len(list))
	for i := range list {
		byKey[list[i].Key] = &list[i]
	}
	return byKey, nil
}

func filterEvents(events []types.Event, keep func(types.Event) bool) []types.Event {
	out := make([]types.Event, 0, len(events))
	for _, e := range events {
		if keep(e) {
			out = append(out, e)
		}
	}
	return out
}
