package services

import (
	"context"
	"errors"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/eventhub/apiserver/types"
)

func seedTimeline(t *testing.T, f *fixture) {
	cutoff := testNow.Add(-UpcomingWindow)
	f.event(t, "boundary", "A", "jam", cutoff, nil)
	f.event(t, "future", "B", "meetup", testNow.Add(2*time.Hour), boolPtr(true))
	f.event(t, "hidden", "A", "jam", testNow.Add(3*time.Hour), boolPtr(false))
	f.event(t, "old", "B", "meetup", cutoff.Add(-time.Hour), boolPtr(false))
	f.event(t, "untyped", "A", "gala", testNow.Add(time.Hour), nil)
	f.event(t, "justmissed", "C", "jam", cutoff.Add(-time.Nanosecond), nil)
}

func TestHomeFeedAndPastEvents(t *testing.T) {
	ctx := context.Background()

	Convey("Given events around the 25 hour cutoff", t, func() {
		f := newFixture(t)
		seedTimeline(t, f)
		observer := &recordingObserver{}
		svc := f.aggregation(WithAggregationObserver(observer))

		Convey("When building the home feed", func() {
			views, err := svc.HomeFeed(ctx)

			Convey("Then only published events at or after the cutoff remain, in start order", func() {
				So(err, ShouldBeNil)
				So(eventIDs(views), ShouldResemble, []string{"boundary", "untyped", "future"})
			})

			Convey("Then owners and event types are attached", func() {
				So(views[0].Owner.Name, ShouldEqual, "Ana")
				So(views[0].EventType, ShouldResemble, &types.EventType{Key: "jam", Name: "Jam"})
				So(views[2].Owner.ID, ShouldEqual, "B")
			})

			Convey("Then an unknown type key leaves the type absent", func() {
				So(views[1].EventType, ShouldBeNil)
				So(views[1].Owner.ID, ShouldEqual, "A")
			})

			Convey("Then the aggregation is observed", func() {
				So(observer.obs, ShouldResemble, []observation{{name: aggHomeFeed, items: 3}})
			})
		})

		Convey("When listing past events", func() {
			views, err := svc.PastEvents(ctx)

			Convey("Then events at or before the cutoff are returned regardless of publication", func() {
				So(err, ShouldBeNil)
				So(eventIDs(views), ShouldResemble, []string{"old", "justmissed", "boundary"})
				So(views[0].Owner.ID, ShouldEqual, "B")
			})

			Convey("Then the boundary event also appears in the home feed", func() {
				feed, err := svc.HomeFeed(ctx)
				So(err, ShouldBeNil)
				So(eventIDs(feed), ShouldContain, "boundary")
			})
		})

		Convey("When an event has no type key and the store rejects empty keys", func() {
			f.event(t, "blank", "C", "", testNow.Add(5*time.Hour), nil)
			strict := NewAggregationService(f.events, f.users, keyedEventTypes{f.eventTypes}, f.roles,
				WithClock(func() time.Time { return testNow }))
			feed, feedErr := strict.HomeFeed(ctx)
			detail, detailErr := strict.EventDetail(ctx, sessionFor(""), "blank")

			Convey("Then the type is absent in every view and nothing fails", func() {
				So(feedErr, ShouldBeNil)
				last := feed[len(feed)-1]
				So(last.ID, ShouldEqual, "blank")
				So(last.EventType, ShouldBeNil)
				So(last.Owner.ID, ShouldEqual, "C")
				So(detailErr, ShouldBeNil)
				So(detail.EventType, ShouldBeNil)
			})
		})

		Convey("When the owner of an event no longer exists", func() {
			f.event(t, "orphan", "ghost", "jam", testNow.Add(4*time.Hour), nil)
			views, err := svc.HomeFeed(ctx)

			Convey("Then the event is kept without an owner", func() {
				So(err, ShouldBeNil)
				last := views[len(views)-1]
				So(last.ID, ShouldEqual, "orphan")
				So(last.Owner, ShouldBeNil)
			})
		})
	})
}

func TestUserCalendar(t *testing.T) {
	ctx := context.Background()

	Convey("Given a user who owns events and holds roles on others", t, func() {
		f := newFixture(t)
		seedTimeline(t, f)
		f.assign(t, "future", "A", types.RoleParticipant)
		f.assign(t, "future", "A", types.RoleJudge)
		f.assign(t, "hidden", "A", types.RoleJudge)
		f.assign(t, "boundary", "A", types.RoleOwner)
		f.assign(t, "old", "A", types.RoleParticipant)
		f.assign(t, "future", "C", types.RoleParticipant)
		svc := f.aggregation()

		Convey("When building the calendar", func() {
			views, err := svc.UserCalendar(ctx, "A")

			Convey("Then each event appears once, sorted by start, past events dropped", func() {
				So(err, ShouldBeNil)
				So(eventIDs(views), ShouldResemble, []string{"boundary", "untyped", "future", "hidden"})
			})

			Convey("Then roles come from assignments before ownership", func() {
				So(views[0].Role, ShouldEqual, types.RoleOwner)
				So(views[1].Role, ShouldEqual, types.RoleOwner)
				So(views[2].Role, ShouldEqual, types.RoleJudge)
				So(views[3].Role, ShouldEqual, types.RoleJudge)
			})

			Convey("Then event types are attached but owners are not", func() {
				So(views[0].EventType.Key, ShouldEqual, "jam")
				So(views[1].EventType, ShouldBeNil)
				So(views[2].EventType.Key, ShouldEqual, "meetup")
				So(views[2].Owner, ShouldBeNil)
			})
		})

		Convey("When someone else opens the calendar", func() {
			other, otherErr := svc.CalendarFor(ctx, sessionFor("B"), "A")
			anon, anonErr := svc.CalendarFor(ctx, sessionFor(""), "A")
			own, ownErr := svc.CalendarFor(ctx, sessionFor("A"), "A")

			Convey("Then unpublished events are shown to their owner only", func() {
				So(otherErr, ShouldBeNil)
				So(anonErr, ShouldBeNil)
				So(ownErr, ShouldBeNil)
				So(eventIDs(other), ShouldResemble, []string{"boundary", "untyped", "future"})
				So(eventIDs(anon), ShouldResemble, []string{"boundary", "untyped", "future"})
				So(eventIDs(own), ShouldResemble, []string{"boundary", "untyped", "future", "hidden"})
			})
		})

		Convey("When the user has neither roles nor events", func() {
			views, err := svc.UserCalendar(ctx, "nobody")

			Convey("Then the calendar is empty", func() {
				So(err, ShouldBeNil)
				So(views, ShouldNotBeNil)
				So(views, ShouldBeEmpty)
			})
		})
	})
}

func TestEventDetail(t *testing.T) {
	ctx := context.Background()

	Convey("Given an event owned by A with B judging and C participating", t, func() {
		f := newFixture(t)
		f.event(t, "e1", "A", "jam", testNow.Add(time.Hour), nil)
		f.assign(t, "e1", "A", types.RoleOwner)
		f.assign(t, "e1", "B", types.RoleJudge)
		f.assign(t, "e1", "C", types.RoleParticipant)
		svc := f.aggregation()

		Convey("When B views the event", func() {
			detail, err := svc.EventDetail(ctx, sessionFor("B"), "e1")

			Convey("Then B is listed as judge only and resolves to judge", func() {
				So(err, ShouldBeNil)
				So(detail.JudgeIDs, ShouldResemble, []string{"B"})
				So(detail.ParticipantIDs, ShouldResemble, []string{"C"})
				So(userIDs(detail.Judges), ShouldResemble, []string{"B"})
				So(userIDs(detail.Participants), ShouldResemble, []string{"C"})
				So(detail.ViewerRole, ShouldEqual, types.RoleJudge)
			})

			Convey("Then owner and type are resolved", func() {
				So(detail.Owner.ID, ShouldEqual, "A")
				So(detail.EventType.Name, ShouldEqual, "Jam")
			})
		})

		Convey("When A views the event", func() {
			detail, err := svc.EventDetail(ctx, sessionFor("A"), "e1")

			Convey("Then A resolves to owner", func() {
				So(err, ShouldBeNil)
				So(detail.ViewerRole, ShouldEqual, types.RoleOwner)
			})
		})

		Convey("When an anonymous session views the event", func() {
			detail, err := svc.EventDetail(ctx, sessionFor(""), "e1")

			Convey("Then there is no viewer role", func() {
				So(err, ShouldBeNil)
				So(detail.ViewerRole, ShouldEqual, types.RoleNone)
			})
		})

		Convey("When the event type no longer exists", func() {
			f.event(t, "e2", "A", "deleted-type", testNow, nil)
			detail, err := svc.EventDetail(ctx, sessionFor("A"), "e2")

			Convey("Then the type is absent rather than an error", func() {
				So(err, ShouldBeNil)
				So(detail, ShouldNotBeNil)
				So(detail.EventType, ShouldBeNil)
				So(detail.Judges, ShouldBeEmpty)
			})
		})

		Convey("When the event does not exist", func() {
			detail, err := svc.EventDetail(ctx, sessionFor("A"), "missing")

			Convey("Then nil is returned without an error", func() {
				So(err, ShouldBeNil)
				So(detail, ShouldBeNil)
			})
		})
	})
}

func TestEditEventForm(t *testing.T) {
	ctx := context.Background()

	Convey("Given an event owned by A", t, func() {
		f := newFixture(t)
		f.event(t, "e1", "A", "jam", testNow.Add(time.Hour), nil)
		f.assign(t, "e1", "B", types.RoleJudge)
		svc := f.aggregation()

		Convey("When the owner loads the form", func() {
			form, err := svc.EditEventForm(ctx, sessionFor("A"), "e1")

			Convey("Then it carries every type and the role holders", func() {
				So(err, ShouldBeNil)
				So(form.Event.ID, ShouldEqual, "e1")
				So(len(form.EventTypes), ShouldEqual, 2)
				So(form.EventTypes[0].Key, ShouldEqual, "jam")
				So(userIDs(form.Judges), ShouldResemble, []string{"B"})
				So(form.Participants, ShouldBeEmpty)
			})
		})

		Convey("When someone else loads the form", func() {
			_, err := svc.EditEventForm(ctx, sessionFor("B"), "e1")

			Convey("Then it is forbidden", func() {
				So(errors.Is(err, ErrForbidden), ShouldBeTrue)
			})
		})

		Convey("When the event does not exist", func() {
			form, err := svc.EditEventForm(ctx, sessionFor("A"), "missing")

			Convey("Then nil is returned", func() {
				So(err, ShouldBeNil)
				So(form, ShouldBeNil)
			})
		})
	})
}

type failingEvents struct {
	EventRepository
	err error
}

func (f failingEvents) ListPublished(context.Context) ([]types.Event, error) { return nil, f.err }

func (f failingEvents) Get(context.Context, string) (*types.Event, error) { return nil, f.err }

func TestAggregationErrorsPropagate(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("backend unavailable")

	Convey("Given an event accessor that fails", t, func() {
		f := newFixture(t)
		observer := &recordingObserver{}
		svc := NewAggregationService(failingEvents{err: boom}, f.users, f.eventTypes, f.roles, WithAggregationObserver(observer))

		Convey("When aggregating", func() {
			_, feedErr := svc.HomeFeed(ctx)
			detail, detailErr := svc.EventDetail(ctx, sessionFor("A"), "e1")

			Convey("Then the accessor error is returned unmodified in the chain", func() {
				So(errors.Is(feedErr, boom), ShouldBeTrue)
				So(errors.Is(detailErr, boom), ShouldBeTrue)
				So(detail, ShouldBeNil)
				So(len(observer.obs), ShouldEqual, 2)
				So(errors.Is(observer.obs[0].err, boom), ShouldBeTrue)
			})
		})
	})
}
