package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/eventhub/apiserver/internal/docstore"
	"github.com/eventhub/apiserver/internal/metrics"
	"github.com/eventhub/apiserver/internal/storage"
	"github.com/eventhub/apiserver/internal/store"
	"github.com/eventhub/apiserver/types"
)

type bucket struct {
	objects map[string][]byte
	opts    map[string]storage.PutOptions
}

func (b *bucket) EnsureBucket(context.Context) error { return nil }

func (b *bucket) Put(_ context.Context, key string, r io.Reader, _ int64, opts storage.PutOptions) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	b.objects[key] = data
	b.opts[key] = opts
	return nil
}

func (b *bucket) Open(_ context.Context, key string) (io.ReadCloser, storage.ObjectInfo, error) {
	data, ok := b.objects[key]
	if !ok {
		return nil, storage.ObjectInfo{}, storage.ErrObjectNotFound
	}
	info := storage.ObjectInfo{ContentType: b.opts[key].ContentType, CacheControl: b.opts[key].CacheControl, Size: int64(len(data))}
	return io.NopCloser(bytes.NewReader(data)), info, nil
}

func (b *bucket) Delete(_ context.Context, key string) error {
	delete(b.objects, key)
	return nil
}

func (b *bucket) Bucket() string { return "test" }

type apiClient struct {
	t       *testing.T
	handler http.Handler
}

func (c apiClient) do(method, path, token string, body any) *httptest.ResponseRecorder {
	c.t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			c.t.Fatalf("encode body: %v", err)
		}
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	c.handler.ServeHTTP(rec, req)
	return rec
}

func (c apiClient) upload(path, token, contentType string, data []byte) *httptest.ResponseRecorder {
	c.t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", `form-data; name="image"; filename="photo"`)
	header.Set("Content-Type", contentType)
	part, err := mw.CreatePart(header)
	if err != nil {
		c.t.Fatalf("create part: %v", err)
	}
	_, _ = part.Write(data)
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPut, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	c.handler.ServeHTTP(rec, req)
	return rec
}

func (c apiClient) register(email, username string) (string, types.User) {
	c.t.Helper()
	rec := c.do(http.MethodPost, "/auth/register", "", map[string]string{
		"email": email, "password": "long enough", "name": strings.ToUpper(username), "username": username,
	})
	if rec.Code != http.StatusCreated {
		c.t.Fatalf("register %s: %d %s", email, rec.Code, rec.Body.String())
	}
	var res struct {
		Token string     `json:"token"`
		User  types.User `json:"user"`
	}
	decode(c.t, rec, &res)
	return res.Token, res.User
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
}

func newTestAPI(t *testing.T) (apiClient, *bucket) {
	backend := docstore.NewMemoryBackend()
	for key, name := range map[string]string{"jam": "Jam", "workshop": "Workshop"} {
		if err := backend.Create(context.Background(), store.CollectionEventTypes, key, map[string]any{"name": name}); err != nil {
			t.Fatalf("seed event type: %v", err)
		}
	}
	objects := &bucket{objects: map[string][]byte{}, opts: map[string]storage.PutOptions{}}
	m := metrics.New("test")
	router := NewRouter(Dependencies{
		Backend:   docstore.Instrument(backend, m),
		Images:    storage.NewStorage(objects),
		Metrics:   m,
		JWTSecret: "test-secret",
		TokenTTL:  time.Hour,
	})
	return apiClient{t: t, handler: router}, objects
}

func TestEventFlow(t *testing.T) {
	Convey("Given the API with two registered users", t, func() {
		api, _ := newTestAPI(t)
		ownerToken, owner := api.register("ana@example.com", "ana")
		judgeToken, judge := api.register("bo@example.com", "bobo")

		start := time.Now().Add(48 * time.Hour).UTC().Truncate(time.Second)
		rec := api.do(http.MethodPost, "/events", ownerToken, map[string]any{
			"name": "Summer Jam", "startTime": start, "eventType": "jam",
		})
		So(rec.Code, ShouldEqual, http.StatusCreated)
		var event types.Event
		decode(t, rec, &event)

		Convey("When anyone lists the home feed", func() {
			rec := api.do(http.MethodGet, "/events", "", nil)
			var views []types.EventView
			decode(t, rec, &views)

			Convey("Then the event is listed with its owner and type", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				So(len(views), ShouldEqual, 1)
				So(views[0].ID, ShouldEqual, event.ID)
				So(views[0].Owner.ID, ShouldEqual, owner.ID)
				So(views[0].EventType.Name, ShouldEqual, "Jam")
			})
		})

		Convey("When the owner assigns a judge", func() {
			rec := api.do(http.MethodPost, "/events/"+event.ID+"/roles", ownerToken, map[string]string{"userId": judge.ID, "role": "judge"})
			So(rec.Code, ShouldEqual, http.StatusCreated)

			Convey("Then the judge sees their role on the detail page", func() {
				rec := api.do(http.MethodGet, "/events/"+event.ID, judgeToken, nil)
				var detail types.EventDetail
				decode(t, rec, &detail)
				So(rec.Code, ShouldEqual, http.StatusOK)
				So(detail.ViewerRole, ShouldEqual, types.RoleJudge)
				So(detail.JudgeIDs, ShouldResemble, []string{judge.ID})
				So(detail.Owner.ID, ShouldEqual, owner.ID)
			})

			Convey("Then the event is on the judge's calendar", func() {
				rec := api.do(http.MethodGet, "/users/me/calendar", judgeToken, nil)
				var views []types.EventView
				decode(t, rec, &views)
				So(rec.Code, ShouldEqual, http.StatusOK)
				So(len(views), ShouldEqual, 1)
				So(views[0].Role, ShouldEqual, types.RoleJudge)
			})

			Convey("Then the owner can revoke it", func() {
				rec := api.do(http.MethodDelete, "/events/"+event.ID+"/roles/"+judge.ID+"/judge", ownerToken, nil)
				So(rec.Code, ShouldEqual, http.StatusNoContent)
			})
		})

		Convey("When an anonymous caller views the event", func() {
			rec := api.do(http.MethodGet, "/events/"+event.ID, "", nil)
			var detail types.EventDetail
			decode(t, rec, &detail)

			Convey("Then there is no viewer role", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				So(detail.ViewerRole, ShouldEqual, types.RoleNone)
			})
		})

		Convey("When a non-owner edits the event", func() {
			edit := api.do(http.MethodPatch, "/events/"+event.ID, judgeToken, map[string]string{"name": "mine"})
			form := api.do(http.MethodGet, "/events/"+event.ID+"/edit", judgeToken, nil)
			assign := api.do(http.MethodPost, "/events/"+event.ID+"/roles", judgeToken, map[string]string{"userId": judge.ID, "role": "judge"})

			Convey("Then every write is forbidden", func() {
				So(edit.Code, ShouldEqual, http.StatusForbidden)
				So(form.Code, ShouldEqual, http.StatusForbidden)
				So(assign.Code, ShouldEqual, http.StatusForbidden)
			})
		})

		Convey("When the owner unpublishes the event", func() {
			rec := api.do(http.MethodPatch, "/events/"+event.ID, ownerToken, map[string]bool{"isPublished": false})
			So(rec.Code, ShouldEqual, http.StatusOK)

			Convey("Then it leaves the home feed but stays on the owner's calendar", func() {
				var feed, calendar []types.EventView
				decode(t, api.do(http.MethodGet, "/events", "", nil), &feed)
				decode(t, api.do(http.MethodGet, "/users/"+owner.ID+"/calendar", ownerToken, nil), &calendar)
				So(feed, ShouldBeEmpty)
				So(len(calendar), ShouldEqual, 1)
				So(calendar[0].Role, ShouldEqual, types.RoleOwner)
			})

			Convey("Then other callers no longer see it on the owner's calendar", func() {
				var anonymous, judged []types.EventView
				anon := api.do(http.MethodGet, "/users/"+owner.ID+"/calendar", "", nil)
				decode(t, anon, &anonymous)
				decode(t, api.do(http.MethodGet, "/users/"+owner.ID+"/calendar", judgeToken, nil), &judged)
				So(anon.Code, ShouldEqual, http.StatusOK)
				So(anonymous, ShouldBeEmpty)
				So(judged, ShouldBeEmpty)
			})
		})

		Convey("When requesting events that do not exist", func() {
			detail := api.do(http.MethodGet, "/events/missing", "", nil)
			edit := api.do(http.MethodPatch, "/events/missing", ownerToken, map[string]string{"name": "x"})

			Convey("Then both are 404", func() {
				So(detail.Code, ShouldEqual, http.StatusNotFound)
				So(edit.Code, ShouldEqual, http.StatusNotFound)
			})
		})
	})
}

func TestProfileFlow(t *testing.T) {
	Convey("Given the API with two registered users", t, func() {
		api, objects := newTestAPI(t)
		token, user := api.register("ana@example.com", "ana")
		api.register("bo@example.com", "bobo")

		Convey("When a user claims a taken username", func() {
			rec := api.do(http.MethodPatch, "/users/me", token, map[string]string{"username": "BOBO"})

			Convey("Then it conflicts", func() {
				So(rec.Code, ShouldEqual, http.StatusConflict)
			})
		})

		Convey("When a user edits their profile", func() {
			rec := api.do(http.MethodPatch, "/users/me", token, map[string]any{
				"name": "Ana B", "socials": map[string]string{"instagram": "ana.moves"},
			})

			Convey("Then the edit is visible on the public profile and in /auth/me", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				var public types.User
				decode(t, api.do(http.MethodGet, "/users/"+user.ID, "", nil), &public)
				So(public.Name, ShouldEqual, "Ana B")
				So(public.Socials.Instagram, ShouldEqual, "ana.moves")

				var me map[string]any
				decode(t, api.do(http.MethodGet, "/auth/me", token, nil), &me)
				So(me["name"], ShouldEqual, "Ana B")
				So(me, ShouldNotContainKey, "createdAt")
			})
		})

		Convey("When a user uploads a photo", func() {
			rec := api.upload("/users/me/photo", token, "image/png", []byte("png-bytes"))
			var updated types.User
			decode(t, rec, &updated)

			Convey("Then the object is stored and served from /media", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				So(updated.PhotoURL, ShouldStartWith, "users/"+user.ID+"/photo-")
				So(len(objects.objects), ShouldEqual, 1)

				media := api.do(http.MethodGet, "/media/"+updated.PhotoURL, "", nil)
				So(media.Code, ShouldEqual, http.StatusOK)
				So(media.Body.String(), ShouldEqual, "png-bytes")
				So(media.Header().Get("Content-Type"), ShouldEqual, "image/png")
			})
		})

		Convey("When a user uploads a non-image", func() {
			rec := api.upload("/users/me/photo", token, "text/plain", []byte("hello"))

			Convey("Then it is rejected", func() {
				So(rec.Code, ShouldEqual, http.StatusBadRequest)
				So(objects.objects, ShouldBeEmpty)
			})
		})

		Convey("When fetching an unknown user or media key", func() {
			userRec := api.do(http.MethodGet, "/users/ghost", "", nil)
			mediaRec := api.do(http.MethodGet, "/media/users/ghost/photo.png", "", nil)

			Convey("Then both are 404", func() {
				So(userRec.Code, ShouldEqual, http.StatusNotFound)
				So(mediaRec.Code, ShouldEqual, http.StatusNotFound)
			})
		})
	})
}

func TestAuthAndOperationalRoutes(t *testing.T) {
	Convey("Given the API", t, func() {
		api, _ := newTestAPI(t)

		Convey("When calling protected routes without or with a bad token", func() {
			anonymous := api.do(http.MethodGet, "/users/me/calendar", "", nil)
			forged := api.do(http.MethodGet, "/events", "not-a-jwt", nil)

			Convey("Then both are unauthorized", func() {
				So(anonymous.Code, ShouldEqual, http.StatusUnauthorized)
				So(forged.Code, ShouldEqual, http.StatusUnauthorized)
			})
		})

		Convey("When logging in with the wrong password", func() {
			api.register("ana@example.com", "ana")
			rec := api.do(http.MethodPost, "/auth/login", "", map[string]string{"email": "ana@example.com", "password": "nope nope"})

			Convey("Then it is unauthorized", func() {
				So(rec.Code, ShouldEqual, http.StatusUnauthorized)
			})
		})

		Convey("When logging out without a revocation endpoint", func() {
			token, _ := api.register("ana@example.com", "ana")
			rec := api.do(http.MethodPost, "/auth/logout", token, nil)

			Convey("Then the logout still succeeds", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
			})
		})

		Convey("When listing reference data", func() {
			var eventTypes []types.EventType
			rec := api.do(http.MethodGet, "/event-types", "", nil)
			decode(t, rec, &eventTypes)

			Convey("Then event types are sorted by name", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				So(eventTypes, ShouldResemble, []types.EventType{{Key: "jam", Name: "Jam"}, {Key: "workshop", Name: "Workshop"}})
			})
		})

		Convey("When probing health and metrics", func() {
			health := api.do(http.MethodGet, "/healthz", "", nil)
			api.do(http.MethodGet, "/events", "", nil)
			scrape := api.do(http.MethodGet, "/metrics", "", nil)

			Convey("Then both respond and the scrape includes request metrics", func() {
				So(health.Code, ShouldEqual, http.StatusOK)
				So(scrape.Code, ShouldEqual, http.StatusOK)
				So(scrape.Body.String(), ShouldContainSubstring, "test_docstore_operations_total")
			})
		})
	})
}
