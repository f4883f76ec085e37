package authclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestRevoker(t *testing.T) {
	ctx := context.Background()

	Convey("Given a revoke endpoint", t, func() {
		var gotAuth, gotMethod string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotAuth = r.Header.Get("Authorization")
			gotMethod = r.Method
			if gotAuth != "Bearer good" {
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte("bad token"))
				return
			}
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"revoked":true}`))
		}))
		defer srv.Close()

		revoker := New(srv.URL, srv.Client())

		Convey("When revoking with a valid token", func() {
			resp, err := revoker.Revoke(ctx, "good")

			Convey("Then the bearer token is sent and the body decoded", func() {
				So(err, ShouldBeNil)
				So(gotMethod, ShouldEqual, http.MethodPost)
				So(gotAuth, ShouldEqual, "Bearer good")
				So(resp["revoked"], ShouldEqual, true)
			})
		})

		Convey("When the endpoint rejects the token", func() {
			_, err := revoker.Revoke(ctx, "bad")

			Convey("Then the status is reported", func() {
				So(err, ShouldNotBeNil)
				So(err.Error(), ShouldContainSubstring, "401")
			})
		})
	})

	Convey("Given no revoke url", t, func() {
		_, err := New("", nil).Revoke(ctx, "token")

		Convey("Then ErrNotConfigured is returned", func() {
			So(errors.Is(err, ErrNotConfigured), ShouldBeTrue)
		})
	})
}
