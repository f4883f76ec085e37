package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/eventhub/apiserver/internal/services"
	"github.com/eventhub/apiserver/internal/session"
	"github.com/eventhub/apiserver/pkg/logger"
)

type contextKey string

const contextTokenKey contextKey = "token"

// Authenticator resolves a bearer token into a session.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*session.Session, error)
}

// HTTPObserver receives one observation per request.
type HTTPObserver interface {
	ObserveHTTP(route, method string, status int, d time.Duration)
}

// WithSession attaches a session to every request. Requests without a
// bearer token get a logged-out session; an invalid token is rejected.
func WithSession(auth Authenticator, log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := bearerToken(r)
			if errors.Is(err, errMissingAuthorization) {
				ctx := session.NewContext(r.Context(), session.New())
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}
			if err != nil {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			sess, err := auth.Authenticate(r.Context(), token)
			if err != nil {
				if errors.Is(err, services.ErrUnauthenticated) {
					writeError(w, http.StatusUnauthorized, "unauthorized")
					return
				}
				log.Error(r.Context(), "authenticate request", logger.Error(err))
				writeError(w, http.StatusInternalServerError, "failed to authenticate")
				return
			}

			ctx := session.NewContext(r.Context(), sess)
			ctx = context.WithValue(ctx, contextTokenKey, token)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireSession rejects requests whose session is logged out.
func RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !session.FromContext(r.Context()).LoggedIn() {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func tokenFromContext(ctx context.Context) string {
	token, _ := ctx.Value(contextTokenKey).(string)
	return token
}

// RequestLogger logs each request and reports it to observer, labelled by
// the matched route pattern.
func RequestLogger(log logger.Logger, observer HTTPObserver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			route := r.URL.Path
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				if pattern := rctx.RoutePattern(); pattern != "" {
					route = pattern
				}
			}
			took := time.Since(start)
			if observer != nil {
				observer.ObserveHTTP(route, r.Method, status, took)
			}
			log.Info(r.Context(), "request",
				logger.String("method", r.Method),
				logger.String("route", route),
				logger.Int("status", status),
				logger.Duration("took", took),
				logger.String("request_id", middleware.GetReqID(r.Context())),
			)
		})
	}
}
