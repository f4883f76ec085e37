// Package session holds the authenticated user's state for one request.
package session

import (
	"context"
	"sync"

	"github.com/eventhub/apiserver/internal/docstore"
)

// Session is the current user's authentication state. The zero value is a
// logged-out session, and the read methods treat a nil *Session the same
// way. It is safe for concurrent use.
type Session struct {
	mu       sync.RWMutex
	loggedIn bool
	userID   string
	record   docstore.Record
}

func New() *Session {
	return &Session{}
}

func (s *Session) LoggedIn() bool {
	if s == nil {
		return false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loggedIn
}

// CurrentUserID returns the user id, or "" when logged out.
func (s *Session) CurrentUserID() string {
	if s == nil {
		return ""
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.userID
}

// CurrentUserRecord returns the user's formatted record, or nil.
func (s *Session) CurrentUserRecord() docstore.Record {
	if s == nil {
		return nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.record
}

// SetUserID accepts a string or nil. Any other value is ignored.
// A nil or empty id logs the session out but keeps the record.
func (s *Session) SetUserID(v any) {
	var id string
	switch t := v.(type) {
	case nil:
	case string:
		id = t
	default:
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.userID = id
	s.loggedIn = id != ""
}

// SetUserData accepts a docstore.Record, a map[string]any or nil. Any other
// value is ignored.
func (s *Session) SetUserData(v any) {
	var rec docstore.Record
	switch t := v.(type) {
	case nil:
	case docstore.Record:
		rec = t
	case map[string]any:
		rec = docstore.Record(t)
	default:
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record = rec
}

// SetSession installs the id and record together.
func (s *Session) SetSession(userID string, record docstore.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.userID = userID
	s.loggedIn = userID != ""
	s.record = record
}

// ClearSession logs out, resetting every field at once.
func (s *Session) ClearSession() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loggedIn = false
	s.userID = ""
	s.record = nil
}

type ctxKey struct{}

// NewContext returns ctx carrying s.
func NewContext(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

// FromContext returns the session carried by ctx, or a fresh logged-out
// session when there is none.
func FromContext(ctx context.Context) *Session {
	if s, ok := ctx.Value(ctxKey{}).(*Session); ok && s != nil {
		return s
	}
	return New()
}
