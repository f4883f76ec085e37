// Package store holds the collection accessors: one typed repository per
// document collection, each a thin wrapper over docstore.Backend.
package store

import (
	"errors"
	"strings"

	"github.com/eventhub/apiserver/internal/docstore"
)

// Collection names as they exist in the document backend.
const (
	CollectionUsers      = "users"
	CollectionEvents     = "events"
	CollectionEventTypes = "event_types"
	CollectionSkills     = "skills"
	CollectionEventRoles = "events_users"
	CollectionAccounts   = "accounts"
)

// uniqueIDs drops blanks and duplicates, keeping first-seen order.
func uniqueIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// mapMergeErr translates backend write errors into store errors.
func mapMergeErr(err error) error {
	if errors.Is(err, docstore.ErrNotFound) {
		return ErrNotFound
	}
	return err
}
