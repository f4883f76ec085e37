// Package docstore abstracts the managed document backend. Every read goes
// through Format, so callers only ever see sanitized records.
package docstore

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned by Merge when the target document does not exist.
	ErrNotFound = errors.New("document not found")

	// ErrEmptyMatchSet is returned by GetMany for an empty id set. The
	// managed backend rejects such queries, so the local backends do too.
	ErrEmptyMatchSet = errors.New("empty match set")
)

// Filter is an equality predicate on a top-level field.
type Filter struct {
	Field string
	Value any
}

// Query selects documents from one collection.
type Query struct {
	Collection string
	Filters    []Filter

	// OrderBy names the sort field. Empty leaves the order to the backend.
	OrderBy    string
	Descending bool
}

// Where returns a copy of q with an additional equality filter.
func (q Query) Where(field string, value any) Query {
	filters := make([]Filter, 0, len(q.Filters)+1)
	filters = append(filters, q.Filters...)
	q.Filters = append(filters, Filter{Field: field, Value: value})
	return q
}

// Increment is a Merge value that adds to a numeric field instead of
// replacing it. A missing or non-numeric field counts as zero.
type Increment int

// applyMerge writes fields into doc, resolving Increment values.
func applyMerge(doc map[string]any, fields map[string]any) {
	for key, value := range fields {
		if inc, ok := value.(Increment); ok {
			current, _ := toInt(doc[key])
			doc[key] = current + int(inc)
			continue
		}
		doc[key] = value
	}
}

// Backend defines the document operations used by the collection accessors.
type Backend interface {
	// Get returns the formatted document, or nil when it does not exist.
	Get(ctx context.Context, collection, id string) (Record, error)
	// GetMany returns the existing documents among ids, in ids order.
	GetMany(ctx context.Context, collection string, ids []string) ([]Record, error)
	Query(ctx context.Context, q Query) ([]Record, error)
	// Create writes a full document, replacing any existing one.
	Create(ctx context.Context, collection, id string, fields map[string]any) error
	// Merge replaces the given top-level fields of an existing document.
	Merge(ctx context.Context, collection, id string, fields map[string]any) error
	Delete(ctx context.Context, collection, id string) error
	Close() error
}
