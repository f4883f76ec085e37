package docstore

import (
	"context"
	"time"
)

// Observer receives one observation per backend call.
type Observer interface {
	ObserveDocstore(op, collection string, d time.Duration, err error)
}

type instrumented struct {
	next     Backend
	observer Observer
}

// Instrument wraps b so every call is reported to observer.
func Instrument(b Backend, observer Observer) Backend {
	if observer == nil {
		return b
	}
	return &instrumented{next: b, observer: observer}
}

func (i *instrumented) observe(op, collection string, start time.Time, err error) {
	i.observer.ObserveDocstore(op, collection, time.Since(start), err)
}

func (i *instrumented) Get(ctx context.Context, collection, id string) (Record, error) {
	start := time.Now()
	rec, err := i.next.Get(ctx, collection, id)
	i.observe("get", collection, start, err)
	return rec, err
}

func (i *instrumented) GetMany(ctx context.Context, collection string, ids []string) ([]Record, error) {
	start := time.Now()
	recs, err := i.next.GetMany(ctx, collection, ids)
	i.observe("get_many", collection, start, err)
	return recs, err
}

func (i *instrumented) Query(ctx context.Context, q Query) ([]Record, error) {
	start := time.Now()
	recs, err := i.next.Query(ctx, q)
	i.observe("query", q.Collection, start, err)
	return recs, err
}

func (i *instrumented) Create(ctx context.Context, collection, id string, fields map[string]any) error {
	start := time.Now()
	err := i.next.Create(ctx, collection, id, fields)
	i.observe("create", collection, start, err)
	return err
}

func (i *instrumented) Merge(ctx context.Context, collection, id string, fields map[string]any) error {
	start := time.Now()
	err := i.next.Merge(ctx, collection, id, fields)
	i.observe("merge", collection, start, err)
	return err
}

func (i *instrumented) Delete(ctx context.Context, collection, id string) error {
	start := time.Now()
	err := i.next.Delete(ctx, collection, id)
	i.observe("delete", collection, start, err)
	return err
}

func (i *instrumented) Close() error {
	return i.next.Close()
}
