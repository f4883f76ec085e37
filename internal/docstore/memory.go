package docstore

import (
	"context"
	"sync"
)

// MemoryBackend keeps documents in process memory. It backs local
// development (DOCSTORE driver "memory") and tests.
type MemoryBackend struct {
	mu          sync.RWMutex
	collections map[string]map[string]map[string]any
	order       map[string][]string
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		collections: make(map[string]map[string]map[string]any),
		order:       make(map[string][]string),
	}
}

func (m *MemoryBackend) Get(ctx context.Context, collection, id string) (Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	doc, ok := m.collections[collection][id]
	if !ok {
		return nil, nil
	}
	return Format(id, cloneMap(doc)), nil
}

func (m *MemoryBackend) GetMany(ctx context.Context, collection string, ids []string) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, ErrEmptyMatchSet
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	docs := m.collections[collection]
	out := make([]Record, 0, len(ids))
	for _, id := range ids {
		if doc, ok := docs[id]; ok {
			out = append(out, Format(id, cloneMap(doc)))
		}
	}
	return out, nil
}

func (m *MemoryBackend) Query(ctx context.Context, q Query) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	docs := m.collections[q.Collection]
	out := make([]Record, 0, len(docs))
	for _, id := range m.order[q.Collection] {
		rec := Format(id, cloneMap(docs[id]))
		if rec != nil && matches(rec, q.Filters) {
			out = append(out, rec)
		}
	}
	return sortRecords(out, q.OrderBy, q.Descending), nil
}

func (m *MemoryBackend) Create(ctx context.Context, collection, id string, fields map[string]any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	docs, ok := m.collections[collection]
	if !ok {
		docs = make(map[string]map[string]any)
		m.collections[collection] = docs
	}
	if _, exists := docs[id]; !exists {
		m.order[collection] = append(m.order[collection], id)
	}
	docs[id] = cloneMap(fields)
	return nil
}

func (m *MemoryBackend) Merge(ctx context.Context, collection, id string, fields map[string]any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	doc, ok := m.collections[collection][id]
	if !ok {
		return ErrNotFound
	}
	applyMerge(doc, cloneMap(fields))
	return nil
}

func (m *MemoryBackend) Delete(ctx context.Context, collection, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	docs := m.collections[collection]
	if _, ok := docs[id]; !ok {
		return nil
	}
	delete(docs, id)
	order := m.order[collection]
	for i, existing := range order {
		if existing == id {
			m.order[collection] = append(order[:i:i], order[i+1:]...)
			break
		}
	}
	return nil
}

func (m *MemoryBackend) Close() error {
	return nil
}

func cloneMap(src map[string]any) map[string]any {
	if src == nil {
		return nil
	}
	out := make(map[string]any, len(src))
	for key, value := range src {
		out[key] = cloneValue(value)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return cloneMap(t)
	case Record:
		return cloneMap(t)
	case map[string]int:
		out := make(map[string]any, len(t))
		for k, n := range t {
			out[k] = n
		}
		return out
	case map[string]string:
		out := make(map[string]any, len(t))
		for k, s := range t {
			out[k] = s
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i := range t {
			out[i] = cloneValue(t[i])
		}
		return out
	default:
		return v
	}
}
