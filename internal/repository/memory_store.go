package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// MemoryStore is an in-process DocumentStore. Records are copied through
// their JSON form on the way in and out, so callers never share state
// with the store and values have the same shapes PostgresStore returns.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string]*memCollection
}

type memCollection struct {
	order   []string
	records map[string]Record
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{collections: make(map[string]*memCollection)}
}

func (s *MemoryStore) collection(name string) *memCollection {
	c, ok := s.collections[name]
	if !ok {
		c = &memCollection{records: make(map[string]Record)}
		s.collections[name] = c
	}
	return c
}

// Ping always succeeds.
func (s *MemoryStore) Ping(ctx context.Context) error { return nil }

// Insert stores a new record under a fresh UUID.
func (s *MemoryStore) Insert(ctx context.Context, collection string, record Record) (Record, error) {
	rec, err := Encode(record)
	if err != nil {
		return nil, err
	}
	id := uuid.New().String()
	rec["id"] = id

	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.collection(collection)
	c.records[id] = rec
	c.order = append(c.order, id)

	return Encode(rec)
}

// GetByID retrieves a record by its ID.
func (s *MemoryStore) GetByID(ctx context.Context, collection, id string) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.collections[collection]
	if !ok {
		return nil, ErrNotFound
	}
	rec, ok := c.records[id]
	if !ok {
		return nil, ErrNotFound
	}
	return Encode(rec)
}

// Update replaces an existing record.
func (s *MemoryStore) Update(ctx context.Context, collection, id string, record Record) (Record, error) {
	rec, err := Encode(record)
	if err != nil {
		return nil, err
	}
	rec["id"] = id

	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.collections[collection]
	if !ok {
		return nil, ErrNotFound
	}
	if _, ok := c.records[id]; !ok {
		return nil, ErrNotFound
	}
	c.records[id] = rec

	return Encode(rec)
}

// Delete removes a record.
func (s *MemoryStore) Delete(ctx context.Context, collection, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.collections[collection]
	if !ok {
		return ErrNotFound
	}
	if _, ok := c.records[id]; !ok {
		return ErrNotFound
	}
	delete(c.records, id)
	for i, oid := range c.order {
		if oid == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	return nil
}

// Query filters by containment, then orders and pages the matches.
func (s *MemoryStore) Query(ctx context.Context, collection string, filter Filter, order *Order, rng *Range) ([]Record, error) {
	want, err := Encode(nest(filter))
	if err != nil {
		return nil, fmt.Errorf("invalid filter: %w", err)
	}

	s.mu.RLock()
	var matched []Record
	if c, ok := s.collections[collection]; ok {
		for _, id := range c.order {
			rec := c.records[id]
			if contains(map[string]any(rec), map[string]any(want)) {
				matched = append(matched, rec)
			}
		}
	}
	s.mu.RUnlock()

	if order != nil && order.Field != "" {
		path := order.Path()
		sort.SliceStable(matched, func(i, j int) bool {
			a, _ := lookup(matched[i], path)
			b, _ := lookup(matched[j], path)
			if order.Desc {
				return less(b, a)
			}
			return less(a, b)
		})
	}

	if rng != nil {
		if rng.Offset >= len(matched) {
			matched = nil
		} else if rng.Offset > 0 {
			matched = matched[rng.Offset:]
		}
		if rng.Limit > 0 && len(matched) > rng.Limit {
			matched = matched[:rng.Limit]
		}
	}

	out := make([]Record, 0, len(matched))
	for _, rec := range matched {
		cp, err := Encode(rec)
		if err != nil {
			return nil, err
		}
		out = append(out, cp)
	}
	return out, nil
}

// contains mirrors the JSONB @> operator.
func contains(doc, want any) bool {
	switch w := want.(type) {
	case map[string]any:
		d, ok := doc.(map[string]any)
		if !ok {
			return false
		}
		for k, wv := range w {
			dv, ok := d[k]
			if !ok || !contains(dv, wv) {
				return false
			}
		}
		return true
	case []any:
		d, ok := doc.([]any)
		if !ok {
			return false
		}
		for _, wv := range w {
			found := false
			for _, dv := range d {
				if contains(dv, wv) {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		}
		return true
	default:
		return doc == want
	}
}

// less orders JSON scalars the way #>> text comparison would for the
// values this service stores. Missing values sort first.
func less(a, b any) bool {
	switch av := a.(type) {
	case float64:
		if bv, ok := b.(float64); ok {
			return av < bv
		}
	case string:
		if bv, ok := b.(string); ok {
			return av < bv
		}
	case nil:
		return b != nil
	}
	return fmt.Sprint(a) < fmt.Sprint(b)
}
