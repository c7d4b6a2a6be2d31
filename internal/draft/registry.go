package draft

import (
	"context"
	"sync"
	"time"
)

// IdleEviction is how long a Store with no pending auto-save stays in a
// Registry after its last use.
const IdleEviction = 10 * time.Minute

// Registry hands out one Store per client context over a shared KV, so
// the auto-save debounce of a client survives across requests. Idle
// stores are evicted; their drafts stay in the KV.
type Registry struct {
	kv   KV
	opts []Option

	mu     sync.Mutex
	stores map[string]*registered
}

type registered struct {
	store    *Store
	lastUsed time.Time
}

// NewRegistry creates a Registry. opts apply to every Store it creates.
func NewRegistry(kv KV, opts ...Option) *Registry {
	return &Registry{kv: kv, opts: opts, stores: map[string]*registered{}}
}

// For returns the Store of client, creating it on first use.
func (r *Registry) For(client string) *Store {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.stores[client]; ok {
		e.lastUsed = e.store.clock.Now()
		return e.store
	}
	s := r.newStore(client)
	now := s.clock.Now()
	r.evictIdleLocked(now)
	r.stores[client] = &registered{store: s, lastUsed: now}
	return s
}

// Clear removes the draft of client and forgets its Store.
func (r *Registry) Clear(ctx context.Context, client string) error {
	r.mu.Lock()
	e, ok := r.stores[client]
	delete(r.stores, client)
	r.mu.Unlock()

	s := r.newStore(client)
	if ok {
		s = e.store
	}
	return s.Clear(ctx)
}

// Len returns the number of stores held.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.stores)
}

// Flush writes every pending auto-save. It returns how many fired.
func (r *Registry) Flush() int {
	r.mu.Lock()
	stores := make([]*Store, 0, len(r.stores))
	for _, e := range r.stores {
		stores = append(stores, e.store)
	}
	r.mu.Unlock()

	n := 0
	for _, s := range stores {
		if s.FlushAutoSave() {
			n++
		}
	}
	return n
}

func (r *Registry) newStore(client string) *Store {
	opts := append(append([]Option(nil), r.opts...), WithClient(client))
	return NewStore(r.kv, opts...)
}

// evictIdleLocked drops stores unused for IdleEviction that hold no
// pending auto-save.
func (r *Registry) evictIdleLocked(now time.Time) {
	for client, e := range r.stores {
		if now.Sub(e.lastUsed) < IdleEviction {
			continue
		}
		if e.store.AutoSaveState() == DebouncePending {
			continue
		}
		delete(r.stores, client)
	}
}
