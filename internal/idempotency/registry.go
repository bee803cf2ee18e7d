package idempotency

import (
	"sort"
	"sync"
	"time"
)

// sweepEvery is the number of Get calls between opportunistic sweeps.
const sweepEvery = 1000

// Registry hands out one Guard per form ID. Guards are created on demand and
// evicted once idle for longer than the TTL; a guard with a call in flight is
// never evicted. An evicted guard's retained token is forgotten, but tokens in
// the Store stay consumed.
//
// The registry lock is held only for lookup, insert and sweep, never across a
// guarded call.
type Registry struct {
	store Store
	ttl   time.Duration
	now   clock

	mu      sync.Mutex
	guards  map[string]*Guard
	lookups uint64
}

// NewRegistry returns a registry whose guards share store (may be nil).
// ttl <= 0 defaults to 30 minutes.
func NewRegistry(store Store, ttl time.Duration) *Registry {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &Registry{
		store:  store,
		ttl:    ttl,
		now:    time.Now,
		guards: make(map[string]*Guard),
	}
}

// Get returns the guard for form, creating it if absent.
func (r *Registry) Get(form string) *Guard {
	now := r.now()

	r.mu.Lock()
	defer r.mu.Unlock()

	// Sweep before touching the requested guard so a stale entry for this
	// form is replaced rather than refreshed.
	r.lookups++
	if r.lookups >= sweepEvery {
		r.sweepLocked(now)
		r.lookups = 0
	}

	if g, ok := r.guards[form]; ok {
		g.touch(now)
		return g
	}
	g := NewGuard(form, r.store)
	g.now = r.now
	g.lastUsed = now
	r.guards[form] = g
	return g
}

// Peek returns the guard for form without creating one.
func (r *Registry) Peek(form string) (*Guard, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.guards[form]
	return g, ok
}

// Sweep evicts idle guards and returns how many were removed.
func (r *Registry) Sweep() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sweepLocked(r.now())
}

func (r *Registry) sweepLocked(now time.Time) int {
	n := 0
	for k, g := range r.guards {
		if idle, ok := g.idleFor(now); ok && idle >= r.ttl {
			delete(r.guards, k)
			n++
		}
	}
	return n
}

// Len returns the number of live guards.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.guards)
}

// Forms returns the IDs of live guards in sorted order.
func (r *Registry) Forms() []string {
	r.mu.Lock()
	out := make([]string, 0, len(r.guards))
	for k := range r.guards {
		out = append(out, k)
	}
	r.mu.Unlock()
	sort.Strings(out)
	return out
}
