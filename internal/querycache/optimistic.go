package querycache

import "context"

// Mutation is an optimistic update.
//
// Update is applied synchronously to every Keys entry before Run is called.
// It receives the current value (ok=false when absent) and returns the
// speculative value; returning keep=false removes the entry instead. If Run
// fails, every Keys entry is restored to its snapshot. Settle prefixes are
// invalidated after Run on either outcome.
type Mutation struct {
	Keys   []Key
	Update func(key Key, cur any, ok bool) (next any, keep bool)
	Run    func(ctx context.Context) (any, error)
	Settle []Key
}

type snapshot struct {
	key     Key
	value   entry
	present bool
}

// Optimistic applies m and returns Run's result.
func (c *Cache) Optimistic(ctx context.Context, m Mutation) (any, error) {
	snaps := make([]snapshot, 0, len(m.Keys))

	c.mu.Lock()
	for _, k := range m.Keys {
		ks := k.String()
		s := snapshot{key: k}
		if e, ok := c.entries[ks]; ok {
			s.value, s.present = *e, true
		}
		snaps = append(snaps, s)
		if m.Update == nil {
			continue
		}
		var cur any
		if s.present {
			cur = s.value.value
		}
		next, keep := m.Update(k, cur, s.present)
		if keep {
			c.entries[ks] = &entry{key: k, value: next, storedAt: c.now()}
		} else {
			delete(c.entries, ks)
		}
	}
	c.mu.Unlock()

	res, err := m.Run(ctx)

	if err != nil {
		c.mu.Lock()
		for _, s := range snaps {
			if s.present {
				e := s.value
				c.entries[s.key.String()] = &e
			} else {
				delete(c.entries, s.key.String())
			}
		}
		c.mu.Unlock()
		cacheRollbacks.Inc()
	}

	for _, p := range m.Settle {
		c.Invalidate(p)
	}
	return res, err
}
