// Package state implements the eager-state cache described in spec.md
// §4.d: an in-memory mirror of key/value invocation state, seeded from the
// Start frame and locally mutated by Set/Clear/ClearAll, that only falls
// back to the wire on a genuine cache miss.
package state

import "sync"

type status uint8

const (
	unknown status = iota
	known
	cleared
)

type entry struct {
	status status
	value  []byte
}

// Cache is the eager-state cache. It is owned exclusively by one
// invocation's state machine (spec.md §5 "shared resources"), so its
// mutex exists only to make Get/Set safe if handler code races itself —
// it is not a cross-task synchronization point the way the completion
// registry is.
type Cache struct {
	mu         sync.Mutex
	entries    map[string]entry
	clearedAll bool

	// keysValid is true when the cache's key set is known to be
	// exhaustive: established by a GetStateKeys wire round-trip, or by a
	// ClearAll (which makes "zero keys" certain until a Set intervenes).
	// The initial eager-state snapshot is intentionally NOT treated as
	// exhaustive, since the supervisor may push a partial snapshot and a
	// key absent from it is genuinely Unknown rather than proven absent.
	keysValid bool
}

// New returns a Cache seeded from a Start frame's state map.
func New(seed map[string][]byte) *Cache {
	var c = &Cache{
		entries: make(map[string]entry, len(seed)),
	}
	for k, v := range seed {
		c.entries[k] = entry{status: known, value: v}
	}
	return c
}

// Lookup is the result of a Get attempt against the local cache.
type Lookup struct {
	// Value is the cached value, meaningful only when Hit is true.
	Value []byte
	// Hit is true if the cache answered locally (no wire round-trip
	// needed): either a known value, or a default due to Clear/ClearAll.
	Hit bool
}

// Get consults the cache for key k. A miss (Hit == false) means the caller
// must append a GetState entry and await a completion from the supervisor,
// then call Observe with the result.
func (c *Cache) Get(k string) Lookup {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[k]; ok {
		switch e.status {
		case known:
			return Lookup{Value: e.value, Hit: true}
		case cleared:
			return Lookup{Hit: true} // default
		}
	}
	if c.clearedAll {
		return Lookup{Hit: true} // default: cleared-all with no intervening Set
	}
	return Lookup{Hit: false}
}

// Observe records the supervisor's answer to a GetState wire round-trip,
// caching it for subsequent Gets in the same invocation.
func (c *Cache) Observe(k string, value []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[k] = entry{status: known, value: value}
}

// Set stores v for k, observable by any later Get in this invocation.
func (c *Cache) Set(k string, v []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[k] = entry{status: known, value: v}
}

// Clear removes k. A subsequent Get(k) returns default unless a Set(k)
// intervenes.
func (c *Cache) Clear(k string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[k] = entry{status: cleared}
}

// ClearAll marks every key cleared. A subsequent Get(k) returns default
// unless a Set(k) intervenes.
func (c *Cache) ClearAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]entry)
	c.clearedAll = true
	c.keysValid = true // we now know, authoritatively, that there are no keys
}

// Keys returns the locally-known key set (excluding cleared/default
// entries) and whether the cache can answer StateKeys without a wire
// round-trip.
func (c *Cache) Keys() (keys []string, hit bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.keysValid {
		return nil, false
	}
	for k, e := range c.entries {
		if e.status == known {
			keys = append(keys, k)
		}
	}
	return keys, true
}

// ObserveKeys records the supervisor's answer to a GetStateKeys wire
// round-trip as the new authoritative key set.
func (c *Cache) ObserveKeys(keys []string, values map[string][]byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		if _, present := c.entries[k]; !present {
			c.entries[k] = entry{status: known, value: values[k]}
		}
	}
	c.keysValid = true
}
