// Package cache implements a bounded LRU result cache keyed by a composite
// fingerprint of (question, canonicalized schema). Entries live in a
// fixed-capacity arena of slots linked into an intrusive doubly linked list
// that encodes recency order, with a map index for O(1) lookup. No entry is
// ever heap-allocated per access and no ordered-map construct is relied on.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"sync"

	"graphrag/internal/logging"
)

// Canonicaler supplies a byte-stable representation of a schema, independent
// of in-memory field ordering. schema.Graph satisfies it.
type Canonicaler interface {
	Canonical() []byte
}

// Stats is a point-in-time snapshot of cache counters.
type Stats struct {
	Hits     uint64  `json:"hits"`
	Misses   uint64  `json:"misses"`
	HitRate  float64 `json:"hit_rate"`
	Size     int     `json:"size"`
	Capacity int     `json:"capacity"`
}

const nilSlot = -1

// entry is one arena slot. prev/next are slot indices into the arena,
// nilSlot-terminated. The list runs MRU (head) to LRU (tail).
type entry[V any] struct {
	key   string
	value V
	prev  int
	next  int
}

// Cache is a fingerprint-keyed LRU cache. Safe for concurrent use; all
// operations serialize behind a single mutex (critical sections are a hash
// plus a few pointer swaps).
type Cache[V any] struct {
	mu       sync.Mutex
	capacity int
	slots    []entry[V]
	free     []int
	index    map[string]int
	head     int
	tail     int
	hits     uint64
	misses   uint64
}

// New creates a cache holding at most capacity entries. Capacities below 1
// are clamped to 1.
func New[V any](capacity int) *Cache[V] {
	if capacity < 1 {
		capacity = 1
	}
	c := &Cache[V]{
		capacity: capacity,
		slots:    make([]entry[V], capacity),
		free:     make([]int, 0, capacity),
		index:    make(map[string]int, capacity),
		head:     nilSlot,
		tail:     nilSlot,
	}
	for i := capacity - 1; i >= 0; i-- {
		c.free = append(c.free, i)
	}
	return c
}

// Fingerprint computes the composite cache key: a sha256 digest over the
// trimmed question and the schema's canonical bytes, separated by a NUL so
// distinct (question, schema) splits cannot collide by concatenation.
func Fingerprint(question string, schema Canonicaler) string {
	h := sha256.New()
	h.Write([]byte(strings.TrimSpace(question)))
	h.Write([]byte{0})
	h.Write(schema.Canonical())
	return hex.EncodeToString(h.Sum(nil))
}

// Get returns the cached value for (question, schema) if present, promoting
// the entry to most-recently-used. The second return reports a hit.
func (c *Cache[V]) Get(question string, schema Canonicaler) (V, bool) {
	key := Fingerprint(question, schema)

	c.mu.Lock()
	defer c.mu.Unlock()

	i, ok := c.index[key]
	if !ok {
		c.misses++
		logging.CacheDebug("miss %s", key[:12])
		var zero V
		return zero, false
	}
	c.hits++
	c.unlink(i)
	c.pushFront(i)
	logging.CacheDebug("hit %s", key[:12])
	return c.slots[i].value, true
}

// Put stores value under (question, schema), promoting it to
// most-recently-used. If the cache is full the least-recently-used entry is
// evicted to make room.
func (c *Cache[V]) Put(question string, schema Canonicaler, value V) {
	key := Fingerprint(question, schema)

	c.mu.Lock()
	defer c.mu.Unlock()

	if i, ok := c.index[key]; ok {
		c.slots[i].value = value
		c.unlink(i)
		c.pushFront(i)
		return
	}

	var i int
	if len(c.free) > 0 {
		i = c.free[len(c.free)-1]
		c.free = c.free[:len(c.free)-1]
	} else {
		// Arena full: reclaim the LRU slot.
		i = c.tail
		c.unlink(i)
		delete(c.index, c.slots[i].key)
		logging.CacheDebug("evict %s", c.slots[i].key[:12])
	}

	c.slots[i] = entry[V]{key: key, value: value, prev: nilSlot, next: nilSlot}
	c.index[key] = i
	c.pushFront(i)
}

// Contains reports whether (question, schema) is cached without touching
// recency order or the hit/miss counters.
func (c *Cache[V]) Contains(question string, schema Canonicaler) bool {
	key := Fingerprint(question, schema)
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.index[key]
	return ok
}

// Len returns the number of cached entries.
func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.index)
}

// Stats returns a snapshot of the cache counters.
func (c *Cache[V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Stats{
		Hits:     c.hits,
		Misses:   c.misses,
		Size:     len(c.index),
		Capacity: c.capacity,
	}
	if total := c.hits + c.misses; total > 0 {
		s.HitRate = float64(c.hits) / float64(total)
	}
	return s
}

// Clear drops every entry and resets the hit/miss counters.
func (c *Cache[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.index = make(map[string]int, c.capacity)
	c.free = c.free[:0]
	for i := c.capacity - 1; i >= 0; i-- {
		var zero entry[V]
		c.slots[i] = zero
		c.free = append(c.free, i)
	}
	c.head = nilSlot
	c.tail = nilSlot
	c.hits = 0
	c.misses = 0
}

// unlink removes slot i from the recency list. Caller holds c.mu.
func (c *Cache[V]) unlink(i int) {
	e := &c.slots[i]
	if e.prev != nilSlot {
		c.slots[e.prev].next = e.next
	} else if c.head == i {
		c.head = e.next
	}
	if e.next != nilSlot {
		c.slots[e.next].prev = e.prev
	} else if c.tail == i {
		c.tail = e.prev
	}
	e.prev, e.next = nilSlot, nilSlot
}

// pushFront makes slot i the MRU entry. Caller holds c.mu.
func (c *Cache[V]) pushFront(i int) {
	e := &c.slots[i]
	e.prev = nilSlot
	e.next = c.head
	if c.head != nilSlot {
		c.slots[c.head].prev = i
	}
	c.head = i
	if c.tail == nilSlot {
		c.tail = i
	}
}
