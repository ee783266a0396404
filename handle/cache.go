// Package handle provides a generic handle-indexed value cache.
//
// A Cache hands out opaque Handle tokens for inserted values. Indices are
// monotonically increasing for the life of the cache and are never reused,
// even after removal. This is deliberately not a slot-reuse arena: a stale
// handle kept around after removal can never silently alias an object
// inserted later, at the cost of the index space growing monotonically.
//
// Absence is represented, not treated as a fault: lookups and removals
// report presence with a boolean, because callers (command-pool cleanup,
// descriptor-pool cleanup) routinely probe for already-freed entries.
package handle

import (
	"fmt"
	"iter"
)

// Handle is an opaque token pointing to a value of type T within a Cache.
//
// Handles are comparable by index only, copyable, and do not own the value
// they point to. The zero Handle never refers to a live entry.
type Handle[T any] struct {
	index uint64
}

// Index returns the raw index for diagnostics. Indices are unique per
// cache for the cache's lifetime.
func (h Handle[T]) Index() uint64 { return h.index }

// IsZero reports whether h is the zero handle, which never refers to a
// live entry in any cache.
func (h Handle[T]) IsZero() bool { return h.index == 0 }

// String implements fmt.Stringer.
func (h Handle[T]) String() string {
	return fmt.Sprintf("Handle{index: %d}", h.index)
}

// Cache maps Handle tokens to values of type T.
//
// Values live in stable heap slots, so the pointer returned by Get remains
// valid (and mutations through it visible) until the entry is removed.
//
// Cache is not safe for concurrent use. Each cache is owned exclusively by
// its parent (a command pool, a descriptor pool) and accessed from the
// single control thread.
type Cache[T any] struct {
	data map[Handle[T]]*T

	// prevIndex is the index of the most recently issued handle.
	// Strictly increasing; guarantees uniqueness for the cache's lifetime.
	prevIndex uint64
}

// NewCache creates an empty cache.
func NewCache[T any]() *Cache[T] {
	return &Cache[T]{data: make(map[Handle[T]]*T)}
}

// Insert stores value and returns a fresh handle for it.
//
// The returned handle's index is strictly greater than that of every
// handle previously issued by this cache, regardless of interleaved
// removals.
func (c *Cache[T]) Insert(value T) Handle[T] {
	c.prevIndex++
	h := Handle[T]{index: c.prevIndex}
	slot := value
	c.data[h] = &slot
	return h
}

// Remove deletes the value for h and returns it.
// The second result is false if h was already removed or never issued by
// this cache. After removal h is permanently invalid: no future Insert
// can produce an equal handle.
func (c *Cache[T]) Remove(h Handle[T]) (T, bool) {
	slot, ok := c.data[h]
	if !ok {
		var zero T
		return zero, false
	}
	delete(c.data, h)
	return *slot, true
}

// Get returns a pointer to the value for h, or nil and false if absent.
// The pointer stays valid until the entry is removed; mutating through it
// updates the stored value.
func (c *Cache[T]) Get(h Handle[T]) (*T, bool) {
	slot, ok := c.data[h]
	return slot, ok
}

// Len returns the number of live entries.
func (c *Cache[T]) Len() int { return len(c.data) }

// All iterates over the live handle-value pairs in unspecified order.
func (c *Cache[T]) All() iter.Seq2[Handle[T], *T] {
	return func(yield func(Handle[T], *T) bool) {
		for h, slot := range c.data {
			if !yield(h, slot) {
				return
			}
		}
	}
}
