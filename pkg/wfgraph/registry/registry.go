package registry

import (
	"cmp"
	"iter"
	"maps"
	"slices"
	"sync"
)

// Registry is a thread-safe map of values indexed by key, tuned for
// read-heavy use: capabilities are registered once at startup and looked
// up by every node execution. Keys are listed in the order given by the
// registry's compare function.
type Registry[K comparable, V any] struct {
	mu      sync.RWMutex
	entries map[K]V
	compare func(a, b K) int
}

// New creates an empty registry whose keys are ordered by compare.
func New[K comparable, V any](compare func(a, b K) int) *Registry[K, V] {
	return &Registry[K, V]{
		entries: make(map[K]V),
		compare: compare,
	}
}

// NewOrdered creates an empty registry for naturally ordered keys.
func NewOrdered[K cmp.Ordered, V any]() *Registry[K, V] {
	return New[K, V](cmp.Compare[K])
}

// Register adds or replaces the value for key. It reports whether an
// existing value was replaced.
func (r *Registry[K, V]) Register(key K, value V) (replaced bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, replaced = r.entries[key]
	r.entries[key] = value
	return replaced
}

// Get returns the value for a key and whether it exists.
func (r *Registry[K, V]) Get(key K) (V, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.entries[key]
	return v, ok
}

// Has returns true if the key exists in the registry.
func (r *Registry[K, V]) Has(key K) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.entries[key]
	return ok
}

// Delete removes a key and reports whether it was present.
func (r *Registry[K, V]) Delete(key K) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.entries[key]
	delete(r.entries, key)
	return ok
}

// Keys returns all keys in order.
func (r *Registry[K, V]) Keys() []K {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.SortedFunc(maps.Keys(r.entries), r.compare)
}

// Len returns the number of entries in the registry.
func (r *Registry[K, V]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// All iterates over a snapshot of the registry in key order. Register and
// Delete may be called during iteration without affecting it.
func (r *Registry[K, V]) All() iter.Seq2[K, V] {
	r.mu.RLock()
	snapshot := maps.Clone(r.entries)
	r.mu.RUnlock()

	return func(yield func(K, V) bool) {
		for _, k := range slices.SortedFunc(maps.Keys(snapshot), r.compare) {
			if !yield(k, snapshot[k]) {
				return
			}
		}
	}
}
