package registry

import "sync"

type slot[K comparable, V any] struct {
	key   K
	value V
}

// Registry is a thread-safe keyed store that preserves insertion order.
type Registry[K comparable, V any] struct {
	mu    sync.RWMutex
	index map[K]int // key -> position in slots
	slots []slot[K, V]
}

// New creates an empty registry.
func New[K comparable, V any]() *Registry[K, V] {
	return &Registry[K, V]{index: make(map[K]int)}
}

// Register adds or replaces a value. Replacing keeps the original position.
func (r *Registry[K, V]) Register(key K, value V) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.put(key, value)
}

func (r *Registry[K, V]) put(key K, value V) {
	if i, ok := r.index[key]; ok {
		r.slots[i].value = value
		return
	}
	r.index[key] = len(r.slots)
	r.slots = append(r.slots, slot[K, V]{key: key, value: value})
}

// Get returns the value for key and whether it exists.
func (r *Registry[K, V]) Get(key K) (V, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if i, ok := r.index[key]; ok {
		return r.slots[i].value, true
	}
	var zero V
	return zero, false
}

// Has reports whether key exists.
func (r *Registry[K, V]) Has(key K) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.index[key]
	return ok
}

// GetOrCreate returns the value for key, creating it with factory if absent.
// The factory runs at most once per key.
func (r *Registry[K, V]) GetOrCreate(key K, factory func() V) V {
	if v, ok := r.Get(key); ok {
		return v
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if i, ok := r.index[key]; ok {
		return r.slots[i].value
	}
	v := factory()
	r.put(key, v)
	return v
}

// Keys returns a snapshot of the keys in insertion order.
func (r *Registry[K, V]) Keys() []K {
	r.mu.RLock()
	defer r.mu.RUnlock()
	keys := make([]K, len(r.slots))
	for i, s := range r.slots {
		keys[i] = s.key
	}
	return keys
}

// Values returns a snapshot of the values in insertion order.
func (r *Registry[K, V]) Values() []V {
	r.mu.RLock()
	defer r.mu.RUnlock()
	values := make([]V, len(r.slots))
	for i, s := range r.slots {
		values[i] = s.value
	}
	return values
}

// Len returns the number of entries.
func (r *Registry[K, V]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.slots)
}

// Clear removes every entry.
func (r *Registry[K, V]) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.index = make(map[K]int)
	r.slots = nil
}
