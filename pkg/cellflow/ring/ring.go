// Package ring provides a fixed-size, goroutine-safe circular buffer.
package ring

import "sync"

// Ring keeps the most recent Cap() values, evicting the oldest first.
// A Ring with capacity zero accepts pushes and retains nothing.
type Ring[T any] struct {
	mu    sync.Mutex
	buf   []T
	head  int // next write position
	count int // valid entries (0..len(buf))
	total uint64
}

// New creates a ring holding at most size values. Negative sizes are
// treated as zero.
func New[T any](size int) *Ring[T] {
	if size < 0 {
		size = 0
	}
	return &Ring[T]{buf: make([]T, size)}
}

// Push appends v, overwriting the oldest value when full. It reports whether
// a value was evicted.
func (r *Ring[T]) Push(v T) (evicted bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.total++
	size := len(r.buf)
	if size == 0 {
		return false
	}
	r.buf[r.head] = v
	r.head = (r.head + 1) % size
	if r.count < size {
		r.count++
		return false
	}
	return true
}

// Snapshot returns every retained value, oldest first.
func (r *Ring[T]) Snapshot() []T {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastLocked(r.count)
}

// Last returns the n most recent values, oldest first.
// If n > Len(), returns all values. If n <= 0, returns nil.
func (r *Ring[T]) Last(n int) []T {
	if n <= 0 {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if n > r.count {
		n = r.count
	}
	return r.lastLocked(n)
}

func (r *Ring[T]) lastLocked(n int) []T {
	if n == 0 {
		return nil
	}
	size := len(r.buf)
	out := make([]T, n)
	start := (r.head - n + size) % size
	if start+n <= size {
		copy(out, r.buf[start:start+n])
	} else {
		first := copy(out, r.buf[start:])
		copy(out[first:], r.buf[:n-first])
	}
	return out
}

// Len returns the number of retained values.
func (r *Ring[T]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}

// Cap returns the ring capacity.
func (r *Ring[T]) Cap() int {
	return len(r.buf)
}

// Total returns how many values were ever pushed.
func (r *Ring[T]) Total() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.total
}

// Reset drops every retained value. Total is kept.
func (r *Ring[T]) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	var zero T
	for i := range r.buf {
		r.buf[i] = zero
	}
	r.head, r.count = 0, 0
}
