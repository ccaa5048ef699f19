// Package observable provides value cells that notify subscribers on change.
package observable

import "sync"

// Cell holds a current value, lets callers replace it and notifies subscribers.
// Snapshot returns a deep copy made with the cell's cloner, so the caller cannot
// observe later mutation.
type Cell[T any] struct {
	mu     sync.RWMutex
	value  T
	clone  func(T) T
	nextID int
	subs   map[int]func(T)
}

// NewCell creates a cell holding initial. A nil clone copies by assignment, which
// is only deep for value types.
func NewCell[T any](initial T, clone func(T) T) *Cell[T] {
	if clone == nil {
		clone = func(v T) T { return v }
	}
	return &Cell[T]{
		value: clone(initial),
		clone: clone,
		subs:  make(map[int]func(T)),
	}
}

// Get returns the current value as stored. Mutating it mutates the cell.
func (c *Cell[T]) Get() T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.value
}

// Snapshot returns a deep copy of the current value.
func (c *Cell[T]) Snapshot() T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.clone(c.value)
}

// Set replaces the value and notifies subscribers with a copy.
func (c *Cell[T]) Set(v T) {
	c.mu.Lock()
	c.value = v
	subs := make([]func(T), 0, len(c.subs))
	for _, fn := range c.subs {
		subs = append(subs, fn)
	}
	c.mu.Unlock()

	for _, fn := range subs {
		fn(c.clone(v))
	}
}

// Subscribe registers fn for future changes and returns a cancel func.
func (c *Cell[T]) Subscribe(fn func(T)) (cancel func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextID
	c.nextID++
	c.subs[id] = fn
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.subs, id)
	}
}
