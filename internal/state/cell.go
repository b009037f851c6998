// Package state holds the observable cells the view-model publishes to its
// renderers.
package state

import (
	"sync"

	"github.com/matheus3301/apurimac/internal/bus"
)

// Cell is a value guarded by its own lock. Every write publishes
// "state.<name>" on the bus so renderers know to read it again.
type Cell[T any] struct {
	mu   sync.RWMutex
	name string
	v    T
	bus  *bus.Bus
}

// NewCell creates a cell holding initial. b may be nil.
func NewCell[T any](name string, initial T, b *bus.Bus) *Cell[T] {
	return &Cell[T]{name: name, v: initial, bus: b}
}

// Get returns the current value.
func (c *Cell[T]) Get() T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.v
}

// Set replaces the value and notifies.
func (c *Cell[T]) Set(v T) {
	c.mu.Lock()
	c.v = v
	c.mu.Unlock()
	c.notify()
}

// Update applies fn to the current value atomically and notifies.
func (c *Cell[T]) Update(fn func(T) T) {
	c.mu.Lock()
	c.v = fn(c.v)
	c.mu.Unlock()
	c.notify()
}

func (c *Cell[T]) notify() {
	if c.bus != nil {
		c.bus.Signal(bus.StatePrefix + c.name)
	}
}
