package state

import "sync"

// Event wraps a payload that must be shown at most once. Consume hands the
// payload out the first time and reports false afterwards.
type Event[T any] struct {
	mu       sync.Mutex
	payload  T
	consumed bool
}

// NewEvent wraps payload.
func NewEvent[T any](payload T) *Event[T] {
	return &Event[T]{payload: payload}
}

// Consume returns the payload if it was not consumed yet.
func (e *Event[T]) Consume() (T, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.consumed {
		var zero T
		return zero, false
	}
	e.consumed = true
	return e.payload, true
}

// Peek returns the payload regardless of consumption.
func (e *Event[T]) Peek() T {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.payload
}

// Consumed reports whether the payload was handed out.
func (e *Event[T]) Consumed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.consumed
}

// Slot holds at most one pending event. Post overwrites whatever is pending.
type Slot[T any] struct {
	cell *Cell[*Event[T]]
}

// NewSlot wraps a cell as a single-event slot.
func NewSlot[T any](c *Cell[*Event[T]]) *Slot[T] {
	return &Slot[T]{cell: c}
}

// Post replaces the pending event with a fresh one carrying payload.
func (s *Slot[T]) Post(payload T) {
	s.cell.Set(NewEvent(payload))
}

// Take consumes the pending event, if any, and clears the slot.
func (s *Slot[T]) Take() (T, bool) {
	var (
		v  T
		ok bool
	)
	s.cell.Update(func(e *Event[T]) *Event[T] {
		if e != nil {
			v, ok = e.Consume()
		}
		return nil
	})
	return v, ok
}

// Pending returns the pending event without consuming it.
func (s *Slot[T]) Pending() *Event[T] {
	return s.cell.Get()
}
