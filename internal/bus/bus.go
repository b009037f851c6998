package bus

import (
	"strings"
	"sync"
	"time"
)

// Bus is an in-process publish/subscribe hub. Subscribers receive every event
// whose kind starts with their topic prefix.
type Bus struct {
	mu   sync.RWMutex
	subs map[uint64]*subscriber
	seq  uint64
}

type subscriber struct {
	prefix string
	ch     chan Event
}

// New creates an empty bus.
func New() *Bus {
	return &Bus{subs: make(map[uint64]*subscriber)}
}

// Publish delivers evt to all matching subscribers without blocking. A
// subscriber whose buffer is full misses the event; listeners that re-read
// the full state on every signal use a buffer of one to coalesce bursts.
func (b *Bus) Publish(evt Event) {
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now()
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, s := range b.subs {
		if !strings.HasPrefix(evt.Kind, s.prefix) {
			continue
		}
		select {
		case s.ch <- evt:
		default:
		}
	}
}

// Signal publishes a payload-less event of the given kind.
func (b *Bus) Signal(kind string) {
	b.Publish(Event{Kind: kind})
}

// Subscribe registers a listener for events under prefix. It returns the
// receive channel and a function that detaches the listener; the channel is
// never closed.
func (b *Bus) Subscribe(prefix string, bufSize int) (<-chan Event, func()) {
	if bufSize < 1 {
		bufSize = 1
	}
	ch := make(chan Event, bufSize)

	b.mu.Lock()
	id := b.seq
	b.seq++
	b.subs[id] = &subscriber{prefix: prefix, ch: ch}
	b.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
		})
	}
}

// Len reports the number of attached listeners.
func (b *Bus) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
