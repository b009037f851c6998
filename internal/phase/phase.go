// Package phase tracks the lifecycle of the signed-in session.
package phase

import (
	"fmt"
	"slices"
	"sync"

	"github.com/matheus3301/apurimac/internal/bus"
)

// Phase is a session lifecycle phase.
type Phase string

const (
	SignedOut      Phase = "SIGNED_OUT"
	Authenticating Phase = "AUTHENTICATING"
	Syncing        Phase = "SYNCING"
	Ready          Phase = "READY"
)

// ChangedKind is the bus event kind published on every transition.
const ChangedKind = bus.SessionPrefix + "phase_changed"

var validTransitions = map[Phase][]Phase{
	SignedOut:      {Authenticating, Syncing},
	Authenticating: {Syncing, SignedOut},
	Syncing:        {Ready, SignedOut},
	Ready:          {Syncing, SignedOut},
}

// Machine enforces phase transitions.
type Machine struct {
	mu      sync.RWMutex
	current Phase
	bus     *bus.Bus
}

// NewMachine starts in SignedOut. b may be nil.
func NewMachine(b *bus.Bus) *Machine {
	return &Machine{current: SignedOut, bus: b}
}

// Current returns the current phase.
func (m *Machine) Current() Phase {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Transition moves to the given phase, or fails if the move is not allowed.
func (m *Machine) Transition(to Phase) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !slices.Contains(validTransitions[m.current], to) {
		return fmt.Errorf("invalid transition from %s to %s", m.current, to)
	}
	from := m.current
	m.current = to
	if m.bus != nil {
		m.bus.Publish(bus.Event{Kind: ChangedKind, Payload: Change{From: from, To: to}})
	}
	return nil
}

// Reset forces SignedOut from any phase.
func (m *Machine) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == SignedOut {
		return
	}
	from := m.current
	m.current = SignedOut
	if m.bus != nil {
		m.bus.Publish(bus.Event{Kind: ChangedKind, Payload: Change{From: from, To: SignedOut}})
	}
}

// Change is the payload of a phase change event.
type Change struct {
	From Phase
	To   Phase
}
