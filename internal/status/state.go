package status

import (
	"fmt"
	"slices"
	"sync"

	"github.com/matheus3301/charly/internal/bus"
)

// State represents the daemon's account and connectivity state.
type State string

const (
	Booting        State = "BOOTING"
	SignedOut      State = "SIGNED_OUT"
	SigningIn      State = "SIGNING_IN"
	Ready          State = "READY"
	Offline        State = "OFFLINE"
	SessionExpired State = "SESSION_EXPIRED"
	Error          State = "ERROR"
)

// validTransitions defines allowed state transitions.
var validTransitions = map[State][]State{
	Booting:        {SignedOut, Ready, Offline, Error},
	SignedOut:      {SigningIn, Error},
	SigningIn:      {Ready, SignedOut, Offline, Error},
	Ready:          {SignedOut, SessionExpired, Offline, Error},
	Offline:        {Ready, SignedOut, SessionExpired, Error},
	SessionExpired: {SigningIn, SignedOut, Error},
	Error:          {Booting},
}

// Machine tracks and enforces daemon state transitions.
type Machine struct {
	mu      sync.RWMutex
	current State
	bus     *bus.Bus
}

// NewMachine creates a new state machine starting in Booting state.
func NewMachine(b *bus.Bus) *Machine {
	return &Machine{
		current: Booting,
		bus:     b,
	}
}

// Current returns the current state.
func (m *Machine) Current() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// SignedIn reports whether the current state implies a stored account token.
func (m *Machine) SignedIn() bool {
	switch m.Current() {
	case Ready, Offline:
		return true
	}
	return false
}

// Transition attempts to move to a new state. Returns error if transition is invalid.
func (m *Machine) Transition(to State) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	allowed := validTransitions[m.current]
	if !slices.Contains(allowed, to) {
		return fmt.Errorf("invalid transition from %s to %s", m.current, to)
	}

	from := m.current
	m.current = to

	m.bus.Emit(bus.KindStatusChanged, StatusChange{
		From: from,
		To:   to,
	})

	return nil
}

// TransitionIfAllowed moves to the target state when the table permits it and
// reports whether it did. Staying in the same state counts as allowed.
func (m *Machine) TransitionIfAllowed(to State) bool {
	if m.Current() == to {
		return true
	}
	return m.Transition(to) == nil
}

// StatusChange is the payload for status change events.
type StatusChange struct {
	From State `json:"from"`
	To   State `json:"to"`
}
