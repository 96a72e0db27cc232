package status

import (
	"testing"

	"github.com/matheus3301/charly/internal/bus"
)

func TestInitialState(t *testing.T) {
	m := NewMachine(nil)
	if m.Current() != Booting {
		t.Errorf("initial state = %s, want BOOTING", m.Current())
	}
}

func TestValidTransitions(t *testing.T) {
	tests := []struct {
		from State
		to   State
	}{
		{Booting, SignedOut},
		{Booting, Ready},
		{Booting, Offline},
		{Booting, Error},
		{SignedOut, SigningIn},
		{SigningIn, Ready},
		{SigningIn, SignedOut},
		{Ready, SessionExpired},
		{Ready, Offline},
		{Offline, Ready},
		{SessionExpired, SigningIn},
		{Error, Booting},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			m := NewMachine(nil)
			walkTo(t, m, tt.from)
			if err := m.Transition(tt.to); err != nil {
				t.Errorf("Transition(%s -> %s) error = %v", tt.from, tt.to, err)
			}
			if m.Current() != tt.to {
				t.Errorf("state = %s, want %s", m.Current(), tt.to)
			}
		})
	}
}

func TestInvalidTransition(t *testing.T) {
	m := NewMachine(nil)
	if err := m.Transition(SigningIn); err == nil {
		t.Error("Transition(BOOTING -> SIGNING_IN) should fail")
	}
	if m.Current() != Booting {
		t.Errorf("state = %s, want BOOTING (should not have changed)", m.Current())
	}
}

func TestTransitionEmitsEvent(t *testing.T) {
	b := bus.New()
	ch, unsub := b.Subscribe("session.", 10)
	defer unsub()

	m := NewMachine(b)
	if err := m.Transition(SignedOut); err != nil {
		t.Fatal(err)
	}

	evt := <-ch
	if evt.Kind != bus.KindStatusChanged {
		t.Errorf("event kind = %q, want %s", evt.Kind, bus.KindStatusChanged)
	}
	change, ok := evt.Payload.(StatusChange)
	if !ok {
		t.Fatalf("payload type = %T, want StatusChange", evt.Payload)
	}
	if change.From != Booting || change.To != SignedOut {
		t.Errorf("change = %v -> %v, want BOOTING -> SIGNED_OUT", change.From, change.To)
	}
}

// An expired token must go through a fresh sign-in before READY.
func TestExpiredSessionRequiresSignIn(t *testing.T) {
	m := NewMachine(nil)
	walkTo(t, m, SessionExpired)

	if err := m.Transition(Ready); err == nil {
		t.Fatal("Transition(SESSION_EXPIRED -> READY) should fail")
	}
	for _, s := range []State{SigningIn, Ready} {
		if err := m.Transition(s); err != nil {
			t.Fatalf("Transition to %s: %v (current: %s)", s, err, m.Current())
		}
	}
}

// BOOTING → SIGNED_OUT → SIGNING_IN → READY → SIGNED_OUT
func TestLoginLogoutLifecycle(t *testing.T) {
	m := NewMachine(nil)

	steps := []State{SignedOut, SigningIn, Ready, SignedOut}
	for _, s := range steps {
		if err := m.Transition(s); err != nil {
			t.Fatalf("Transition to %s: %v (current: %s)", s, err, m.Current())
		}
	}
	if m.SignedIn() {
		t.Error("SignedIn() = true after logout")
	}
}

func TestTransitionIfAllowed(t *testing.T) {
	m := NewMachine(nil)
	walkTo(t, m, Ready)

	if !m.TransitionIfAllowed(Ready) {
		t.Error("TransitionIfAllowed(READY) from READY should report true")
	}
	if m.TransitionIfAllowed(SigningIn) {
		t.Error("TransitionIfAllowed(SIGNING_IN) from READY should report false")
	}
	if !m.TransitionIfAllowed(Offline) {
		t.Error("TransitionIfAllowed(OFFLINE) from READY should report true")
	}
	if !m.SignedIn() {
		t.Error("SignedIn() = false in OFFLINE")
	}
}

// walkTo is a helper that transitions the machine to a target state.
func walkTo(t *testing.T, m *Machine, target State) {
	t.Helper()
	paths := map[State][]State{
		Booting:        {},
		SignedOut:      {SignedOut},
		SigningIn:      {SignedOut, SigningIn},
		Ready:          {Ready},
		Offline:        {Offline},
		SessionExpired: {Ready, SessionExpired},
		Error:          {Error},
	}
	for _, s := range paths[target] {
		if err := m.Transition(s); err != nil {
			t.Fatalf("walkTo(%s): %v", target, err)
		}
	}
}
