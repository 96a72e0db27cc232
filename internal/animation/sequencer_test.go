package animation

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/matheus3301/charly/internal/bus"
	"github.com/matheus3301/charly/internal/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPlayer struct {
	mu   sync.Mutex
	log  []string
	live int
	fail map[string]bool
}

type recordingInstance struct {
	p      *recordingPlayer
	target Target
	anim   string
	dead   bool
}

func (i *recordingInstance) Animation() string { return i.anim }

func (i *recordingInstance) Destroy() {
	i.p.mu.Lock()
	defer i.p.mu.Unlock()
	if i.dead {
		return
	}
	i.dead = true
	i.p.live--
	i.p.log = append(i.p.log, "destroy "+string(i.target)+" "+i.anim)
}

func (p *recordingPlayer) Load(target Target, anim string) (Instance, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail[anim] {
		return nil, errors.New("broken asset")
	}
	p.live++
	p.log = append(p.log, "load "+string(target)+" "+anim)
	return &recordingInstance{p: p, target: target, anim: anim}, nil
}

func (p *recordingPlayer) Live() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.live
}

func (p *recordingPlayer) Log() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.log...)
}

func (p *recordingPlayer) Reset() {
	p.mu.Lock()
	p.log = nil
	p.mu.Unlock()
}

func newTestSequencer(t *testing.T, opts Options) (*Sequencer, *recordingPlayer, *clock.Manual) {
	t.Helper()
	mc := clock.NewManual(time.Unix(0, 0))
	opts.Clock = mc
	if opts.Rand == nil {
		opts.Rand = func() float64 { return 0.99 }
	}
	p := &recordingPlayer{fail: map[string]bool{}}
	s := NewSequencer(p, nil, nil, opts)
	t.Cleanup(s.Stop)
	return s, p, mc
}

func TestPlayLoopsThroughSteps(t *testing.T) {
	s, _, mc := newTestSequencer(t, Options{})

	s.Play(Thinking)
	assert.Equal(t, "pleading-cat", s.Snapshot().Animation)

	mc.Advance(2000 * time.Millisecond)
	assert.Equal(t, "cat-ok", s.Snapshot().Animation)

	mc.Advance(800 * time.Millisecond)
	assert.Equal(t, "pleading-cat", s.Snapshot().Animation)
	assert.Equal(t, 2, s.Snapshot().Step)

	mc.Advance(1500 * time.Millisecond)
	assert.Equal(t, "cat-ok", s.Snapshot().Animation)

	// Last step ends, then a pause before step 0 comes back.
	mc.Advance(800 * time.Millisecond)
	assert.Equal(t, "cat-ok", s.Snapshot().Animation)
	mc.Advance(499 * time.Millisecond)
	assert.Equal(t, "cat-ok", s.Snapshot().Animation)
	mc.Advance(time.Millisecond)
	assert.Equal(t, "pleading-cat", s.Snapshot().Animation)
	assert.True(t, s.Playing())
}

func TestStartingSequenceDestroysPreviousInstancesFirst(t *testing.T) {
	s, p, _ := newTestSequencer(t, Options{})

	s.Play(Happy)
	require.Equal(t, 2, p.Live())
	p.Reset()

	s.Play(Error)
	log := p.Log()
	require.Len(t, log, 4)
	assert.Equal(t, "destroy main cat-sun", log[0])
	assert.Equal(t, "destroy header cat-sun", log[1])
	assert.Equal(t, "load main cat-crying", log[2])
	assert.Equal(t, "load header cat-crying", log[3])
	assert.Equal(t, 2, p.Live())
}

func TestUnknownSequenceFallsBack(t *testing.T) {
	s, _, _ := newTestSequencer(t, Options{})

	assert.NotPanics(t, func() { s.Play("loading") })
	assert.Equal(t, "star-struck", s.Snapshot().Animation)
	assert.False(t, s.Playing())

	assert.NotPanics(t, func() { s.Play("does-not-exist") })
	assert.Equal(t, DefaultAnimation, s.Snapshot().Animation)
}

func TestLoadErrorsAreNotFatal(t *testing.T) {
	s, p, _ := newTestSequencer(t, Options{})
	p.fail["cat-sun"] = true

	s.Play(Happy)
	assert.Equal(t, "cat-sun", s.Snapshot().Animation)
	assert.Equal(t, 0, p.Live())
}

func TestGreetReturnsToIdle(t *testing.T) {
	s, _, mc := newTestSequencer(t, Options{})

	s.Greet()
	assert.Equal(t, Greeting, s.State())

	mc.Advance(6999 * time.Millisecond)
	assert.Equal(t, Greeting, s.State())
	mc.Advance(time.Millisecond)
	assert.Equal(t, Idle, s.State())
	assert.True(t, s.Playing())
}

func TestRespondWithPicksSentimentAndHolds(t *testing.T) {
	s, _, mc := newTestSequencer(t, Options{})

	mood := s.RespondWith("Parfait, mission accomplie !")
	assert.Equal(t, Happy, mood)
	assert.Equal(t, Happy, s.State())

	mc.Advance(10 * time.Second)
	assert.Equal(t, Idle, s.State())
}

// A new exchange must not be cut short by the previous reply's hold timer.
func TestNewTransitionCancelsPendingHold(t *testing.T) {
	s, _, mc := newTestSequencer(t, Options{})

	s.RespondWith("ok")
	mc.Advance(9 * time.Second)
	s.Process()
	mc.Advance(2 * time.Second)
	assert.Equal(t, Processing, s.State())
}

func TestIdleTimeoutReturnsToIdle(t *testing.T) {
	s, _, mc := newTestSequencer(t, Options{})

	s.Think()
	mc.Advance(29 * time.Second)
	assert.Equal(t, Thinking, s.State())
	mc.Advance(time.Second)
	assert.Equal(t, Idle, s.State())
}

func TestToIdleIsNoopWhenIdle(t *testing.T) {
	s, p, _ := newTestSequencer(t, Options{})

	s.Play(Idle)
	p.Reset()
	s.ToIdle()
	assert.Empty(t, p.Log())
}

func TestFlashHoldsThenIdles(t *testing.T) {
	s, _, mc := newTestSequencer(t, Options{})

	s.Flash("ERROR", 4*time.Second)
	snap := s.Snapshot()
	assert.Equal(t, "cat-crying", snap.Animation)
	assert.Equal(t, Error, snap.State)
	assert.False(t, snap.Playing)

	mc.Advance(4 * time.Second)
	assert.Equal(t, Idle, s.State())
	assert.True(t, s.Playing())
}

func TestFlashWithRawAnimation(t *testing.T) {
	s, _, _ := newTestSequencer(t, Options{})
	s.Flash("cat-eyes", 0)
	assert.Equal(t, "cat-eyes", s.Snapshot().Animation)
}

func TestStartGreetsThenMicroMoves(t *testing.T) {
	rolls := []float64{0.1, 0.4, 0.5}
	calls := 0
	s, _, mc := newTestSequencer(t, Options{Rand: func() float64 {
		v := rolls[calls%len(rolls)]
		calls++
		return v
	}})

	s.Start()
	mc.Advance(500 * time.Millisecond)
	assert.Equal(t, Greeting, s.State())

	// Greeting hold ends at 7.5s; first micro tick at 5s + 8s.
	mc.Advance(7 * time.Second)
	assert.Equal(t, Idle, s.State())
	assert.True(t, s.Playing())

	// The idle loop is running, so the tick leaves it alone.
	mc.Advance(5500 * time.Millisecond)
	snap := s.Snapshot()
	assert.Equal(t, Idle, snap.State)
	assert.True(t, snap.Playing)
	assert.Equal(t, "star-struck", snap.Animation)
	assert.Zero(t, calls)

	// Once the loop is halted the next tick (21s) shows a gesture.
	s.StopSequence()
	mc.Advance(8 * time.Second)
	snap = s.Snapshot()
	assert.Equal(t, Idle, snap.State)
	assert.False(t, snap.Playing)
	assert.Equal(t, "cat-sun", snap.Animation)

	// 1s + 0.5s later it settles on the default animation; the loop stays off.
	mc.Advance(1500 * time.Millisecond)
	snap = s.Snapshot()
	assert.False(t, snap.Playing)
	assert.Equal(t, Idle, snap.State)
	assert.Equal(t, DefaultAnimation, snap.Animation)
}

func TestMicroMovesOnlyWhenIdle(t *testing.T) {
	s, p, mc := newTestSequencer(t, Options{Rand: func() float64 { return 0 }})

	s.startNatural()
	s.Think()
	p.Reset()
	mc.Advance(8 * time.Second)
	for _, l := range p.Log() {
		assert.NotContains(t, l, "cat-beaming")
	}
}

func TestMicroMovesSkipPlayingIdleLoop(t *testing.T) {
	s, p, mc := newTestSequencer(t, Options{Rand: func() float64 { return 0 }})

	s.Play(Idle)
	s.startNatural()
	p.Reset()
	mc.Advance(8 * time.Second)
	for _, l := range p.Log() {
		assert.NotContains(t, l, "cat-beaming")
	}
	assert.True(t, s.Playing())
}

func TestTransitionCancelsGesture(t *testing.T) {
	s, _, mc := newTestSequencer(t, Options{Rand: func() float64 { return 0 }})

	s.startNatural()
	mc.Advance(8 * time.Second)
	assert.Equal(t, "cat-beaming", s.Snapshot().Animation)

	s.Think()
	mc.Advance(time.Second)
	assert.Equal(t, Thinking, s.State())
	assert.NotEqual(t, DefaultAnimation, s.Snapshot().Animation)
}

func TestStopCancelsEverything(t *testing.T) {
	s, p, mc := newTestSequencer(t, Options{})

	s.Start()
	s.Play(Chatting)
	s.Stop()
	assert.Equal(t, 0, p.Live())

	p.Reset()
	mc.Advance(time.Minute)
	assert.Empty(t, p.Log())
}

func TestSetSequencesOverridesAndKeepsDefaults(t *testing.T) {
	s, _, _ := newTestSequencer(t, Options{})

	s.SetSequences(map[string][]Step{
		Idle:    {{Animation: "cat-eyes", Duration: time.Second}},
		"party": {{Animation: "cat-rainbow", Duration: time.Second}},
	})
	s.Play(Idle)
	assert.Equal(t, "cat-eyes", s.Snapshot().Animation)
	s.Play("party")
	assert.Equal(t, "cat-rainbow", s.Snapshot().Animation)
	s.Play(Happy)
	assert.Equal(t, "cat-sun", s.Snapshot().Animation)
}

func TestFramesArePublished(t *testing.T) {
	b := bus.New()
	ch, unsub := b.Subscribe("animation.", 16)
	defer unsub()

	mc := clock.NewManual(time.Unix(0, 0))
	s := NewSequencer(&recordingPlayer{}, b, nil, Options{Clock: mc})
	defer s.Stop()

	s.Play(Loving)
	select {
	case evt := <-ch:
		frame, ok := evt.Payload.(Frame)
		require.True(t, ok)
		assert.Equal(t, Loving, frame.State)
		assert.Equal(t, "star-struck", frame.Animation)
	case <-time.After(time.Second):
		t.Fatal("no animation.changed event")
	}
}
