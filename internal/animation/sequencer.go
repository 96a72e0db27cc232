// Package animation drives the mascot: named looping sequences of
// animations, sentiment-based reactions and idle behaviour.
package animation

import (
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/matheus3301/charly/internal/bus"
	"github.com/matheus3301/charly/internal/clock"
	"go.uber.org/zap"
)

// Options tunes sequencer timing. Zero values take the defaults.
type Options struct {
	Clock         clock.Clock
	Rand          func() float64
	IdleTimeout   time.Duration
	LoopPause     time.Duration
	GreetingHold  time.Duration
	ResponseHold  time.Duration
	StartDelay    time.Duration
	NaturalDelay  time.Duration
	MicroInterval time.Duration
	MicroChance   float64
}

func (o *Options) defaults() {
	if o.Clock == nil {
		o.Clock = clock.Real()
	}
	if o.Rand == nil {
		o.Rand = rand.Float64
	}
	if o.IdleTimeout <= 0 {
		o.IdleTimeout = 30 * time.Second
	}
	if o.LoopPause <= 0 {
		o.LoopPause = 500 * time.Millisecond
	}
	if o.GreetingHold <= 0 {
		o.GreetingHold = 7 * time.Second
	}
	if o.ResponseHold <= 0 {
		o.ResponseHold = 10 * time.Second
	}
	if o.StartDelay <= 0 {
		o.StartDelay = 500 * time.Millisecond
	}
	if o.NaturalDelay <= 0 {
		o.NaturalDelay = 5 * time.Second
	}
	if o.MicroInterval <= 0 {
		o.MicroInterval = 8 * time.Second
	}
	if o.MicroChance <= 0 {
		o.MicroChance = 0.2
	}
}

var microMoves = []string{"cat-beaming", "cat-sun", "cat-ok"}

// Frame is published on the bus whenever the visible animation changes.
type Frame struct {
	State     string `json:"state"`
	Animation string `json:"animation"`
	Playing   bool   `json:"playing"`
	Step      int    `json:"step"`
}

// Sequencer owns the mascot's animation state. All methods are safe for
// concurrent use; timer callbacks re-check state under the lock.
type Sequencer struct {
	mu     sync.Mutex
	player Player
	bus    *bus.Bus
	logger *zap.Logger
	opts   Options

	sequences map[string][]Step

	state     string
	playing   bool
	index     int
	animation string
	instances []Instance
	gen       uint64
	stopped   bool

	stepTimer    clock.Timer
	idleTimer    clock.Timer
	holdTimer    clock.Timer
	microTimer   clock.Timer
	gestureTimer clock.Timer
	timers       []clock.Timer
}

// NewSequencer creates a sequencer that renders through player.
func NewSequencer(player Player, b *bus.Bus, logger *zap.Logger, opts Options) *Sequencer {
	if logger == nil {
		logger = zap.NewNop()
	}
	opts.defaults()
	return &Sequencer{
		player:    player,
		bus:       b,
		logger:    logger,
		opts:      opts,
		sequences: DefaultSequences(),
		state:     Idle,
	}
}

// Start schedules the greeting and, a few seconds later, the idle
// micro-movements.
func (s *Sequencer) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = false
	s.timers = append(s.timers,
		s.opts.Clock.AfterFunc(s.opts.StartDelay, s.Greet),
		s.opts.Clock.AfterFunc(s.opts.NaturalDelay, s.startNatural),
	)
}

// Stop cancels every timer and destroys the live instances.
func (s *Sequencer) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
	s.gen++
	s.stopTimersLocked()
	clock.Stop(s.microTimer)
	s.microTimer = nil
	for _, t := range s.timers {
		t.Stop()
	}
	s.timers = nil
	s.destroyLocked()
	s.playing = false
}

// SetSequences replaces the sequence table. Sequences missing from m keep
// their built-in definition.
func (s *Sequencer) SetSequences(m map[string][]Step) {
	merged := MergeSequences(DefaultSequences(), m)
	s.mu.Lock()
	s.sequences = merged
	s.mu.Unlock()
	s.logger.Info("animation sequences updated", zap.Int("count", len(merged)))
}

// Sequences returns a copy of the current sequence table.
func (s *Sequencer) Sequences() map[string][]Step {
	s.mu.Lock()
	defer s.mu.Unlock()
	return MergeSequences(nil, s.sequences)
}

// State returns the current state name.
func (s *Sequencer) State() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Playing reports whether a sequence is looping.
func (s *Sequencer) Playing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.playing
}

// Snapshot returns the currently visible frame.
func (s *Sequencer) Snapshot() Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frameLocked()
}

func (s *Sequencer) frameLocked() Frame {
	return Frame{State: s.state, Animation: s.animation, Playing: s.playing, Step: s.index}
}

// Play starts the named sequence, replacing whatever is current. Unknown
// names show the state's fallback animation instead.
func (s *Sequencer) Play(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.playLocked(name)
}

func (s *Sequencer) playLocked(name string) {
	if s.stopped {
		return
	}
	name = strings.ToLower(name)
	steps, ok := s.sequences[name]
	if !ok || len(steps) == 0 {
		s.logger.Warn("unknown animation sequence", zap.String("sequence", name))
		anim, ok := FallbackAnimation(name)
		if !ok {
			anim = DefaultAnimation
		}
		s.stopSequenceLocked()
		s.state = name
		s.showLocked(anim)
		s.resetIdleLocked()
		return
	}

	s.stopSequenceLocked()
	s.state = name
	s.playing = true
	s.index = 0
	s.showStepLocked(steps)
	if name == Idle {
		clock.Stop(s.idleTimer)
		s.idleTimer = nil
	} else {
		s.resetIdleLocked()
	}
}

func (s *Sequencer) showStepLocked(steps []Step) {
	step := steps[s.index]
	s.showLocked(step.Animation)
	gen := s.gen
	s.stepTimer = s.opts.Clock.AfterFunc(step.Duration, func() { s.advance(gen) })
}

// advance moves to the next step; after the last one it pauses before
// starting over.
func (s *Sequencer) advance(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen || !s.playing {
		return
	}
	steps := s.sequences[s.state]
	if len(steps) == 0 {
		return
	}
	s.index++
	if s.index < len(steps) {
		s.showStepLocked(steps)
		return
	}
	s.index = 0
	s.stepTimer = s.opts.Clock.AfterFunc(s.opts.LoopPause, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if gen != s.gen || !s.playing {
			return
		}
		steps := s.sequences[s.state]
		if len(steps) == 0 {
			return
		}
		s.showStepLocked(steps)
	})
}

// StopSequence halts the loop, leaving the current animation visible.
func (s *Sequencer) StopSequence() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopSequenceLocked()
}

func (s *Sequencer) stopSequenceLocked() {
	s.gen++
	clock.Stop(s.stepTimer)
	s.stepTimer = nil
	clock.Stop(s.holdTimer)
	s.holdTimer = nil
	clock.Stop(s.gestureTimer)
	s.gestureTimer = nil
	s.playing = false
}

func (s *Sequencer) stopTimersLocked() {
	clock.Stop(s.stepTimer)
	clock.Stop(s.idleTimer)
	clock.Stop(s.holdTimer)
	clock.Stop(s.gestureTimer)
	s.stepTimer, s.idleTimer, s.holdTimer, s.gestureTimer = nil, nil, nil, nil
}

// showLocked destroys every live instance, then loads anim on each target.
func (s *Sequencer) showLocked(anim string) {
	s.destroyLocked()
	for _, target := range Targets {
		inst, err := s.player.Load(target, anim)
		if err != nil {
			s.logger.Warn("animation load failed",
				zap.String("animation", anim),
				zap.String("target", string(target)),
				zap.Error(err))
			continue
		}
		s.instances = append(s.instances, inst)
	}
	s.animation = anim
	s.bus.Emit(bus.KindAnimationChanged, s.frameLocked())
}

func (s *Sequencer) destroyLocked() {
	for _, inst := range s.instances {
		inst.Destroy()
	}
	s.instances = s.instances[:0]
}

func (s *Sequencer) resetIdleLocked() {
	clock.Stop(s.idleTimer)
	s.idleTimer = s.opts.Clock.AfterFunc(s.opts.IdleTimeout, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.state != Idle {
			s.playLocked(Idle)
		}
	})
}

// holdLocked returns to idle after d unless another transition happens first.
func (s *Sequencer) holdLocked(d time.Duration) {
	gen := s.gen
	s.holdTimer = s.opts.Clock.AfterFunc(d, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if gen != s.gen {
			return
		}
		s.toIdleLocked()
	})
}

// Greet plays the greeting and returns to idle afterwards.
func (s *Sequencer) Greet() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.playLocked(Greeting)
	s.holdLocked(s.opts.GreetingHold)
}

// Think plays the thinking sequence until the next transition.
func (s *Sequencer) Think() {
	s.Play(Thinking)
}

// Process plays the processing sequence until the next transition.
func (s *Sequencer) Process() {
	s.Play(Processing)
}

// RespondWith reacts to a reply: the sequence matching its sentiment plays,
// then the mascot returns to idle. Returns the chosen sequence.
func (s *Sequencer) RespondWith(text string) string {
	mood := Classify(text)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.playLocked(mood)
	s.holdLocked(s.opts.ResponseHold)
	return mood
}

// ToIdle returns to the idle loop unless it is already running.
func (s *Sequencer) ToIdle() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.toIdleLocked()
}

func (s *Sequencer) toIdleLocked() {
	if s.state == Idle && s.playing {
		return
	}
	s.playLocked(Idle)
}

// Flash shows the single animation for state (or state itself when it names
// an animation directly). With hold > 0 the mascot returns to idle after hold.
func (s *Sequencer) Flash(state string, hold time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	anim, ok := FallbackAnimation(state)
	if !ok {
		anim = state
	}
	s.stopSequenceLocked()
	s.state = strings.ToLower(state)
	s.showLocked(anim)
	s.resetIdleLocked()
	if hold > 0 {
		s.holdLocked(hold)
	}
}

func (s *Sequencer) startNatural() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped || s.microTimer != nil {
		return
	}
	s.scheduleMicroLocked()
}

func (s *Sequencer) scheduleMicroLocked() {
	s.microTimer = s.opts.Clock.AfterFunc(s.opts.MicroInterval, s.microTick)
}

// microTick occasionally shows a short gesture while the mascot sits idle
// with no sequence running, then settles back on the default animation.
func (s *Sequencer) microTick() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	s.scheduleMicroLocked()
	if s.state != Idle || s.playing || s.opts.Rand() >= s.opts.MicroChance {
		return
	}

	move := microMoves[int(s.opts.Rand()*float64(len(microMoves)))%len(microMoves)]
	hold := time.Second + time.Duration(s.opts.Rand()*float64(time.Second))

	clock.Stop(s.gestureTimer)
	s.showLocked(move)
	gen := s.gen
	s.gestureTimer = s.opts.Clock.AfterFunc(hold, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if gen != s.gen || s.state != Idle || s.playing {
			return
		}
		s.showLocked(DefaultAnimation)
	})
}
