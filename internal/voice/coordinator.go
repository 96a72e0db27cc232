package voice

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/matheus3301/charly/internal/bus"
	"github.com/matheus3301/charly/internal/clock"
	"go.uber.org/zap"
)

// Timings.
const (
	SilenceTimeout = 2 * time.Second
	RearmDelay     = 500 * time.Millisecond
	Cooldown       = 800 * time.Millisecond
	ErrorCooldown  = 500 * time.Millisecond
	RestartDelay   = 100 * time.Millisecond
	SubmitDelay    = 100 * time.Millisecond
)

// Transcript length thresholds, in characters.
const (
	minTranscript = 5
	minSubmit     = 3
)

// ErrNotAllowed is reported by recognizers when microphone access is denied.
// It disables automatic restarts.
var ErrNotAllowed = errors.New("microphone access not allowed")

// ErrUnavailable is returned by the placeholder backends.
var ErrUnavailable = errors.New("voice backend not configured")

// Phrases the assistant itself says; hearing one means the microphone picked
// up our own speech.
var echoPhrases = []string{
	"comment puis-je",
	"si vous avez",
	"nhésitez pas",
	"je suis là",
	"bonjour",
	"how can i help",
	"if you have",
	"feel free",
	"i'm here",
}

// Result is one recognition hypothesis.
type Result struct {
	Text  string
	Final bool
}

// Events receives recognizer callbacks. Recognizers must deliver them from
// their own goroutine, never from inside Start or Stop.
type Events interface {
	RecognitionStarted()
	RecognitionResult(results []Result)
	RecognitionEnded()
	RecognitionFailed(err error)
}

// Recognizer turns microphone audio into text.
type Recognizer interface {
	Start(ev Events) error
	Stop() error
}

// SpeakOptions tunes synthesis. Rate, Volume and Pitch are relative to 1.
type SpeakOptions struct {
	Voice  string
	Rate   float64
	Volume float64
	Pitch  float64
}

// Synthesizer speaks text and blocks until playback ends or ctx is cancelled.
type Synthesizer interface {
	Speak(ctx context.Context, text string, opts SpeakOptions) error
}

// Hooks are called outside the coordinator's lock.
type Hooks struct {
	OnListen     func()
	OnSubmit     func(text string)
	OnSpeakStart func()
	OnSpeakEnd   func()
}

// State is a snapshot published as voice.state.
type State struct {
	Mode       Mode   `json:"mode"`
	Listening  bool   `json:"listening"`
	Muted      bool   `json:"muted"`
	Speaking   bool   `json:"speaking"`
	AutoActive bool   `json:"auto_active"`
	PushDown   bool   `json:"push_down"`
	Transcript string `json:"transcript,omitempty"`
}

// Transcript is published as voice.transcript.
type Transcript struct {
	Text  string `json:"text"`
	Final bool   `json:"final"`
}

// Options configures a Coordinator.
type Options struct {
	Mode  Mode
	Clock clock.Clock
	Speak SpeakOptions
}

// Coordinator owns microphone and speaker state. Listening is suspended while
// speech plays and the in-flight transcript is dropped whenever it is.
type Coordinator struct {
	mu     sync.Mutex
	rec    Recognizer
	synth  Synthesizer
	bus    *bus.Bus
	logger *zap.Logger
	clock  clock.Clock
	hooks  Hooks
	speak  SpeakOptions

	mode       Mode
	listening  bool
	muted      bool
	speaking   bool
	autoActive bool
	pushDown   bool
	resume     bool
	transcript string

	silence clock.Timer
	submit  clock.Timer
	restart clock.Timer
	unmute  clock.Timer
	release clock.Timer

	speakGen    int
	speakCancel context.CancelFunc

	after []func()
}

// NewCoordinator creates a coordinator. Nil backends are replaced by
// placeholders that report ErrUnavailable.
func NewCoordinator(rec Recognizer, synth Synthesizer, b *bus.Bus, logger *zap.Logger, opts Options) *Coordinator {
	if rec == nil {
		rec = Unavailable{}
	}
	if synth == nil {
		synth = Unavailable{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Clock == nil {
		opts.Clock = clock.Real()
	}
	if opts.Mode == "" {
		opts.Mode = ModeClick
	}
	return &Coordinator{
		rec:    rec,
		synth:  synth,
		bus:    b,
		logger: logger,
		clock:  opts.Clock,
		speak:  opts.Speak,
		mode:   opts.Mode,
	}
}

// SetHooks installs the callbacks.
func (c *Coordinator) SetHooks(h Hooks) {
	c.mu.Lock()
	c.hooks = h
	c.mu.Unlock()
}

// SetSpeakOptions replaces the synthesis options.
func (c *Coordinator) SetSpeakOptions(o SpeakOptions) {
	c.mu.Lock()
	c.speak = o
	c.mu.Unlock()
}

// Snapshot returns the current state.
func (c *Coordinator) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Coordinator) snapshotLocked() State {
	return State{
		Mode:       c.mode,
		Listening:  c.listening,
		Muted:      c.muted,
		Speaking:   c.speaking,
		AutoActive: c.autoActive,
		PushDown:   c.pushDown,
		Transcript: c.transcript,
	}
}

// unlock releases the lock and runs the callbacks queued while it was held.
func (c *Coordinator) unlock() {
	after := c.after
	c.after = nil
	c.mu.Unlock()
	for _, f := range after {
		f()
	}
}

func (c *Coordinator) queue(f func()) {
	if f != nil {
		c.after = append(c.after, f)
	}
}

func (c *Coordinator) publishStateLocked() {
	st := c.snapshotLocked()
	c.queue(func() { c.bus.Emit(bus.KindVoiceState, st) })
}

// Start arms auto mode at daemon start when configured.
func (c *Coordinator) Start() {
	c.mu.Lock()
	defer c.unlock()
	if c.mode == ModeAuto {
		c.autoActive = true
		c.startLocked()
	}
	c.publishStateLocked()
}

// Stop releases the microphone and cancels any playback and timers.
func (c *Coordinator) Stop() {
	c.mu.Lock()
	defer c.unlock()
	c.autoActive = false
	c.stopLocked()
	for _, t := range []clock.Timer{c.submit, c.restart, c.unmute, c.release} {
		clock.Stop(t)
	}
	c.submit, c.restart, c.unmute, c.release = nil, nil, nil, nil
	if c.speakCancel != nil {
		c.speakCancel()
	}
}

// Mode returns the activation mode.
func (c *Coordinator) Mode() Mode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mode
}

// SetMode switches the activation mode, stopping any capture first.
func (c *Coordinator) SetMode(m Mode) error {
	if _, err := ParseMode(string(m)); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.unlock()

	c.autoActive = false
	c.pushDown = false
	c.stopLocked()
	c.mode = m
	if m == ModeAuto {
		c.autoActive = true
		c.startLocked()
	}
	c.publishStateLocked()
	return nil
}

// StartListening starts capture unless speech is playing.
func (c *Coordinator) StartListening() bool {
	c.mu.Lock()
	defer c.unlock()
	ok := c.startLocked()
	c.publishStateLocked()
	return ok
}

// StopListening stops capture.
func (c *Coordinator) StopListening() {
	c.mu.Lock()
	defer c.unlock()
	c.stopLocked()
	c.publishStateLocked()
}

// Toggle is the microphone button: start/stop in click mode, arm/disarm in
// auto mode, press/release in push mode.
func (c *Coordinator) Toggle() {
	c.mu.Lock()
	switch c.mode {
	case ModeAuto:
		if c.autoActive {
			c.autoActive = false
			clock.Stop(c.restart)
			c.restart = nil
			c.stopLocked()
		} else {
			c.autoActive = true
			c.startLocked()
		}
	case ModePush:
		down := c.pushDown
		c.unlock()
		if down {
			c.PushEnd()
		} else {
			c.PushStart()
		}
		return
	default:
		if c.listening {
			c.stopLocked()
		} else {
			c.startLocked()
		}
	}
	c.publishStateLocked()
	c.unlock()
}

// PushStart begins push-to-talk capture.
func (c *Coordinator) PushStart() {
	c.mu.Lock()
	defer c.unlock()
	if c.mode != ModePush || c.pushDown {
		return
	}
	c.pushDown = true
	c.startLocked()
	c.publishStateLocked()
}

// PushEnd stops push-to-talk capture and submits the transcript shortly after.
func (c *Coordinator) PushEnd() {
	c.mu.Lock()
	defer c.unlock()
	if c.mode != ModePush || !c.pushDown {
		return
	}
	c.pushDown = false
	c.stopLocked()
	clock.Stop(c.release)
	c.release = c.clock.AfterFunc(SubmitDelay, func() {
		c.mu.Lock()
		defer c.unlock()
		c.release = nil
		if !c.muted && runes(c.transcript) > minSubmit {
			c.submitLocked()
		}
	})
	c.publishStateLocked()
}

func (c *Coordinator) startLocked() bool {
	if c.muted || c.speaking {
		c.logger.Debug("listening blocked while speaking")
		return false
	}
	if c.listening {
		return true
	}
	c.transcript = ""
	if err := c.rec.Start(recognizerEvents{c}); err != nil {
		c.logger.Warn("start recognizer", zap.Error(err))
		return false
	}
	c.listening = true
	c.queue(c.hooks.OnListen)
	return true
}

func (c *Coordinator) stopLocked() {
	if c.listening {
		if err := c.rec.Stop(); err != nil {
			c.logger.Warn("stop recognizer", zap.Error(err))
		}
		c.listening = false
	}
	clock.Stop(c.silence)
	c.silence = nil
}

// MuteForTTS suspends capture: the transcript is dropped, pending silence
// and submit timers are cancelled and the recognizer is stopped.
func (c *Coordinator) MuteForTTS() {
	c.mu.Lock()
	defer c.unlock()
	c.muteLocked()
	c.publishStateLocked()
}

func (c *Coordinator) muteLocked() {
	c.muted = true
	c.transcript = ""
	for _, t := range []clock.Timer{c.silence, c.submit, c.restart, c.unmute, c.release} {
		clock.Stop(t)
	}
	c.silence, c.submit, c.restart, c.unmute, c.release = nil, nil, nil, nil, nil
	if c.listening {
		if err := c.rec.Stop(); err != nil {
			c.logger.Warn("stop recognizer for speech", zap.Error(err))
		}
		c.listening = false
	}
}

// UnmuteAfterTTS lifts the mute. In auto mode capture is re-armed shortly
// after if nothing muted it again.
func (c *Coordinator) UnmuteAfterTTS() {
	c.mu.Lock()
	defer c.unlock()
	c.muted = false
	c.transcript = ""
	if c.mode == ModeAuto && c.autoActive {
		clock.Stop(c.restart)
		c.restart = c.clock.AfterFunc(RearmDelay, func() {
			c.mu.Lock()
			defer c.unlock()
			c.restart = nil
			if !c.muted && !c.speaking && c.autoActive {
				c.startLocked()
				c.publishStateLocked()
			}
		})
	}
	c.publishStateLocked()
}

// Speak cleans text and plays it asynchronously, muting the microphone while
// it plays. Reports whether anything is spoken.
func (c *Coordinator) Speak(text string) bool {
	clean := CleanText(text)
	if clean == "" {
		return false
	}

	c.mu.Lock()
	defer c.unlock()

	if c.listening || (c.mode == ModeAuto && c.autoActive) {
		c.muteLocked()
		c.resume = true
	}
	if c.speakCancel != nil {
		c.speakCancel()
	}
	clock.Stop(c.unmute)
	c.unmute = nil

	c.speakGen++
	gen := c.speakGen
	ctx, cancel := context.WithCancel(context.Background())
	c.speakCancel = cancel
	c.speaking = true
	opts := c.speak
	c.queue(c.hooks.OnSpeakStart)
	c.publishStateLocked()

	go c.play(ctx, gen, clean, opts)
	return true
}

func (c *Coordinator) play(ctx context.Context, gen int, text string, opts SpeakOptions) {
	err := c.synth.Speak(ctx, text, opts)

	c.mu.Lock()
	defer c.unlock()
	if gen != c.speakGen {
		return
	}
	c.speakCancel = nil
	c.speaking = false

	delay := Cooldown
	if err != nil && !errors.Is(err, context.Canceled) {
		c.logger.Warn("speech synthesis failed", zap.Error(err))
		delay = ErrorCooldown
	}
	if c.resume {
		c.resume = false
		c.unmute = c.clock.AfterFunc(delay, func() {
			c.mu.Lock()
			c.unmute = nil
			speaking := c.speaking
			c.mu.Unlock()
			if !speaking {
				c.UnmuteAfterTTS()
			}
		})
	}
	c.queue(c.hooks.OnSpeakEnd)
	c.publishStateLocked()
}

// StopSpeaking interrupts playback.
func (c *Coordinator) StopSpeaking() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.speakCancel != nil {
		c.speakCancel()
	}
}

func (c *Coordinator) submitLocked() {
	text := strings.TrimSpace(c.transcript)
	c.transcript = ""
	clock.Stop(c.silence)
	c.silence = nil
	if runes(text) < minSubmit {
		return
	}
	clock.Stop(c.submit)
	c.submit = c.clock.AfterFunc(SubmitDelay, func() {
		c.mu.Lock()
		c.submit = nil
		muted := c.muted
		onSubmit := c.hooks.OnSubmit
		c.mu.Unlock()
		if !muted && onSubmit != nil {
			onSubmit(text)
		}
	})
}

func (c *Coordinator) resetSilenceLocked() {
	clock.Stop(c.silence)
	c.silence = c.clock.AfterFunc(SilenceTimeout, func() {
		c.mu.Lock()
		defer c.unlock()
		c.silence = nil
		if c.mode == ModeAuto {
			if runes(c.transcript) > minSubmit && !c.muted {
				c.submitLocked()
			}
			c.transcript = ""
			return
		}
		c.stopLocked()
		c.publishStateLocked()
	})
}

func (c *Coordinator) onStarted() {
	c.mu.Lock()
	defer c.unlock()
	if c.muted || c.speaking {
		c.logger.Debug("recognizer started during speech, stopping")
		if err := c.rec.Stop(); err != nil {
			c.logger.Warn("stop recognizer", zap.Error(err))
		}
		c.listening = false
		c.publishStateLocked()
	}
}

func (c *Coordinator) onResult(results []Result) {
	c.mu.Lock()
	defer c.unlock()
	if c.muted || c.speaking {
		c.transcript = ""
		return
	}

	var final, interim strings.Builder
	for _, r := range results {
		if r.Final {
			final.WriteString(r.Text)
		} else {
			interim.WriteString(r.Text)
		}
	}
	isFinal := final.Len() > 0
	c.transcript = final.String()
	if !isFinal {
		c.transcript = interim.String()
	}

	if runes(strings.TrimSpace(c.transcript)) < minTranscript {
		c.transcript = ""
		return
	}
	if isFinal && isEcho(c.transcript) {
		c.logger.Debug("dropping echoed assistant phrase", zap.String("transcript", c.transcript))
		c.transcript = ""
		return
	}

	tr := Transcript{Text: c.transcript, Final: isFinal}
	c.queue(func() { c.bus.Emit(bus.KindVoiceTranscript, tr) })
	if isFinal {
		c.resetSilenceLocked()
	}
}

func (c *Coordinator) onEnded() {
	c.mu.Lock()
	defer c.unlock()
	c.listening = false
	switch {
	case c.mode == ModeAuto && c.autoActive && !c.muted:
		c.scheduleRestartLocked(RestartDelay)
	case runes(c.transcript) > minSubmit && !c.muted:
		c.submitLocked()
	}
	c.publishStateLocked()
}

func (c *Coordinator) onFailed(err error) {
	c.mu.Lock()
	defer c.unlock()
	c.logger.Warn("recognition failed", zap.Error(err))
	c.listening = false
	if !errors.Is(err, ErrNotAllowed) && c.mode == ModeAuto && c.autoActive && !c.muted {
		c.scheduleRestartLocked(ErrorCooldown)
	}
	c.publishStateLocked()
}

func (c *Coordinator) scheduleRestartLocked(d time.Duration) {
	clock.Stop(c.restart)
	c.restart = c.clock.AfterFunc(d, func() {
		c.mu.Lock()
		defer c.unlock()
		c.restart = nil
		if c.autoActive && !c.muted {
			c.startLocked()
			c.publishStateLocked()
		}
	})
}

func isEcho(s string) bool {
	lower := strings.ToLower(s)
	for _, p := range echoPhrases {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

func runes(s string) int { return utf8.RuneCountInString(s) }

// recognizerEvents keeps the Events methods off the Coordinator's API.
type recognizerEvents struct{ c *Coordinator }

func (e recognizerEvents) RecognitionStarted()          { e.c.onStarted() }
func (e recognizerEvents) RecognitionResult(r []Result) { e.c.onResult(r) }
func (e recognizerEvents) RecognitionEnded()            { e.c.onEnded() }
func (e recognizerEvents) RecognitionFailed(err error)  { e.c.onFailed(err) }

// Unavailable is the recognizer and synthesizer used when no voice backend
// is configured.
type Unavailable struct{}

func (Unavailable) Start(Events) error { return ErrUnavailable }
func (Unavailable) Stop() error        { return nil }
func (Unavailable) Speak(context.Context, string, SpeakOptions) error {
	return ErrUnavailable
}
