package animation

import (
	"strings"
	"time"
)

// Sequence names.
const (
	Idle       = "idle"
	Greeting   = "greeting"
	Thinking   = "thinking"
	Processing = "processing"
	Chatting   = "chatting"
	Happy      = "happy"
	Confused   = "confused"
	Error      = "error"
	Idea       = "idea"
	Loving     = "loving"
)

// Step shows one animation for a fixed duration.
type Step struct {
	Animation string        `yaml:"animation" json:"animation"`
	Duration  time.Duration `yaml:"duration" json:"duration"`
}

func ms(n int) time.Duration { return time.Duration(n) * time.Millisecond }

// DefaultSequences returns the built-in sequence table. The map is freshly
// allocated on every call.
func DefaultSequences() map[string][]Step {
	return map[string][]Step{
		Idle: {
			{"cat-devil", ms(5000)},
			{"star-struck", ms(2000)},
			{"squinting-cat", ms(2000)},
		},
		Greeting: {
			{"cat-devil", ms(5000)},
			{"squinting-cat", ms(5000)},
		},
		Thinking: {
			{"pleading-cat", ms(2000)},
			{"cat-ok", ms(800)},
			{"pleading-cat", ms(1500)},
			{"cat-ok", ms(800)},
		},
		Processing: {
			{"cat-beaming", ms(1500)},
			{"cat-ok", ms(800)},
			{"cat-beaming", ms(1500)},
		},
		Chatting: {
			{"cat-ok", ms(3000)},
			{"cat-beaming", ms(2000)},
			{"cat-ok", ms(2500)},
		},
		Happy: {
			{"cat-sun", ms(2000)},
			{"cat-rainbow", ms(2000)},
			{"cat-beaming", ms(2000)},
			{"cat-ok", ms(1500)},
		},
		Confused: {
			{"squinting-cat", ms(2000)},
			{"pleading-cat", ms(1500)},
			{"cat-ok", ms(1500)},
		},
		Error: {
			{"cat-crying", ms(2500)},
			{"pleading-cat", ms(2000)},
			{"cat-ok", ms(1500)},
		},
		Idea: {
			{"cat-rainbow", ms(2000)},
			{"cat-beaming", ms(1500)},
			{"cat-ok", ms(2000)},
		},
		Loving: {
			{"star-struck", ms(2000)},
			{"cat-eyes", ms(1800)},
			{"cat-sun", ms(1500)},
			{"cat-ok", ms(1500)},
		},
	}
}

// DefaultAnimation is shown when nothing better is known.
const DefaultAnimation = "cat-ok"

// fallbackStates maps an upper-case state name to a single animation.
var fallbackStates = map[string]string{
	"IDLE":       "cat-ok",
	"GREETING":   "cat-rainbow",
	"THINKING":   "pleading-cat",
	"PROCESSING": "cat-beaming",
	"CHATTING":   "cat-ok",
	"HAPPY":      "cat-sun",
	"CONFUSED":   "squinting-cat",
	"ERROR":      "cat-crying",
	"IDEA":       "cat-rainbow",
	"LOVING":     "cat-eyes",
	"LOADING":    "star-struck",
}

// FallbackAnimation returns the single animation for a state name, matched
// case-insensitively.
func FallbackAnimation(state string) (string, bool) {
	a, ok := fallbackStates[strings.ToUpper(state)]
	return a, ok
}

// States lists the state names accepted by Flash, sorted.
func States() []string {
	return []string{"CHATTING", "CONFUSED", "ERROR", "GREETING", "HAPPY", "IDEA", "IDLE", "LOADING", "LOVING", "PROCESSING", "THINKING"}
}
