// Package voice coordinates speech recognition and speech synthesis so the
// assistant never hears itself.
package voice

import (
	"fmt"
	"strings"
)

// Mode is how listening is activated.
type Mode string

const (
	// ModeClick toggles listening on demand.
	ModeClick Mode = "click"
	// ModeAuto keeps the microphone armed and submits after silence.
	ModeAuto Mode = "auto"
	// ModePush listens while the push-to-talk key is held.
	ModePush Mode = "push"
)

// Modes lists the valid modes.
func Modes() []Mode { return []Mode{ModeClick, ModeAuto, ModePush} }

// ParseMode validates a mode name.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModeClick, ModeAuto, ModePush:
		return m, nil
	default:
		return "", fmt.Errorf("unknown voice mode %q (want click, auto or push)", s)
	}
}
