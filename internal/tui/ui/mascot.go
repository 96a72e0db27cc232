package ui

import (
	"fmt"

	"github.com/matheus3301/charly/internal/animation"
	"github.com/rivo/tview"
)

// faces approximates each mascot state in text; the daemon plays the real
// Lottie animation named in the frame.
var faces = map[string]string{
	animation.Idle:       "( =^･ω･^= )",
	animation.Greeting:   "( =^･ω･^= )ﾉ",
	animation.Thinking:   "( =^･_･^= )?",
	animation.Processing: "( =^◔_◔^= )…",
	animation.Chatting:   "( =^･▽･^= )",
	animation.Happy:      "( =^▽^= )♪",
	animation.Confused:   "( =^･o･^= )??",
	animation.Error:      "( =^×_×^= )",
	animation.Idea:       "( =^･ω･^= )!",
	animation.Loving:     "( =^♥ω♥^= )",
}

// Face returns the text face for a mascot state.
func Face(state string) string {
	if f, ok := faces[state]; ok {
		return f
	}
	return faces[animation.Idle]
}

// Mascot shows the assistant's current animation state.
type Mascot struct {
	*tview.TextView
	theme *Theme
}

// NewMascot creates the mascot panel.
func NewMascot(theme *Theme) *Mascot {
	tv := tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignCenter)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetBorderPadding(1, 0, 0, 1)

	m := &Mascot{TextView: tv, theme: theme}
	m.Update(animation.Idle, "", false)
	return m
}

// Update renders the state face and the animation being played.
func (m *Mascot) Update(state, anim string, playing bool) {
	m.Clear()
	title := colorName(m.theme.TitleColor)
	fg := colorName(m.theme.FgColor)
	if anim == "" {
		anim = "-"
	}
	marker := " "
	if playing {
		marker = "▶"
	}
	_, _ = fmt.Fprintf(m, "[%s::b]%s[-:-:-]\n\n[%s]%s %s[-]\n[%s::d]%s[-:-:-]",
		title, tview.Escape(Face(state)),
		fg, marker, tview.Escape(state),
		fg, tview.Escape(anim))
}
