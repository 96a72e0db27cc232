package views

import (
	"fmt"
	"time"

	"github.com/matheus3301/charly/internal/rpc"
	"github.com/matheus3301/charly/internal/tui/ui"
	"github.com/rivo/tview"
)

// StatusBar displays the connection, voice and mascot state.
type StatusBar struct {
	*tview.TextView
	theme     *ui.Theme
	profile   string
	status    string
	connected bool
	voice     rpc.VoiceState
	frame     rpc.Frame
}

// NewStatusBar creates a new status bar.
func NewStatusBar(theme *ui.Theme) *StatusBar {
	tv := tview.NewTextView().
		SetDynamicColors(true)
	tv.SetBackgroundColor(theme.BgColor)

	return &StatusBar{TextView: tv, theme: theme}
}

// SetProfile updates the profile name display.
func (sb *StatusBar) SetProfile(name string) {
	sb.profile = name
	sb.render()
}

// SetStatus updates the session status display.
func (sb *StatusBar) SetStatus(status string) {
	sb.status = status
	sb.render()
}

// SetConnected marks whether the daemon streams are up.
func (sb *StatusBar) SetConnected(connected bool) {
	sb.connected = connected
	sb.render()
}

// SetVoice updates the microphone indicator.
func (sb *StatusBar) SetVoice(v rpc.VoiceState) {
	sb.voice = v
	sb.render()
}

// SetFrame updates the mascot state display.
func (sb *StatusBar) SetFrame(f rpc.Frame) {
	sb.frame = f
	sb.render()
}

func (sb *StatusBar) render() {
	sb.Clear()

	link := fmt.Sprintf("[%s]●[-]", ui.ColorName(sb.theme.FlashOKColor))
	if !sb.connected {
		link = fmt.Sprintf("[%s]○ reconnecting[-]", ui.ColorName(sb.theme.FlashErrColor))
	}

	_, _ = fmt.Fprintf(sb, " %s [::b]%s[-:-:-] | %s | %s | %s | %s",
		link, tview.Escape(sb.profile), tview.Escape(sb.status),
		voiceLabel(sb.voice), tview.Escape(sb.frame.State), time.Now().Format("15:04"))
}

func voiceLabel(v rpc.VoiceState) string {
	switch {
	case v.Mode == "" || v.Backend == "none":
		return "no voice"
	case v.Speaking:
		return "speaking"
	case v.Muted:
		return v.Mode + " (muted)"
	case v.Listening:
		return v.Mode + " listening"
	default:
		return v.Mode
	}
}
