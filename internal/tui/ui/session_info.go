package ui

import (
	"fmt"
	"time"

	"github.com/rivo/tview"
)

// SessionData holds session information for display.
type SessionData struct {
	Profile       string
	User          string
	Status        string
	VoiceMode     string
	Memory        bool
	AutoRead      bool
	Conversations int
	Messages      int
	Uptime        time.Duration
}

// SessionInfo displays session metadata in the header.
type SessionInfo struct {
	*tview.TextView
	theme *Theme
}

// NewSessionInfo creates a new session info panel.
func NewSessionInfo(theme *Theme) *SessionInfo {
	tv := tview.NewTextView().
		SetDynamicColors(true)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetBorderPadding(0, 0, 1, 1)

	return &SessionInfo{
		TextView: tv,
		theme:    theme,
	}
}

// Update renders the session info.
func (si *SessionInfo) Update(data *SessionData) {
	si.Clear()
	if data == nil {
		return
	}

	fg := colorName(si.theme.FgColor)
	val := colorName(si.theme.CounterColor)

	user := data.User
	if user == "" {
		user = "-"
	}
	row := func(label, value string) string {
		return fmt.Sprintf("[%s::b]%-8s[-:-:-] [%s]%s[-]", fg, label, val, tview.Escape(value))
	}

	_, _ = fmt.Fprint(si,
		row("Profile:", data.Profile)+"\n"+
			row("User:", user)+"\n"+
			row("Status:", data.Status)+"\n"+
			row("Voice:", data.VoiceMode)+"\n"+
			row("Memory:", onOff(data.Memory))+"  "+row("Read:", onOff(data.AutoRead))+"\n"+
			row("Convs:", fmt.Sprintf("%d / %d msgs", data.Conversations, data.Messages))+"\n"+
			row("Uptime:", formatDuration(data.Uptime)),
	)
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

func formatDuration(d time.Duration) string {
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	if h > 0 {
		return fmt.Sprintf("%dh%dm", h, m)
	}
	return fmt.Sprintf("%dm", m)
}
