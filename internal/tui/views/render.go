package views

import (
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/dustin/go-humanize"
	"github.com/mattn/go-runewidth"
	"github.com/rivo/tview"
)

// Markdown renders assistant replies as tview-colored text.
type Markdown struct {
	style string

	mu       sync.Mutex
	width    int
	renderer *glamour.TermRenderer
}

// NewMarkdown creates a renderer using a glamour standard style.
func NewMarkdown(style string) *Markdown {
	return &Markdown{style: style}
}

// Render converts md for a view of the given width. On failure the escaped
// source text is returned.
func (m *Markdown) Render(md string, width int) string {
	if width < 20 {
		width = 20
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.renderer == nil || m.width != width {
		r, err := glamour.NewTermRenderer(
			glamour.WithStandardStyle(m.style),
			glamour.WithWordWrap(width),
		)
		if err != nil {
			return tview.Escape(md)
		}
		m.renderer, m.width = r, width
	}
	out, err := m.renderer.Render(md)
	if err != nil {
		return tview.Escape(md)
	}
	return strings.Trim(tview.TranslateANSI(out), "\n")
}

// truncate cuts s to width terminal cells, ending with an ellipsis.
func truncate(s string, width int) string {
	return runewidth.Truncate(s, width, "…")
}

// relativeTime renders a Unix-millisecond timestamp like "3 minutes ago".
func relativeTime(ms int64, now time.Time) string {
	if ms == 0 {
		return ""
	}
	return humanize.RelTime(time.UnixMilli(ms), now, "ago", "from now")
}

// clockTime renders a Unix-millisecond timestamp as HH:MM in local time.
func clockTime(ms int64) string {
	if ms == 0 {
		return ""
	}
	return time.UnixMilli(ms).Format("15:04")
}
