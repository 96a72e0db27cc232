package ui

import (
	"fmt"

	"github.com/rivo/tview"
)

// menuRows is how many hints fit in the header next to the session panel.
const menuRows = 6

// Menu lists the keys of the visible page in the header, two columns when
// there are more hints than rows.
type Menu struct {
	*tview.TextView
	theme *Theme
}

// NewMenu creates the header key menu.
func NewMenu(theme *Theme) *Menu {
	tv := tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignLeft)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetBorderPadding(0, 0, 2, 0)

	return &Menu{
		TextView: tv,
		theme:    theme,
	}
}

// Update shows hints, overflowing into a second column.
func (m *Menu) Update(hints []MenuHint) {
	m.Clear()
	_, _ = fmt.Fprint(m, menuText(hints, ColorName(m.theme.MenuKeyColor)))
}

func menuText(hints []MenuHint, keyColor string) string {
	cell := func(h MenuHint) string {
		return fmt.Sprintf("[%s::b]<%s>[-:-:-] %-18s", keyColor, tview.Escape(h.Key), tview.Escape(h.Description))
	}
	var out string
	for row := 0; row < menuRows && row < len(hints); row++ {
		out += cell(hints[row])
		if next := row + menuRows; next < len(hints) {
			out += "  " + cell(hints[next])
		}
		out += "\n"
	}
	return out
}
