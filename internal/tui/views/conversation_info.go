package views

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/matheus3301/charly/internal/history"
	"github.com/matheus3301/charly/internal/rpc"
	"github.com/matheus3301/charly/internal/tui/ui"
	"github.com/rivo/tview"
)

// ConversationInfo displays detailed information about a conversation.
type ConversationInfo struct {
	*tview.TextView
	theme *ui.Theme
}

// NewConversationInfo creates a new conversation info view.
func NewConversationInfo(theme *ui.Theme) *ConversationInfo {
	tv := tview.NewTextView().
		SetDynamicColors(true).
		SetWordWrap(true)
	tv.SetBorder(true)
	tv.SetBorderColor(theme.BorderColor)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetTextColor(theme.FgColor)
	tv.SetTitle(" Conversation Details ")
	tv.SetTitleColor(theme.TitleColor)

	return &ConversationInfo{
		TextView: tv,
		theme:    theme,
	}
}

// Name implements ui.Page.
func (ci *ConversationInfo) Name() string { return "details" }

// Hints implements ui.Page.
func (ci *ConversationInfo) Hints() []ui.MenuHint {
	return []ui.MenuHint{
		{Key: "Esc", Description: "Back"},
	}
}

// Update renders conversation details.
func (ci *ConversationInfo) Update(c *rpc.Conversation) {
	ci.Clear()
	if c == nil {
		return
	}

	fg := ui.ColorName(ci.theme.FgColor)
	ct := ui.ColorName(ci.theme.CounterColor)

	var user, assistant, words int
	for _, m := range c.Messages {
		if m.Role == history.RoleUser {
			user++
		} else {
			assistant++
		}
		words += len(strings.Fields(m.Content))
	}

	source := "this computer"
	if c.Source == string(history.SourceServer) {
		source = "your account"
	}
	favorite := "no"
	if c.Favorite {
		favorite = "yes"
	}

	row := func(label, value string) string {
		return fmt.Sprintf(" [%s::b]%-10s[-:-:-] [%s]%s[-]\n", fg, label, ct, tview.Escape(value))
	}
	_, _ = fmt.Fprint(ci, "\n"+
		row("Title:", sanitizeForTerminal(c.Title))+
		row("ID:", c.ID)+
		row("Stored on:", source)+
		row("Favorite:", favorite)+
		row("Started:", formatDate(c.CreatedAt))+
		row("Updated:", formatDate(c.UpdatedAt))+
		row("Messages:", fmt.Sprintf("%d (%d from you, %d replies)", len(c.Messages), user, assistant))+
		row("Words:", humanize.Comma(int64(words))),
	)
	ci.SetTitle(fmt.Sprintf(" %s ", tview.Escape(truncate(sanitizeForTerminal(c.Title), 50))))
}

func formatDate(ms int64) string {
	if ms == 0 {
		return "-"
	}
	t := time.UnixMilli(ms)
	return fmt.Sprintf("%s (%s)", t.Format("2 Jan 2006 15:04"), humanize.Time(t))
}
