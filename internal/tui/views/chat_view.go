package views

import (
	"fmt"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/matheus3301/charly/internal/history"
	"github.com/matheus3301/charly/internal/rpc"
	"github.com/matheus3301/charly/internal/tui/ui"
	"github.com/rivo/tview"
)

// AssistantName labels assistant turns.
const AssistantName = "Charly"

// ChatView shows the current conversation and the composer.
type ChatView struct {
	*tview.Flex
	theme    *ui.Theme
	md       *Markdown
	messages *tview.TextView
	composer *tview.InputField

	conv       *rpc.Conversation
	pending    bool
	transcript string
	query      string
	sources    []rpc.SearchResult
	onSend     func(text string)
}

// NewChatView creates the chat view.
func NewChatView(theme *ui.Theme) *ChatView {
	messages := tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true).
		SetWordWrap(true)
	messages.SetBorder(true)
	messages.SetBorderColor(theme.BorderColor)
	messages.SetBackgroundColor(theme.BgColor)
	messages.SetTextColor(theme.FgColor)
	messages.SetTitle(" New conversation ")
	messages.SetTitleColor(theme.TitleColor)

	composer := tview.NewInputField().
		SetLabel(" > ").
		SetFieldWidth(0).
		SetPlaceholder("Ask me anything")
	composer.SetBorder(true)
	composer.SetBorderColor(theme.BorderFocusColor)
	composer.SetBackgroundColor(theme.BgColor)
	composer.SetFieldBackgroundColor(theme.BgColor)
	composer.SetFieldTextColor(theme.FgColor)
	composer.SetPlaceholderTextColor(theme.BorderColor)
	composer.SetLabelColor(theme.MenuKeyColor)
	composer.SetTitle(" Message (Enter or Ctrl+S to send) ")
	composer.SetTitleColor(theme.TitleColor)

	flex := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(messages, 0, 1, false).
		AddItem(composer, 3, 0, true)

	cv := &ChatView{
		Flex:     flex,
		theme:    theme,
		md:       NewMarkdown(theme.GlamourStyle),
		messages: messages,
		composer: composer,
	}
	composer.SetDoneFunc(func(key tcell.Key) {
		if key == tcell.KeyEnter {
			cv.Submit()
		}
	})
	return cv
}

// Name implements ui.Page.
func (cv *ChatView) Name() string { return "chat" }

// Hints implements ui.Page.
func (cv *ChatView) Hints() []ui.MenuHint {
	return []ui.MenuHint{
		{Key: "Enter", Description: "Send message"},
		{Key: "Esc", Description: "Leave the composer"},
	}
}

// SetOnSend sets the callback for submitted text.
func (cv *ChatView) SetOnSend(fn func(text string)) {
	cv.onSend = fn
}

// Submit sends the composer text, if any, and clears it.
func (cv *ChatView) Submit() {
	text := strings.TrimSpace(cv.composer.GetText())
	if text == "" || cv.onSend == nil {
		return
	}
	cv.composer.SetText("")
	cv.onSend(text)
}

// SetConversation replaces the displayed conversation.
func (cv *ChatView) SetConversation(c *rpc.Conversation) {
	if cv.conv == nil || c == nil || cv.conv.ID != c.ID {
		cv.query, cv.sources = "", nil
	}
	cv.conv = c
	cv.render()
}

// SetPending toggles the "thinking" line under the last message.
func (cv *ChatView) SetPending(pending bool) {
	cv.pending = pending
	cv.render()
}

// SetTranscript shows the partial voice transcript.
func (cv *ChatView) SetTranscript(text string) {
	cv.transcript = text
	cv.render()
}

// SetSources lists the web results the last reply was based on.
func (cv *ChatView) SetSources(query string, results []rpc.SearchResult) {
	cv.query, cv.sources = query, results
	cv.render()
}

func (cv *ChatView) render() {
	cv.messages.Clear()
	title := "New conversation"
	if cv.conv != nil && cv.conv.Title != "" {
		title = sanitizeForTerminal(cv.conv.Title)
	}
	if cv.conv != nil && cv.conv.Favorite {
		title = "★ " + title
	}
	cv.messages.SetTitle(" " + tview.Escape(truncate(title, 60)) + " ")

	_, _, width, _ := cv.messages.GetInnerRect()
	if width <= 0 {
		width = 80
	}

	var sb strings.Builder
	if cv.conv == nil || len(cv.conv.Messages) == 0 {
		fmt.Fprintf(&sb, "\n [%s]Hi! Ask me anything, or press F2 to talk.[-]\n",
			ui.ColorName(cv.theme.AssistantColor))
	} else {
		for _, m := range cv.conv.Messages {
			cv.writeMessage(&sb, m, width)
		}
	}
	if cv.query != "" && len(cv.sources) > 0 {
		fmt.Fprintf(&sb, " [::d]Sources for %q:[-:-:-]\n", tview.Escape(cv.query))
		for _, r := range cv.sources {
			fmt.Fprintf(&sb, " [::d]• %s  %s[-:-:-]\n",
				tview.Escape(truncate(sanitizeForTerminal(r.Title), 50)), tview.Escape(r.URL))
		}
		sb.WriteString("\n")
	}
	if cv.pending {
		fmt.Fprintf(&sb, " [%s::i]%s is thinking…[-:-:-]\n", ui.ColorName(cv.theme.AssistantColor), AssistantName)
	}
	if cv.transcript != "" {
		fmt.Fprintf(&sb, " [%s::i]🎤 %s[-:-:-]\n", ui.ColorName(cv.theme.UserColor), tview.Escape(sanitizeForTerminal(cv.transcript)))
	}
	_, _ = fmt.Fprint(cv.messages, sb.String())
	cv.messages.ScrollToEnd()
}

func (cv *ChatView) writeMessage(sb *strings.Builder, m rpc.Message, width int) {
	content := sanitizeForTerminal(m.Content)
	if m.Role == history.RoleUser {
		fmt.Fprintf(sb, " [%s::b]You[-:-:-] [::d]%s[-:-:-]\n %s\n\n",
			ui.ColorName(cv.theme.UserColor), clockTime(m.Timestamp), tview.Escape(content))
		return
	}
	fmt.Fprintf(sb, " [%s::b]%s[-:-:-] [::d]%s[-:-:-]\n%s\n\n",
		ui.ColorName(cv.theme.AssistantColor), AssistantName, clockTime(m.Timestamp),
		cv.md.Render(content, width-2))
}

// Messages returns the transcript view (for focus management).
func (cv *ChatView) Messages() *tview.TextView {
	return cv.messages
}

// Composer returns the composer input field (for focus management).
func (cv *ChatView) Composer() *tview.InputField {
	return cv.composer
}
