package views

import (
	"fmt"
	"strings"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/matheus3301/charly/internal/history"
	"github.com/matheus3301/charly/internal/rpc"
	"github.com/matheus3301/charly/internal/tui/ui"
	"github.com/rivo/tview"
)

// Filters cycles through the history tabs in order.
var Filters = []history.Filter{
	history.FilterAll,
	history.FilterToday,
	history.FilterWeek,
	history.FilterFavorites,
}

// NextFilter returns the tab after f.
func NextFilter(f history.Filter) history.Filter {
	for i, x := range Filters {
		if x == f {
			return Filters[(i+1)%len(Filters)]
		}
	}
	return history.FilterAll
}

// HistoryView lists past conversations grouped by day.
type HistoryView struct {
	*tview.Table
	theme  *ui.Theme
	now    func() time.Time
	convs  []rpc.Conversation
	rows   map[int]string // table row -> conversation id
	filter history.Filter
	query  string
}

// NewHistoryView creates the history table.
func NewHistoryView(theme *ui.Theme) *HistoryView {
	table := tview.NewTable().
		SetSelectable(true, false).
		SetBorders(false)
	table.SetBorder(true)
	table.SetBorderColor(theme.BorderColor)
	table.SetBackgroundColor(theme.BgColor)
	table.SetSelectedStyle(tcell.StyleDefault.
		Foreground(theme.TableCursorFg).
		Background(theme.TableCursorBg))
	table.SetTitleColor(theme.TitleColor)

	hv := &HistoryView{
		Table:  table,
		theme:  theme,
		now:    time.Now,
		rows:   make(map[int]string),
		filter: history.FilterAll,
	}
	hv.render()
	return hv
}

// Name implements ui.Page.
func (hv *HistoryView) Name() string { return "history" }

// Hints implements ui.Page.
func (hv *HistoryView) Hints() []ui.MenuHint {
	return []ui.MenuHint{
		{Key: "Enter", Description: "Open conversation"},
	}
}

// Filter returns the active tab.
func (hv *HistoryView) Filter() history.Filter { return hv.filter }

// Query returns the active search text.
func (hv *HistoryView) Query() string { return hv.query }

// SetFilter switches tabs. The caller reloads the list.
func (hv *HistoryView) SetFilter(f history.Filter) {
	hv.filter = f
	hv.render()
}

// SetQuery sets the search text. The caller reloads the list.
func (hv *HistoryView) SetQuery(q string) {
	hv.query = strings.TrimSpace(q)
	hv.render()
}

// Update replaces the listed conversations, keeping the selection when the
// selected conversation is still present.
func (hv *HistoryView) Update(convs []rpc.Conversation) {
	selected := hv.Selected()
	hv.convs = convs
	hv.render()
	if selected == "" {
		return
	}
	for row, id := range hv.rows {
		if id == selected {
			hv.Select(row, 0)
			return
		}
	}
}

// Selected returns the id of the highlighted conversation.
func (hv *HistoryView) Selected() string {
	row, _ := hv.GetSelection()
	return hv.rows[row]
}

// Conversation returns the listed conversation with the given id.
func (hv *HistoryView) Conversation(id string) *rpc.Conversation {
	for i := range hv.convs {
		if hv.convs[i].ID == id {
			return &hv.convs[i]
		}
	}
	return nil
}

func (hv *HistoryView) render() {
	hv.Clear()
	hv.rows = make(map[int]string)
	hv.SetTitle(hv.title())

	if len(hv.convs) == 0 {
		msg := "No conversations yet"
		if hv.query != "" || hv.filter != history.FilterAll {
			msg = "Nothing matches"
		}
		hv.SetCell(0, 0, tview.NewTableCell(" "+msg).
			SetSelectable(false).
			SetTextColor(hv.theme.FgColor).
			SetAttributes(tcell.AttrDim))
		return
	}

	now := hv.now()
	row := 0
	label := ""
	for _, c := range hv.convs {
		if l := history.DayLabel(time.UnixMilli(updated(c)), now); l != label {
			label = l
			hv.SetCell(row, 0, tview.NewTableCell(" "+label).
				SetSelectable(false).
				SetTextColor(hv.theme.TableHeaderFg).
				SetBackgroundColor(hv.theme.TableHeaderBg).
				SetAttributes(tcell.AttrBold))
			hv.SetCell(row, 1, tview.NewTableCell("").SetSelectable(false))
			hv.SetCell(row, 2, tview.NewTableCell("").SetSelectable(false))
			hv.SetCell(row, 3, tview.NewTableCell("").SetSelectable(false))
			row++
		}

		star := " "
		if c.Favorite {
			star = "★"
		}
		source := ""
		if c.Source == string(history.SourceServer) {
			source = "☁"
		}
		title := c.Title
		if title == "" {
			title = "Untitled"
		}
		hv.SetCell(row, 0, tview.NewTableCell("  "+star).SetTextColor(hv.theme.FavoriteColor))
		hv.SetCell(row, 1, tview.NewTableCell(tview.Escape(truncate(sanitizeForTerminal(title), 60))).
			SetExpansion(1).
			SetTextColor(hv.theme.FgColor))
		hv.SetCell(row, 2, tview.NewTableCell(fmt.Sprintf("%d msgs", len(c.Messages))).
			SetTextColor(hv.theme.CounterColor).
			SetAlign(tview.AlignRight))
		hv.SetCell(row, 3, tview.NewTableCell(source+" "+relativeTime(updated(c), now)+" ").
			SetTextColor(hv.theme.FgColor).
			SetAlign(tview.AlignRight))
		hv.rows[row] = c.ID
		row++
	}
	if _, ok := hv.rows[1]; ok {
		hv.Select(1, 0)
	}
}

func (hv *HistoryView) title() string {
	var tabs []string
	for _, f := range Filters {
		name := string(f)
		if f == hv.filter {
			name = fmt.Sprintf("[%s::b]%s[-:-:-]", ui.ColorName(hv.theme.CrumbActiveBg), name)
		}
		tabs = append(tabs, name)
	}
	t := fmt.Sprintf(" History (%d) %s ", len(hv.convs), strings.Join(tabs, " | "))
	if hv.query != "" {
		t += fmt.Sprintf("search: %s ", tview.Escape(hv.query))
	}
	return t
}

func updated(c rpc.Conversation) int64 {
	if c.UpdatedAt != 0 {
		return c.UpdatedAt
	}
	return c.CreatedAt
}
