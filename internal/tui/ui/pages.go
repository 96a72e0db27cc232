package ui

import "github.com/rivo/tview"

// Pages stacks the assistant's screens. The chat page sits at the bottom;
// history, details and help are pushed over it and Esc pops back. The login
// page replaces the stack when the account needs credentials.
type Pages struct {
	*tview.Pages
	screens  map[string]Page
	stack    []string
	onChange func(stack []string)
}

// NewPages creates an empty page stack.
func NewPages() *Pages {
	return &Pages{
		Pages:   tview.NewPages(),
		screens: make(map[string]Page),
	}
}

// Add registers a screen under its own name, hidden until pushed.
func (p *Pages) Add(page Page) {
	p.screens[page.Name()] = page
	p.AddPage(page.Name(), page, true, false)
}

// SetOnChange sets a callback fired with the new stack after every move.
func (p *Pages) SetOnChange(fn func(stack []string)) {
	p.onChange = fn
}

// Push shows name over the current screen, e.g. history over chat.
func (p *Pages) Push(name string) {
	if top := p.Current(); top != "" {
		p.HidePage(top)
	}
	p.stack = append(p.stack, name)
	p.show(name)
}

// Pop leaves the top screen and returns its name. The last screen is never
// popped, so chat stays reachable; Pop returns "" then.
func (p *Pages) Pop() string {
	if len(p.stack) < 2 {
		return ""
	}
	top := p.stack[len(p.stack)-1]
	p.HidePage(top)
	p.stack = p.stack[:len(p.stack)-1]
	p.show(p.Current())
	return top
}

// Current returns the visible screen.
func (p *Pages) Current() string {
	if len(p.stack) == 0 {
		return ""
	}
	return p.stack[len(p.stack)-1]
}

// Stack returns the screens from bottom to top.
func (p *Pages) Stack() []string {
	return append([]string(nil), p.stack...)
}

// Depth returns the number of stacked screens.
func (p *Pages) Depth() int {
	return len(p.stack)
}

// Reset drops the stack and shows only name; used to land on chat after a
// conversation is opened or on login when the session expires.
func (p *Pages) Reset(name string) {
	for _, n := range p.stack {
		p.HidePage(n)
	}
	p.stack = []string{name}
	p.show(name)
}

// Hints returns the widget keys of the visible screen.
func (p *Pages) Hints() []MenuHint {
	if page, ok := p.screens[p.Current()]; ok {
		return page.Hints()
	}
	return nil
}

func (p *Pages) show(name string) {
	p.ShowPage(name)
	p.SendToFront(name)
	if p.onChange != nil {
		p.onChange(p.Stack())
	}
}
