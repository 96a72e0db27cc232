package ui

import "github.com/rivo/tview"

// MenuHint is one key and what it does, as shown in the header menu and on
// the help page.
type MenuHint struct {
	Key         string
	Description string
}

// Page is one screen of the assistant: chat, history, details, login or help.
// Hints lists the keys the page's own widgets handle (Enter in the composer,
// Esc on the login form); bound actions come from the key registry.
type Page interface {
	tview.Primitive
	Name() string
	Hints() []MenuHint
}
