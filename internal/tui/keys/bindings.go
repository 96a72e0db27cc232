// Package keys maps key events to named actions, globally or per page.
package keys

import "github.com/gdamore/tcell/v2"

// Action represents a keybinding action.
type Action struct {
	Key         tcell.Key
	Rune        rune
	Label       string // shown in the menu, e.g. "Ctrl+S"
	Description string
	Handler     func()
	Visible     bool
}

// Matches returns true if the event matches this action. Rune bindings
// ignore modifiers other than Shift.
func (a *Action) Matches(ev *tcell.EventKey) bool {
	if a.Key != tcell.KeyRune {
		return ev.Key() == a.Key
	}
	if ev.Modifiers()&(tcell.ModCtrl|tcell.ModAlt) != 0 {
		return false
	}
	return ev.Key() == tcell.KeyRune && ev.Rune() == a.Rune
}

// Hint is a visible binding for the menu.
type Hint struct {
	Key         string
	Description string
}

type entry struct {
	name   string
	action *Action
}

// Registry holds keybindings organized by scope, in registration order.
type Registry struct {
	global []entry
	views  map[string][]entry
}

// NewRegistry creates a new keybinding registry.
func NewRegistry() *Registry {
	return &Registry{views: make(map[string][]entry)}
}

// AddGlobal registers a global keybinding. Re-registering a name replaces it.
func (r *Registry) AddGlobal(name string, action *Action) {
	r.global = upsert(r.global, name, action)
}

// AddView registers a view-specific keybinding.
func (r *Registry) AddView(view, name string, action *Action) {
	r.views[view] = upsert(r.views[view], name, action)
}

func upsert(list []entry, name string, action *Action) []entry {
	for i, e := range list {
		if e.name == name {
			list[i].action = action
			return list
		}
	}
	return append(list, entry{name: name, action: action})
}

// Hints returns the visible bindings for a view, view bindings first.
func (r *Registry) Hints(view string) []Hint {
	var hints []Hint
	for _, list := range [][]entry{r.views[view], r.global} {
		for _, e := range list {
			if e.action.Visible {
				hints = append(hints, Hint{Key: e.action.Label, Description: e.action.Description})
			}
		}
	}
	return hints
}

// HandleEvent dispatches a key event to the matching action in the given view.
// Returns true if a handler matched.
func (r *Registry) HandleEvent(view string, ev *tcell.EventKey) bool {
	for _, list := range [][]entry{r.views[view], r.global} {
		for _, e := range list {
			if e.action.Matches(ev) {
				e.action.Handler()
				return true
			}
		}
	}
	return false
}
