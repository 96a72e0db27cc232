package history

import (
	"strings"
	"time"
)

// Filter selects conversations by age or favorite flag.
type Filter string

const (
	FilterAll       Filter = "all"
	FilterToday     Filter = "today"
	FilterWeek      Filter = "week"
	FilterFavorites Filter = "favorites"
)

// ParseFilter maps a name to a Filter, defaulting to FilterAll.
func ParseFilter(s string) Filter {
	switch Filter(strings.ToLower(strings.TrimSpace(s))) {
	case FilterToday:
		return FilterToday
	case FilterWeek:
		return FilterWeek
	case FilterFavorites:
		return FilterFavorites
	default:
		return FilterAll
	}
}

// Apply returns the conversations matching f, keeping their order.
// Today means since local midnight; week means the last seven days.
func (f Filter) Apply(convs []*Conversation, now time.Time) []*Conversation {
	if f == FilterAll || f == "" {
		return convs
	}
	midnight := startOfDay(now)
	weekAgo := now.AddDate(0, 0, -7)

	var out []*Conversation
	for _, c := range convs {
		t := c.Updated()
		switch f {
		case FilterToday:
			if !t.Before(midnight) {
				out = append(out, c)
			}
		case FilterWeek:
			if !t.Before(weekAgo) {
				out = append(out, c)
			}
		case FilterFavorites:
			if c.Favorite {
				out = append(out, c)
			}
		}
	}
	return out
}

// Search returns conversations whose title or any message contains query,
// ignoring case. An empty query matches everything.
func Search(convs []*Conversation, query string) []*Conversation {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return convs
	}
	var out []*Conversation
	for _, c := range convs {
		if matches(c, q) {
			out = append(out, c)
		}
	}
	return out
}

func matches(c *Conversation, q string) bool {
	if strings.Contains(strings.ToLower(c.DisplayTitle()), q) {
		return true
	}
	for _, m := range c.Messages {
		if strings.Contains(strings.ToLower(m.Content), q) {
			return true
		}
	}
	return false
}

// DayGroup is a run of conversations updated on the same calendar day.
type DayGroup struct {
	Label         string
	Day           time.Time
	Conversations []*Conversation
}

// GroupByDay groups conversations (assumed sorted newest first) by the local
// day of their last update.
func GroupByDay(convs []*Conversation, now time.Time) []DayGroup {
	var groups []DayGroup
	for _, c := range convs {
		day := startOfDay(c.Updated().In(now.Location()))
		if n := len(groups); n > 0 && groups[n-1].Day.Equal(day) {
			groups[n-1].Conversations = append(groups[n-1].Conversations, c)
			continue
		}
		groups = append(groups, DayGroup{
			Label:         DayLabel(day, now),
			Day:           day,
			Conversations: []*Conversation{c},
		})
	}
	return groups
}

// DayLabel renders "Today", "Yesterday" or a day like "2 January".
// Days outside the current year carry the year.
func DayLabel(day, now time.Time) string {
	today := startOfDay(now)
	day = startOfDay(day.In(now.Location()))
	switch {
	case day.Equal(today):
		return "Today"
	case day.Equal(today.AddDate(0, 0, -1)):
		return "Yesterday"
	case day.Year() != now.Year():
		return day.Format("2 January 2006")
	default:
		return day.Format("2 January")
	}
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
