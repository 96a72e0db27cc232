package history

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-runewidth"
)

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Source tells where a conversation came from.
type Source string

const (
	SourceLocal  Source = "local"
	SourceServer Source = "server"
)

// Message is one turn of a conversation. Timestamp is Unix milliseconds, 0 if unknown.
type Message struct {
	Role      string `json:"role"`
	Content   string `json:"content"`
	Timestamp int64  `json:"timestamp,omitempty"`
}

// Conversation is an ordered list of messages. Timestamps are Unix milliseconds.
type Conversation struct {
	ID        string    `json:"id"`
	Title     string    `json:"title,omitempty"`
	Messages  []Message `json:"messages"`
	CreatedAt int64     `json:"created_at"`
	UpdatedAt int64     `json:"updated_at"`
	Favorite  bool      `json:"favorite"`
	Source    Source    `json:"source"`
}

// NewLocalID returns a fresh id for a locally created conversation.
func NewLocalID() string {
	return "local-" + uuid.NewString()
}

// Clone returns a deep copy.
func (c *Conversation) Clone() *Conversation {
	if c == nil {
		return nil
	}
	out := *c
	out.Messages = append([]Message(nil), c.Messages...)
	return &out
}

// Last returns up to n of the newest messages, oldest first. n <= 0 returns all.
func (c *Conversation) Last(n int) []Message {
	msgs := c.Messages
	if n > 0 && len(msgs) > n {
		msgs = msgs[len(msgs)-n:]
	}
	return append([]Message(nil), msgs...)
}

// Trim drops the oldest messages so at most max remain. Reports whether
// anything was dropped.
func (c *Conversation) Trim(max int) bool {
	if max <= 0 || len(c.Messages) <= max {
		return false
	}
	c.Messages = append([]Message(nil), c.Messages[len(c.Messages)-max:]...)
	return true
}

// DisplayTitle returns the title, or the first user message shortened.
func (c *Conversation) DisplayTitle() string {
	if c.Title != "" {
		return c.Title
	}
	for _, m := range c.Messages {
		if m.Role == RoleUser {
			return Truncate(m.Content, 50)
		}
	}
	return "New conversation"
}

// Preview returns the last message shortened for list views.
func (c *Conversation) Preview(width int) string {
	if len(c.Messages) == 0 {
		return ""
	}
	return Truncate(c.Messages[len(c.Messages)-1].Content, width)
}

// Created returns CreatedAt as a time.
func (c *Conversation) Created() time.Time { return time.UnixMilli(c.CreatedAt) }

// Updated returns UpdatedAt as a time.
func (c *Conversation) Updated() time.Time { return time.UnixMilli(c.UpdatedAt) }

// Truncate collapses whitespace and cuts s to width display cells, adding "..."
// when it was shortened.
func Truncate(s string, width int) string {
	s = strings.Join(strings.Fields(s), " ")
	if runewidth.StringWidth(s) <= width {
		return s
	}
	return runewidth.Truncate(s, width, "...")
}
