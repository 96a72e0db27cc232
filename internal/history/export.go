package history

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Format is an export format.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// ParseFormat accepts "text", "txt" and "json".
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "text", "txt":
		return FormatText, nil
	case "json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("unknown export format %q (want text or json)", s)
	}
}

// Ext is the file extension for the format.
func (f Format) Ext() string {
	if f == FormatJSON {
		return "json"
	}
	return "txt"
}

// Export formats a conversation.
func Export(c *Conversation, f Format) ([]byte, error) {
	switch f {
	case FormatJSON:
		return ExportJSON(c)
	case FormatText, "":
		return []byte(ExportText(c)), nil
	default:
		return nil, fmt.Errorf("unknown export format %q", f)
	}
}

// ExportText renders a conversation as a readable transcript.
func ExportText(c *Conversation) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", c.DisplayTitle())
	if c.CreatedAt > 0 {
		fmt.Fprintf(&b, "Started: %s\n", c.Created().Format(time.DateTime))
	}
	b.WriteString(strings.Repeat("=", 40))
	b.WriteString("\n")
	for _, m := range c.Messages {
		who := "You"
		if m.Role == RoleAssistant {
			who = "Charly"
		}
		if m.Timestamp > 0 {
			fmt.Fprintf(&b, "\n[%s] %s:\n", time.UnixMilli(m.Timestamp).Format(time.TimeOnly), who)
		} else {
			fmt.Fprintf(&b, "\n%s:\n", who)
		}
		b.WriteString(m.Content)
		b.WriteString("\n")
	}
	return b.String()
}

type exportDoc struct {
	ExportedAt string `json:"exported_at"`
	*Conversation
}

// ExportJSON renders the conversation as indented JSON.
func ExportJSON(c *Conversation) ([]byte, error) {
	data, err := json.MarshalIndent(exportDoc{
		ExportedAt:   time.Now().UTC().Format(time.RFC3339),
		Conversation: c,
	}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal conversation: %w", err)
	}
	return append(data, '\n'), nil
}

var unsafeName = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)

// Filename suggests a file name for an exported conversation.
func Filename(c *Conversation, f Format) string {
	title := strings.Trim(unsafeName.ReplaceAllString(strings.ToLower(c.DisplayTitle()), "-"), "-")
	if len(title) > 40 {
		title = strings.Trim(title[:40], "-")
	}
	if title == "" {
		title = "conversation"
	}
	day := "undated"
	if c.CreatedAt > 0 {
		day = c.Created().Format("2006-01-02")
	}
	return fmt.Sprintf("charly-%s-%s.%s", day, title, f.Ext())
}
