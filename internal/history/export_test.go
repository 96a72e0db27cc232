package history

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleConversation() *Conversation {
	created := time.Date(2026, 3, 10, 9, 30, 0, 0, time.Local).UnixMilli()
	return &Conversation{
		ID:        "local-1",
		Title:     "Reset my password!",
		CreatedAt: created,
		UpdatedAt: created,
		Source:    SourceLocal,
		Messages: []Message{
			{Role: RoleUser, Content: "How do I reset my password?", Timestamp: created},
			{Role: RoleAssistant, Content: "Open the account page.", Timestamp: created},
		},
	}
}

func TestExportText(t *testing.T) {
	out := ExportText(sampleConversation())

	assert.True(t, strings.HasPrefix(out, "Reset my password!\n"))
	assert.Contains(t, out, "[09:30:00] You:\nHow do I reset my password?")
	assert.Contains(t, out, "[09:30:00] Charly:\nOpen the account page.")
}

func TestExportJSON(t *testing.T) {
	data, err := Export(sampleConversation(), FormatJSON)
	require.NoError(t, err)

	var doc struct {
		ExportedAt string    `json:"exported_at"`
		ID         string    `json:"id"`
		Messages   []Message `json:"messages"`
	}
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, "local-1", doc.ID)
	assert.Len(t, doc.Messages, 2)
	assert.NotEmpty(t, doc.ExportedAt)
}

func TestExportUnknownFormat(t *testing.T) {
	_, err := Export(sampleConversation(), Format("pdf"))
	assert.Error(t, err)

	_, err = ParseFormat("pdf")
	assert.Error(t, err)
	f, err := ParseFormat("TXT")
	require.NoError(t, err)
	assert.Equal(t, FormatText, f)
}

func TestFilename(t *testing.T) {
	assert.Equal(t, "charly-2026-03-10-reset-my-password.txt", Filename(sampleConversation(), FormatText))
	assert.Equal(t, "charly-undated-conversation.json", Filename(&Conversation{Title: "!!!"}, FormatJSON))
}
