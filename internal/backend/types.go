package backend

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// HistoryMessage is one prior turn sent as conversation context.
type HistoryMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// MessageRequest is the body of POST /chatbot/message.
type MessageRequest struct {
	Question            string           `json:"question"`
	ConversationHistory []HistoryMessage `json:"conversation_history"`
	DeviceIdentifier    string           `json:"device_identifier"`
	UseContext          bool             `json:"use_context"`
	EnableWebSearch     bool             `json:"enable_web_search"`
}

// SearchResult is one web result the backend consulted.
type SearchResult struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

// SearchResults lists the web results attached to a reply.
type SearchResults struct {
	Query   string         `json:"query"`
	Results []SearchResult `json:"results"`
}

// MessageResponse is the reply of POST /chatbot/message.
type MessageResponse struct {
	Response             string         `json:"response"`
	ContextUsed          bool           `json:"context_used"`
	ContextMessagesCount int            `json:"context_messages_count"`
	Authenticated        bool           `json:"authenticated"`
	ConversationID       ID             `json:"conversation_id,omitempty"`
	SearchResults        *SearchResults `json:"search_results,omitempty"`
}

// User is the signed-in account.
type User struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	DeviceName string `json:"device_name"`
}

// LoginResponse is the reply of POST /auth/login.
type LoginResponse struct {
	Success bool   `json:"success"`
	Token   string `json:"token"`
	User    User   `json:"user"`
	Message string `json:"message,omitempty"`
}

// Conversation is a server-side question/answer exchange.
type Conversation struct {
	ID         ID     `json:"id"`
	Question   string `json:"question"`
	Response   string `json:"response"`
	IsFavorite bool   `json:"is_favorite"`
	CreatedAt  string `json:"created_at"`
	UpdatedAt  string `json:"updated_at,omitempty"`
}

// HistoryResponse is the reply of GET /chatbot/history.
type HistoryResponse struct {
	Success       bool           `json:"success"`
	Conversations []Conversation `json:"conversations"`
}

// FavoriteResponse is the reply of PATCH /chatbot/conversations/{id}/favorite.
type FavoriteResponse struct {
	Success    bool `json:"success"`
	IsFavorite bool `json:"is_favorite"`
}

// ID is a server identifier that may be encoded as a JSON number or string.
type ID string

func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id: %w", err)
	}
	*id = ID(n.String())
	return nil
}

func (id ID) MarshalJSON() ([]byte, error) {
	if _, err := strconv.ParseInt(string(id), 10, 64); err == nil {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// ParseTime parses the timestamp formats the backend emits. The zero time is
// returned for empty or unparseable input.
func ParseTime(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
