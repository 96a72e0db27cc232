package rpc

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Empty is used by methods without arguments or results.
type Empty struct{}

// Event is one bus event forwarded to a Watch stream.
type Event struct {
	ID               string          `json:"id"`
	Profile          string          `json:"profile"`
	Kind             string          `json:"kind"`
	OccurredAtUnixMs int64           `json:"occurred_at_unix_ms"`
	Payload          json.RawMessage `json:"payload,omitempty"`
}

// NewEvent encodes a bus payload into an Event.
func NewEvent(profile, kind string, at time.Time, payload any) (*Event, error) {
	var raw json.RawMessage
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode %s payload: %w", kind, err)
		}
		raw = data
	}
	return &Event{
		ID:               uuid.NewString(),
		Profile:          profile,
		Kind:             kind,
		OccurredAtUnixMs: at.UnixMilli(),
		Payload:          raw,
	}, nil
}

// Decode unmarshals the payload into v.
func (e *Event) Decode(v any) error {
	if len(e.Payload) == 0 {
		return fmt.Errorf("event %s has no payload", e.Kind)
	}
	return json.Unmarshal(e.Payload, v)
}

// WatchRequest opens an event stream.
type WatchRequest struct{}

// User is the signed-in account.
type User struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// StatusRequest asks for the daemon status.
type StatusRequest struct{}

// StatusResponse describes the daemon and its account.
type StatusResponse struct {
	Profile       string     `json:"profile"`
	Status        string     `json:"status"`
	User          *User      `json:"user,omitempty"`
	APIURL        string     `json:"api_url"`
	AccountURL    string     `json:"account_url"`
	PID           int        `json:"pid"`
	UptimeMs      int64      `json:"uptime_ms"`
	Conversations int        `json:"conversations"`
	Messages      int        `json:"messages"`
	LastSync      *SyncInfo  `json:"last_sync,omitempty"`
	Voice         VoiceState `json:"voice"`
	Animation     Frame      `json:"animation"`
}

// LoginRequest carries credentials.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse returns the account.
type LoginResponse struct {
	User User `json:"user"`
}

// LogoutResponse confirms the logout.
type LogoutResponse struct {
	Message string `json:"message"`
}

// Message is one conversation turn.
type Message struct {
	Role      string `json:"role"`
	Content   string `json:"content"`
	Timestamp int64  `json:"timestamp,omitempty"`
}

// Conversation is a full conversation.
type Conversation struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Messages  []Message `json:"messages,omitempty"`
	CreatedAt int64     `json:"created_at"`
	UpdatedAt int64     `json:"updated_at"`
	Favorite  bool      `json:"favorite"`
	Source    string    `json:"source"`
}

// SearchResult is a web result attached to a reply.
type SearchResult struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet,omitempty"`
}

// SendRequest asks a question.
type SendRequest struct {
	Text string `json:"text"`
}

// SendResponse carries the reply, or the friendly failure message.
type SendResponse struct {
	ConversationID string         `json:"conversation_id"`
	Message        Message        `json:"message"`
	Mood           string         `json:"mood"`
	Failed         bool           `json:"failed"`
	Ignored        bool           `json:"ignored,omitempty"`
	ContextUsed    bool           `json:"context_used"`
	ContextCount   int            `json:"context_count"`
	Authenticated  bool           `json:"authenticated"`
	SearchQuery    string         `json:"search_query,omitempty"`
	SearchResults  []SearchResult `json:"search_results,omitempty"`
}

// ConversationResponse wraps one conversation.
type ConversationResponse struct {
	Conversation Conversation `json:"conversation"`
}

// Preferences are the chat toggles.
type Preferences struct {
	MemoryEnabled bool `json:"memory_enabled"`
	AutoRead      bool `json:"auto_read"`
}

// SetPreferencesRequest changes the toggles that are set.
type SetPreferencesRequest struct {
	MemoryEnabled *bool `json:"memory_enabled,omitempty"`
	AutoRead      *bool `json:"auto_read,omitempty"`
}

// ListRequest filters the history.
type ListRequest struct {
	Filter string `json:"filter,omitempty"`
	Query  string `json:"query,omitempty"`
}

// ListResponse lists conversations, most recent first.
type ListResponse struct {
	Conversations []Conversation `json:"conversations"`
}

// IDRequest names a conversation.
type IDRequest struct {
	ID string `json:"id"`
}

// DeleteResponse confirms a deletion.
type DeleteResponse struct {
	Deleted bool `json:"deleted"`
}

// FavoriteResponse returns the new favorite flag.
type FavoriteResponse struct {
	Favorite bool `json:"favorite"`
}

// ExportRequest selects a conversation and a format (text or json).
type ExportRequest struct {
	ID     string `json:"id"`
	Format string `json:"format"`
}

// ExportResponse carries the rendered conversation.
type ExportResponse struct {
	Filename string `json:"filename"`
	Content  string `json:"content"`
}

// SyncInfo summarises a history sync.
type SyncInfo struct {
	Conversations int   `json:"conversations"`
	Server        int   `json:"server"`
	AtUnixMs      int64 `json:"at_unix_ms"`
}

// Frame is the mascot's visible state.
type Frame struct {
	State     string `json:"state"`
	Animation string `json:"animation"`
	Playing   bool   `json:"playing"`
	Step      int    `json:"step"`
}

// PlayRequest starts a named sequence.
type PlayRequest struct {
	Name string `json:"name"`
}

// Trigger actions.
const (
	TriggerGreet   = "greet"
	TriggerThink   = "think"
	TriggerProcess = "process"
	TriggerRespond = "respond"
	TriggerIdle    = "idle"
	TriggerStop    = "stop"
)

// TriggerRequest fires a sequencer trigger; Text feeds "respond".
type TriggerRequest struct {
	Action string `json:"action"`
	Text   string `json:"text,omitempty"`
}

// FlashRequest shows a single state animation.
type FlashRequest struct {
	State  string `json:"state"`
	HoldMs int64  `json:"hold_ms,omitempty"`
}

// Step is one step of a sequence.
type Step struct {
	Animation  string `json:"animation"`
	DurationMs int64  `json:"duration_ms"`
}

// SequencesResponse lists the effective sequences.
type SequencesResponse struct {
	Sequences map[string][]Step `json:"sequences"`
	Missing   []string          `json:"missing,omitempty"`
}

// VoiceState mirrors the voice coordinator.
type VoiceState struct {
	Mode       string `json:"mode"`
	Listening  bool   `json:"listening"`
	Muted      bool   `json:"muted"`
	Speaking   bool   `json:"speaking"`
	AutoActive bool   `json:"auto_active"`
	PushDown   bool   `json:"push_down"`
	Transcript string `json:"transcript,omitempty"`
	Backend    string `json:"backend,omitempty"`
}

// ModeRequest changes the voice activation mode.
type ModeRequest struct {
	Mode string `json:"mode"`
}

// Voice control actions.
const (
	VoiceToggle       = "toggle"
	VoiceStart        = "start"
	VoiceStop         = "stop"
	VoicePushStart    = "push_start"
	VoicePushEnd      = "push_end"
	VoiceStopSpeaking = "stop_speaking"
)

// ControlRequest drives the microphone.
type ControlRequest struct {
	Action string `json:"action"`
}

// SpeakRequest reads text aloud.
type SpeakRequest struct {
	Text string `json:"text"`
}

// SpeakResponse reports whether anything is spoken.
type SpeakResponse struct {
	Spoken bool `json:"spoken"`
}
