// Package assistant runs one chat exchange: it records the question, asks
// the backend, reacts with the mascot and reads the answer aloud.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/matheus3301/charly/internal/animation"
	"github.com/matheus3301/charly/internal/backend"
	"github.com/matheus3301/charly/internal/bus"
	"github.com/matheus3301/charly/internal/history"
	"go.uber.org/zap"
)

// Clarification answers questions too short to send.
const Clarification = "Could you tell me a little more about what you need?"

// Defaults.
const (
	DefaultContextSize = 300
	ConfusedHold       = 3 * time.Second
	MoodHold           = 4 * time.Second
)

// Animator reacts to the exchange.
type Animator interface {
	Process()
	RespondWith(text string) string
	Flash(state string, hold time.Duration)
}

// Sender posts questions to the backend.
type Sender interface {
	SendMessage(ctx context.Context, req backend.MessageRequest) (*backend.MessageResponse, error)
}

// Session provides the device identifier and observes call outcomes.
type Session interface {
	DeviceID() (string, error)
	Observe(err error)
}

// Prefs are the user's chat toggles.
type Prefs interface {
	MemoryEnabled() bool
	AutoRead() bool
}

// Speaker reads replies aloud.
type Speaker interface {
	Speak(text string) bool
}

// Options configures an Assistant.
type Options struct {
	WebSearch   bool
	ContextSize int
}

// Event is the payload of chat.message and chat.failed.
type Event struct {
	ConversationID string                 `json:"conversation_id"`
	Message        history.Message        `json:"message"`
	Mood           string                 `json:"mood,omitempty"`
	Search         *backend.SearchResults `json:"search,omitempty"`
}

// Reply is the outcome of Send.
type Reply struct {
	ConversationID string
	Message        history.Message
	Mood           string
	Failed         bool
	ContextUsed    bool
	ContextCount   int
	Authenticated  bool
	Search         *backend.SearchResults
}

// Assistant serialises exchanges; one question is in flight at a time.
type Assistant struct {
	history *history.Manager
	sender  Sender
	session Session
	prefs   Prefs
	anim    Animator
	speaker Speaker
	bus     *bus.Bus
	logger  *zap.Logger
	opts    Options

	mu sync.Mutex
}

// New creates an assistant. speaker may be nil.
func New(h *history.Manager, sender Sender, session Session, prefs Prefs, anim Animator, speaker Speaker, b *bus.Bus, logger *zap.Logger, opts Options) *Assistant {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.ContextSize <= 0 {
		opts.ContextSize = DefaultContextSize
	}
	return &Assistant{
		history: h,
		sender:  sender,
		session: session,
		prefs:   prefs,
		anim:    anim,
		speaker: speaker,
		bus:     b,
		logger:  logger,
		opts:    opts,
	}
}

// Send runs one exchange. Empty input returns (nil, nil). Backend failures
// are not returned as errors: the reply carries a friendly message and
// Failed is set. Errors are reserved for local persistence problems.
func (a *Assistant) Send(ctx context.Context, text string) (*Reply, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if utf8.RuneCountInString(text) < 2 {
		msg := history.Message{Role: history.RoleAssistant, Content: Clarification, Timestamp: time.Now().UnixMilli()}
		a.anim.Flash(animation.Confused, ConfusedHold)
		a.bus.Emit(bus.KindChatFailed, Event{ConversationID: a.history.Current().ID, Message: msg, Mood: animation.Confused})
		return &Reply{ConversationID: a.history.Current().ID, Message: msg, Mood: animation.Confused, Failed: true}, nil
	}

	device, err := a.session.DeviceID()
	if err != nil {
		return nil, fmt.Errorf("device identifier: %w", err)
	}

	conv, err := a.history.Append(history.Message{Role: history.RoleUser, Content: text})
	if err != nil {
		return nil, fmt.Errorf("record question: %w", err)
	}
	question := conv.Messages[len(conv.Messages)-1]
	a.bus.Emit(bus.KindChatMessage, Event{ConversationID: conv.ID, Message: question})
	a.anim.Process()

	started := time.Now()
	resp, err := a.sender.SendMessage(ctx, a.request(text, device, conv))
	a.session.Observe(err)
	if err != nil {
		return a.fail(conv.ID, err), nil
	}
	a.logger.Info("reply received",
		zap.String("conversation_id", conv.ID),
		zap.Duration("elapsed", time.Since(started)),
		zap.Bool("context_used", resp.ContextUsed),
		zap.Int("context_messages", resp.ContextMessagesCount),
	)

	mood := a.anim.RespondWith(resp.Response)
	answer := history.Message{Role: history.RoleAssistant, Content: resp.Response, Timestamp: time.Now().UnixMilli()}
	reply := &Reply{
		ConversationID: conv.ID,
		Message:        answer,
		Mood:           mood,
		ContextUsed:    resp.ContextUsed,
		ContextCount:   resp.ContextMessagesCount,
		Authenticated:  resp.Authenticated,
		Search:         resp.SearchResults,
	}

	// The reply belongs to the conversation that asked, even if the user
	// switched away while the request was in flight.
	if _, err := a.history.AppendTo(conv.ID, answer); err != nil {
		if !errors.Is(err, history.ErrNotFound) {
			return nil, fmt.Errorf("record reply: %w", err)
		}
		a.logger.Warn("conversation deleted before the reply arrived", zap.String("conversation_id", conv.ID))
		return reply, nil
	}

	if a.speaker != nil && a.prefs.AutoRead() {
		a.speaker.Speak(resp.Response)
	}
	a.bus.Emit(bus.KindChatMessage, Event{ConversationID: conv.ID, Message: answer, Mood: mood, Search: resp.SearchResults})
	return reply, nil
}

func (a *Assistant) request(question, device string, conv *history.Conversation) backend.MessageRequest {
	var ctxMsgs []backend.HistoryMessage
	for _, m := range conv.Last(a.opts.ContextSize) {
		ctxMsgs = append(ctxMsgs, backend.HistoryMessage{Role: m.Role, Content: m.Content})
	}
	return backend.MessageRequest{
		Question:            question,
		ConversationHistory: ctxMsgs,
		DeviceIdentifier:    device,
		UseContext:          a.prefs.MemoryEnabled(),
		EnableWebSearch:     a.opts.WebSearch,
	}
}

func (a *Assistant) fail(convID string, err error) *Reply {
	mood := backend.MoodFor(err)
	msg := history.Message{
		Role:      history.RoleAssistant,
		Content:   backend.FriendlyMessage(err),
		Timestamp: time.Now().UnixMilli(),
	}
	a.logger.Warn("message failed", zap.String("conversation_id", convID), zap.Error(err))
	a.anim.Flash(mood, MoodHold)
	a.bus.Emit(bus.KindChatFailed, Event{ConversationID: convID, Message: msg, Mood: mood})
	return &Reply{ConversationID: convID, Message: msg, Mood: mood, Failed: true}
}
