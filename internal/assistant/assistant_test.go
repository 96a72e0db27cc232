package assistant

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/matheus3301/charly/internal/animation"
	"github.com/matheus3301/charly/internal/backend"
	"github.com/matheus3301/charly/internal/bus"
	"github.com/matheus3301/charly/internal/devserver"
	"github.com/matheus3301/charly/internal/history"
	"github.com/matheus3301/charly/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu        sync.Mutex
	processed int
	moods     []string
	flashes   []string
	spoken    []string
	observed  []error
	deviceErr error
}

func (r *recorder) Process() {
	r.mu.Lock()
	r.processed++
	r.mu.Unlock()
}

func (r *recorder) RespondWith(text string) string {
	mood := animation.Classify(text)
	r.mu.Lock()
	r.moods = append(r.moods, mood)
	r.mu.Unlock()
	return mood
}

func (r *recorder) Flash(state string, _ time.Duration) {
	r.mu.Lock()
	r.flashes = append(r.flashes, state)
	r.mu.Unlock()
}

func (r *recorder) Speak(text string) bool {
	r.mu.Lock()
	r.spoken = append(r.spoken, text)
	r.mu.Unlock()
	return true
}

func (r *recorder) DeviceID() (string, error) {
	if r.deviceErr != nil {
		return "", r.deviceErr
	}
	return "charly-1-test", nil
}

func (r *recorder) Observe(err error) {
	r.mu.Lock()
	r.observed = append(r.observed, err)
	r.mu.Unlock()
}

type prefs struct{ memory, autoRead bool }

func (p prefs) MemoryEnabled() bool { return p.memory }
func (p prefs) AutoRead() bool      { return p.autoRead }

type harness struct {
	a       *Assistant
	rec     *recorder
	dev     *devserver.Server
	history *history.Manager
	events  <-chan bus.Event
}

func newHarness(t *testing.T, p prefs) *harness {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "charly.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	_, err = db.Migrate()
	require.NoError(t, err)

	dev := devserver.New(nil)
	ts := httptest.NewServer(dev.Handler())
	t.Cleanup(ts.Close)
	client := backend.New(backend.Config{BaseURL: ts.URL + "/api", Timeout: 5 * time.Second}, nil)

	b := bus.New()
	events, unsub := b.Subscribe("chat.", 16)
	t.Cleanup(unsub)

	rec := &recorder{}
	h := history.NewManager(history.NewSQLStorage(db), nil, b, nil, history.Options{})
	a := New(h, client, rec, p, rec, rec, b, nil, Options{WebSearch: true})
	return &harness{a: a, rec: rec, dev: dev, history: h, events: events}
}

func TestSendSuccess(t *testing.T) {
	h := newHarness(t, prefs{memory: true, autoRead: true})

	reply, err := h.a.Send(context.Background(), "How do I reset my password?")
	require.NoError(t, err)
	require.NotNil(t, reply)
	assert.False(t, reply.Failed)
	assert.Equal(t, history.RoleAssistant, reply.Message.Role)
	assert.Contains(t, reply.Message.Content, "reset my password")
	assert.Equal(t, animation.Classify(reply.Message.Content), reply.Mood)

	conv := h.history.Current()
	assert.Equal(t, reply.ConversationID, conv.ID)
	require.Len(t, conv.Messages, 2)
	assert.Equal(t, "How do I reset my password?", conv.Messages[0].Content)

	reqs := h.dev.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "charly-1-test", reqs[0].DeviceIdentifier)
	assert.True(t, reqs[0].UseContext)
	assert.True(t, reqs[0].EnableWebSearch)
	require.Len(t, reqs[0].ConversationHistory, 1)

	assert.Equal(t, 1, h.rec.processed)
	assert.Equal(t, []string{reply.Message.Content}, h.rec.spoken)
	assert.Equal(t, []error{nil}, h.rec.observed)

	first := <-h.events
	second := <-h.events
	assert.Equal(t, bus.KindChatMessage, first.Kind)
	assert.Equal(t, history.RoleUser, first.Payload.(Event).Message.Role)
	assert.Equal(t, history.RoleAssistant, second.Payload.(Event).Message.Role)
}

func TestSendCarriesContext(t *testing.T) {
	h := newHarness(t, prefs{memory: false})

	_, err := h.a.Send(context.Background(), "first question")
	require.NoError(t, err)
	_, err = h.a.Send(context.Background(), "second question")
	require.NoError(t, err)

	reqs := h.dev.Requests()
	require.Len(t, reqs, 2)
	assert.False(t, reqs[1].UseContext)
	require.Len(t, reqs[1].ConversationHistory, 3)
	assert.Equal(t, "second question", reqs[1].ConversationHistory[2].Content)
	assert.Empty(t, h.rec.spoken, "auto-read is off")
}

func TestSendEmptyAndShort(t *testing.T) {
	h := newHarness(t, prefs{})

	reply, err := h.a.Send(context.Background(), "   ")
	require.NoError(t, err)
	assert.Nil(t, reply)

	reply, err = h.a.Send(context.Background(), "?")
	require.NoError(t, err)
	assert.True(t, reply.Failed)
	assert.Equal(t, Clarification, reply.Message.Content)
	assert.Equal(t, []string{animation.Confused}, h.rec.flashes)
	assert.Empty(t, h.dev.Requests())
	assert.Empty(t, h.history.Current().ID)
}

func TestSendHTTPErrors(t *testing.T) {
	tests := []struct {
		code int
		msg  string
		mood string
	}{
		{http.StatusUnprocessableEntity, backend.MsgReformulate, animation.Confused},
		{http.StatusUnauthorized, backend.MsgSessionExpired, animation.Confused},
		{http.StatusInternalServerError, backend.MsgServerError, animation.Error},
		{http.StatusNotFound, backend.MsgUnavailable, animation.Error},
		{http.StatusTeapot, backend.MsgGeneric, animation.Error},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.code), func(t *testing.T) {
			h := newHarness(t, prefs{autoRead: true})
			h.dev.FailNext(tt.code)

			reply, err := h.a.Send(context.Background(), "hello there")
			require.NoError(t, err)
			assert.True(t, reply.Failed)
			assert.Equal(t, tt.msg, reply.Message.Content)
			assert.Equal(t, tt.mood, reply.Mood)
			assert.Equal(t, []string{tt.mood}, h.rec.flashes)
			assert.Empty(t, h.rec.spoken)

			// The question is kept, the failed reply is not.
			conv := h.history.Current()
			require.Len(t, conv.Messages, 1)
			assert.Equal(t, history.RoleUser, conv.Messages[0].Role)
			require.Len(t, h.rec.observed, 1)
			assert.Error(t, h.rec.observed[0])
		})
	}
}

func TestSendUnreachable(t *testing.T) {
	rec := &recorder{}
	b := bus.New()
	db, err := store.Open(filepath.Join(t.TempDir(), "charly.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	_, err = db.Migrate()
	require.NoError(t, err)

	client := backend.New(backend.Config{BaseURL: "http://127.0.0.1:1/api", Timeout: time.Second}, nil)
	h := history.NewManager(history.NewSQLStorage(db), nil, b, nil, history.Options{})
	a := New(h, client, rec, prefs{}, rec, nil, b, nil, Options{})

	reply, err := a.Send(context.Background(), "anyone there?")
	require.NoError(t, err)
	assert.True(t, reply.Failed)
	assert.Equal(t, backend.MsgUnreachable, reply.Message.Content)
	assert.Equal(t, animation.Error, reply.Mood)
	assert.True(t, backend.IsUnreachable(rec.observed[0]))
}

// switchingSender runs during while the question is in flight, like a user
// opening another conversation before the answer arrives.
type switchingSender struct {
	during func()
	reply  string
}

func (s switchingSender) SendMessage(context.Context, backend.MessageRequest) (*backend.MessageResponse, error) {
	s.during()
	return &backend.MessageResponse{Response: s.reply}, nil
}

func newLocalAssistant(t *testing.T, sender func(h *history.Manager) Sender) (*Assistant, *history.Manager, *recorder) {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "charly.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	_, err = db.Migrate()
	require.NoError(t, err)

	rec := &recorder{}
	b := bus.New()
	h := history.NewManager(history.NewSQLStorage(db), nil, b, nil, history.Options{})
	return New(h, sender(h), rec, prefs{}, rec, nil, b, nil, Options{}), h, rec
}

func TestReplyStaysWithAskingConversation(t *testing.T) {
	a, h, _ := newLocalAssistant(t, func(h *history.Manager) Sender {
		return switchingSender{during: func() { h.NewConversation() }, reply: "Voici la réponse"}
	})

	reply, err := a.Send(context.Background(), "Quelle heure est-il ?")
	require.NoError(t, err)
	require.False(t, reply.Failed)

	convs := h.List()
	require.Len(t, convs, 1, "the reply must not start a conversation of its own")
	asked := convs[0]
	assert.Equal(t, reply.ConversationID, asked.ID)
	require.Len(t, asked.Messages, 2)
	assert.Equal(t, history.RoleUser, asked.Messages[0].Role)
	assert.Equal(t, history.RoleAssistant, asked.Messages[1].Role)
	assert.Equal(t, "Voici la réponse", asked.Messages[1].Content)

	assert.Empty(t, h.Current().ID, "the new conversation stays blank")
	assert.Empty(t, h.Current().Messages)
}

func TestReplyAfterSwitchingToAnotherConversation(t *testing.T) {
	var other string
	a, h, _ := newLocalAssistant(t, func(h *history.Manager) Sender {
		return switchingSender{during: func() {
			_, err := h.Open(other)
			require.NoError(t, err)
		}, reply: "Sure, here you go."}
	})
	existing, err := h.Append(history.Message{Role: history.RoleUser, Content: "older question"})
	require.NoError(t, err)
	other = existing.ID
	h.NewConversation()

	reply, err := a.Send(context.Background(), "new question")
	require.NoError(t, err)
	assert.NotEqual(t, other, reply.ConversationID)

	kept, err := h.Get(other)
	require.NoError(t, err)
	require.Len(t, kept.Messages, 1)
	assert.Equal(t, "older question", kept.Messages[0].Content)

	asked, err := h.Get(reply.ConversationID)
	require.NoError(t, err)
	require.Len(t, asked.Messages, 2)
	assert.Equal(t, "Sure, here you go.", asked.Messages[1].Content)
	assert.Equal(t, other, h.Current().ID)
}

func TestReplyDroppedWhenConversationDeleted(t *testing.T) {
	a, h, _ := newLocalAssistant(t, func(h *history.Manager) Sender {
		return switchingSender{during: func() {
			require.NoError(t, h.Delete(context.Background(), h.Current().ID))
		}, reply: "too late"}
	})

	reply, err := a.Send(context.Background(), "delete me")
	require.NoError(t, err)
	assert.Equal(t, "too late", reply.Message.Content)
	assert.Empty(t, h.List())
	assert.Empty(t, h.Current().ID)
}

func TestSendDeviceIDFailureRecordsNothing(t *testing.T) {
	h := newHarness(t, prefs{})
	h.rec.deviceErr = errors.New("settings unavailable")

	reply, err := h.a.Send(context.Background(), "hello there")
	require.Error(t, err)
	assert.Nil(t, reply)
	assert.Empty(t, h.history.Current().ID)
	assert.Empty(t, h.history.List())
	assert.Zero(t, h.rec.processed)
	assert.Empty(t, h.dev.Requests())
}
