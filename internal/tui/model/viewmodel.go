package model

import (
	"context"
	"sync"

	"github.com/matheus3301/charly/internal/assistant"
	"github.com/matheus3301/charly/internal/bus"
	"github.com/matheus3301/charly/internal/history"
	"github.com/matheus3301/charly/internal/rpc"
	"github.com/matheus3301/charly/internal/status"
	"github.com/matheus3301/charly/internal/tui/client"
	"github.com/matheus3301/charly/internal/voice"
)

// ViewModel caches daemon state fed by unary calls and Watch streams, and
// signals UI refreshes.
type ViewModel struct {
	mu sync.RWMutex

	client      *client.Client
	status      *rpc.StatusResponse
	current     *rpc.Conversation
	history     []rpc.Conversation
	prefs       rpc.Preferences
	voice       rpc.VoiceState
	frame       rpc.Frame
	transcript  string
	pending     bool
	searchQuery string
	sources     []rpc.SearchResult

	refreshCh chan struct{}
}

// NewViewModel creates a new view model connected to the daemon client.
func NewViewModel(c *client.Client) *ViewModel {
	return &ViewModel{
		client:    c,
		refreshCh: make(chan struct{}, 1),
	}
}

// RefreshCh returns the channel that signals UI refresh.
func (vm *ViewModel) RefreshCh() <-chan struct{} {
	return vm.refreshCh
}

func (vm *ViewModel) signalRefresh() {
	select {
	case vm.refreshCh <- struct{}{}:
	default:
	}
}

// LoadStatus fetches the daemon status, which also carries the voice and
// mascot state.
func (vm *ViewModel) LoadStatus(ctx context.Context) error {
	resp, err := vm.client.Session.Status(ctx, &rpc.StatusRequest{})
	if err != nil {
		return err
	}
	vm.mu.Lock()
	vm.status = resp
	vm.voice = resp.Voice
	vm.frame = resp.Animation
	vm.mu.Unlock()
	vm.signalRefresh()
	return nil
}

// LoadCurrent fetches the conversation in progress.
func (vm *ViewModel) LoadCurrent(ctx context.Context) error {
	resp, err := vm.client.Chat.Current(ctx)
	if err != nil {
		return err
	}
	vm.setCurrent(&resp.Conversation)
	return nil
}

// LoadPreferences fetches the chat toggles.
func (vm *ViewModel) LoadPreferences(ctx context.Context) error {
	resp, err := vm.client.Chat.GetPreferences(ctx)
	if err != nil {
		return err
	}
	vm.mu.Lock()
	vm.prefs = *resp
	vm.mu.Unlock()
	vm.signalRefresh()
	return nil
}

// LoadHistory fetches the conversation list for a filter tab and query.
func (vm *ViewModel) LoadHistory(ctx context.Context, filter history.Filter, query string) error {
	resp, err := vm.client.History.List(ctx, &rpc.ListRequest{Filter: string(filter), Query: query})
	if err != nil {
		return err
	}
	vm.mu.Lock()
	vm.history = resp.Conversations
	vm.mu.Unlock()
	vm.signalRefresh()
	return nil
}

// Send asks a question. The question and the reply also arrive on the chat
// stream; the response is applied directly so a slow stream never hides it.
func (vm *ViewModel) Send(ctx context.Context, text string) (*rpc.SendResponse, error) {
	vm.setPending(true)
	resp, err := vm.client.Chat.Send(ctx, &rpc.SendRequest{Text: text})
	vm.setPending(false)
	if err != nil {
		return nil, err
	}
	if !resp.Ignored {
		vm.mu.Lock()
		vm.searchQuery, vm.sources = resp.SearchQuery, resp.SearchResults
		vm.mu.Unlock()
	}
	return resp, vm.LoadCurrent(ctx)
}

// NewConversation starts a fresh conversation.
func (vm *ViewModel) NewConversation(ctx context.Context) error {
	resp, err := vm.client.Chat.NewConversation(ctx)
	if err != nil {
		return err
	}
	vm.setCurrent(&resp.Conversation)
	return nil
}

// Open makes a past conversation current.
func (vm *ViewModel) Open(ctx context.Context, id string) error {
	resp, err := vm.client.History.Open(ctx, id)
	if err != nil {
		return err
	}
	vm.setCurrent(&resp.Conversation)
	return nil
}

// SetPreferences changes the toggles that are non-nil.
func (vm *ViewModel) SetPreferences(ctx context.Context, memory, autoRead *bool) error {
	resp, err := vm.client.Chat.SetPreferences(ctx, &rpc.SetPreferencesRequest{MemoryEnabled: memory, AutoRead: autoRead})
	if err != nil {
		return err
	}
	vm.mu.Lock()
	vm.prefs = *resp
	vm.mu.Unlock()
	vm.signalRefresh()
	return nil
}

func (vm *ViewModel) setCurrent(c *rpc.Conversation) {
	vm.mu.Lock()
	if vm.current == nil || vm.current.ID != c.ID {
		vm.searchQuery, vm.sources = "", nil
	}
	vm.current = c
	vm.mu.Unlock()
	vm.signalRefresh()
}

func (vm *ViewModel) setPending(p bool) {
	vm.mu.Lock()
	vm.pending = p
	vm.mu.Unlock()
	vm.signalRefresh()
}

// ApplyEvent folds a streamed event into the cache. It reports whether the
// history list or the current conversation should be reloaded.
func (vm *ViewModel) ApplyEvent(ev *rpc.Event) (reload bool, err error) {
	vm.mu.Lock()
	defer func() {
		vm.mu.Unlock()
		vm.signalRefresh()
	}()

	switch ev.Kind {
	case bus.KindStatusChanged:
		var ch status.StatusChange
		if err := ev.Decode(&ch); err != nil {
			return false, err
		}
		if vm.status != nil {
			vm.status.Status = string(ch.To)
		}
		return ch.To == status.Ready, nil

	case bus.KindAccountChanged:
		if vm.status == nil {
			return true, nil
		}
		vm.status.User = nil
		if len(ev.Payload) > 0 && string(ev.Payload) != "null" {
			var u rpc.User
			if err := ev.Decode(&u); err != nil {
				return false, err
			}
			vm.status.User = &u
		}
		return true, nil

	case bus.KindAnimationChanged:
		return false, ev.Decode(&vm.frame)

	case bus.KindVoiceState:
		backend := vm.voice.Backend
		var st rpc.VoiceState
		if err := ev.Decode(&st); err != nil {
			return false, err
		}
		st.Backend = backend
		vm.voice = st
		if !st.Listening {
			vm.transcript = ""
		}
		return false, nil

	case bus.KindVoiceTranscript:
		var tr voice.Transcript
		if err := ev.Decode(&tr); err != nil {
			return false, err
		}
		vm.transcript = tr.Text
		if tr.Final {
			vm.transcript = ""
		}
		return false, nil

	case bus.KindChatMessage, bus.KindChatFailed:
		var ce assistant.Event
		if err := ev.Decode(&ce); err != nil {
			return false, err
		}
		if vm.current == nil || vm.current.ID != ce.ConversationID {
			return true, nil
		}
		msg := rpc.Message{Role: ce.Message.Role, Content: ce.Message.Content, Timestamp: ce.Message.Timestamp}
		if n := len(vm.current.Messages); n > 0 && vm.current.Messages[n-1] == msg {
			return false, nil
		}
		vm.current.Messages = append(vm.current.Messages, msg)
		if ce.Search != nil {
			vm.searchQuery = ce.Search.Query
			vm.sources = vm.sources[:0]
			for _, r := range ce.Search.Results {
				vm.sources = append(vm.sources, rpc.SearchResult{Title: r.Title, URL: r.URL, Snippet: r.Snippet})
			}
		}
		return false, nil

	case bus.KindHistoryChanged, bus.KindHistorySynced:
		return true, nil
	}
	return false, nil
}

// Status returns a snapshot of the daemon status.
func (vm *ViewModel) Status() *rpc.StatusResponse {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	if vm.status == nil {
		return nil
	}
	s := *vm.status
	return &s
}

// SessionStatus returns the session status name, or "" before the first load.
func (vm *ViewModel) SessionStatus() status.State {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	if vm.status == nil {
		return ""
	}
	return status.State(vm.status.Status)
}

// Current returns a copy of the conversation in progress.
func (vm *ViewModel) Current() *rpc.Conversation {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	if vm.current == nil {
		return nil
	}
	c := *vm.current
	c.Messages = append([]rpc.Message(nil), vm.current.Messages...)
	return &c
}

// History returns the last loaded conversation list.
func (vm *ViewModel) History() []rpc.Conversation {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	return vm.history
}

// Preferences returns the chat toggles.
func (vm *ViewModel) Preferences() rpc.Preferences {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	return vm.prefs
}

// Voice returns the microphone state.
func (vm *ViewModel) Voice() rpc.VoiceState {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	return vm.voice
}

// SetVoice stores a voice state returned by a control call.
func (vm *ViewModel) SetVoice(st rpc.VoiceState) {
	vm.mu.Lock()
	vm.voice = st
	vm.mu.Unlock()
	vm.signalRefresh()
}

// Frame returns the mascot state.
func (vm *ViewModel) Frame() rpc.Frame {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	return vm.frame
}

// Transcript returns the partial voice transcript.
func (vm *ViewModel) Transcript() string {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	return vm.transcript
}

// Pending reports whether a question is waiting for its reply.
func (vm *ViewModel) Pending() bool {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	return vm.pending
}

// Sources returns the web results of the last reply.
func (vm *ViewModel) Sources() (string, []rpc.SearchResult) {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	return vm.searchQuery, append([]rpc.SearchResult(nil), vm.sources...)
}
