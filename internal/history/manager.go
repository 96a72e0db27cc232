// Package history keeps the conversation list: local persistence, merge with
// the server-side history, the current conversation and export.
package history

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/matheus3301/charly/internal/bus"
	"go.uber.org/zap"
)

var (
	// ErrNotFound is returned for unknown conversation ids.
	ErrNotFound = errors.New("conversation not found")
	// ErrRemoteUnavailable is returned when a server conversation is changed while signed out.
	ErrRemoteUnavailable = errors.New("sign in to change server conversations")
)

// DefaultMaxMessages bounds the messages kept per conversation.
const DefaultMaxMessages = 300

// Options configures a Manager.
type Options struct {
	MaxMessages int
	Now         func() time.Time
}

// Change is the payload of history.changed events.
type Change struct {
	Op string `json:"op"` // saved, deleted, favorite, loaded
	ID string `json:"id,omitempty"`
}

// Manager owns the in-memory conversation list and the current conversation.
type Manager struct {
	mu      sync.Mutex
	storage Storage
	remote  Remote
	bus     *bus.Bus
	logger  *zap.Logger
	max     int
	now     func() time.Time

	convs   []*Conversation
	current *Conversation
}

// NewManager creates a manager. remote may be nil.
func NewManager(storage Storage, remote Remote, b *bus.Bus, logger *zap.Logger, opts Options) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.MaxMessages <= 0 {
		opts.MaxMessages = DefaultMaxMessages
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	m := &Manager{
		storage: storage,
		remote:  remote,
		bus:     b,
		logger:  logger,
		max:     opts.MaxMessages,
		now:     opts.Now,
	}
	m.current = m.blankLocked()
	return m
}

func (m *Manager) blankLocked() *Conversation {
	return &Conversation{Source: SourceLocal}
}

func (m *Manager) nowMs() int64 { return m.now().UnixMilli() }

// Load reads the local conversations and, when the remote is available,
// merges in server conversations whose ids are not already known locally.
// Remote failures are logged and the local list is returned.
func (m *Manager) Load(ctx context.Context) ([]*Conversation, error) {
	local, err := m.storage.LoadConversations()
	if err != nil {
		return nil, fmt.Errorf("load local history: %w", err)
	}

	merged := local
	if m.remote != nil && m.remote.Available() {
		remote, err := m.remote.History(ctx)
		if err != nil {
			m.logger.Warn("remote history unavailable", zap.Error(err))
		} else {
			merged = Merge(local, remote)
		}
	}
	SortByRecency(merged)

	m.mu.Lock()
	m.convs = merged
	if m.current.ID != "" {
		if c := m.findLocked(m.current.ID); c != nil {
			m.current = c.Clone()
		}
	}
	out := cloneAll(m.convs)
	m.mu.Unlock()

	m.bus.Emit(bus.KindHistoryChanged, Change{Op: "loaded"})
	return out, nil
}

// Merge returns local plus every remote conversation whose id is not
// present locally. Local entries are never replaced.
func Merge(local, remote []*Conversation) []*Conversation {
	seen := make(map[string]bool, len(local))
	out := make([]*Conversation, 0, len(local)+len(remote))
	for _, c := range local {
		seen[c.ID] = true
		out = append(out, c)
	}
	for _, c := range remote {
		if seen[c.ID] {
			continue
		}
		seen[c.ID] = true
		out = append(out, c)
	}
	return out
}

// SortByRecency orders conversations by UpdatedAt then CreatedAt, newest first.
func SortByRecency(convs []*Conversation) {
	sort.SliceStable(convs, func(i, j int) bool {
		if convs[i].UpdatedAt != convs[j].UpdatedAt {
			return convs[i].UpdatedAt > convs[j].UpdatedAt
		}
		return convs[i].CreatedAt > convs[j].CreatedAt
	})
}

// Save upserts a conversation, trimming it to the message limit first.
func (m *Manager) Save(c *Conversation) error {
	if c == nil || c.ID == "" {
		return errors.New("save: conversation has no id")
	}
	c = c.Clone()
	c.Trim(m.max)
	now := m.nowMs()
	c.UpdatedAt = now
	if c.CreatedAt == 0 {
		c.CreatedAt = now
	}
	if c.Source == "" {
		c.Source = SourceLocal
	}

	if err := m.storage.SaveConversation(c); err != nil {
		return fmt.Errorf("save conversation %s: %w", c.ID, err)
	}

	m.mu.Lock()
	m.upsertLocked(c)
	if m.current.ID == c.ID {
		m.current = c.Clone()
	}
	m.mu.Unlock()

	m.bus.Emit(bus.KindHistoryChanged, Change{Op: "saved", ID: c.ID})
	return nil
}

func (m *Manager) upsertLocked(c *Conversation) {
	for i, existing := range m.convs {
		if existing.ID == c.ID {
			m.convs[i] = c
			SortByRecency(m.convs)
			return
		}
	}
	m.convs = append(m.convs, c)
	SortByRecency(m.convs)
}

func (m *Manager) findLocked(id string) *Conversation {
	for _, c := range m.convs {
		if c.ID == id {
			return c
		}
	}
	return nil
}

// Delete removes exactly one conversation. Server conversations are deleted
// remotely first when signed in. Deleting the current conversation starts a
// new empty one.
func (m *Manager) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	c := m.findLocked(id)
	m.mu.Unlock()

	if c != nil && c.Source == SourceServer {
		if m.remote == nil || !m.remote.Available() {
			return fmt.Errorf("delete %s: %w", id, ErrRemoteUnavailable)
		}
		if err := m.remote.Delete(ctx, id); err != nil {
			return fmt.Errorf("delete %s on server: %w", id, err)
		}
	}

	deleted, err := m.storage.DeleteConversation(id)
	if err != nil {
		return fmt.Errorf("delete %s: %w", id, err)
	}
	if c == nil && !deleted {
		return ErrNotFound
	}

	m.mu.Lock()
	kept := m.convs[:0]
	for _, existing := range m.convs {
		if existing.ID != id {
			kept = append(kept, existing)
		}
	}
	m.convs = kept
	if m.current.ID == id {
		m.current = m.blankLocked()
	}
	m.mu.Unlock()

	m.bus.Emit(bus.KindHistoryChanged, Change{Op: "deleted", ID: id})
	return nil
}

// ToggleFavorite flips a conversation's favorite flag and returns the new value.
func (m *Manager) ToggleFavorite(ctx context.Context, id string) (bool, error) {
	m.mu.Lock()
	c := m.findLocked(id)
	if c != nil {
		c = c.Clone()
	}
	m.mu.Unlock()
	if c == nil {
		return false, ErrNotFound
	}

	if c.Source == SourceServer && m.remote != nil && m.remote.Available() {
		fav, err := m.remote.ToggleFavorite(ctx, id)
		if err != nil {
			return false, fmt.Errorf("favorite %s on server: %w", id, err)
		}
		c.Favorite = fav
	} else {
		c.Favorite = !c.Favorite
	}

	if c.Source == SourceLocal {
		if err := m.storage.SaveConversation(c); err != nil {
			return false, fmt.Errorf("save favorite %s: %w", id, err)
		}
	}

	m.mu.Lock()
	if existing := m.findLocked(id); existing != nil {
		existing.Favorite = c.Favorite
	}
	if m.current.ID == id {
		m.current.Favorite = c.Favorite
	}
	m.mu.Unlock()

	m.bus.Emit(bus.KindHistoryChanged, Change{Op: "favorite", ID: id})
	return c.Favorite, nil
}

// List returns copies of all known conversations, most recent first.
func (m *Manager) List() []*Conversation {
	m.mu.Lock()
	defer m.mu.Unlock()
	return cloneAll(m.convs)
}

// Get returns a copy of one conversation.
func (m *Manager) Get(id string) (*Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := m.findLocked(id)
	if c == nil {
		return nil, ErrNotFound
	}
	return c.Clone(), nil
}

// Current returns a copy of the current conversation. Its ID is empty until
// the first message is appended.
func (m *Manager) Current() *Conversation {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current.Clone()
}

// NewConversation makes a fresh, empty conversation current.
func (m *Manager) NewConversation() *Conversation {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = m.blankLocked()
	return m.current.Clone()
}

// Open makes an existing conversation current.
func (m *Manager) Open(id string) (*Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := m.findLocked(id)
	if c == nil {
		return nil, ErrNotFound
	}
	m.current = c.Clone()
	return m.current.Clone(), nil
}

// Append adds a message to the current conversation, creating and naming it
// on the first user message, and saves it.
func (m *Manager) Append(msg Message) (*Conversation, error) {
	if msg.Timestamp == 0 {
		msg.Timestamp = m.nowMs()
	}

	m.mu.Lock()
	c := m.current.Clone()
	m.mu.Unlock()

	if c.ID == "" {
		c.ID = NewLocalID()
		c.CreatedAt = msg.Timestamp
		c.Source = SourceLocal
	}
	if c.Title == "" && msg.Role == RoleUser {
		c.Title = Truncate(msg.Content, 50)
	}
	c.Messages = append(c.Messages, msg)

	m.mu.Lock()
	m.current = c.Clone()
	m.mu.Unlock()

	if err := m.Save(c); err != nil {
		return nil, err
	}
	return m.Current(), nil
}

// AppendTo adds a message to conversation id and saves it, whether or not
// that conversation is still current. It never creates a conversation.
func (m *Manager) AppendTo(id string, msg Message) (*Conversation, error) {
	if msg.Timestamp == 0 {
		msg.Timestamp = m.nowMs()
	}

	m.mu.Lock()
	var c *Conversation
	switch {
	case id == "":
	case m.current.ID == id:
		c = m.current.Clone()
	default:
		if found := m.findLocked(id); found != nil {
			c = found.Clone()
		}
	}
	m.mu.Unlock()
	if c == nil {
		return nil, ErrNotFound
	}

	c.Messages = append(c.Messages, msg)
	if err := m.Save(c); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if saved := m.findLocked(id); saved != nil {
		return saved.Clone(), nil
	}
	return c, nil
}

func cloneAll(convs []*Conversation) []*Conversation {
	out := make([]*Conversation, len(convs))
	for i, c := range convs {
		out[i] = c.Clone()
	}
	return out
}
