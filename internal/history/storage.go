package history

import (
	"context"
	"fmt"
	"strings"

	"github.com/matheus3301/charly/internal/backend"
	"github.com/matheus3301/charly/internal/store"
)

// Storage persists conversations locally.
type Storage interface {
	SaveConversation(c *Conversation) error
	LoadConversations() ([]*Conversation, error)
	DeleteConversation(id string) (bool, error)
}

// Remote is the server-side history of the signed-in account.
type Remote interface {
	Available() bool
	History(ctx context.Context) ([]*Conversation, error)
	Delete(ctx context.Context, id string) error
	ToggleFavorite(ctx context.Context, id string) (bool, error)
}

// SQLStorage stores conversations in charly.db.
type SQLStorage struct {
	db *store.DB
}

// NewSQLStorage wraps an opened, migrated database.
func NewSQLStorage(db *store.DB) *SQLStorage {
	return &SQLStorage{db: db}
}

func (s *SQLStorage) SaveConversation(c *Conversation) error {
	row := &store.Conversation{
		ID:        c.ID,
		Title:     c.Title,
		Source:    string(c.Source),
		Favorite:  c.Favorite,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
	msgs := make([]store.Message, len(c.Messages))
	for i, m := range c.Messages {
		msgs[i] = store.Message{ConversationID: c.ID, Seq: i, Role: m.Role, Content: m.Content, Timestamp: m.Timestamp}
	}
	return s.db.SaveConversation(row, msgs)
}

func (s *SQLStorage) LoadConversations() ([]*Conversation, error) {
	rows, err := s.db.LoadConversations()
	if err != nil {
		return nil, err
	}
	out := make([]*Conversation, 0, len(rows))
	for _, r := range rows {
		c := &Conversation{
			ID:        r.ID,
			Title:     r.Title,
			CreatedAt: r.CreatedAt,
			UpdatedAt: r.UpdatedAt,
			Favorite:  r.Favorite,
			Source:    Source(r.Source),
		}
		for _, m := range r.Messages {
			c.Messages = append(c.Messages, Message{Role: m.Role, Content: m.Content, Timestamp: m.Timestamp})
		}
		out = append(out, c)
	}
	return out, nil
}

func (s *SQLStorage) DeleteConversation(id string) (bool, error) {
	return s.db.DeleteConversation(id)
}

// BackendRemote adapts the backend client's history endpoints.
type BackendRemote struct {
	client *backend.Client
}

// NewBackendRemote creates a Remote over the backend client.
func NewBackendRemote(c *backend.Client) *BackendRemote {
	return &BackendRemote{client: c}
}

// Available reports whether the client is signed in.
func (r *BackendRemote) Available() bool {
	return r.client.Authenticated()
}

func (r *BackendRemote) History(ctx context.Context) ([]*Conversation, error) {
	convs, err := r.client.History(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch history: %w", err)
	}
	out := make([]*Conversation, 0, len(convs))
	for _, c := range convs {
		out = append(out, FromServer(c))
	}
	return out, nil
}

func (r *BackendRemote) Delete(ctx context.Context, id string) error {
	return r.client.DeleteConversation(ctx, id)
}

func (r *BackendRemote) ToggleFavorite(ctx context.Context, id string) (bool, error) {
	return r.client.ToggleFavorite(ctx, id)
}

// FromServer converts a server question/answer pair into a conversation.
func FromServer(c backend.Conversation) *Conversation {
	created := backend.ParseTime(c.CreatedAt)
	updated := backend.ParseTime(c.UpdatedAt)
	if updated.IsZero() {
		updated = created
	}
	var createdMs, updatedMs int64
	if !created.IsZero() {
		createdMs = created.UnixMilli()
	}
	if !updated.IsZero() {
		updatedMs = updated.UnixMilli()
	}

	conv := &Conversation{
		ID:        string(c.ID),
		Title:     Truncate(c.Question, 50),
		CreatedAt: createdMs,
		UpdatedAt: updatedMs,
		Favorite:  c.IsFavorite,
		Source:    SourceServer,
	}
	if strings.TrimSpace(c.Question) != "" {
		conv.Messages = append(conv.Messages, Message{Role: RoleUser, Content: c.Question, Timestamp: createdMs})
	}
	if strings.TrimSpace(c.Response) != "" {
		conv.Messages = append(conv.Messages, Message{Role: RoleAssistant, Content: c.Response, Timestamp: updatedMs})
	}
	return conv
}
