package store

import (
	"database/sql"
	"fmt"
	"time"
)

// SaveConversation upserts a conversation and replaces its messages in one transaction.
func (db *DB) SaveConversation(c *Conversation, msgs []Message) error {
	if c.UpdatedAt == 0 {
		c.UpdatedAt = time.Now().UnixMilli()
	}
	if c.CreatedAt == 0 {
		c.CreatedAt = c.UpdatedAt
	}
	if c.Source == "" {
		c.Source = "local"
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`
		INSERT INTO conversations (id, title, source, favorite, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			source = excluded.source,
			favorite = excluded.favorite,
			created_at = excluded.created_at,
			updated_at = excluded.updated_at`,
		c.ID, c.Title, c.Source, c.Favorite, c.CreatedAt, c.UpdatedAt); err != nil {
		return fmt.Errorf("upsert conversation: %w", err)
	}

	if _, err := tx.Exec(`DELETE FROM messages WHERE conversation_id = ?`, c.ID); err != nil {
		return fmt.Errorf("clear messages: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO messages (conversation_id, seq, role, content, timestamp)
		VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare message insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for i, m := range msgs {
		if _, err := stmt.Exec(c.ID, i, m.Role, m.Content, m.Timestamp); err != nil {
			return fmt.Errorf("insert message %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit conversation: %w", err)
	}
	return nil
}

// ListConversations returns conversations sorted by recency, most recent first.
func (db *DB) ListConversations() ([]Conversation, error) {
	rows, err := db.Query(`
		SELECT id, title, source, favorite, created_at, updated_at
		FROM conversations
		ORDER BY updated_at DESC, created_at DESC, id`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var convs []Conversation
	for rows.Next() {
		var c Conversation
		if err := rows.Scan(&c.ID, &c.Title, &c.Source, &c.Favorite, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		convs = append(convs, c)
	}
	return convs, rows.Err()
}

// LoadConversations returns every conversation with its messages, most recent first.
func (db *DB) LoadConversations() ([]ConversationWithMessages, error) {
	convs, err := db.ListConversations()
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}

	byID := make(map[string]int, len(convs))
	out := make([]ConversationWithMessages, len(convs))
	for i, c := range convs {
		out[i].Conversation = c
		byID[c.ID] = i
	}

	rows, err := db.Query(`
		SELECT conversation_id, seq, role, content, timestamp
		FROM messages
		ORDER BY conversation_id, seq`)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ConversationID, &m.Seq, &m.Role, &m.Content, &m.Timestamp); err != nil {
			return nil, err
		}
		if i, ok := byID[m.ConversationID]; ok {
			out[i].Messages = append(out[i].Messages, m)
		}
	}
	return out, rows.Err()
}

// GetConversation returns a single conversation, or nil if it does not exist.
func (db *DB) GetConversation(id string) (*Conversation, error) {
	var c Conversation
	err := db.QueryRow(`
		SELECT id, title, source, favorite, created_at, updated_at
		FROM conversations WHERE id = ?`, id).
		Scan(&c.ID, &c.Title, &c.Source, &c.Favorite, &c.CreatedAt, &c.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ListMessages returns the messages of a conversation in insertion order.
func (db *DB) ListMessages(conversationID string) ([]Message, error) {
	rows, err := db.Query(`
		SELECT conversation_id, seq, role, content, timestamp
		FROM messages
		WHERE conversation_id = ?
		ORDER BY seq`, conversationID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var msgs []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ConversationID, &m.Seq, &m.Role, &m.Content, &m.Timestamp); err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

// DeleteConversation removes a conversation and its messages.
// Reports whether a row was deleted.
func (db *DB) DeleteConversation(id string) (bool, error) {
	res, err := db.Exec(`DELETE FROM conversations WHERE id = ?`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// SetFavorite updates the favorite flag. Reports whether the conversation exists.
func (db *DB) SetFavorite(id string, favorite bool) (bool, error) {
	res, err := db.Exec(`UPDATE conversations SET favorite = ? WHERE id = ?`, favorite, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
