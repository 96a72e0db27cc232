package store

// Conversation is a stored conversation row. Timestamps are Unix milliseconds.
type Conversation struct {
	ID        string
	Title     string
	Source    string
	Favorite  bool
	CreatedAt int64
	UpdatedAt int64
}

// Message is one stored message of a conversation, ordered by Seq.
type Message struct {
	ConversationID string
	Seq            int
	Role           string
	Content        string
	Timestamp      int64
}

// ConversationWithMessages bundles a conversation with its ordered messages.
type ConversationWithMessages struct {
	Conversation
	Messages []Message
}
