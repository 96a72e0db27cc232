package bus

import "time"

// Event represents a domain event published on the bus.
type Event struct {
	Kind      string
	Timestamp time.Time
	Payload   any
}

// Event kinds published by the daemon components. Subscribers usually filter
// on the namespace prefix ("animation.", "chat.", ...).
const (
	KindStatusChanged    = "session.status_changed"
	KindAccountChanged   = "session.account_changed"
	KindAnimationChanged = "animation.changed"
	KindChatMessage      = "chat.message"
	KindChatFailed       = "chat.failed"
	KindVoiceState       = "voice.state"
	KindVoiceTranscript  = "voice.transcript"
	KindHistoryChanged   = "history.changed"
	KindHistorySynced    = "sync.history_loaded"
)
