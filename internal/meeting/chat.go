package meeting

import (
	"sync"
	"time"
)

// ChatMessage is one in-meeting chat entry. The log is append-only and
// in-memory; persistence belongs to an external service.
type ChatMessage struct {
	MeetingID  string
	SenderID   string
	SenderName string
	Text       string
	Timestamp  time.Time
}

// ChatLog collects messages for one meeting in arrival order.
type ChatLog struct {
	mu       sync.Mutex
	messages []ChatMessage
}

// NewChatLog creates an empty log.
func NewChatLog() *ChatLog {
	return &ChatLog{}
}

// Append adds a message to the log.
func (l *ChatLog) Append(msg ChatMessage) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, msg)
}

// Messages returns a copy of the log.
func (l *ChatLog) Messages() []ChatMessage {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]ChatMessage, len(l.messages))
	copy(out, l.messages)
	return out
}

// Len returns the number of messages.
func (l *ChatLog) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.messages)
}
