package client

import (
	"sync"

	"github.com/zhouzirui/voice-assistant/internal/model/chat"
)

// Transcript is the ordered conversation shown to the user. Only the
// orchestrator writes it; readers get copies.
type Transcript struct {
	mu       sync.RWMutex
	messages []chat.Message
}

// NewTranscript creates an empty transcript.
func NewTranscript() *Transcript {
	return &Transcript{messages: make([]chat.Message, 0, 16)}
}

// Append adds a message at the end.
func (t *Transcript) Append(msg chat.Message) {
	t.mu.Lock()
	t.messages = append(t.messages, msg)
	t.mu.Unlock()
}

// ReplaceLast rewrites the last message in place. It is a no-op on an empty
// transcript.
func (t *Transcript) ReplaceLast(msg chat.Message) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if n := len(t.messages); n > 0 {
		t.messages[n-1] = msg
	}
}

// RemoveLast drops the last message.
func (t *Transcript) RemoveLast() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if n := len(t.messages); n > 0 {
		t.messages = t.messages[:n-1]
	}
}

// Last returns the last message, if any.
func (t *Transcript) Last() (chat.Message, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if n := len(t.messages); n > 0 {
		return t.messages[n-1], true
	}
	return chat.Message{}, false
}

// Snapshot returns a copy of all messages.
func (t *Transcript) Snapshot() []chat.Message {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]chat.Message(nil), t.messages...)
}

// Len returns the number of messages.
func (t *Transcript) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.messages)
}
