// internal/chat/history.go
package chat

import (
	"sync"
	"time"
)

// DefaultCapacity bounds the in-memory chat log. Oldest entries are
// evicted first once the buffer fills.
const DefaultCapacity = 100

// History is a bounded, ordered log of chat messages. The connection
// manager is the only writer; the UI and the orchestrator read copies.
type History struct {
	mu       sync.Mutex
	entries  []Message
	capacity int
}

// NewHistory creates a history bounded at DefaultCapacity entries.
func NewHistory() *History {
	return NewHistoryWithCapacity(DefaultCapacity)
}

// NewHistoryWithCapacity creates a history with a custom bound.
func NewHistoryWithCapacity(capacity int) *History {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &History{
		entries:  make([]Message, 0, capacity),
		capacity: capacity,
	}
}

// Append adds a message, stamping it with the current wall-clock time
// when no timestamp is set. On overflow the oldest entry is dropped.
func (h *History) Append(msg Message) Message {
	if msg.Timestamp == "" {
		msg.Timestamp = time.Now().Format("15:04")
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.entries) >= h.capacity {
		h.entries = append(h.entries[:0], h.entries[1:]...)
	}
	h.entries = append(h.entries, msg)
	return msg
}

// Last returns a copy of the most recent n entries, oldest first.
func (h *History) Last(n int) []Message {
	h.mu.Lock()
	defer h.mu.Unlock()

	if n > len(h.entries) {
		n = len(h.entries)
	}
	result := make([]Message, n)
	copy(result, h.entries[len(h.entries)-n:])
	return result
}

// All returns a copy of every entry, oldest first.
func (h *History) All() []Message {
	h.mu.Lock()
	defer h.mu.Unlock()

	result := make([]Message, len(h.entries))
	copy(result, h.entries)
	return result
}

// Len returns the number of stored entries.
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.entries)
}

// Clear drops all entries. Called on each new connection attempt.
func (h *History) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = h.entries[:0]
}
