// Package history keeps per-identity bounded collections of composed
// messages and safety alerts. Eviction is oldest-first and atomic with
// insertion, so the caps hold under concurrent writers.
package history

import (
	"sync"

	"github.com/af-corp/scribe/internal/types"
)

const (
	// MessageCap bounds the retained messages per identity.
	MessageCap = 10
	// AlertCap bounds the retained alerts per identity.
	AlertCap = 20
)

// MessageLog is a per-identity FIFO ring of composed messages.
type MessageLog struct {
	mu      sync.Mutex
	entries map[string][]types.ComposedMessage
}

func NewMessageLog() *MessageLog {
	return &MessageLog{entries: make(map[string][]types.ComposedMessage)}
}

// Append records a message, evicting the oldest entry once the cap is hit.
func (l *MessageLog) Append(identity string, msg types.ComposedMessage) {
	l.mu.Lock()
	defer l.mu.Unlock()
	entries := append(l.entries[identity], msg)
	if len(entries) > MessageCap {
		entries = entries[len(entries)-MessageCap:]
	}
	l.entries[identity] = entries
}

// List returns a copy of the identity's retained messages, oldest first.
func (l *MessageLog) List(identity string) []types.ComposedMessage {
	l.mu.Lock()
	defer l.mu.Unlock()
	entries := l.entries[identity]
	out := make([]types.ComposedMessage, len(entries))
	copy(out, entries)
	return out
}

// Get returns the retained message with the given ID.
func (l *MessageLog) Get(identity, id string) (types.ComposedMessage, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, m := range l.entries[identity] {
		if m.ID == id {
			return m, true
		}
	}
	return types.ComposedMessage{}, false
}

// Update replaces the retained message with the same ID, if still retained.
func (l *MessageLog) Update(identity string, msg types.ComposedMessage) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	entries := l.entries[identity]
	for i, m := range entries {
		if m.ID == msg.ID {
			entries[i] = msg
			return true
		}
	}
	return false
}

// AlertLog is a per-identity FIFO ring of safety alerts. Alerts are
// append-only; resolution flips a flag rather than removing the entry.
type AlertLog struct {
	mu      sync.Mutex
	entries map[string][]types.Alert
}

func NewAlertLog() *AlertLog {
	return &AlertLog{entries: make(map[string][]types.Alert)}
}

// Append records an alert, evicting the oldest entry once the cap is hit.
func (l *AlertLog) Append(identity string, alert types.Alert) {
	l.mu.Lock()
	defer l.mu.Unlock()
	entries := append(l.entries[identity], alert)
	if len(entries) > AlertCap {
		entries = entries[len(entries)-AlertCap:]
	}
	l.entries[identity] = entries
}

// List returns a copy of the identity's retained alerts, oldest first.
func (l *AlertLog) List(identity string) []types.Alert {
	l.mu.Lock()
	defer l.mu.Unlock()
	entries := l.entries[identity]
	out := make([]types.Alert, len(entries))
	copy(out, entries)
	return out
}

// Resolve marks the alert with the given ID as resolved. Returns false when
// the alert is unknown or already evicted.
func (l *AlertLog) Resolve(identity, id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	entries := l.entries[identity]
	for i := range entries {
		if entries[i].ID == id {
			entries[i].Resolved = true
			return true
		}
	}
	return false
}
