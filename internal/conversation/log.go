// ============================================================================
// meinDOLMETSCHER - Lokaler Sprachübersetzer
// ============================================================================
//
// Package:     conversation
// Description: Append-only conversation log
// Author:      Mike Stoffels
// Created:     2026-10-17
// License:     MIT
// ============================================================================

package conversation

import "sync"

// Log is the ordered record of exchanged messages. Only the session
// coordinator mutates it; readers get copies and never block the writer
// for longer than a slice copy.
type Log struct {
	mu       sync.RWMutex
	messages []Message
}

// NewLog creates an empty log
func NewLog() *Log {
	return &Log{}
}

// Append adds a message at the end
func (l *Log) Append(m Message) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, m)
}

// Restore replaces the contents with previously persisted messages
func (l *Log) Restore(messages []Message) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append([]Message(nil), messages...)
}

// Clear empties the log and returns the number of removed messages. The
// backing array is dropped, so later appends never write into storage a
// previous snapshot could observe.
func (l *Log) Clear() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := len(l.messages)
	l.messages = nil
	return n
}

// Len returns the number of messages
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.messages)
}

// Snapshot returns a copy of all messages in chronological order
func (l *Log) Snapshot() []Message {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Message, len(l.messages))
	copy(out, l.messages)
	return out
}

// Last returns up to n of the most recent messages
func (l *Log) Last(n int) []Message {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if n > len(l.messages) {
		n = len(l.messages)
	}
	out := make([]Message, n)
	copy(out, l.messages[len(l.messages)-n:])
	return out
}
