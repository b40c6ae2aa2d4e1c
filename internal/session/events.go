// ============================================================================
// meinDOLMETSCHER - Lokaler Sprachübersetzer
// ============================================================================
//
// Package:     session
// Description: Session events and per-subscriber FIFO delivery
// Author:      Mike Stoffels
// Created:     2026-10-17
// License:     MIT
// ============================================================================

package session

import (
	"sync"
	"time"

	"github.com/msto63/dolmetscher/internal/conversation"
)

// EventType identifies an event
type EventType string

const (
	EventStateChanged        EventType = "state_changed"
	EventMessageAppended     EventType = "message_appended"
	EventConversationCleared EventType = "conversation_cleared"
	EventSilenceDetected     EventType = "silence_detected"
	EventSettingsChanged     EventType = "settings_changed"
)

// Event is a notification for observers. Only the fields belonging to
// Type are set.
type Event struct {
	Type EventType `json:"type"`
	Seq  uint64    `json:"seq"`
	Time time.Time `json:"time"`

	From *State `json:"from,omitempty"`
	To   *State `json:"to,omitempty"`

	Message  *conversation.Message `json:"message,omitempty"`
	Removed  int                   `json:"removed,omitempty"`
	Settings *Settings             `json:"settings,omitempty"`
}

// Subscription delivers events in publish order
type Subscription struct {
	C <-chan Event

	b      *Broadcaster
	mu     sync.Mutex
	queue  []Event
	signal chan struct{}
	done   chan struct{}
	once   sync.Once

	// ended is closed by the broadcaster; queued events are still delivered
	ended   chan struct{}
	endOnce sync.Once
}

// Close ends the subscription and drops undelivered events; C is closed
// afterwards
func (s *Subscription) Close() {
	s.once.Do(func() {
		close(s.done)
		if s.b != nil {
			s.b.remove(s)
		}
	})
}

func (s *Subscription) end() {
	s.endOnce.Do(func() { close(s.ended) })
}

func (s *Subscription) push(ev Event) {
	s.mu.Lock()
	s.queue = append(s.queue, ev)
	s.mu.Unlock()
	select {
	case s.signal <- struct{}{}:
	default:
	}
}

func (s *Subscription) pump(out chan<- Event) {
	defer close(out)
	for {
		select {
		case <-s.signal:
		case <-s.ended:
		case <-s.done:
			return
		}
		for {
			s.mu.Lock()
			if len(s.queue) == 0 {
				s.mu.Unlock()
				break
			}
			ev := s.queue[0]
			s.queue = s.queue[1:]
			s.mu.Unlock()

			select {
			case out <- ev:
			case <-s.done:
				return
			}
		}

		// Nothing is pushed after the broadcaster closed, so an empty
		// queue here is final.
		select {
		case <-s.ended:
			return
		default:
		}
	}
}

// Broadcaster fans events out to subscribers. Publish never blocks: each
// subscriber has its own unbounded mailbox drained by a goroutine.
type Broadcaster struct {
	mu     sync.Mutex
	subs   map[*Subscription]struct{}
	seq    uint64
	closed bool
}

// NewBroadcaster creates a broadcaster
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subs: make(map[*Subscription]struct{})}
}

// Subscribe registers a new subscriber
func (b *Broadcaster) Subscribe() *Subscription {
	out := make(chan Event)
	s := &Subscription{
		C:      out,
		b:      b,
		signal: make(chan struct{}, 1),
		done:   make(chan struct{}),
		ended:  make(chan struct{}),
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		s.once.Do(func() { close(s.done) })
		close(out)
		return s
	}
	b.subs[s] = struct{}{}
	b.mu.Unlock()

	go s.pump(out)
	return s
}

// Publish stamps the event and queues it for every subscriber
func (b *Broadcaster) Publish(ev Event) Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ev
	}
	b.seq++
	ev.Seq = b.seq
	if ev.Time.IsZero() {
		ev.Time = time.Now()
	}
	for s := range b.subs {
		s.push(ev)
	}
	return ev
}

// Subscribers returns the number of active subscribers
func (b *Broadcaster) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Close stops publishing. Each subscriber still receives the events
// queued so far, then its channel is closed.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	b.closed = true
	subs := b.subs
	b.subs = make(map[*Subscription]struct{})
	b.mu.Unlock()

	for s := range subs {
		s.end()
	}
}

func (b *Broadcaster) remove(s *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.subs, s)
}
