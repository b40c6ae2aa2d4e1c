package monitor

import (
	"time"

	"github.com/msto63/dolmetscher/internal/session"
)

// eventMsg carries one session event; ok is false once the
// subscription is closed.
type eventMsg struct {
	event session.Event
	ok    bool
}

// commandDoneMsg reports a finished session command
type commandDoneMsg struct {
	command string
	err     error
}

// tickMsg refreshes the input level
type tickMsg time.Time
