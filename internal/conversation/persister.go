package conversation

import (
	"context"
	"sync"

	"github.com/msto63/dolmetscher/pkg/core/logging"
)

// Persister mirrors appended messages into a Store and archives the
// conversation when it is cleared. Either store or archiver may be nil.
type Persister struct {
	store    Store
	archiver *Archiver
	logger   *logging.Logger

	mu    sync.Mutex
	since []Message // messages since the last clear, used without a store
}

// NewPersister creates a persister
func NewPersister(store Store, archiver *Archiver, logger *logging.Logger) *Persister {
	if logger == nil {
		logger = logging.New("persister")
	}
	return &Persister{store: store, archiver: archiver, logger: logger}
}

// Restore loads up to limit stored messages into log
func (p *Persister) Restore(ctx context.Context, log *Log, limit int) (int, error) {
	if p.store == nil {
		return 0, nil
	}
	messages, err := p.store.Recent(ctx, limit)
	if err != nil {
		return 0, err
	}
	log.Restore(messages)

	p.mu.Lock()
	p.since = append(p.since[:0], messages...)
	p.mu.Unlock()

	p.logger.Info("Conversation restored", "messages", len(messages))
	return len(messages), nil
}

// Appended records a message added to the conversation
func (p *Persister) Appended(ctx context.Context, m Message) error {
	p.mu.Lock()
	p.since = append(p.since, m)
	p.mu.Unlock()

	if p.store == nil {
		return nil
	}
	return p.store.Save(ctx, m)
}

// Cleared archives what was stored and then deletes it. When archiving
// fails the stored history is kept.
func (p *Persister) Cleared(ctx context.Context) error {
	p.mu.Lock()
	messages := p.since
	p.since = nil
	p.mu.Unlock()

	if p.store != nil {
		all, err := p.store.Recent(ctx, 0)
		if err != nil {
			return err
		}
		messages = all
	}

	if p.archiver != nil && p.archiver.Enabled() {
		if _, err := p.archiver.Archive(ctx, messages); err != nil {
			return err
		}
	}

	if p.store == nil {
		return nil
	}
	removed, err := p.store.DeleteAll(ctx)
	if err != nil {
		return err
	}
	p.logger.Debug("Stored history deleted", "removed", removed)
	return nil
}
