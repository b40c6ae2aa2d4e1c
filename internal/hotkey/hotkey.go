package hotkey

import (
	"context"
	"fmt"
	"time"

	"golang.design/x/hotkey"
	"golang.design/x/hotkey/mainthread"

	"github.com/msto63/dolmetscher/pkg/core/logging"
)

// DebounceInterval swallows key repeat
const DebounceInterval = 300 * time.Millisecond

// Toggler is the action bound to the shortcut
type Toggler interface {
	Toggle(ctx context.Context) (bool, error)
}

// Listener registers a binding and toggles recording on key down
type Listener struct {
	binding Binding
	target  Toggler
	logger  *logging.Logger
}

// NewListener creates a listener
func NewListener(binding Binding, target Toggler, logger *logging.Logger) *Listener {
	if logger == nil {
		logger = logging.New("hotkey")
	}
	return &Listener{binding: binding, target: target, logger: logger}
}

// RunOnMainThread runs fn while the main thread serves hotkey
// registration. macOS requires it; main wraps the whole program in it.
func RunOnMainThread(fn func()) {
	mainthread.Init(fn)
}

// Run registers the shortcut and blocks until ctx is done
func (l *Listener) Run(ctx context.Context) error {
	mods, key, err := l.binding.native()
	if err != nil {
		return err
	}
	hk := hotkey.New(mods, key)
	if err := hk.Register(); err != nil {
		return fmt.Errorf("failed to register hotkey %s: %w", l.binding, err)
	}
	defer hk.Unregister()

	l.logger.Info("Hotkey registered", "shortcut", l.binding.String())

	var d debouncer
	for {
		select {
		case <-ctx.Done():
			return nil
		case _, ok := <-hk.Keydown():
			if !ok {
				return nil
			}
			if !d.allow(time.Now()) {
				continue
			}
			l.trigger(ctx)
		}
	}
}

func (l *Listener) trigger(ctx context.Context) {
	changed, err := l.target.Toggle(ctx)
	if err != nil {
		l.logger.Warn("Hotkey toggle failed", "error", err)
		return
	}
	l.logger.Debug("Hotkey pressed", "changed", changed)
}

// debouncer admits one press per DebounceInterval
type debouncer struct {
	last time.Time
}

func (d *debouncer) allow(now time.Time) bool {
	if !d.last.IsZero() && now.Sub(d.last) < DebounceInterval {
		return false
	}
	d.last = now
	return true
}
