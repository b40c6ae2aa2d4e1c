package config

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/msto63/dolmetscher/pkg/core/logging"
)

// DebounceDelay is the quiet period after the last file event before the
// configuration is reloaded
const DebounceDelay = 500 * time.Millisecond

// Watch reloads path whenever it changes and passes each valid result to
// onChange. The parent directory is watched so that editors replacing the
// file by rename are noticed. Invalid files are logged and skipped; the
// previous configuration stays in effect. Watch returns once the watcher
// is installed; reloading stops when ctx is cancelled.
func Watch(ctx context.Context, path string, logger *logging.Logger, onChange func(*Config)) error {
	if logger == nil {
		logger = logging.New("config")
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve config path: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch directory: %w", err)
	}

	logger.Info("Watching configuration", "path", abs)
	go watchLoop(ctx, watcher, abs, logger, onChange)
	return nil
}

func watchLoop(ctx context.Context, watcher *fsnotify.Watcher, path string, logger *logging.Logger, onChange func(*Config)) {
	defer watcher.Close()

	timer := time.NewTimer(DebounceDelay)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Debug("Stopping config watcher")
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			timer.Reset(DebounceDelay)

		case <-timer.C:
			cfg, err := Load(path)
			if err != nil {
				logger.Error("Failed to reload configuration", "path", path, "error", err)
				continue
			}
			logger.Info("Configuration reloaded", "path", path)
			onChange(cfg)

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			logger.Error("Watcher error", "error", err)
		}
	}
}
