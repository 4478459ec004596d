// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and hot reload for ircbridge.
package config

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// defaultDebounce coalesces the bursts of write events editors emit when
// saving a file.
const defaultDebounce = 250 * time.Millisecond

// Watcher monitors a configuration file and publishes replacement snapshots
// when it changes. The watcher is the single producer on its Updates
// channel; the dispatcher drains the latest snapshot at safe points between
// messages.
type Watcher struct {
	path     string
	logger   *zap.Logger
	watcher  *fsnotify.Watcher
	debounce time.Duration
	updates  chan *Config
	cancel   context.CancelFunc
}

// NewWatcher creates a watcher for the config file at path. Watch is not
// started until Start is called.
func NewWatcher(path string, logger *zap.Logger) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		fw.Close()
		return nil, err
	}

	return &Watcher{
		path:     abs,
		logger:   logger,
		watcher:  fw,
		debounce: defaultDebounce,
		updates:  make(chan *Config, 1),
	}, nil
}

// Updates returns the channel on which new configuration snapshots arrive.
// Only the most recent snapshot is retained: if the consumer has not drained
// the previous one, it is replaced.
func (w *Watcher) Updates() <-chan *Config {
	return w.updates
}

// Start begins watching. The parent directory is watched rather than the
// file itself so that editor save-via-rename does not drop the watch.
func (w *Watcher) Start(ctx context.Context) error {
	if err := w.watcher.Add(filepath.Dir(w.path)); err != nil {
		return err
	}

	ctx, w.cancel = context.WithCancel(ctx)
	go w.run(ctx)
	return nil
}

// Close stops watching and releases resources.
func (w *Watcher) Close() error {
	if w.cancel != nil {
		w.cancel()
	}
	return w.watcher.Close()
}

// run processes file system events until the context is canceled.
func (w *Watcher) run(ctx context.Context) {
	var (
		timer   *time.Timer
		timerCh <-chan time.Time
	)

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			// Restart the debounce window on every relevant event.
			if timer == nil {
				timer = time.NewTimer(w.debounce)
				timerCh = timer.C
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(w.debounce)
			}

		case <-timerCh:
			timer = nil
			timerCh = nil
			w.reload()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("config watcher error", zap.Error(err))
		}
	}
}

// reload re-reads the config file and publishes the new snapshot. A
// malformed file is logged and the previous configuration stays in effect.
func (w *Watcher) reload() {
	cfg, err := LoadFromPath(w.path)
	if err != nil {
		w.logger.Error("config reload failed, keeping previous configuration",
			zap.String("path", w.path),
			zap.Error(err))
		return
	}

	// Drop the stale snapshot if the consumer has not picked it up yet.
	select {
	case <-w.updates:
	default:
	}
	w.updates <- cfg

	w.logger.Info("configuration reloaded", zap.String("path", w.path))
}
