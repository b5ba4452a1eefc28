package config

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher watches a configuration file for changes and invokes a callback
// with the freshly loaded configuration on every successful reload.
//
// Only a subset of settings is safe to swap at runtime (budget limits,
// routing strategy); the callback owner decides what to apply. A reload
// that fails to parse or validate is logged and ignored, keeping the
// previous configuration in effect.
type Watcher struct {
	path     string
	onReload func(*Config)
	watcher  *fsnotify.Watcher
	logger   *slog.Logger

	// debounce collapses editor write bursts into one reload.
	debounce time.Duration
}

// NewWatcher creates a configuration file watcher.
// The callback is invoked from the watcher goroutine; it must not block.
func NewWatcher(path string, onReload func(*Config)) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	// Watch the directory rather than the file: many editors replace the
	// file on save, which drops a direct file watch.
	if err := fsw.Add(filepath.Dir(path)); err != nil {
		fsw.Close()
		return nil, err
	}

	return &Watcher{
		path:     path,
		onReload: onReload,
		watcher:  fsw,
		logger:   slog.Default().With("component", "config.watcher"),
		debounce: 250 * time.Millisecond,
	}, nil
}

// Start runs the watch loop until the context is cancelled.
func (w *Watcher) Start(ctx context.Context) {
	go w.run(ctx)
}

func (w *Watcher) run(ctx context.Context) {
	defer w.watcher.Close()

	var timer *time.Timer
	reload := make(chan struct{}, 1)

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(w.path) {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(w.debounce, func() {
				select {
				case reload <- struct{}{}:
				default:
				}
			})

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("config watch error", "error", err)

		case <-reload:
			cfg, err := LoadConfigWithEnvOverrides(w.path)
			if err != nil {
				w.logger.Warn("config reload failed, keeping previous config",
					"path", w.path,
					"error", err,
				)
				continue
			}
			w.logger.Info("config reloaded", "path", w.path)
			w.onReload(cfg)
		}
	}
}
