package config

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultDebounceInterval is how long the watcher waits after the last
// filesystem event before reloading, so editors that write in several
// steps trigger a single reload.
const DefaultDebounceInterval = 100 * time.Millisecond

// Watcher watches the resolved config.toml for changes and invokes a
// callback with the freshly loaded Config. Editors often replace files
// by rename, so the watch is on the containing directory rather than
// the file itself.
type Watcher struct {
	cfger    *Configer
	watcher  *fsnotify.Watcher
	logger   *zap.Logger
	debounce time.Duration

	mu    sync.Mutex
	timer *time.Timer
}

// NewWatcher creates a Watcher for the given Configer's target file.
// Returns an error if the Configer has no resolved config path.
func NewWatcher(cfger *Configer, logger *zap.Logger) (*Watcher, error) {
	if cfger == nil || cfger.GetTarget() == "" {
		return nil, errors.New("no config file to watch")
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating fsnotify watcher: %w", err)
	}

	if err := fsw.Add(filepath.Dir(cfger.GetTarget())); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("watching config dir: %w", err)
	}

	return &Watcher{
		cfger:    cfger,
		watcher:  fsw,
		logger:   logger,
		debounce: DefaultDebounceInterval,
	}, nil
}

// Watch blocks until ctx is cancelled, invoking onReload with the newly
// loaded Config after each debounced change to the config file. Reload
// errors are logged and watching continues.
func (w *Watcher) Watch(ctx context.Context, onReload func(*Config)) error {
	target := w.cfger.GetTarget()

	w.logger.Info("watching config file", zap.String("path", target))

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return errors.New("watcher events channel closed")
			}

			if filepath.Clean(event.Name) != filepath.Clean(target) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}

			w.schedule(onReload)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return errors.New("watcher errors channel closed")
			}
			w.logger.Warn("config watcher error", zap.Error(err))
		}
	}
}

// Close stops the watcher and cancels any pending reload.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	w.mu.Unlock()

	return w.watcher.Close()
}

func (w *Watcher) schedule(onReload func(*Config)) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.timer != nil {
		w.timer.Stop()
	}

	w.timer = time.AfterFunc(w.debounce, func() {
		cfg, err := w.cfger.LoadConfig()
		if err != nil {
			w.logger.Error("reloading config", zap.Error(err))
			return
		}

		w.logger.Info("config file changed, reloading")
		onReload(cfg)
	})
}
