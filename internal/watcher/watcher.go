// Package watcher reloads the knowledge base when its source file changes on disk.
package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const defaultDebounce = 400 * time.Millisecond

// Watcher watches a single file and invokes onChange after writes settle.
// The parent directory is watched so that editors replacing the file
// through a rename are still observed.
type Watcher struct {
	path     string
	onChange func()
	debounce time.Duration
	watcher  *fsnotify.Watcher
	mu       sync.Mutex
	timer    *time.Timer
	done     chan struct{}
	started  bool
	stopOnce sync.Once
	logger   *zap.Logger
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithLogger sets a logger for debug output.
func WithLogger(l *zap.Logger) WatcherOption {
	return func(w *Watcher) { w.logger = l }
}

// WithDebounce overrides the quiet period before onChange fires.
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// NewWatcher creates a watcher for path.
func NewWatcher(path string, onChange func(), opts ...WatcherOption) *Watcher {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	w := &Watcher{
		path:     filepath.Clean(path),
		onChange: onChange,
		debounce: defaultDebounce,
		done:     make(chan struct{}),
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Path returns the watched file.
func (w *Watcher) Path() string {
	return w.path
}

// Start starts the watcher. It runs until ctx is cancelled or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.started {
		return nil
	}
	dir := filepath.Dir(w.path)
	if _, err := os.Stat(dir); err != nil {
		return err
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(dir); err != nil {
		_ = watcher.Close()
		return err
	}
	w.watcher = watcher
	w.started = true
	w.logger.Debug("watcher starting", zap.String("path", w.path), zap.Duration("debounce", w.debounce))
	go w.run(ctx, watcher)
	return nil
}

func (w *Watcher) run(ctx context.Context, watcher *fsnotify.Watcher) {
	for {
		select {
		case <-ctx.Done():
			w.Stop()
			return
		case <-w.done:
			return
		case ev, ok := <-watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(ev)
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			if err != nil {
				w.logger.Debug("watcher error", zap.Error(err))
			}
		}
	}
}

func (w *Watcher) handleEvent(ev fsnotify.Event) {
	if filepath.Clean(ev.Name) != w.path {
		return
	}
	w.logger.Debug("watcher event", zap.String("op", ev.Op.String()), zap.String("path", ev.Name))
	if ev.Has(fsnotify.Create) || ev.Has(fsnotify.Write) || ev.Has(fsnotify.Rename) {
		w.schedule()
	}
}

func (w *Watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.started {
		return
	}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.fire)
}

func (w *Watcher) fire() {
	w.mu.Lock()
	w.timer = nil
	started := w.started
	w.mu.Unlock()
	if !started {
		return
	}
	if _, err := os.Stat(w.path); err != nil {
		// Replaced via rename and not yet recreated; the Create event reschedules.
		w.logger.Debug("watched file missing", zap.String("path", w.path), zap.Error(err))
		return
	}
	w.logger.Debug("watched file changed (debounced)", zap.String("path", w.path))
	if w.onChange != nil {
		w.onChange()
	}
}

// Stop stops the watcher and releases resources.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.started || w.watcher == nil {
		w.mu.Unlock()
		return
	}
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	_ = w.watcher.Close()
	w.watcher = nil
	w.started = false
	w.mu.Unlock()
	w.stopOnce.Do(func() { close(w.done) })
}
