package abilities

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"aura/internal/async"
	"aura/internal/logging"
)

const defaultWatchDebounce = 750 * time.Millisecond

// Watcher monitors the overlay file and invokes a callback after edits settle.
type Watcher struct {
	path     string
	onChange func(context.Context) error
	logger   logging.Logger
	debounce time.Duration

	mu       sync.Mutex
	ctx      context.Context
	timer    *time.Timer
	watcher  *fsnotify.Watcher
	stopCh   chan struct{}
	stopOnce sync.Once
}

// WatcherOption customizes watcher behavior.
type WatcherOption func(*Watcher)

// WithWatchDebounce sets the debounce window.
func WithWatchDebounce(debounce time.Duration) WatcherOption {
	return func(w *Watcher) {
		if debounce > 0 {
			w.debounce = debounce
		}
	}
}

// WithWatchLogger sets the logger for watcher diagnostics.
func WithWatchLogger(logger logging.Logger) WatcherOption {
	return func(w *Watcher) {
		w.logger = logging.OrNop(logger)
	}
}

// NewWatcher constructs a watcher for the overlay at path.
func NewWatcher(path string, onChange func(context.Context) error, opts ...WatcherOption) (*Watcher, error) {
	if onChange == nil {
		return nil, fmt.Errorf("change callback required")
	}
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("overlay path required")
	}
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}

	w := &Watcher{
		path:     filepath.Clean(path),
		onChange: onChange,
		logger:   logging.Nop(),
		debounce: defaultWatchDebounce,
		stopCh:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Start begins watching. The overlay's directory is watched rather than the
// file so editors that replace the file by rename are still observed.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.watcher != nil {
		w.mu.Unlock()
		return nil
	}
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		w.mu.Unlock()
		return err
	}
	w.watcher = fsWatcher
	w.ctx = ctx
	if w.ctx == nil {
		w.ctx = context.Background()
	}
	w.mu.Unlock()

	if err := fsWatcher.Add(filepath.Dir(w.path)); err != nil {
		_ = fsWatcher.Close()
		w.mu.Lock()
		w.watcher = nil
		w.mu.Unlock()
		return err
	}

	async.Go(w.logger, "abilities.watch", func() { w.watchLoop(fsWatcher) })
	if ctx != nil {
		async.Go(w.logger, "abilities.watch.ctx", func() {
			select {
			case <-ctx.Done():
				w.Stop()
			case <-w.stopCh:
			}
		})
	}
	return nil
}

// Stop terminates the watcher. It is safe to call more than once.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
		w.mu.Lock()
		if w.timer != nil {
			w.timer.Stop()
			w.timer = nil
		}
		if w.watcher != nil {
			_ = w.watcher.Close()
			w.watcher = nil
		}
		w.mu.Unlock()
	})
}

// Done is closed once the watcher stops.
func (w *Watcher) Done() <-chan struct{} {
	return w.stopCh
}

func (w *Watcher) watchLoop(fsWatcher *fsnotify.Watcher) {
	for {
		select {
		case <-w.stopCh:
			return
		case event, ok := <-fsWatcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-fsWatcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("Abilities watcher error: %v", err)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if event.Name == "" {
		return
	}
	if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}
	if filepath.Clean(event.Name) != w.path {
		return
	}
	w.schedule()
}

func (w *Watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	ctx := w.ctx
	w.timer = time.AfterFunc(w.debounce, func() {
		select {
		case <-w.stopCh:
			return
		default:
		}
		if err := w.onChange(ctx); err != nil {
			w.logger.Warn("Abilities reload failed: %v", err)
		}
	})
}
