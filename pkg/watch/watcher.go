// Package watch re-runs an analysis whenever a watched log file changes.
// Every change triggers a full recomputation.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the quiet period after the last write before a change
// is handled.
const DefaultDebounce = 500 * time.Millisecond

// Watcher monitors files for changes and triggers updates.
type Watcher struct {
	watcher  *fsnotify.Watcher
	files    map[string]*fileState
	mu       sync.RWMutex
	runMu    sync.Mutex // serializes OnChange calls
	debounce time.Duration
	logger   *slog.Logger

	// OnChange is called with the absolute path of a changed file. Calls
	// never overlap.
	OnChange func(ctx context.Context, path string) error

	// OnError receives watcher errors and OnChange failures. When nil they
	// are logged.
	OnError func(path string, err error)
}

type fileState struct {
	path         string
	lastModified time.Time
	size         int64
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets the debounce interval.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(w *Watcher) {
		if l != nil {
			w.logger = l
		}
	}
}

// NewWatcher creates a new file watcher.
func NewWatcher(opts ...Option) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	w := &Watcher{
		watcher:  fsWatcher,
		files:    make(map[string]*fileState),
		debounce: DefaultDebounce,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Watch starts watching a file for changes.
func (w *Watcher) Watch(path string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve path: %w", err)
	}

	stat, err := os.Stat(absPath)
	if err != nil {
		return fmt.Errorf("failed to stat file: %w", err)
	}

	w.mu.Lock()
	w.files[absPath] = &fileState{
		path:         absPath,
		lastModified: stat.ModTime(),
		size:         stat.Size(),
	}
	w.mu.Unlock()

	// Watch the directory so that editors replacing the file are seen.
	dir := filepath.Dir(absPath)
	if err := w.watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch directory: %w", err)
	}

	return nil
}

// Run starts the watch loop. Blocks until context is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	timers := make(map[string]*time.Timer)
	var timerMu sync.Mutex
	defer func() {
		timerMu.Lock()
		for _, t := range timers {
			t.Stop()
		}
		timerMu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			w.watcher.Close()
			return ctx.Err()

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}

			absPath, err := filepath.Abs(event.Name)
			if err != nil {
				continue
			}

			w.mu.RLock()
			state, isWatched := w.files[absPath]
			w.mu.RUnlock()
			if !isWatched {
				continue
			}

			// Debounce rapid changes
			timerMu.Lock()
			if timer, exists := timers[absPath]; exists {
				timer.Stop()
			}
			timers[absPath] = time.AfterFunc(w.debounce, func() {
				w.handleChange(ctx, state)
			})
			timerMu.Unlock()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.reportError("", err)
		}
	}
}

func (w *Watcher) handleChange(ctx context.Context, state *fileState) {
	w.runMu.Lock()
	defer w.runMu.Unlock()

	if ctx.Err() != nil {
		return
	}

	stat, err := os.Stat(state.path)
	if err != nil {
		w.reportError(state.path, err)
		return
	}

	w.mu.Lock()
	unchanged := stat.ModTime().Equal(state.lastModified) && stat.Size() == state.size
	state.lastModified = stat.ModTime()
	state.size = stat.Size()
	w.mu.Unlock()
	if unchanged {
		return
	}

	w.logger.Debug("log changed", "path", state.path, "size", stat.Size())
	if w.OnChange != nil {
		if err := w.OnChange(ctx, state.path); err != nil {
			w.reportError(state.path, err)
		}
	}
}

func (w *Watcher) reportError(path string, err error) {
	if w.OnError != nil {
		w.OnError(path, err)
		return
	}
	w.logger.Error("watch error", "path", path, "error", err)
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}
