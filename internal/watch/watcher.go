// Package watch re-runs work when any file of a session's source closure
// changes on disk.
package watch

import (
	"context"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"huffdbg/internal/logging"
)

// DefaultDebounce lets rapid saves of one file settle into one change.
const DefaultDebounce = 300 * time.Millisecond

// Watcher watches a set of source files. Their parent directories are
// watched rather than the files, so editors that save by rename are seen.
type Watcher struct {
	mu          sync.Mutex
	watcher     *fsnotify.Watcher
	files       map[string]bool
	dirs        map[string]bool
	pending     map[string]time.Time
	debounceDur time.Duration
	onChange    func(changed []string)
	stopCh      chan struct{}
	doneCh      chan struct{}
	running     bool

	stats Stats
}

// Stats counts watcher activity.
type Stats struct {
	Events  int
	Batches int
	Errors  int
}

// New creates a watcher that calls onChange with the sorted paths that
// changed once they have been quiet for debounce (DefaultDebounce when
// zero). onChange runs on the watcher goroutine.
func New(paths []string, debounce time.Duration, onChange func(changed []string)) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	w := &Watcher{
		watcher:     fw,
		files:       make(map[string]bool),
		dirs:        make(map[string]bool),
		pending:     make(map[string]time.Time),
		debounceDur: debounce,
		onChange:    onChange,
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}
	if err := w.SetPaths(paths); err != nil {
		_ = fw.Close()
		return nil, err
	}
	return w, nil
}

// SetPaths replaces the tracked files. Directories already watched stay
// watched.
func (w *Watcher) SetPaths(paths []string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.files = make(map[string]bool, len(paths))
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return err
		}
		w.files[abs] = true

		dir := filepath.Dir(abs)
		if w.dirs[dir] {
			continue
		}
		if err := w.watcher.Add(dir); err != nil {
			return err
		}
		w.dirs[dir] = true
		logging.SourceDebug("Watching %s", dir)
	}
	return nil
}

// Start begins watching in a goroutine.
func (w *Watcher) Start(ctx context.Context) {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return
	}
	w.running = true
	w.mu.Unlock()

	go w.run(ctx)
}

// Stop stops the watcher and waits for its goroutine to exit.
func (w *Watcher) Stop() {
	w.mu.Lock()
	running := w.running
	w.running = false
	w.mu.Unlock()

	if running {
		close(w.stopCh)
		<-w.doneCh
	}
	if err := w.watcher.Close(); err != nil {
		logging.Get(logging.CategorySource).Error("Failed to close watcher: %v", err)
	}
}

// Stats returns a snapshot of the counters.
func (w *Watcher) Stats() Stats {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stats
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)

	ticker := time.NewTicker(w.debounceDur / 3)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logging.Get(logging.CategorySource).Error("Watcher error: %v", err)
			w.mu.Lock()
			w.stats.Errors++
			w.mu.Unlock()

		case <-ticker.C:
			w.flush()
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
		!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return
	}

	path := filepath.Clean(event.Name)
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.files[path] {
		return
	}
	w.stats.Events++
	w.pending[path] = time.Now()
	logging.SourceDebug("%s: %s", event.Op, path)
}

// flush reports the files that have settled past the debounce window.
func (w *Watcher) flush() {
	w.mu.Lock()
	now := time.Now()
	var settled []string
	for path, at := range w.pending {
		if now.Sub(at) >= w.debounceDur {
			settled = append(settled, path)
			delete(w.pending, path)
		}
	}
	if len(settled) > 0 {
		w.stats.Batches++
	}
	w.mu.Unlock()

	if len(settled) == 0 {
		return
	}
	sort.Strings(settled)
	logging.Source("%d source file(s) changed", len(settled))
	w.onChange(settled)
}
