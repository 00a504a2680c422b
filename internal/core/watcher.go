package core

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"hearsay/internal/grammar"
	"hearsay/internal/logging"
)

// GrammarWatcher reloads the front end's grammar when the grammar file or one
// of its includes changes on disk.
type GrammarWatcher struct {
	mu          sync.RWMutex
	watcher     *fsnotify.Watcher
	frontend    *Frontend
	files       map[string]bool // absolute paths of the grammar and its includes
	pending     time.Time       // zero when nothing is waiting
	debounceDur time.Duration
	onReload    func([]grammar.Diagnostic, error)
	stopCh      chan struct{}
	doneCh      chan struct{}
	running     bool
	closed      bool

	stats WatcherStats
}

// WatcherStats tracks watcher activity.
type WatcherStats struct {
	Events        int
	Reloads       int
	Errors        int
	LastEventTime time.Time
	LastEventPath string
	LastEventType string
}

// NewGrammarWatcher creates a watcher for f. A non-positive debounce uses 500ms.
func NewGrammarWatcher(f *Frontend, debounce time.Duration) (*GrammarWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if debounce <= 0 {
		debounce = 500 * time.Millisecond
	}
	return &GrammarWatcher{
		watcher:     watcher,
		frontend:    f,
		files:       make(map[string]bool),
		debounceDur: debounce,
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}, nil
}

// OnReload registers a callback run after every reload.
func (gw *GrammarWatcher) OnReload(fn func([]grammar.Diagnostic, error)) {
	gw.mu.Lock()
	defer gw.mu.Unlock()
	gw.onReload = fn
}

// ErrWatcherStopped is returned by Start after Stop.
var ErrWatcherStopped = errors.New("grammar watcher stopped")

// Start begins watching. It is non-blocking.
func (gw *GrammarWatcher) Start(ctx context.Context) error {
	gw.mu.Lock()
	if gw.closed {
		gw.mu.Unlock()
		return ErrWatcherStopped
	}
	if gw.running {
		gw.mu.Unlock()
		return nil
	}
	gw.running = true
	gw.mu.Unlock()

	if err := gw.Refresh(); err != nil {
		gw.mu.Lock()
		gw.running = false
		gw.mu.Unlock()
		return err
	}
	go gw.run(ctx)
	return nil
}

// Refresh watches the directory of every file the grammar was read from.
// Directories are watched rather than files so editors that replace the file
// on save keep being seen.
func (gw *GrammarWatcher) Refresh() error {
	files := gw.frontend.Grammar().Files()
	gw.mu.Lock()
	defer gw.mu.Unlock()
	gw.files = make(map[string]bool, len(files))
	dirs := make(map[string]bool)
	for _, f := range files {
		abs, err := filepath.Abs(f)
		if err != nil {
			continue
		}
		gw.files[abs] = true
		dirs[filepath.Dir(abs)] = true
	}
	watched := make(map[string]bool)
	for _, d := range gw.watcher.WatchList() {
		watched[d] = true
	}
	for d := range dirs {
		if watched[d] {
			continue
		}
		if err := gw.watcher.Add(d); err != nil {
			logging.WatcherWarn("failed to watch %s: %v", d, err)
			continue
		}
		logging.Watcher("watching %s", d)
	}
	return nil
}

// Stop stops the watcher, waits for its goroutine and releases the fsnotify
// watcher. It may be called without Start and more than once.
func (gw *GrammarWatcher) Stop() {
	gw.mu.Lock()
	if gw.closed {
		gw.mu.Unlock()
		return
	}
	gw.closed = true
	wasRunning := gw.running
	gw.running = false
	gw.mu.Unlock()

	if wasRunning {
		close(gw.stopCh)
		<-gw.doneCh
	}

	if err := gw.watcher.Close(); err != nil {
		logging.WatcherWarn("error closing watcher: %v", err)
	}
	logging.Watcher("stopped")
}

func (gw *GrammarWatcher) run(ctx context.Context) {
	defer close(gw.doneCh)

	tick := time.NewTicker(gw.debounceDur / 5)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-gw.stopCh:
			return
		case event, ok := <-gw.watcher.Events:
			if !ok {
				return
			}
			gw.handleEvent(event)
		case err, ok := <-gw.watcher.Errors:
			if !ok {
				return
			}
			logging.WatcherWarn("watch error: %v", err)
			gw.mu.Lock()
			gw.stats.Errors++
			gw.mu.Unlock()
		case <-tick.C:
			gw.processPending(ctx)
		}
	}
}

func (gw *GrammarWatcher) handleEvent(event fsnotify.Event) {
	var eventType string
	switch {
	case event.Op&fsnotify.Create != 0:
		eventType = "create"
	case event.Op&fsnotify.Write != 0:
		eventType = "modify"
	case event.Op&fsnotify.Rename != 0:
		eventType = "rename"
	default:
		return
	}

	abs, err := filepath.Abs(event.Name)
	if err != nil {
		return
	}

	gw.mu.Lock()
	defer gw.mu.Unlock()
	if !gw.files[abs] {
		return
	}
	gw.stats.Events++
	gw.stats.LastEventTime = time.Now()
	gw.stats.LastEventPath = abs
	gw.stats.LastEventType = eventType
	gw.pending = time.Now()
}

func (gw *GrammarWatcher) processPending(ctx context.Context) {
	gw.mu.Lock()
	if gw.pending.IsZero() || time.Since(gw.pending) < gw.debounceDur {
		gw.mu.Unlock()
		return
	}
	gw.pending = time.Time{}
	gw.mu.Unlock()

	gw.Reload(ctx)
}

// Reload reloads the grammar now and re-watches its files.
func (gw *GrammarWatcher) Reload(ctx context.Context) {
	diags, err := gw.frontend.Reload(ctx, "")
	if err != nil {
		logging.WatcherWarn("reload failed: %v", err)
	} else {
		logging.Watcher("grammar reloaded (%d diagnostics)", len(diags))
		_ = gw.Refresh()
	}

	gw.mu.Lock()
	if err != nil {
		gw.stats.Errors++
	} else {
		gw.stats.Reloads++
	}
	fn := gw.onReload
	gw.mu.Unlock()
	if fn != nil {
		fn(diags, err)
	}
}

// GetStats returns the current watcher statistics.
func (gw *GrammarWatcher) GetStats() WatcherStats {
	gw.mu.RLock()
	defer gw.mu.RUnlock()
	return gw.stats
}

// IsWatching returns true if the watcher is running.
func (gw *GrammarWatcher) IsWatching() bool {
	gw.mu.RLock()
	defer gw.mu.RUnlock()
	return gw.running
}
