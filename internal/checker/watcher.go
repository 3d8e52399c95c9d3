package checker

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"satwatch/internal/logging"
)

// Watcher reloads a pattern file into a Checker whenever the file changes.
// The parent directory is watched so editors that replace files on save are
// picked up too.
type Watcher struct {
	mu          sync.Mutex
	watcher     *fsnotify.Watcher
	checker     *Checker
	path        string
	pending     time.Time
	debounceDur time.Duration
	resolve     func(fileGroups []Group) []Group

	stats WatcherStats
}

// WatcherStats counts reload activity.
type WatcherStats struct {
	Reloads int
	Errors  int
}

// NewWatcher creates a watcher for path feeding c.
func NewWatcher(path string, c *Checker) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		_ = w.Close()
		return nil, err
	}
	return &Watcher{
		watcher:     w,
		checker:     c,
		path:        abs,
		debounceDur: 200 * time.Millisecond,
	}, nil
}

// SetResolver sets how reloaded file groups become the checker's full set,
// e.g. merged with built-in groups and filtered by selection. Call before Run.
func (pw *Watcher) SetResolver(fn func(fileGroups []Group) []Group) {
	pw.resolve = fn
}

// Run watches until ctx is cancelled, then closes the underlying watcher.
func (pw *Watcher) Run(ctx context.Context) error {
	defer pw.watcher.Close()

	if err := pw.watcher.Add(filepath.Dir(pw.path)); err != nil {
		return err
	}
	logging.Config("watching pattern file %s", pw.path)

	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-pw.watcher.Events:
			if !ok {
				return nil
			}
			pw.handleEvent(event)
		case err, ok := <-pw.watcher.Errors:
			if !ok {
				return nil
			}
			logging.Get(logging.CategoryConfig).Error("pattern watcher error: %v", err)
			pw.mu.Lock()
			pw.stats.Errors++
			pw.mu.Unlock()
		case <-ticker.C:
			pw.reloadIfSettled()
		}
	}
}

// Stats returns a copy of the reload counters.
func (pw *Watcher) Stats() WatcherStats {
	pw.mu.Lock()
	defer pw.mu.Unlock()
	return pw.stats
}

func (pw *Watcher) handleEvent(event fsnotify.Event) {
	if filepath.Clean(event.Name) != pw.path {
		return
	}
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
		return
	}
	pw.mu.Lock()
	pw.pending = time.Now()
	pw.mu.Unlock()
}

func (pw *Watcher) reloadIfSettled() {
	pw.mu.Lock()
	if pw.pending.IsZero() || time.Since(pw.pending) < pw.debounceDur {
		pw.mu.Unlock()
		return
	}
	pw.pending = time.Time{}
	pw.mu.Unlock()

	groups, err := LoadFile(pw.path)
	if err == nil {
		if pw.resolve != nil {
			groups = pw.resolve(groups)
		}
		err = pw.checker.Replace(groups)
	}

	pw.mu.Lock()
	defer pw.mu.Unlock()
	if err != nil {
		pw.stats.Errors++
		logging.Get(logging.CategoryConfig).Warn("pattern reload failed, keeping previous set: %v", err)
		return
	}
	pw.stats.Reloads++
}
