package memory

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"postingcore/pkg/logger"
)

// DefaultDebounce is how long the watcher waits for more writes before
// reloading.
const DefaultDebounce = 300 * time.Millisecond

// Invalidator drops cached rule sets after a reload.
type Invalidator interface {
	Invalidate()
}

// Watcher reloads a Store when its rules file changes and invalidates the
// rule cache after every successful reload. A file that fails to parse
// leaves the previous configuration in place.
type Watcher struct {
	store    *Store
	path     string
	target   Invalidator
	debounce time.Duration
	log      *logger.Logger

	watcher *fsnotify.Watcher

	pendingMu sync.Mutex
	pending   bool

	// OnReload is called after each reload attempt. Set before Start.
	OnReload func(err error)
}

// NewWatcher creates a watcher for path. target may be nil.
func NewWatcher(store *Store, path string, target Invalidator, debounce time.Duration) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		_ = fsw.Close()
		return nil, err
	}
	return &Watcher{
		store:    store,
		path:     abs,
		target:   target,
		debounce: debounce,
		log:      logger.Default().WithComponent("rules-watcher"),
		watcher:  fsw,
	}, nil
}

// Start watches the directory of the rules file; editors usually replace
// the file rather than write it in place, which drops a watch on the file.
// The watcher logs through the logger carried by ctx.
func (w *Watcher) Start(ctx context.Context) error {
	w.log = logger.FromContext(ctx).WithComponent("rules-watcher")
	if err := w.watcher.Add(filepath.Dir(w.path)); err != nil {
		return err
	}
	go w.processEvents(ctx)
	w.log.Infow("watching rules file", "path", w.path, "debounce", w.debounce)
	return nil
}

// Stop closes the underlying watcher.
func (w *Watcher) Stop() error {
	return w.watcher.Close()
}

func (w *Watcher) processEvents(ctx context.Context) {
	ticker := time.NewTicker(w.debounce)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleFSEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Errorw("watcher error", "error", err)

		case <-ticker.C:
			w.flushPending(ctx)
		}
	}
}

func (w *Watcher) handleFSEvent(event fsnotify.Event) {
	if filepath.Clean(event.Name) != w.path {
		return
	}
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
		return
	}
	w.pendingMu.Lock()
	w.pending = true
	w.pendingMu.Unlock()
}

func (w *Watcher) flushPending(ctx context.Context) {
	w.pendingMu.Lock()
	pending := w.pending
	w.pending = false
	w.pendingMu.Unlock()

	if !pending || ctx.Err() != nil {
		return
	}
	w.reload()
}

func (w *Watcher) reload() {
	err := w.store.ReloadFile(w.path)
	if err != nil {
		w.log.Errorw("rules reload failed, keeping previous configuration", "path", w.path, "error", err)
	} else {
		if w.target != nil {
			w.target.Invalidate()
		}
		w.log.Infow("rules reloaded", "path", w.path)
	}
	if w.OnReload != nil {
		w.OnReload(err)
	}
}
