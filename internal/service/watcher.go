package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"reportstudio/internal/logger"
)

// ── Watcher (fsnotify) ────────────────────────────────────

// DefaultDebounce is how long the watcher waits for writes to settle.
const DefaultDebounce = 300 * time.Millisecond

// WatchSource is a store whose documents live as files in one directory.
type WatchSource interface {
	Dir() string
	DocumentID(path string) (string, bool)
}

// Watcher reloads the open document when its file is changed by another
// process. Writes made by this process are ignored by Reload because their
// version is not newer than the in-memory one.
type Watcher struct {
	svc      *DocumentService
	src      WatchSource
	log      *logger.Logger
	debounce time.Duration

	mu      sync.Mutex
	fsw     *fsnotify.Watcher
	cancel  context.CancelFunc
	timer   *time.Timer
	done    chan struct{}
	reloads int
}

// NewWatcher creates a stopped Watcher. A zero debounce uses DefaultDebounce.
func NewWatcher(svc *DocumentService, src WatchSource, log *logger.Logger, debounce time.Duration) *Watcher {
	if log == nil {
		log = logger.Nop()
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{svc: svc, src: src, log: log.With("watcher"), debounce: debounce}
}

// Start begins watching the source directory.
func (w *Watcher) Start(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := fsw.Add(w.src.Dir()); err != nil {
		fsw.Close()
		return fmt.Errorf("watch %s: %w", w.src.Dir(), err)
	}

	watchCtx, cancel := context.WithCancel(ctx)
	w.mu.Lock()
	w.fsw = fsw
	w.cancel = cancel
	w.done = make(chan struct{})
	done := w.done
	w.mu.Unlock()

	go w.loop(watchCtx, fsw, done)
	w.log.Info().Str("dir", w.src.Dir()).Msg("watching for external changes")
	return nil
}

func (w *Watcher) loop(ctx context.Context, fsw *fsnotify.Watcher, done chan struct{}) {
	defer close(done)
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-fsw.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			id, ok := w.src.DocumentID(event.Name)
			if !ok || id != w.svc.DocumentID() {
				continue
			}
			w.mu.Lock()
			if w.timer != nil {
				w.timer.Stop()
			}
			w.timer = time.AfterFunc(w.debounce, func() { w.reload(ctx) })
			w.mu.Unlock()
		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			w.log.Warn().Err(err).Msg("watch error")
		}
	}
}

func (w *Watcher) reload(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	reloaded, err := w.svc.Reload(ctx)
	if err != nil {
		w.log.Warn().Err(err).Msg("reload failed")
		return
	}
	if reloaded {
		w.mu.Lock()
		w.reloads++
		w.mu.Unlock()
	}
}

// Reloads returns how many external changes were applied.
func (w *Watcher) Reloads() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.reloads
}

// Stop ends watching. It is safe to call on a stopped Watcher.
func (w *Watcher) Stop() {
	w.mu.Lock()
	fsw, cancel, done := w.fsw, w.cancel, w.done
	w.fsw, w.cancel, w.done = nil, nil, nil
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	w.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	fsw.Close()
	<-done
}
