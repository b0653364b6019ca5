package reload

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/Adithya-Monish-Kumar-K/textindex/internal/indexer/segment"
)

const defaultDebounce = 500 * time.Millisecond

// Watcher reloads the holder when index files appear in its data directory.
// Bursts of events are collapsed into one reload after the debounce delay.
type Watcher struct {
	holder   *Holder
	debounce time.Duration

	mu    sync.Mutex
	timer *time.Timer
	fired chan struct{}
}

func NewWatcher(h *Holder, debounce time.Duration) *Watcher {
	if debounce <= 0 {
		debounce = defaultDebounce
	}
	return &Watcher{
		holder:   h,
		debounce: debounce,
		fired:    make(chan struct{}, 1),
	}
}

// Run watches the data directory until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating file watcher: %w", err)
	}
	defer fw.Close()
	if err := fw.Add(w.holder.dataDir); err != nil {
		return fmt.Errorf("watching %s: %w", w.holder.dataDir, err)
	}
	w.holder.logger.Info("watching index directory", "dir", w.holder.dataDir, "debounce", w.debounce)

	for {
		select {
		case <-ctx.Done():
			w.stop()
			return nil
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if isIndexFile(ev) {
				w.schedule()
			}
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.holder.logger.Warn("file watcher error", "error", err)
		case <-w.fired:
			if _, err := w.holder.LoadLatest(ctx, TriggerWatch); err != nil {
				w.holder.logger.Error("reload after file change failed", "error", err)
			}
		}
	}
}

func isIndexFile(ev fsnotify.Event) bool {
	if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) && !ev.Has(fsnotify.Write) {
		return false
	}
	return strings.HasSuffix(filepath.Base(ev.Name), segment.Extension)
}

func (w *Watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, func() {
		select {
		case w.fired <- struct{}{}:
		default:
		}
	})
}

func (w *Watcher) stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
}
