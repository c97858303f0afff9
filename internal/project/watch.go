package project

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultDebounce is the quiet period before a file change is reported.
const DefaultDebounce = 250 * time.Millisecond

// Watch reports external changes to the workspace file by calling onChange
// after a debounce window. It does not reload the store itself: the caller
// decides on which goroutine to call Refresh. Watch blocks until ctx is done.
func (s *Store) Watch(ctx context.Context, debounce time.Duration, onChange func()) error {
	if s.path == "" {
		return fmt.Errorf("project: watch: store has no backing file")
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("project: creating watcher: %w", err)
	}
	defer w.Close()

	// Saves replace the file by rename, so watch the directory.
	dir := filepath.Dir(s.path)
	if err := w.Add(dir); err != nil {
		return fmt.Errorf("project: watching %s: %w", dir, err)
	}

	name := filepath.Clean(s.path)
	d := newDebouncer(debounce)
	defer d.stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != name {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			d.trigger(onChange)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			s.log.Warn("workspace watcher error", zap.Error(err))
		}
	}
}

// debouncer coalesces bursts of triggers into one callback.
type debouncer struct {
	mu       sync.Mutex
	duration time.Duration
	timer    *time.Timer
	seq      uint64
}

func newDebouncer(d time.Duration) *debouncer {
	return &debouncer{duration: d}
}

func (d *debouncer) trigger(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.seq++
	seq := d.seq
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.duration, func() {
		d.mu.Lock()
		current := seq == d.seq
		if current {
			d.timer = nil
		}
		d.mu.Unlock()
		if current {
			fn()
		}
	})
}

func (d *debouncer) stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.seq++
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
