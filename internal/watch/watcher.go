// Package watch notifies when the patient, location or symptom files are
// changed on disk by something other than this process.
package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"covidtrack/internal/logging"

	"github.com/fsnotify/fsnotify"
)

// Change describes a settled modification of one watched file.
type Change struct {
	Path string
	Op   string // create, modify, delete, rename
}

// Watcher watches the directories holding the data files and reports changes
// to the files themselves, debounced so that a burst of writes is one Change.
type Watcher struct {
	mu          sync.RWMutex
	watcher     *fsnotify.Watcher
	files       map[string]fileState // cleaned path -> last acknowledged state
	pending     map[string]pendingEvent
	debounceDur time.Duration
	onChange    func(Change)
	stopCh      chan struct{}
	doneCh      chan struct{}
	running     bool

	stats Stats
}

type fileState struct {
	exists  bool
	size    int64
	modTime time.Time
}

type pendingEvent struct {
	op string
	at time.Time
}

// Stats tracks watcher activity.
type Stats struct {
	Events    int
	Reported  int
	Ignored   int
	Errors    int
	LastPath  string
	LastEvent time.Time
}

// New creates a watcher for paths. onChange runs on the watcher goroutine.
func New(paths []string, onChange func(Change)) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		watcher:     fw,
		files:       make(map[string]fileState, len(paths)),
		pending:     make(map[string]pendingEvent),
		debounceDur: 300 * time.Millisecond,
		onChange:    onChange,
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}
	for _, p := range paths {
		w.files[filepath.Clean(p)] = fileState{}
	}
	w.Acknowledge()
	return w, nil
}

// SetDebounce changes the settle window. Call before Start.
func (w *Watcher) SetDebounce(d time.Duration) {
	w.mu.Lock()
	w.debounceDur = d
	w.mu.Unlock()
}

// Start begins watching. It is non-blocking.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	dirs := make(map[string]bool)
	for p := range w.files {
		dirs[filepath.Dir(p)] = true
	}
	w.mu.Unlock()

	for dir := range dirs {
		if err := w.watcher.Add(dir); err != nil {
			// The data directory may not exist before the first write.
			logging.Get(logging.CategoryWatch).Warn("Watcher: cannot watch %s: %v", dir, err)
			continue
		}
		logging.Watch("Watcher: watching directory %s", dir)
	}

	go w.run(ctx)
	return nil
}

// Stop stops the watcher and waits for its goroutine to exit.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh

	if err := w.watcher.Close(); err != nil {
		logging.Get(logging.CategoryWatch).Error("Watcher: error closing: %v", err)
	}
	logging.Watch("Watcher: stopped")
}

// Wait blocks until the watcher goroutine exits, either through Stop or
// through cancellation of the context passed to Start.
func (w *Watcher) Wait() {
	<-w.doneCh
}

// Acknowledge records the current state of every watched file. Changes that
// leave a file in its acknowledged state are not reported, so a caller that
// writes a file itself acknowledges afterwards to suppress the notice.
func (w *Watcher) Acknowledge() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for p := range w.files {
		w.files[p] = stat(p)
	}
}

func stat(path string) fileState {
	info, err := os.Stat(path)
	if err != nil {
		return fileState{}
	}
	return fileState{exists: true, size: info.Size(), modTime: info.ModTime()}
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)

	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logging.Watch("Watcher: context cancelled")
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
			logging.Get(logging.CategoryWatch).Error("Watcher error: %v", err)
			w.mu.Lock()
			w.stats.Errors++
			w.mu.Unlock()

		case <-ticker.C:
			w.processSettled()
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	path := filepath.Clean(event.Name)

	var op string
	switch {
	case event.Op&fsnotify.Create != 0:
		op = "create"
	case event.Op&fsnotify.Write != 0:
		op = "modify"
	case event.Op&fsnotify.Remove != 0:
		op = "delete"
	case event.Op&fsnotify.Rename != 0:
		op = "rename"
	default:
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if _, watched := w.files[path]; !watched {
		return
	}
	w.stats.Events++
	w.stats.LastPath = path
	w.stats.LastEvent = time.Now()
	// The first op of a burst names the change; later events only extend it.
	if ev, ok := w.pending[path]; ok {
		op = ev.op
	}
	w.pending[path] = pendingEvent{op: op, at: time.Now()}
	logging.Get(logging.CategoryWatch).Debug("Watcher: %s %s", op, path)
}

func (w *Watcher) processSettled() {
	w.mu.Lock()
	now := time.Now()
	var settled []Change
	for path, ev := range w.pending {
		if now.Sub(ev.at) < w.debounceDur {
			continue
		}
		delete(w.pending, path)

		current := stat(path)
		if current == w.files[path] {
			w.stats.Ignored++
			continue
		}
		w.files[path] = current
		w.stats.Reported++
		settled = append(settled, Change{Path: path, Op: ev.op})
	}
	w.mu.Unlock()

	for _, c := range settled {
		logging.Watch("Watcher: %s changed on disk (%s)", c.Path, c.Op)
		if w.onChange != nil {
			w.onChange(c)
		}
	}
}

// GetStats returns the current watcher statistics.
func (w *Watcher) GetStats() Stats {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.stats
}

// IsWatching returns true if the watcher is running.
func (w *Watcher) IsWatching() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.running
}
