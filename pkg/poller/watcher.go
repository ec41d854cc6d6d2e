package poller

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/mickfx/obsplug/internal/logger"
)

// DefaultDebounce is how long the watcher waits after the last change.
const DefaultDebounce = 500 * time.Millisecond

// Watcher watches a single plugin directory and calls trigger once per
// burst of create, write, remove or rename events.
type Watcher struct {
	dir     string
	delay   time.Duration
	trigger func()
	paused  func() bool

	watcher *fsnotify.Watcher
	mu      sync.Mutex
	timer   *time.Timer
	stop    chan struct{}
	done    chan struct{}
}

// NewWatcher creates a stopped watcher. paused may be nil; when it returns
// true, events are dropped.
func NewWatcher(dir string, delay time.Duration, trigger func(), paused func() bool) *Watcher {
	if delay <= 0 {
		delay = DefaultDebounce
	}
	if paused == nil {
		paused = func() bool { return false }
	}
	return &Watcher{
		dir:     dir,
		delay:   delay,
		trigger: trigger,
		paused:  paused,
	}
}

// Dir returns the watched directory.
func (w *Watcher) Dir() string { return w.dir }

// Start begins watching. The directory must exist.
func (w *Watcher) Start() error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := fw.Add(w.dir); err != nil {
		_ = fw.Close()
		return err
	}

	w.watcher = fw
	w.stop = make(chan struct{})
	w.done = make(chan struct{})
	go w.processEvents()

	logger.Debugf("Watching plugin directory %s", w.dir)
	return nil
}

// Stop ends watching and cancels a pending trigger.
func (w *Watcher) Stop() error {
	if w.watcher == nil {
		return nil
	}
	close(w.stop)
	err := w.watcher.Close()
	<-w.done
	w.watcher = nil

	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	w.mu.Unlock()
	return err
}

func (w *Watcher) processEvents() {
	defer close(w.done)
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logger.Warnf("Plugin directory watcher error: %v", err)
		case <-w.stop:
			return
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	// Chmod fires on plain reads in some file managers.
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) &&
		!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return
	}
	if w.paused() {
		return
	}

	logger.Debugf("Plugin directory change: %s %s", event.Op, filepath.Base(event.Name))

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.delay, w.fire)
}

func (w *Watcher) fire() {
	if w.paused() {
		return
	}
	w.trigger()
}
