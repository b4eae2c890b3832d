// Package watch reloads configuration files when they change on disk.
package watch

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"careercoach/internal/errors"

	"github.com/fsnotify/fsnotify"
)

// FileWatcher calls onChange with the changed files after a quiet period of
// debounce. Directories are watched too, so editors and tools that replace
// files by rename are noticed.
type FileWatcher struct {
	mu sync.Mutex

	files    []string
	modTimes map[string]time.Time
	debounce time.Duration
	onChange func(changed []string)
	logger   *errors.Logger

	fsWatcher *fsnotify.Watcher
	timer     *time.Timer
	trigger   chan struct{}
	stop      chan struct{}
	done      chan struct{}
	running   bool
}

// New creates a watcher for files. Empty paths are ignored.
func New(files []string, debounce time.Duration, onChange func(changed []string), logger *errors.Logger) *FileWatcher {
	if debounce <= 0 {
		debounce = time.Second
	}
	if logger == nil {
		logger = errors.Discard()
	}
	var watched []string
	for _, f := range files {
		if f != "" {
			watched = append(watched, filepath.Clean(f))
		}
	}
	return &FileWatcher{
		files:    watched,
		modTimes: make(map[string]time.Time),
		debounce: debounce,
		onChange: onChange,
		logger:   logger,
		trigger:  make(chan struct{}, 1),
	}
}

// Files returns the watched paths
func (w *FileWatcher) Files() []string {
	return append([]string(nil), w.files...)
}

// Start begins watching. Watching no files is a no-op.
func (w *FileWatcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return fmt.Errorf("file watcher is already running")
	}
	if len(w.files) == 0 {
		return nil
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	for _, f := range w.files {
		if st, err := os.Stat(f); err == nil {
			w.modTimes[f] = st.ModTime()
		}
		// The directory catches atomic replaces and files created later
		if err := fsw.Add(filepath.Dir(f)); err != nil {
			_ = fsw.Close()
			return fmt.Errorf("failed to watch directory of %s: %w", f, err)
		}
	}

	w.fsWatcher = fsw
	w.stop = make(chan struct{})
	w.done = make(chan struct{})
	w.running = true
	go w.loop(fsw, w.stop, w.done)

	w.logger.Info("File watcher started", "files", w.files, "debounce", w.debounce.String())
	return nil
}

// Stop ends watching and waits for the event loop to exit
func (w *FileWatcher) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = false
	close(w.stop)
	if w.timer != nil {
		w.timer.Stop()
	}
	fsw, done := w.fsWatcher, w.done
	w.mu.Unlock()

	err := fsw.Close()
	<-done
	w.logger.Info("File watcher stopped")
	return err
}

// IsRunning reports whether the watcher is active
func (w *FileWatcher) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

func (w *FileWatcher) loop(fsw *fsnotify.Watcher, stop, done chan struct{}) {
	defer close(done)
	for {
		select {
		case ev, ok := <-fsw.Events:
			if !ok {
				return
			}
			if w.relevant(ev) {
				w.schedule()
			}
		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			w.logger.LogError(err, "File watcher error")
		case <-w.trigger:
			if changed := w.changedFiles(); len(changed) > 0 {
				w.logger.Info("Watched files changed", "files", changed)
				w.onChange(changed)
			}
		case <-stop:
			return
		}
	}
}

func (w *FileWatcher) relevant(ev fsnotify.Event) bool {
	if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
		return false
	}
	name := filepath.Clean(ev.Name)
	for _, f := range w.files {
		if name == f {
			return true
		}
	}
	return false
}

func (w *FileWatcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.running {
		return
	}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, func() {
		select {
		case w.trigger <- struct{}{}:
		default:
		}
	})
}

// changedFiles compares modification times with the last seen ones. A
// deleted file counts as changed once.
func (w *FileWatcher) changedFiles() []string {
	var changed []string
	for _, f := range w.files {
		st, err := os.Stat(f)
		if err != nil {
			if _, seen := w.modTimes[f]; seen && os.IsNotExist(err) {
				delete(w.modTimes, f)
				changed = append(changed, f)
			}
			continue
		}
		last, seen := w.modTimes[f]
		if !seen || !st.ModTime().Equal(last) {
			w.modTimes[f] = st.ModTime()
			changed = append(changed, f)
		}
	}
	return changed
}
