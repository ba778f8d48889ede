package credential

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"steamlink/pkg/logging"
)

const (
	// DefaultDebounceInterval is the quiet period after the last change before
	// OnChange fires. A Save produces a create and a rename in quick succession.
	DefaultDebounceInterval = 250 * time.Millisecond

	// DefaultPollInterval is the fallback interval when fsnotify is unavailable.
	DefaultPollInterval = 5 * time.Second
)

// WatcherConfig configures a credential file watcher.
type WatcherConfig struct {
	// Path is the credential file to watch. Its directory must exist.
	Path string

	// Debounce overrides DefaultDebounceInterval.
	Debounce time.Duration

	// PollInterval overrides DefaultPollInterval for the polling fallback.
	PollInterval time.Duration

	// OnChange is called after the credential file was written, created or removed.
	OnChange func()
}

// Watcher notices credential files written by another process (for example a
// `steamlink auth login` run while the daemon is active).
type Watcher struct {
	mu sync.Mutex

	config    WatcherConfig
	fsWatcher *fsnotify.Watcher
	stopCh    chan struct{}
	running   bool

	lastModTime time.Time
	lastExists  bool

	debounceMu    sync.Mutex
	debounceTimer *time.Timer
}

// NewWatcher creates a watcher; call Start to begin watching.
func NewWatcher(config WatcherConfig) *Watcher {
	if config.Debounce == 0 {
		config.Debounce = DefaultDebounceInterval
	}
	if config.PollInterval == 0 {
		config.PollInterval = DefaultPollInterval
	}
	return &Watcher{config: config}
}

// Start begins watching. It falls back to stat polling when fsnotify cannot
// watch the directory.
func (w *Watcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return nil
	}

	w.stopCh = make(chan struct{})
	w.running = true

	dir := filepath.Dir(w.config.Path)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		logging.Warn("CredentialWatcher", "fsnotify not available, falling back to polling: %v", err)
		go w.pollForChanges()
		return nil
	}

	if err := watcher.Add(dir); err != nil {
		logging.Warn("CredentialWatcher", "Failed to watch directory %s, falling back to polling: %v", dir, err)
		_ = watcher.Close()
		go w.pollForChanges()
		return nil
	}
	w.fsWatcher = watcher

	go w.processEvents(watcher.Events, watcher.Errors)

	logging.Debug("CredentialWatcher", "Watching %s for credential changes", dir)
	return nil
}

func (w *Watcher) processEvents(eventsCh <-chan fsnotify.Event, errorsCh <-chan error) {
	for {
		select {
		case <-w.stopCh:
			return

		case event, ok := <-eventsCh:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-errorsCh:
			if !ok {
				return
			}
			logging.Error("CredentialWatcher", err, "fsnotify error")
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if filepath.Base(event.Name) != filepath.Base(w.config.Path) {
		return
	}
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}

	logging.Debug("CredentialWatcher", "Credential file changed: %s (%s)", event.Name, event.Op)
	w.triggerDebounced()
}

func (w *Watcher) triggerDebounced() {
	w.debounceMu.Lock()
	defer w.debounceMu.Unlock()

	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}

	w.debounceTimer = time.AfterFunc(w.config.Debounce, func() {
		w.mu.Lock()
		running := w.running
		callback := w.config.OnChange
		w.mu.Unlock()

		if running && callback != nil {
			callback()
		}
	})
}

func (w *Watcher) pollForChanges() {
	ticker := time.NewTicker(w.config.PollInterval)
	defer ticker.Stop()

	w.checkForChanges()

	for {
		select {
		case <-w.stopCh:
			return
		case <-ticker.C:
			if w.checkForChanges() {
				logging.Debug("CredentialWatcher", "Credential file change detected via polling")
				w.triggerDebounced()
			}
		}
	}
}

// checkForChanges compares the file's presence and modification time with the
// previous observation.
func (w *Watcher) checkForChanges() bool {
	info, err := os.Stat(w.config.Path)
	exists := err == nil

	var modTime time.Time
	if exists {
		modTime = info.ModTime()
	}

	changed := exists != w.lastExists || !modTime.Equal(w.lastModTime)
	w.lastExists = exists
	w.lastModTime = modTime
	return changed
}

// Stop stops the watcher and cancels any pending callback.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return nil
	}

	w.running = false
	close(w.stopCh)

	w.debounceMu.Lock()
	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
		w.debounceTimer = nil
	}
	w.debounceMu.Unlock()

	if w.fsWatcher != nil {
		if err := w.fsWatcher.Close(); err != nil {
			logging.Warn("CredentialWatcher", "Error closing fsnotify watcher: %v", err)
		}
		w.fsWatcher = nil
	}

	return nil
}

// IsRunning returns whether the watcher is currently active.
func (w *Watcher) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}
