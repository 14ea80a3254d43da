package session

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"synoptic/internal/logging"
)

// EventKind describes a session change seen on disk.
type EventKind int

const (
	// LoggedOut: the session file was removed, emptied, or corrupted.
	LoggedOut EventKind = iota
	// LoggedIn: a (possibly different) user was written.
	LoggedIn
)

func (k EventKind) String() string {
	if k == LoggedIn {
		return "logged_in"
	}
	return "logged_out"
}

// Event is delivered when the stored session changes outside this process.
type Event struct {
	Kind EventKind
	User User
}

// Watcher observes a FileStore's file so an open terminal notices a logout
// performed by another synoptic process.
type Watcher struct {
	mu      sync.Mutex
	store   *FileStore
	path    string
	watcher *fsnotify.Watcher
	events  chan Event
	stopCh  chan struct{}
	doneCh  chan struct{}
	running bool
	current User
	hasUser bool
}

// NewWatcher creates a watcher for store. Call Start to begin.
func NewWatcher(store *FileStore) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create session watcher: %w", err)
	}
	return &Watcher{
		store:   store,
		path:    filepath.Clean(store.Path()),
		watcher: fw,
		events:  make(chan Event, 4),
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
	}, nil
}

// Events delivers session changes. It is closed when the watcher stops.
func (w *Watcher) Events() <-chan Event { return w.events }

// Start begins watching. It is non-blocking.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	dir := filepath.Dir(w.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		w.setRunning(false)
		return fmt.Errorf("create session directory: %w", err)
	}
	if err := w.watcher.Add(dir); err != nil {
		w.setRunning(false)
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	if u, err := w.store.Load(); err == nil {
		w.current, w.hasUser = u, true
	}
	logging.Session("session watcher: watching %s (logged in: %v)", w.path, w.hasUser)

	go w.run(ctx)
	return nil
}

func (w *Watcher) setRunning(v bool) {
	w.mu.Lock()
	w.running = v
	w.mu.Unlock()
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
		logging.Get(logging.CategorySession).Error("session watcher: close: %v", err)
	}
	logging.Session("session watcher: stopped")
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)
	defer close(w.events)

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			logging.SessionDebug("session watcher: %s on %s", event.Op, event.Name)
			if ev, changed := w.check(); changed {
				select {
				case w.events <- ev:
				case <-w.stopCh:
					return
				case <-ctx.Done():
					return
				}
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logging.Get(logging.CategorySession).Error("session watcher: %v", err)
		}
	}
}

// check reloads the store and reports a transition, if any.
func (w *Watcher) check() (Event, bool) {
	u, err := w.store.Load()
	switch {
	case errors.Is(err, ErrNoSession):
		if !w.hasUser {
			return Event{}, false
		}
		w.hasUser = false
		w.current = User{}
		return Event{Kind: LoggedOut}, true
	case err != nil:
		logging.Get(logging.CategorySession).Warn("session watcher: reload failed: %v", err)
		return Event{}, false
	}
	if w.hasUser && u == w.current {
		return Event{}, false
	}
	w.hasUser = true
	w.current = u
	return Event{Kind: LoggedIn, User: u}, true
}
