// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package offline

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// =============================================================================
// UPDATE WATCHER
// =============================================================================

// UpdateMarker is the filename whose appearance signals a staged update.
const UpdateMarker = "update"

// debounce collapses bursts of filesystem events into one notification.
const debounce = 500 * time.Millisecond

// UpdateWatcher watches the application directory for a staged-update
// marker and notifies once per staging.
type UpdateWatcher struct {
	dir     string
	watcher *fsnotify.Watcher
	updates chan struct{}
	log     zerolog.Logger

	mu       sync.Mutex
	notified bool
	closed   bool
}

// NewUpdateWatcher creates a watcher over dir. The directory is created if
// missing so the watch can be established before any update is staged.
func NewUpdateWatcher(dir string, log zerolog.Logger) (*UpdateWatcher, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, err
	}

	w := &UpdateWatcher{
		dir:     dir,
		watcher: watcher,
		updates: make(chan struct{}, 1),
		log:     log.With().Str("component", "update-watcher").Logger(),
	}

	go w.run()

	// A marker staged before startup still counts.
	if w.markerPresent() {
		w.notify()
	}

	return w, nil
}

// Updates returns the notification channel. It receives at most one value
// per staged update and is closed when the watcher shuts down.
func (w *UpdateWatcher) Updates() <-chan struct{} {
	return w.updates
}

// Close stops watching and closes the updates channel.
func (w *UpdateWatcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	w.mu.Unlock()

	return w.watcher.Close()
}

// =============================================================================
// EVENT LOOP
// =============================================================================

// run consumes filesystem events until the watcher closes.
func (w *UpdateWatcher) run() {
	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
		close(w.updates)
	}()

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != UpdateMarker {
				continue
			}
			if !event.Op.Has(fsnotify.Create) && !event.Op.Has(fsnotify.Write) {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(debounce, func() {
				if w.markerPresent() {
					w.notify()
				}
			})

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Warn().Err(err).Msg("watch error")
		}
	}
}

// markerPresent reports whether the update marker exists.
func (w *UpdateWatcher) markerPresent() bool {
	_, err := os.Stat(filepath.Join(w.dir, UpdateMarker))
	return err == nil
}

// notify delivers at most one pending notification.
func (w *UpdateWatcher) notify() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.notified || w.closed {
		return
	}

	select {
	case w.updates <- struct{}{}:
		w.notified = true
		w.log.Info().Msg("staged update detected")
	default:
	}
}
