// Copyright (c) 2025 tpaschkow
// SPDX-License-Identifier: AGPL-3.0-or-later

package library

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// =============================================================================
// LIBRARY WATCHER
// =============================================================================

// DefaultWatchDebounce coalesces bursts of events for the same file. An
// editor save typically fires several write events back to back.
const DefaultWatchDebounce = 500 * time.Millisecond

// Watcher reports flows changed outside the app, e.g. a flow file edited
// in another tool or synced in from elsewhere. Changes made through the
// Library itself also surface here; the consumer deduplicates by text.
type Watcher struct {
	baseDir  string
	watcher  *fsnotify.Watcher
	debounce time.Duration
	onChange func(id string)

	mu      sync.Mutex
	pending map[string]time.Time // flow ID -> last event time
	ctx     context.Context
	cancel  context.CancelFunc
}

// NewWatcher creates a watcher over the library directory. onChange is
// called with the flow ID after the debounce window; it runs on the
// watcher goroutine.
func NewWatcher(baseDir string, debounce time.Duration, onChange func(id string)) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if debounce <= 0 {
		debounce = DefaultWatchDebounce
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Watcher{
		baseDir:  baseDir,
		watcher:  fsw,
		debounce: debounce,
		onChange: onChange,
		pending:  make(map[string]time.Time),
		ctx:      ctx,
		cancel:   cancel,
	}, nil
}

// Watch starts watching the library directory.
func (w *Watcher) Watch() error {
	if err := w.watcher.Add(w.baseDir); err != nil {
		return err
	}

	go w.processEvents()
	go w.processPending()

	return nil
}

// processEvents turns raw filesystem events into pending flow IDs.
func (w *Watcher) processEvents() {
	for {
		select {
		case <-w.ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}

			if event.Op&fsnotify.Write == fsnotify.Write ||
				event.Op&fsnotify.Create == fsnotify.Create {
				w.handleFileChange(event.Name)
			}

		case _, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			// Non-fatal; keep watching.
		}
	}
}

// handleFileChange records a change for debouncing. Only flow files
// count; temp files from atomic writes are ignored.
func (w *Watcher) handleFileChange(path string) {
	name := filepath.Base(path)
	if !strings.HasSuffix(name, ".json") {
		return
	}
	id := strings.TrimSuffix(name, ".json")

	w.mu.Lock()
	w.pending[id] = time.Now()
	w.mu.Unlock()
}

// processPending fires the callback for flows quiet past the debounce.
func (w *Watcher) processPending() {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			return

		case <-ticker.C:
			now := time.Now()

			w.mu.Lock()
			var ready []string
			for id, changed := range w.pending {
				if now.Sub(changed) >= w.debounce {
					ready = append(ready, id)
					delete(w.pending, id)
				}
			}
			w.mu.Unlock()

			for _, id := range ready {
				w.onChange(id)
			}
		}
	}
}

// Close stops watching and releases resources.
func (w *Watcher) Close() error {
	w.cancel()
	if w.watcher != nil {
		return w.watcher.Close()
	}
	return nil
}
