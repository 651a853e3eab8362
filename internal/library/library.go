// Copyright (c) 2025 tpaschkow
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package library keeps the flow collection on disk: one JSON file per
// flow under ~/.velpro/flows/, written through on change and watched for
// edits made outside the app.
package library

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/tpaschkow/VelPRO-Mermaid/internal/document"
	"github.com/tpaschkow/VelPRO-Mermaid/internal/util"
)

// =============================================================================
// LIBRARY
// =============================================================================

// DefaultSaveDebounce batches rapid edits into one disk write per flow.
const DefaultSaveDebounce = 500 * time.Millisecond

// Library persists flows as individual JSON files.
type Library struct {
	// BaseDir is the directory holding flow files.
	// Default: ~/.velpro/flows/
	BaseDir string

	mu      sync.Mutex
	pending map[string]*time.Timer // document ID -> pending save
	closed  bool

	saveDebounce time.Duration
	logf         func(format string, args ...any)
}

// NewLibrary creates a library rooted in the user's home directory.
func NewLibrary() (*Library, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}
	return NewLibraryWithDir(filepath.Join(homeDir, ".velpro", "flows"))
}

// NewLibraryWithDir creates a library with a custom directory.
func NewLibraryWithDir(baseDir string) (*Library, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, err
	}
	return &Library{
		BaseDir:      baseDir,
		pending:      make(map[string]*time.Timer),
		saveDebounce: DefaultSaveDebounce,
		logf:         func(string, ...any) {},
	}, nil
}

// SetLogger installs a destination for background save failures.
func (l *Library) SetLogger(logf func(format string, args ...any)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if logf != nil {
		l.logf = logf
	}
}

// SetSaveDebounce overrides the autosave batching window.
func (l *Library) SetSaveDebounce(d time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if d > 0 {
		l.saveDebounce = d
	}
}

// =============================================================================
// LOAD OPERATIONS
// =============================================================================

// LoadAll reads every flow in the library, oldest first so the collection
// keeps a stable order across restarts. Corrupt files are skipped.
func (l *Library) LoadAll() ([]*document.Document, error) {
	entries, err := os.ReadDir(l.BaseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []*document.Document{}, nil
		}
		return nil, err
	}

	var docs []*document.Document
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(l.BaseDir, entry.Name()))
		if err != nil {
			continue
		}

		var doc document.Document
		if err := json.Unmarshal(data, &doc); err != nil || doc.ID == "" {
			continue // Skip corrupted files
		}
		docs = append(docs, &doc)
	}

	sort.Slice(docs, func(i, j int) bool {
		if docs[i].UpdatedAt.Equal(docs[j].UpdatedAt) {
			return docs[i].ID < docs[j].ID
		}
		return docs[i].UpdatedAt.Before(docs[j].UpdatedAt)
	})
	return docs, nil
}

// Load reads one flow by ID.
func (l *Library) Load(id string) (*document.Document, error) {
	data, err := os.ReadFile(l.filePath(id))
	if err != nil {
		return nil, err
	}

	var doc document.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// =============================================================================
// SAVE OPERATIONS
// =============================================================================

// Save writes one flow to disk immediately.
func (l *Library) Save(doc document.Document) error {
	data, err := json.MarshalIndent(&doc, "", "  ")
	if err != nil {
		return err
	}
	// Atomic write with fsync prevents half-written flows on crash.
	return util.AtomicWriteFile(l.filePath(doc.ID), data, 0644)
}

// ScheduleSave queues a debounced write for one flow. Rapid successive
// calls for the same flow collapse into a single write carrying the last
// state. fetch re-reads the flow when the timer fires so the write never
// persists stale text.
func (l *Library) ScheduleSave(id string, fetch func(id string) (document.Document, bool)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}

	if t, ok := l.pending[id]; ok {
		t.Stop()
	}
	l.pending[id] = time.AfterFunc(l.saveDebounce, func() {
		l.mu.Lock()
		delete(l.pending, id)
		closed := l.closed
		logf := l.logf
		l.mu.Unlock()
		if closed {
			return
		}

		doc, ok := fetch(id)
		if !ok {
			return // deleted before the save fired
		}
		if err := l.Save(doc); err != nil {
			logf("flow autosave failed: %v", err)
		}
	})
}

// Flush cancels pending timers and writes every queued flow now.
func (l *Library) Flush(fetch func(id string) (document.Document, bool)) {
	l.mu.Lock()
	ids := make([]string, 0, len(l.pending))
	for id, t := range l.pending {
		t.Stop()
		ids = append(ids, id)
	}
	l.pending = make(map[string]*time.Timer)
	logf := l.logf
	l.mu.Unlock()

	for _, id := range ids {
		if doc, ok := fetch(id); ok {
			if err := l.Save(doc); err != nil {
				logf("flow flush failed: %v", err)
			}
		}
	}
}

// =============================================================================
// DELETE OPERATIONS
// =============================================================================

// Delete removes a flow file. Missing files are fine; the flow may never
// have been saved.
func (l *Library) Delete(id string) error {
	l.mu.Lock()
	if t, ok := l.pending[id]; ok {
		t.Stop()
		delete(l.pending, id)
	}
	l.mu.Unlock()

	if err := os.Remove(l.filePath(id)); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Close cancels all pending saves.
func (l *Library) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = true
	for id, t := range l.pending {
		t.Stop()
		delete(l.pending, id)
	}
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// filePath returns the file path for a flow ID.
func (l *Library) filePath(id string) string {
	return filepath.Join(l.BaseDir, id+".json")
}
