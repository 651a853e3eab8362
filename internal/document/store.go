// Copyright (c) 2025 tpaschkow
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package document holds the diagram document set and the active selection.
package document

import (
	"sync"
	"time"
)

// =============================================================================
// DOCUMENT STORE
// =============================================================================

// Store owns the ordered document set and the active selection.
//
// Invariants:
//   - The set is never empty. Deleting the last document is a no-op.
//   - Exactly one document is active and it is always a member of the set.
//
// All mutations are serialized under a single mutex. Readers receive
// snapshot copies so an in-flight assistant call can keep working with
// the text it was issued for even if the user edits meanwhile.
type Store struct {
	mu       sync.Mutex
	docs     []*Document
	activeID string
}

// NewStore creates a store seeded with the default startup document,
// which becomes active.
func NewStore() *Store {
	initial := &Document{
		ID:        generateDocumentID(),
		Name:      "Main Flow",
		Text:      InitialText,
		Kind:      KindMacro,
		UpdatedAt: time.Now(),
	}
	return &Store{
		docs:     []*Document{initial},
		activeID: initial.ID,
	}
}

// NewStoreWithDocuments creates a store from previously persisted documents.
// If docs is empty the default startup document is seeded instead.
// The first document becomes active.
func NewStoreWithDocuments(docs []*Document) *Store {
	if len(docs) == 0 {
		return NewStore()
	}
	owned := make([]*Document, len(docs))
	for i, d := range docs {
		cp := *d
		owned[i] = &cp
	}
	return &Store{
		docs:     owned,
		activeID: owned[0].ID,
	}
}

// =============================================================================
// MUTATIONS
// =============================================================================

// Create adds a new document of the given kind, makes it active, and
// returns a snapshot of it.
func (s *Store) Create(kind Kind) Document {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc := NewDocument(kind)
	s.docs = append(s.docs, doc)
	s.activeID = doc.ID
	return *doc
}

// Update replaces the text of the document with the given ID and refreshes
// its timestamp. Unknown IDs are a silent no-op; the update is reported
// through the return value so callers can clear stale render errors.
func (s *Store) Update(id, text string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc := s.find(id)
	if doc == nil {
		return false
	}
	doc.Text = text
	doc.UpdatedAt = time.Now()
	return true
}

// Rename replaces the name of the document with the given ID.
// Names carry no uniqueness constraint.
func (s *Store) Rename(id, name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc := s.find(id)
	if doc == nil {
		return false
	}
	doc.Name = name
	doc.UpdatedAt = time.Now()
	return true
}

// Delete removes the document with the given ID. Deleting the sole
// remaining document is refused so the set never empties. If the deleted
// document was active, the first remaining document becomes active.
func (s *Store) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.docs) <= 1 {
		return false
	}

	idx := -1
	for i, d := range s.docs {
		if d.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return false
	}

	s.docs = append(s.docs[:idx], s.docs[idx+1:]...)
	if s.activeID == id {
		s.activeID = s.docs[0].ID
	}
	return true
}

// SetActive points the active selection at the document with the given ID.
// Unknown IDs leave the selection unchanged.
func (s *Store) SetActive(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.find(id) == nil {
		return false
	}
	s.activeID = id
	return true
}

// =============================================================================
// SNAPSHOTS
// =============================================================================

// Active returns a snapshot of the active document.
func (s *Store) Active() Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.find(s.activeID)
}

// ActiveID returns the ID of the active document.
func (s *Store) ActiveID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeID
}

// Get returns a snapshot of the document with the given ID.
func (s *Store) Get(id string) (Document, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc := s.find(id)
	if doc == nil {
		return Document{}, false
	}
	return *doc, true
}

// List returns snapshots of all documents in order.
func (s *Store) List() []Document {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Document, len(s.docs))
	for i, d := range s.docs {
		out[i] = *d
	}
	return out
}

// Others returns snapshots of all documents except the one with the
// given ID, preserving order. Used as cross-document grounding context
// for generation requests.
func (s *Store) Others(id string) []Document {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Document, 0, len(s.docs))
	for _, d := range s.docs {
		if d.ID != id {
			out = append(out, *d)
		}
	}
	return out
}

// Count returns the number of documents in the set.
func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.docs)
}

// find returns the document with the given ID, or nil.
// Caller must hold the mutex.
func (s *Store) find(id string) *Document {
	for _, d := range s.docs {
		if d.ID == id {
			return d
		}
	}
	return nil
}
