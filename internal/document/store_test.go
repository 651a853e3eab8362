// Copyright (c) 2025 tpaschkow
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package document holds the diagram document set and the active selection.
package document

import (
	"strings"
	"testing"
)

// =============================================================================
// STORE CREATION TESTS
// =============================================================================

func TestNewStore(t *testing.T) {
	s := NewStore()

	if s.Count() != 1 {
		t.Fatalf("Count = %d, want 1", s.Count())
	}

	active := s.Active()
	if active.Name != "Main Flow" {
		t.Errorf("Active name = %q, want %q", active.Name, "Main Flow")
	}
	if active.Kind != KindMacro {
		t.Errorf("Active kind = %q, want macro", active.Kind)
	}
	if active.Text != InitialText {
		t.Errorf("Active text should be the startup diagram")
	}
	if !strings.HasPrefix(active.ID, "doc_") {
		t.Errorf("ID should start with 'doc_', got %q", active.ID)
	}
}

func TestNewStoreWithDocuments(t *testing.T) {
	docs := []*Document{
		{ID: "doc_a", Name: "A", Text: "graph TD\nA-->B", Kind: KindMacro},
		{ID: "doc_b", Name: "B", Text: "graph TD\nB-->C", Kind: KindMicro},
	}
	s := NewStoreWithDocuments(docs)

	if s.Count() != 2 {
		t.Fatalf("Count = %d, want 2", s.Count())
	}
	if s.ActiveID() != "doc_a" {
		t.Errorf("ActiveID = %q, want doc_a", s.ActiveID())
	}

	// Mutating the input slice must not leak into the store.
	docs[0].Text = "mutated"
	got, _ := s.Get("doc_a")
	if got.Text == "mutated" {
		t.Error("store should own copies of the seed documents")
	}
}

func TestNewStoreWithDocuments_EmptyFallsBack(t *testing.T) {
	s := NewStoreWithDocuments(nil)
	if s.Count() != 1 {
		t.Fatalf("Count = %d, want 1 (default seed)", s.Count())
	}
}

// =============================================================================
// CREATE TESTS
// =============================================================================

func TestStore_Create(t *testing.T) {
	s := NewStore()
	doc := s.Create(KindMicro)

	if s.Count() != 2 {
		t.Fatalf("Count = %d, want 2", s.Count())
	}
	if doc.Name != "New Micro Flow" {
		t.Errorf("Name = %q, want %q", doc.Name, "New Micro Flow")
	}
	if doc.Text != PlaceholderText {
		t.Errorf("New document should be seeded with the placeholder body")
	}
	if s.ActiveID() != doc.ID {
		t.Error("Created document should become active")
	}
}

func TestStore_Create_UniqueIDs(t *testing.T) {
	s := NewStore()
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		doc := s.Create(KindMacro)
		if seen[doc.ID] {
			t.Fatalf("duplicate document ID %q", doc.ID)
		}
		seen[doc.ID] = true
	}
}

// =============================================================================
// UPDATE / RENAME TESTS
// =============================================================================

func TestStore_Update(t *testing.T) {
	s := NewStore()
	id := s.ActiveID()
	before := s.Active().UpdatedAt

	if !s.Update(id, "graph LR\nX-->Y") {
		t.Fatal("Update on existing id should succeed")
	}

	doc := s.Active()
	if doc.Text != "graph LR\nX-->Y" {
		t.Errorf("Text = %q", doc.Text)
	}
	if doc.UpdatedAt.Before(before) {
		t.Error("UpdatedAt should be refreshed")
	}
}

func TestStore_Update_UnknownIDIsNoOp(t *testing.T) {
	s := NewStore()
	original := s.Active().Text

	if s.Update("doc_missing", "changed") {
		t.Error("Update on unknown id should report false")
	}
	if s.Active().Text != original {
		t.Error("Unknown-id update must not touch any document")
	}
}

func TestStore_Rename(t *testing.T) {
	s := NewStore()
	id := s.ActiveID()

	s.Rename(id, "Checkout Flow")
	if s.Active().Name != "Checkout Flow" {
		t.Errorf("Name = %q, want %q", s.Active().Name, "Checkout Flow")
	}

	// Duplicate names are allowed.
	doc := s.Create(KindMicro)
	s.Rename(doc.ID, "Checkout Flow")
	if got, _ := s.Get(doc.ID); got.Name != "Checkout Flow" {
		t.Error("Rename should not enforce uniqueness")
	}
}

// =============================================================================
// DELETE TESTS
// =============================================================================

func TestStore_Delete_LastDocumentRefused(t *testing.T) {
	s := NewStore()
	id := s.ActiveID()

	if s.Delete(id) {
		t.Error("Deleting the sole remaining document should be refused")
	}
	if s.Count() != 1 {
		t.Errorf("Count = %d, want 1", s.Count())
	}
}

func TestStore_Delete_ActiveRepoints(t *testing.T) {
	s := NewStore()
	a := s.ActiveID()
	b := s.Create(KindMicro)

	// Make A active again, then delete it: B must become active.
	s.SetActive(a)
	if !s.Delete(a) {
		t.Fatal("Delete should succeed with two documents")
	}
	if s.ActiveID() != b.ID {
		t.Errorf("ActiveID = %q, want %q", s.ActiveID(), b.ID)
	}
	if _, ok := s.Get(a); ok {
		t.Error("Deleted document should be gone")
	}
}

func TestStore_Delete_InactiveKeepsSelection(t *testing.T) {
	s := NewStore()
	a := s.ActiveID()
	b := s.Create(KindMicro)
	s.SetActive(a)

	s.Delete(b.ID)
	if s.ActiveID() != a {
		t.Errorf("ActiveID = %q, want %q", s.ActiveID(), a)
	}
}

func TestStore_Delete_ActiveAlwaysResolvable(t *testing.T) {
	s := NewStore()
	for i := 0; i < 5; i++ {
		s.Create(KindMicro)
	}
	for s.Count() > 1 {
		s.Delete(s.ActiveID())
		if _, ok := s.Get(s.ActiveID()); !ok {
			t.Fatal("active selection must always resolve to a live document")
		}
	}
}

// =============================================================================
// SELECTION TESTS
// =============================================================================

func TestStore_SetActive(t *testing.T) {
	s := NewStore()
	a := s.ActiveID()
	b := s.Create(KindMacro)

	if !s.SetActive(a) {
		t.Error("SetActive on existing id should succeed")
	}
	if s.ActiveID() != a {
		t.Errorf("ActiveID = %q, want %q", s.ActiveID(), a)
	}

	if s.SetActive("doc_missing") {
		t.Error("SetActive on unknown id should report false")
	}
	if s.ActiveID() != a {
		t.Error("Failed SetActive must leave the selection unchanged")
	}
	_ = b
}

// =============================================================================
// SNAPSHOT TESTS
// =============================================================================

func TestStore_Others(t *testing.T) {
	s := NewStore()
	a := s.ActiveID()
	b := s.Create(KindMicro)
	c := s.Create(KindMicro)

	others := s.Others(b.ID)
	if len(others) != 2 {
		t.Fatalf("Others = %d docs, want 2", len(others))
	}
	if others[0].ID != a || others[1].ID != c.ID {
		t.Error("Others should preserve set order and exclude the given id")
	}
}

func TestStore_SnapshotsAreCopies(t *testing.T) {
	s := NewStore()
	snap := s.Active()
	snap.Text = "locally mutated"

	if s.Active().Text == "locally mutated" {
		t.Error("snapshot mutation must not affect the store")
	}
}

// =============================================================================
// DOCUMENT TESTS
// =============================================================================

func TestDocument_IsBlank(t *testing.T) {
	d := &Document{Text: "  \n\t  "}
	if !d.IsBlank() {
		t.Error("whitespace-only text should be blank")
	}
	d.Text = "graph TD"
	if d.IsBlank() {
		t.Error("non-empty text should not be blank")
	}
}

func TestTemplates(t *testing.T) {
	ts := Templates()
	if len(ts) != 5 {
		t.Fatalf("Templates = %d, want 5", len(ts))
	}
	for _, tpl := range ts {
		if tpl.Name == "" || tpl.Text == "" {
			t.Errorf("template %+v should have name and body", tpl)
		}
	}
}
