// Copyright (c) 2025 tpaschkow
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package document holds the diagram document set and the active selection.
package document

import (
	"crypto/rand"
	"encoding/hex"
	"time"
)

// =============================================================================
// KIND TYPE
// =============================================================================

// Kind classifies a document as a macro or micro flow. The distinction is
// organizational only; no behavior branches on it beyond display.
type Kind string

const (
	KindMacro Kind = "macro"
	KindMicro Kind = "micro"
)

// String returns the string representation of the kind.
func (k Kind) String() string {
	return string(k)
}

// DisplayName returns a human-readable label for the kind.
func (k Kind) DisplayName() string {
	switch k {
	case KindMacro:
		return "Macro Flow"
	case KindMicro:
		return "Micro Flow"
	default:
		return string(k)
	}
}

// =============================================================================
// DOCUMENT TYPE
// =============================================================================

// InitialText is the diagram body of the default document created at startup.
const InitialText = `graph TD
    A[Start] --> B{Is it working?}
    B -- Yes --> C[Great!]
    B -- No --> D[Debug]
    D --> B`

// PlaceholderText seeds newly created documents with a minimal valid diagram.
const PlaceholderText = `graph TD
    A[Start] --> B[End]`

// Document is one editable unit of Mermaid text plus metadata.
type Document struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Text      string    `json:"text"`
	Kind      Kind      `json:"kind"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewDocument creates a document of the given kind with a generated ID
// and the placeholder diagram body.
func NewDocument(kind Kind) *Document {
	name := "New Micro Flow"
	if kind == KindMacro {
		name = "New Macro Flow"
	}
	return &Document{
		ID:        generateDocumentID(),
		Name:      name,
		Text:      PlaceholderText,
		Kind:      kind,
		UpdatedAt: time.Now(),
	}
}

// IsBlank reports whether the document text is empty or whitespace only.
func (d *Document) IsBlank() bool {
	for _, r := range d.Text {
		if r != ' ' && r != '\t' && r != '\n' && r != '\r' {
			return false
		}
	}
	return true
}

// generateDocumentID creates a unique document ID.
func generateDocumentID() string {
	bytes := make([]byte, 8)
	rand.Read(bytes)
	return "doc_" + hex.EncodeToString(bytes)
}
