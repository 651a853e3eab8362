// Copyright (c) 2025 tpaschkow
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage persists the planner chat transcript across sessions.
package storage

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/tpaschkow/VelPRO-Mermaid/internal/util"
)

// =============================================================================
// STORED MESSAGE TYPE
// =============================================================================

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage is one persisted planner chat turn.
type ChatMessage struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"` // "user" or "assistant"
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// NewChatMessage creates a message with a fresh ID and current timestamp.
func NewChatMessage(role, text string) ChatMessage {
	return ChatMessage{
		ID:        uuid.NewString(),
		Role:      role,
		Text:      text,
		Timestamp: time.Now(),
	}
}

// =============================================================================
// CHAT STORE
// =============================================================================

// ChatStore reads and writes the planner transcript as a single JSON file.
// The transcript is small; the whole file is rewritten on every change.
type ChatStore struct {
	// Path is the transcript file.
	// Default: ~/.velpro/planner_chat.json
	Path string
}

// NewChatStore creates a store rooted in the user's home directory.
func NewChatStore() (*ChatStore, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}

	dir := filepath.Join(homeDir, ".velpro")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	return &ChatStore{Path: filepath.Join(dir, "planner_chat.json")}, nil
}

// NewChatStoreWithPath creates a store writing to a custom file path.
func NewChatStoreWithPath(path string) *ChatStore {
	return &ChatStore{Path: path}
}

// Load reads the saved transcript. A missing file is an empty transcript,
// not an error; a corrupt file returns an error so the caller can decide
// whether to start fresh.
func (s *ChatStore) Load() ([]ChatMessage, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return []ChatMessage{}, nil
		}
		return nil, err
	}

	var msgs []ChatMessage
	if err := json.Unmarshal(data, &msgs); err != nil {
		return nil, err
	}
	if msgs == nil {
		msgs = []ChatMessage{}
	}
	return msgs, nil
}

// Save replaces the transcript on disk.
func (s *ChatStore) Save(msgs []ChatMessage) error {
	if msgs == nil {
		msgs = []ChatMessage{}
	}

	data, err := json.MarshalIndent(msgs, "", "  ")
	if err != nil {
		return err
	}

	// Atomic write with fsync so a crash mid-save cannot corrupt the
	// transcript.
	return util.AtomicWriteFile(s.Path, data, 0644)
}

// Clear removes the transcript file.
func (s *ChatStore) Clear() error {
	if err := os.Remove(s.Path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
