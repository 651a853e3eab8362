// Copyright (c) 2025 tpaschkow
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package planner runs the persistent planning chat: a conversation with
// the assistant grounded in the project context and the live text of every
// flow, surviving restarts via the transcript store.
package planner

import (
	"context"
	"strings"
	"sync"

	"github.com/tpaschkow/VelPRO-Mermaid/internal/document"
	"github.com/tpaschkow/VelPRO-Mermaid/internal/gemini"
	"github.com/tpaschkow/VelPRO-Mermaid/internal/storage"
)

// =============================================================================
// CONTRACTS
// =============================================================================

// Responder is the assistant operation the session drives.
type Responder interface {
	Chat(ctx context.Context, userText string, history []gemini.ChatTurn, projectContext string, docs []gemini.DocumentContext) (string, error)
}

// Transcript persists the chat across sessions.
type Transcript interface {
	Load() ([]storage.ChatMessage, error)
	Save(msgs []storage.ChatMessage) error
	Clear() error
}

// ContextProvider supplies the project context at send time.
type ContextProvider interface {
	Get() string
}

// ChatFailure is appended as an assistant turn when the call fails, so the
// conversation records the miss instead of silently dropping it.
const ChatFailure = "I encountered an error while thinking. Please try again."

// =============================================================================
// SESSION
// =============================================================================

// Snapshot is the displayable chat state.
type Snapshot struct {
	Messages         []storage.ChatMessage
	AwaitingResponse bool
}

// Session owns the planner conversation. One request at a time: Send is a
// no-op while a response is outstanding. Every transcript mutation is
// written through to the store.
type Session struct {
	mu sync.Mutex

	responder  Responder
	transcript Transcript
	store      *document.Store
	project    ContextProvider
	onUpdate   func(Snapshot)
	logf       func(format string, args ...any)

	messages []storage.ChatMessage
	awaiting bool
}

// NewSession creates a planner session and loads the saved transcript.
// A missing or unreadable transcript starts the conversation fresh.
// onUpdate may be nil.
func NewSession(responder Responder, transcript Transcript, store *document.Store, project ContextProvider, onUpdate func(Snapshot)) *Session {
	s := &Session{
		responder:  responder,
		transcript: transcript,
		store:      store,
		project:    project,
		onUpdate:   onUpdate,
		logf:       func(string, ...any) {},
	}

	msgs, err := transcript.Load()
	if err != nil || msgs == nil {
		msgs = []storage.ChatMessage{}
	}
	s.messages = msgs
	return s
}

// SetLogger installs a destination for persistence failure reports.
func (s *Session) SetLogger(logf func(format string, args ...any)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if logf != nil {
		s.logf = logf
	}
}

// =============================================================================
// SENDING
// =============================================================================

// Send appends the user's message and asks the assistant for a reply.
// Blank messages and sends while a response is outstanding are no-ops.
// The user turn lands in the transcript immediately; the assistant turn
// follows when the call completes. A failed call appends a fixed
// apologetic assistant turn and the session returns to idle.
func (s *Session) Send(text string) {
	if strings.TrimSpace(text) == "" {
		return
	}

	s.mu.Lock()
	if s.awaiting {
		s.mu.Unlock()
		return
	}
	s.awaiting = true

	// History is the conversation before this turn; the new user text
	// rides separately in the request.
	history := make([]gemini.ChatTurn, len(s.messages))
	for i, m := range s.messages {
		history[i] = gemini.ChatTurn{Role: m.Role, Text: m.Text}
	}

	s.messages = append(s.messages, storage.NewChatMessage(storage.RoleUser, text))
	s.persistLocked()
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.notify(snap)

	// Ground the request in the current state of every flow.
	docs := s.documentContexts()
	projectContext := s.project.Get()

	go func() {
		reply, err := s.responder.Chat(context.Background(), text, history, projectContext, docs)
		if err != nil {
			s.logf("planner chat failed: %v", err)
			reply = ChatFailure
		}

		s.mu.Lock()
		s.awaiting = false
		s.messages = append(s.messages, storage.NewChatMessage(storage.RoleAssistant, reply))
		s.persistLocked()
		snap := s.snapshotLocked()
		s.mu.Unlock()
		s.notify(snap)
	}()
}

// documentContexts snapshots every flow for grounding.
func (s *Session) documentContexts() []gemini.DocumentContext {
	list := s.store.List()
	docs := make([]gemini.DocumentContext, len(list))
	for i, d := range list {
		docs[i] = gemini.DocumentContext{Name: d.Name, Kind: string(d.Kind), Text: d.Text}
	}
	return docs
}

// =============================================================================
// TRANSCRIPT MANAGEMENT
// =============================================================================

// Clear wipes the conversation, in memory and on disk.
func (s *Session) Clear() {
	s.mu.Lock()
	s.messages = []storage.ChatMessage{}
	if err := s.transcript.Clear(); err != nil {
		s.logf("planner transcript clear failed: %v", err)
	}
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.notify(snap)
}

// Snapshot returns the current displayable state. The message slice is a
// copy; callers may not mutate the transcript through it.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() Snapshot {
	msgs := make([]storage.ChatMessage, len(s.messages))
	copy(msgs, s.messages)
	return Snapshot{
		Messages:         msgs,
		AwaitingResponse: s.awaiting,
	}
}

// persistLocked writes the transcript through to the store. Persistence
// failures are logged, not surfaced; the in-memory conversation is the
// source of truth for the session.
func (s *Session) persistLocked() {
	if err := s.transcript.Save(s.messages); err != nil {
		s.logf("planner transcript save failed: %v", err)
	}
}

func (s *Session) notify(snap Snapshot) {
	if s.onUpdate != nil {
		s.onUpdate(snap)
	}
}
