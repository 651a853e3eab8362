// Copyright (c) 2025 tpaschkow
// SPDX-License-Identifier: AGPL-3.0-or-later

package planner

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/tpaschkow/VelPRO-Mermaid/internal/document"
	"github.com/tpaschkow/VelPRO-Mermaid/internal/gemini"
	"github.com/tpaschkow/VelPRO-Mermaid/internal/storage"
)

// fakeResponder records the last request and returns canned replies.
type fakeResponder struct {
	mu sync.Mutex

	reply string
	err   error
	gate  chan struct{} // optional: block until closed

	calls       int
	lastText    string
	lastHistory []gemini.ChatTurn
	lastContext string
	lastDocs    []gemini.DocumentContext
}

func (f *fakeResponder) Chat(ctx context.Context, userText string, history []gemini.ChatTurn, projectContext string, docs []gemini.DocumentContext) (string, error) {
	f.mu.Lock()
	f.calls++
	f.lastText = userText
	f.lastHistory = history
	f.lastContext = projectContext
	f.lastDocs = docs
	gate := f.gate
	reply, err := f.reply, f.err
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}
	return reply, err
}

func (f *fakeResponder) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type staticContext string

func (s staticContext) Get() string { return string(s) }

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func newTestSession(t *testing.T, fr *fakeResponder) (*Session, *storage.ChatStore) {
	t.Helper()
	ts := storage.NewChatStoreWithPath(filepath.Join(t.TempDir(), "planner_chat.json"))
	s := NewSession(fr, ts, document.NewStore(), staticContext("proj"), nil)
	return s, ts
}

// =============================================================================
// SEND TESTS
// =============================================================================

func TestSession_SendAppendsBothTurns(t *testing.T) {
	fr := &fakeResponder{reply: "Start with the approval flow."}
	s, ts := newTestSession(t, fr)

	s.Send("Where do I start?")

	// The user turn is in the transcript before the reply arrives.
	snap := s.Snapshot()
	if len(snap.Messages) != 1 || snap.Messages[0].Role != storage.RoleUser {
		t.Fatalf("Messages = %+v, want the user turn immediately", snap.Messages)
	}
	if !snap.AwaitingResponse {
		t.Error("AwaitingResponse should be true while the call is in flight")
	}

	waitFor(t, func() bool { return len(s.Snapshot().Messages) == 2 })
	snap = s.Snapshot()
	if snap.Messages[1].Role != storage.RoleAssistant || snap.Messages[1].Text != "Start with the approval flow." {
		t.Errorf("assistant turn = %+v", snap.Messages[1])
	}
	if snap.AwaitingResponse {
		t.Error("AwaitingResponse should clear after the reply")
	}

	// Both turns are on disk.
	saved, err := ts.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(saved) != 2 {
		t.Errorf("persisted %d messages, want 2", len(saved))
	}
}

func TestSession_FailureAppendsApologyAndReturnsToIdle(t *testing.T) {
	fr := &fakeResponder{err: errors.New("api down")}
	s, _ := newTestSession(t, fr)

	s.Send("Plan the billing flow")
	waitFor(t, func() bool { return len(s.Snapshot().Messages) == 2 })

	snap := s.Snapshot()
	if snap.Messages[1].Role != storage.RoleAssistant || snap.Messages[1].Text != ChatFailure {
		t.Errorf("failure turn = %+v, want fixed apology", snap.Messages[1])
	}
	if snap.AwaitingResponse {
		t.Error("failure must return the session to idle")
	}

	// A new send works after the failure.
	fr.mu.Lock()
	fr.err = nil
	fr.reply = "recovered"
	fr.mu.Unlock()
	s.Send("retry")
	waitFor(t, func() bool { return len(s.Snapshot().Messages) == 4 })
}

func TestSession_BlankSendIsNoOp(t *testing.T) {
	fr := &fakeResponder{reply: "x"}
	s, _ := newTestSession(t, fr)

	s.Send("   \n ")
	time.Sleep(20 * time.Millisecond)

	if fr.callCount() != 0 {
		t.Error("blank message must not reach the assistant")
	}
	if len(s.Snapshot().Messages) != 0 {
		t.Error("blank message must not enter the transcript")
	}
}

func TestSession_SendWhileAwaitingIsNoOp(t *testing.T) {
	gate := make(chan struct{})
	fr := &fakeResponder{reply: "slow reply", gate: gate}
	s, _ := newTestSession(t, fr)

	s.Send("first")
	waitFor(t, func() bool { return fr.callCount() == 1 })

	s.Send("second") // dropped: one request at a time
	close(gate)
	waitFor(t, func() bool { return !s.Snapshot().AwaitingResponse })

	if fr.callCount() != 1 {
		t.Errorf("chat calls = %d, want 1", fr.callCount())
	}
	if got := len(s.Snapshot().Messages); got != 2 {
		t.Errorf("transcript length = %d, want 2", got)
	}
}

func TestSession_RequestCarriesHistoryAndGrounding(t *testing.T) {
	fr := &fakeResponder{reply: "noted"}
	s, _ := newTestSession(t, fr)

	s.Send("first question")
	waitFor(t, func() bool { return len(s.Snapshot().Messages) == 2 })

	s.Send("follow-up")
	waitFor(t, func() bool { return fr.callCount() == 2 })

	fr.mu.Lock()
	defer fr.mu.Unlock()
	if fr.lastText != "follow-up" {
		t.Errorf("userText = %q", fr.lastText)
	}
	// History is the transcript before the new turn.
	if len(fr.lastHistory) != 2 {
		t.Fatalf("history length = %d, want 2", len(fr.lastHistory))
	}
	if fr.lastHistory[0].Role != storage.RoleUser || fr.lastHistory[0].Text != "first question" {
		t.Errorf("history[0] = %+v", fr.lastHistory[0])
	}
	if fr.lastContext != "proj" {
		t.Errorf("projectContext = %q", fr.lastContext)
	}
	if len(fr.lastDocs) != 1 || fr.lastDocs[0].Name != "Main Flow" {
		t.Errorf("docs = %+v, want the seeded flow", fr.lastDocs)
	}
}

// =============================================================================
// PERSISTENCE TESTS
// =============================================================================

func TestSession_LoadsSavedTranscript(t *testing.T) {
	ts := storage.NewChatStoreWithPath(filepath.Join(t.TempDir(), "planner_chat.json"))
	saved := []storage.ChatMessage{
		storage.NewChatMessage(storage.RoleUser, "old question"),
		storage.NewChatMessage(storage.RoleAssistant, "old answer"),
	}
	if err := ts.Save(saved); err != nil {
		t.Fatal(err)
	}

	s := NewSession(&fakeResponder{}, ts, document.NewStore(), staticContext("proj"), nil)

	snap := s.Snapshot()
	if len(snap.Messages) != 2 || snap.Messages[0].Text != "old question" {
		t.Errorf("restored transcript = %+v", snap.Messages)
	}
}

func TestSession_CorruptTranscriptStartsFresh(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "planner_chat.json")
	writeFile(t, path, "{broken")

	ts := storage.NewChatStoreWithPath(path)
	s := NewSession(&fakeResponder{}, ts, document.NewStore(), staticContext("proj"), nil)

	if len(s.Snapshot().Messages) != 0 {
		t.Error("corrupt transcript must start the conversation fresh")
	}
}

func TestSession_ClearWipesMemoryAndDisk(t *testing.T) {
	fr := &fakeResponder{reply: "ok"}
	s, ts := newTestSession(t, fr)

	s.Send("hello")
	waitFor(t, func() bool { return len(s.Snapshot().Messages) == 2 })

	s.Clear()

	if len(s.Snapshot().Messages) != 0 {
		t.Error("Clear() must empty the in-memory transcript")
	}
	saved, err := ts.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(saved) != 0 {
		t.Error("Clear() must remove the durable transcript")
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}
