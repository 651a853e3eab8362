// Copyright (c) 2025 tpaschkow
// SPDX-License-Identifier: AGPL-3.0-or-later

package analysis

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/tpaschkow/VelPRO-Mermaid/internal/gemini"
)

const testDebounce = 20 * time.Millisecond

// fakeAnalyzer records calls and returns canned results.
type fakeAnalyzer struct {
	mu     sync.Mutex
	calls  []string
	result *gemini.AnalysisResult
	err    error
	gate   chan struct{} // optional: block until closed
}

func (f *fakeAnalyzer) Analyze(ctx context.Context, text, projectContext string) (*gemini.AnalysisResult, error) {
	f.mu.Lock()
	f.calls = append(f.calls, text)
	gate := f.gate
	result, err := f.result, f.err
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}
	return result, err
}

func (f *fakeAnalyzer) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeAnalyzer) lastCall() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.calls) == 0 {
		return ""
	}
	return f.calls[len(f.calls)-1]
}

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

// =============================================================================
// DEBOUNCE TESTS
// =============================================================================

func TestCoordinator_RapidEditsCoalesce(t *testing.T) {
	fa := &fakeAnalyzer{result: gemini.EmptyAnalysis()}
	c := NewCoordinator(fa, testDebounce, nil)
	defer c.Close()

	c.TextChanged("graph TD\nA", "ctx")
	c.TextChanged("graph TD\nA-->", "ctx")
	c.TextChanged("graph TD\nA-->B", "ctx")

	waitFor(t, func() bool { return fa.callCount() == 1 })
	time.Sleep(2 * testDebounce)

	if fa.callCount() != 1 {
		t.Fatalf("analyze calls = %d, want exactly 1", fa.callCount())
	}
	if fa.lastCall() != "graph TD\nA-->B" {
		t.Errorf("analyzed %q, want final text", fa.lastCall())
	}
}

func TestCoordinator_BlankTextSkipped(t *testing.T) {
	fa := &fakeAnalyzer{result: gemini.EmptyAnalysis()}
	c := NewCoordinator(fa, testDebounce, nil)
	defer c.Close()

	c.TextChanged("   \n\t ", "ctx")
	time.Sleep(3 * testDebounce)

	if fa.callCount() != 0 {
		t.Errorf("analyze calls = %d, blank text must not be analyzed", fa.callCount())
	}
}

func TestCoordinator_BlankEditCancelsPending(t *testing.T) {
	fa := &fakeAnalyzer{result: gemini.EmptyAnalysis()}
	c := NewCoordinator(fa, testDebounce, nil)
	defer c.Close()

	c.TextChanged("graph TD", "ctx")
	c.TextChanged("", "ctx") // user selected everything and deleted it
	time.Sleep(3 * testDebounce)

	if fa.callCount() != 0 {
		t.Errorf("analyze calls = %d, pending run should be cancelled", fa.callCount())
	}
}

// =============================================================================
// RESULT HANDLING TESTS
// =============================================================================

func TestCoordinator_StoresResult(t *testing.T) {
	want := &gemini.AnalysisResult{
		Suggestions: []string{"add labels"},
		SyntaxValid: true,
		LogicGaps:   []string{},
	}
	fa := &fakeAnalyzer{result: want}
	c := NewCoordinator(fa, testDebounce, nil)
	defer c.Close()

	c.TextChanged("graph TD\nA-->B", "ctx")
	waitFor(t, func() bool { return c.Snapshot().Result != nil })

	snap := c.Snapshot()
	if snap.Result.Suggestions[0] != "add labels" {
		t.Errorf("Result = %+v", snap.Result)
	}
	if snap.Analyzing {
		t.Error("Analyzing should be false after completion")
	}
}

func TestCoordinator_FailureKeepsPreviousResult(t *testing.T) {
	previous := &gemini.AnalysisResult{Suggestions: []string{"first"}, SyntaxValid: true, LogicGaps: []string{}}
	fa := &fakeAnalyzer{result: previous}
	logged := 0
	c := NewCoordinator(fa, testDebounce, nil)
	c.SetLogger(func(string, ...any) { logged++ })
	defer c.Close()

	c.TextChanged("graph TD\nA-->B", "ctx")
	waitFor(t, func() bool { return c.Snapshot().Result != nil })

	fa.mu.Lock()
	fa.err = errors.New("transport down")
	fa.result = nil
	fa.mu.Unlock()

	c.TextChanged("graph TD\nA-->C", "ctx")
	waitFor(t, func() bool { return fa.callCount() == 2 })
	waitFor(t, func() bool { return !c.Snapshot().Analyzing })

	snap := c.Snapshot()
	if snap.Result == nil || snap.Result.Suggestions[0] != "first" {
		t.Error("failure must leave the previous result untouched")
	}
	if logged == 0 {
		t.Error("failure should be logged")
	}
}

func TestCoordinator_BusyFlagAlwaysClears(t *testing.T) {
	fa := &fakeAnalyzer{err: errors.New("boom")}
	c := NewCoordinator(fa, testDebounce, nil)
	defer c.Close()

	c.TextChanged("graph TD", "ctx")
	waitFor(t, func() bool { return fa.callCount() == 1 })
	waitFor(t, func() bool { return !c.Snapshot().Analyzing })
}

// =============================================================================
// IMMEDIATE TRIGGER TESTS
// =============================================================================

func TestCoordinator_AnalyzeNowBypassesDebounce(t *testing.T) {
	fa := &fakeAnalyzer{result: gemini.EmptyAnalysis()}
	c := NewCoordinator(fa, time.Minute, nil) // debounce too long to fire in test
	defer c.Close()

	c.AnalyzeNow("graph TD\nA-->B-->C", "ctx")
	waitFor(t, func() bool { return fa.callCount() == 1 })

	if fa.lastCall() != "graph TD\nA-->B-->C" {
		t.Errorf("analyzed %q", fa.lastCall())
	}
}

func TestCoordinator_AnalyzeNowCancelsPendingDebounce(t *testing.T) {
	fa := &fakeAnalyzer{result: gemini.EmptyAnalysis()}
	c := NewCoordinator(fa, testDebounce, nil)
	defer c.Close()

	c.TextChanged("old text", "ctx")
	c.AnalyzeNow("graph TD\nnew", "ctx")

	waitFor(t, func() bool { return fa.callCount() >= 1 })
	time.Sleep(3 * testDebounce)

	if fa.callCount() != 1 {
		t.Fatalf("analyze calls = %d, pending debounced run should be cancelled", fa.callCount())
	}
	if fa.lastCall() != "graph TD\nnew" {
		t.Errorf("analyzed %q, want the immediate text", fa.lastCall())
	}
}

func TestCoordinator_LastCompletionWins(t *testing.T) {
	slow := &gemini.AnalysisResult{Suggestions: []string{"slow"}, SyntaxValid: true, LogicGaps: []string{}}
	fast := &gemini.AnalysisResult{Suggestions: []string{"fast"}, SyntaxValid: true, LogicGaps: []string{}}

	gate := make(chan struct{})
	fa := &fakeAnalyzer{result: slow, gate: gate}
	c := NewCoordinator(fa, testDebounce, nil)
	defer c.Close()

	// First call parks on the gate.
	c.AnalyzeNow("graph TD\nA", "ctx")
	waitFor(t, func() bool { return fa.callCount() == 1 })

	// Second call completes immediately.
	fa.mu.Lock()
	fa.result = fast
	fa.gate = nil
	fa.mu.Unlock()
	c.AnalyzeNow("graph TD\nB", "ctx")
	waitFor(t, func() bool { return fa.callCount() == 2 })
	waitFor(t, func() bool { return c.Snapshot().Result != nil })

	// Release the slow first call: it completes last, so it wins.
	// Analysis is advisory only; completion order is the contract.
	close(gate)
	waitFor(t, func() bool {
		snap := c.Snapshot()
		return snap.Result != nil && snap.Result.Suggestions[0] == "slow" && !snap.Analyzing
	})
}
