// Copyright (c) 2025 tpaschkow
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package analysis runs the debounced background QA pass over the active
// document and feeds the insights panel.
package analysis

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/tpaschkow/VelPRO-Mermaid/internal/gemini"
)

// =============================================================================
// ANALYZER CONTRACT
// =============================================================================

// Analyzer is the assistant operation this coordinator drives.
type Analyzer interface {
	Analyze(ctx context.Context, text, projectContext string) (*gemini.AnalysisResult, error)
}

// =============================================================================
// COORDINATOR
// =============================================================================

// DefaultDebounce is the analysis quiescence window. It is longer than the
// render window because analysis is the more expensive call.
const DefaultDebounce = 2 * time.Second

// Snapshot is the displayable analysis state.
type Snapshot struct {
	Result    *gemini.AnalysisResult
	Analyzing bool
}

// Coordinator debounces edits and runs the analysis pass in the background.
//
// Failures are silent: the previous result stays on display and the error
// is only logged. Results apply in completion order, not start order; an
// older slow response may overwrite a newer fast one, which is acceptable
// for advisory-only data.
type Coordinator struct {
	mu sync.Mutex

	analyzer Analyzer
	debounce time.Duration
	onUpdate func(Snapshot)
	logf     func(format string, args ...any)

	timer    *time.Timer
	inFlight int
	result   *gemini.AnalysisResult

	closed bool
}

// NewCoordinator creates an analysis coordinator. onUpdate and logf may
// be nil.
func NewCoordinator(analyzer Analyzer, debounce time.Duration, onUpdate func(Snapshot)) *Coordinator {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Coordinator{
		analyzer: analyzer,
		debounce: debounce,
		onUpdate: onUpdate,
		logf:     func(string, ...any) {},
	}
}

// SetLogger installs a destination for silent failure reports.
func (c *Coordinator) SetLogger(logf func(format string, args ...any)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if logf != nil {
		c.logf = logf
	}
}

// TextChanged schedules an analysis of text after the quiescence window.
// Blank text cancels any pending run and schedules nothing.
func (c *Coordinator) TextChanged(text, projectContext string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}

	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}

	if strings.TrimSpace(text) == "" {
		return
	}

	c.timer = time.AfterFunc(c.debounce, func() {
		c.analyze(text, projectContext)
	})
}

// AnalyzeNow runs immediately, bypassing the debounce. Used right after a
// successful generation replaces the active text. A pending debounced run
// is cancelled; if one is already in flight the later completion wins.
func (c *Coordinator) AnalyzeNow(text, projectContext string) {
	c.mu.Lock()
	if c.closed || strings.TrimSpace(text) == "" {
		c.mu.Unlock()
		return
	}
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.mu.Unlock()

	go c.analyze(text, projectContext)
}

// analyze performs one assistant call and stores the result.
func (c *Coordinator) analyze(text, projectContext string) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.inFlight++
	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.notify(snap)

	result, err := c.analyzer.Analyze(context.Background(), text, projectContext)

	c.mu.Lock()
	// The busy flag always clears, whatever the outcome.
	c.inFlight--
	if c.closed {
		c.mu.Unlock()
		return
	}
	if err != nil {
		// Silent failure: keep the previous result on display.
		c.logf("analysis failed: %v", err)
	} else {
		c.result = result
	}
	snap = c.snapshotLocked()
	c.mu.Unlock()
	c.notify(snap)
}

// Close tears the coordinator down; late completions are dropped.
func (c *Coordinator) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

// Snapshot returns the current displayable state.
func (c *Coordinator) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Coordinator) snapshotLocked() Snapshot {
	return Snapshot{
		Result:    c.result,
		Analyzing: c.inFlight > 0,
	}
}

func (c *Coordinator) notify(snap Snapshot) {
	if c.onUpdate != nil {
		c.onUpdate(snap)
	}
}
