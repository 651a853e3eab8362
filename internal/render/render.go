// Copyright (c) 2025 tpaschkow
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package render keeps the live preview in sync with the active document.
package render

import (
	"context"
	"sync"
	"time"
)

// =============================================================================
// RENDERER CONTRACT
// =============================================================================

// Graphic is the vector markup produced by a successful render.
type Graphic struct {
	SVG string
}

// Renderer is the external rendering collaborator. It is deterministic
// for identical input and configuration.
type Renderer interface {
	Render(ctx context.Context, text string) (*Graphic, error)
}

// SyntaxError reports that the renderer rejected the diagram text.
type SyntaxError struct {
	Message string
}

func (e *SyntaxError) Error() string {
	return e.Message
}

// =============================================================================
// COORDINATOR
// =============================================================================

// DefaultDebounce is the quiescence window after the last edit before a
// render fires, so rapid keystrokes coalesce into one render call.
const DefaultDebounce = 500 * time.Millisecond

// Snapshot is the displayable render state handed to the consumer.
type Snapshot struct {
	Graphic *Graphic
	// ErrMessage is the current syntax error, or "" when the last render
	// succeeded. An error never clears the last good graphic.
	ErrMessage string
	Rendering  bool
}

// Coordinator debounces text changes and drives the external renderer.
//
// Race policy: every schedule bumps a generation counter and the result
// of a render is discarded unless its generation is still current when
// it completes. A late response for superseded text can therefore never
// clobber a newer graphic or error.
type Coordinator struct {
	mu sync.Mutex

	renderer Renderer
	debounce time.Duration
	onUpdate func(Snapshot)

	timer      *time.Timer
	generation uint64
	inFlight   int

	// lastRendered is the input of the most recent successful render.
	// Re-triggering with identical text is skipped to prevent flicker.
	lastRendered string
	graphic      *Graphic
	errMessage   string

	closed bool
}

// NewCoordinator creates a render coordinator. onUpdate is invoked
// (outside the coordinator lock) whenever the displayable state changes;
// it may be nil.
func NewCoordinator(renderer Renderer, debounce time.Duration, onUpdate func(Snapshot)) *Coordinator {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Coordinator{
		renderer: renderer,
		debounce: debounce,
		onUpdate: onUpdate,
	}
}

// TextChanged schedules a render of text after the quiescence window.
// Every call cancels the previously pending timer, so only the last
// scheduled attempt within the window fires.
func (c *Coordinator) TextChanged(text string) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}

	// Any new input supersedes whatever is pending or in flight.
	c.generation++
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}

	// Empty text clears the preview without invoking the renderer.
	if text == "" {
		c.lastRendered = ""
		c.graphic = nil
		c.errMessage = ""
		snap := c.snapshotLocked()
		c.mu.Unlock()
		c.notify(snap)
		return
	}

	// Identical to the last successful render: nothing to do. This
	// suppresses repeated triggers for unchanged text, not real edits.
	if text == c.lastRendered {
		c.mu.Unlock()
		return
	}

	gen := c.generation
	c.timer = time.AfterFunc(c.debounce, func() {
		c.render(gen, text)
	})
	c.mu.Unlock()
}

// render invokes the collaborator and applies the result unless the
// request has been superseded meanwhile.
func (c *Coordinator) render(gen uint64, text string) {
	c.mu.Lock()
	if c.closed || gen != c.generation {
		c.mu.Unlock()
		return
	}
	c.inFlight++
	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.notify(snap)

	graphic, err := c.renderer.Render(context.Background(), text)

	c.mu.Lock()
	c.inFlight--
	if c.closed || gen != c.generation {
		// Stale result: a newer request started (or the consumer was
		// torn down) while this one was on the wire. Discard.
		c.mu.Unlock()
		return
	}

	if err != nil {
		// Keep the last good graphic; only the message changes.
		c.errMessage = err.Error()
	} else {
		c.graphic = graphic
		c.lastRendered = text
		c.errMessage = ""
	}
	snap = c.snapshotLocked()
	c.mu.Unlock()
	c.notify(snap)
}

// Close tears the coordinator down. Pending timers are cancelled and any
// in-flight result is discarded on arrival.
func (c *Coordinator) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.generation++
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

// snapshotLocked builds a Snapshot. Caller must hold the mutex.
func (c *Coordinator) snapshotLocked() Snapshot {
	return Snapshot{
		Graphic:    c.graphic,
		ErrMessage: c.errMessage,
		Rendering:  c.inFlight > 0,
	}
}

// notify delivers a snapshot outside the lock.
func (c *Coordinator) notify(snap Snapshot) {
	if c.onUpdate != nil {
		c.onUpdate(snap)
	}
}
