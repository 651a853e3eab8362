// Copyright (c) 2025 tpaschkow
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package generate handles AI-assisted authoring: turning natural
// language instructions into diagram text, and diagram text into
// stakeholder explanations.
package generate

import (
	"context"
	"strings"
	"sync"

	"github.com/tpaschkow/VelPRO-Mermaid/internal/document"
	"github.com/tpaschkow/VelPRO-Mermaid/internal/gemini"
)

// =============================================================================
// CONTRACTS
// =============================================================================

// Assistant is the subset of the Gemini client the coordinator drives.
type Assistant interface {
	GenerateCode(ctx context.Context, prompt, currentText string, deepReasoning bool, projectContext string, otherDocs []gemini.DocumentContext) (string, error)
	Explain(ctx context.Context, text string, deepReasoning bool) (string, error)
}

// AnalysisTrigger re-runs the QA pass immediately after a generation
// replaces the active text.
type AnalysisTrigger interface {
	AnalyzeNow(text, projectContext string)
}

// ContextProvider supplies the project context at request time.
type ContextProvider interface {
	Get() string
}

// User-facing failure messages. Generation failures are generic; the
// user's prompt stays in the input so they can retry.
const (
	GenerateFailure = "Failed to generate diagram. Please try again."
	ExplainFailure  = "Failed to explain diagram."
)

// =============================================================================
// COORDINATOR
// =============================================================================

// Snapshot is the displayable authoring state.
type Snapshot struct {
	Prompt        string
	DeepReasoning bool
	Generating    bool
	Explaining    bool
	ErrMessage    string
	Explanation   string
}

// Coordinator owns the builder prompt, the deep-reasoning toggle, and the
// explanation overlay. Generation and explanation carry independent busy
// flags; neither blocks the other.
type Coordinator struct {
	mu sync.Mutex

	assistant Assistant
	store     *document.Store
	analysis  AnalysisTrigger
	project   ContextProvider
	onUpdate  func(Snapshot)

	prompt        string
	deepReasoning bool
	generating    bool
	explaining    bool
	errMessage    string
	explanation   string
}

// NewCoordinator creates a generation coordinator. onUpdate may be nil.
func NewCoordinator(assistant Assistant, store *document.Store, analysis AnalysisTrigger, project ContextProvider, onUpdate func(Snapshot)) *Coordinator {
	return &Coordinator{
		assistant: assistant,
		store:     store,
		analysis:  analysis,
		project:   project,
		onUpdate:  onUpdate,
	}
}

// SetPrompt replaces the builder prompt text.
func (c *Coordinator) SetPrompt(text string) {
	c.mu.Lock()
	c.prompt = text
	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.notify(snap)
}

// ToggleDeepReasoning flips the thinking-mode flag.
func (c *Coordinator) ToggleDeepReasoning() {
	c.mu.Lock()
	c.deepReasoning = !c.deepReasoning
	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.notify(snap)
}

// =============================================================================
// GENERATION
// =============================================================================

// Generate sends the current prompt to the assistant and, on success,
// replaces the text of the document that was active when the request was
// issued. Blank prompts and concurrent generations are no-ops.
func (c *Coordinator) Generate() {
	c.mu.Lock()
	if c.generating || strings.TrimSpace(c.prompt) == "" {
		c.mu.Unlock()
		return
	}
	prompt := c.prompt
	deep := c.deepReasoning
	c.generating = true
	c.errMessage = ""
	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.notify(snap)

	// Snapshot the target and its context at issue time. The user may
	// switch or edit documents while the request is on the wire.
	active := c.store.Active()
	others := c.store.Others(active.ID)
	otherDocs := make([]gemini.DocumentContext, len(others))
	for i, d := range others {
		otherDocs[i] = gemini.DocumentContext{Name: d.Name, Kind: string(d.Kind), Text: d.Text}
	}
	projectContext := c.project.Get()

	go func() {
		reply, err := c.assistant.GenerateCode(context.Background(), prompt, active.Text, deep, projectContext, otherDocs)

		c.mu.Lock()
		c.generating = false
		if err != nil {
			// Prompt is preserved so the user can retry.
			c.errMessage = GenerateFailure
			snap := c.snapshotLocked()
			c.mu.Unlock()
			c.notify(snap)
			return
		}

		text := StripFences(reply)
		c.prompt = ""
		c.errMessage = ""
		snap := c.snapshotLocked()
		c.mu.Unlock()

		// Write back to the document the request was issued for. If it
		// was deleted meanwhile, Update is a silent no-op.
		c.store.Update(active.ID, text)

		// Re-analyze immediately, but only when the target is still the
		// document on screen.
		if c.analysis != nil && c.store.ActiveID() == active.ID {
			c.analysis.AnalyzeNow(text, projectContext)
		}
		c.notify(snap)
	}()
}

// =============================================================================
// EXPLANATION
// =============================================================================

// Explain asks for a stakeholder summary of the active document. One-shot,
// no retry; a failure shows a fixed fallback in place of the explanation.
func (c *Coordinator) Explain() {
	c.mu.Lock()
	if c.explaining {
		c.mu.Unlock()
		return
	}
	deep := c.deepReasoning
	c.mu.Unlock()

	active := c.store.Active()
	if active.IsBlank() {
		return
	}

	c.mu.Lock()
	c.explaining = true
	c.explanation = ""
	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.notify(snap)

	go func() {
		text, err := c.assistant.Explain(context.Background(), active.Text, deep)

		c.mu.Lock()
		c.explaining = false
		if err != nil {
			c.explanation = ExplainFailure
		} else {
			c.explanation = text
		}
		snap := c.snapshotLocked()
		c.mu.Unlock()
		c.notify(snap)
	}()
}

// DismissExplanation clears the explanation overlay.
func (c *Coordinator) DismissExplanation() {
	c.mu.Lock()
	c.explanation = ""
	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.notify(snap)
}

// ClearError clears the generation error, e.g. when the user edits the
// document by hand.
func (c *Coordinator) ClearError() {
	c.mu.Lock()
	c.errMessage = ""
	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.notify(snap)
}

// Snapshot returns the current displayable state.
func (c *Coordinator) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Coordinator) snapshotLocked() Snapshot {
	return Snapshot{
		Prompt:        c.prompt,
		DeepReasoning: c.deepReasoning,
		Generating:    c.generating,
		Explaining:    c.explaining,
		ErrMessage:    c.errMessage,
		Explanation:   c.explanation,
	}
}

func (c *Coordinator) notify(snap Snapshot) {
	if c.onUpdate != nil {
		c.onUpdate(snap)
	}
}

// =============================================================================
// FENCE STRIPPING
// =============================================================================

// StripFences removes enclosing markdown code-fence lines from an
// assistant reply. Models occasionally wrap output in ```mermaid blocks
// despite being told not to.
func StripFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		if idx := strings.IndexByte(s, '\n'); idx >= 0 {
			s = s[idx+1:]
		} else {
			s = strings.TrimPrefix(s, "```")
		}
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
