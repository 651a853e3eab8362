// Copyright (c) 2025 tpaschkow
// SPDX-License-Identifier: AGPL-3.0-or-later

package ui

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/tpaschkow/VelPRO-Mermaid/internal/analysis"
	"github.com/tpaschkow/VelPRO-Mermaid/internal/document"
	"github.com/tpaschkow/VelPRO-Mermaid/internal/export"
	"github.com/tpaschkow/VelPRO-Mermaid/internal/gemini"
	"github.com/tpaschkow/VelPRO-Mermaid/internal/generate"
	"github.com/tpaschkow/VelPRO-Mermaid/internal/planner"
	"github.com/tpaschkow/VelPRO-Mermaid/internal/project"
	"github.com/tpaschkow/VelPRO-Mermaid/internal/render"
	"github.com/tpaschkow/VelPRO-Mermaid/internal/storage"
)

// =============================================================================
// FAKES
// =============================================================================

type stubRenderer struct{}

func (stubRenderer) Render(ctx context.Context, text string) (*render.Graphic, error) {
	return &render.Graphic{SVG: "<svg/>"}, nil
}

type stubAnalyzer struct{}

func (stubAnalyzer) Analyze(ctx context.Context, text, projectContext string) (*gemini.AnalysisResult, error) {
	return gemini.FallbackAnalysis(), nil
}

type stubAssistant struct{}

func (stubAssistant) GenerateCode(ctx context.Context, prompt, currentText string, deepReasoning bool, projectContext string, otherDocs []gemini.DocumentContext) (string, error) {
	return "graph TD\nA-->B", nil
}

func (stubAssistant) Explain(ctx context.Context, text string, deepReasoning bool) (string, error) {
	return "a diagram", nil
}

type stubResponder struct{}

func (stubResponder) Chat(ctx context.Context, userText string, history []gemini.ChatTurn, projectContext string, docs []gemini.DocumentContext) (string, error) {
	return "sounds good", nil
}

func testModel(t *testing.T) Model {
	t.Helper()

	store := document.NewStore()
	proj := project.NewContext()

	renderC := render.NewCoordinator(stubRenderer{}, time.Hour, nil)
	t.Cleanup(renderC.Close)
	analysisC := analysis.NewCoordinator(stubAnalyzer{}, time.Hour, nil)
	t.Cleanup(analysisC.Close)
	generateC := generate.NewCoordinator(stubAssistant{}, store, analysisC, proj, nil)

	transcript := storage.NewChatStoreWithPath(filepath.Join(t.TempDir(), "chat.json"))
	session := planner.NewSession(stubResponder{}, transcript, store, proj, nil)

	return New(Deps{
		Store:    store,
		Render:   renderC,
		Analysis: analysisC,
		Generate: generateC,
		Planner:  session,
		Project:  proj,
		Export:   export.DefaultOptions(),
	})
}

func updateKey(m Model, k tea.KeyMsg) Model {
	next, _ := m.Update(k)
	return next.(Model)
}

// =============================================================================
// MODEL TESTS
// =============================================================================

func TestNew_StartsOnActiveFlow(t *testing.T) {
	m := testModel(t)

	if m.focus != FocusEditor {
		t.Error("editor should start focused")
	}
	if m.editor.Value() != m.deps.Store.Active().Text {
		t.Error("editor should hold the active flow's text")
	}
}

func TestUpdate_CreateFlowSwitchesEditor(t *testing.T) {
	m := testModel(t)

	m = updateKey(m, tea.KeyMsg{Type: tea.KeyCtrlN})

	if m.deps.Store.Count() != 2 {
		t.Fatalf("Count() = %d, want 2", m.deps.Store.Count())
	}
	active := m.deps.Store.Active()
	if active.Kind != document.KindMicro {
		t.Errorf("new flow kind = %q", active.Kind)
	}
	if m.editor.Value() != active.Text {
		t.Error("editor should switch to the new flow")
	}
}

func TestUpdate_DeleteSoleFlowIsRefused(t *testing.T) {
	m := testModel(t)

	m = updateKey(m, tea.KeyMsg{Type: tea.KeyCtrlX})
	if m.overlay != OverlayConfirmDelete {
		t.Fatal("delete should ask for confirmation")
	}
	m = updateKey(m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'y'}})

	if m.deps.Store.Count() != 1 {
		t.Error("sole flow must survive deletion")
	}
}

func TestUpdate_SidebarNavigation(t *testing.T) {
	m := testModel(t)
	first := m.deps.Store.ActiveID()
	m.deps.Store.Create(document.KindMicro)

	m.setFocus(FocusSidebar)
	m.syncSidebarIndex()
	m = updateKey(m, tea.KeyMsg{Type: tea.KeyUp})
	m = updateKey(m, tea.KeyMsg{Type: tea.KeyEnter})

	if m.deps.Store.ActiveID() != first {
		t.Error("enter should activate the selected flow")
	}
	if m.editor.Value() != m.deps.Store.Active().Text {
		t.Error("editor should follow the activated flow")
	}
}

func TestUpdate_RenderSnapshotStored(t *testing.T) {
	m := testModel(t)

	snap := render.Snapshot{Graphic: &render.Graphic{SVG: "<svg>x</svg>"}}
	next, _ := m.Update(RenderSnapshotMsg{Snapshot: snap})
	m = next.(Model)

	if m.renderSnap.Graphic == nil || m.renderSnap.Graphic.SVG != "<svg>x</svg>" {
		t.Error("render snapshot should be stored")
	}
}

func TestUpdate_GenerationSuccessRefreshesEditor(t *testing.T) {
	m := testModel(t)
	m.genSnap = generate.Snapshot{Generating: true}
	m.deps.Store.Update(m.deps.Store.ActiveID(), "graph TD\nA-->B-->C")

	next, _ := m.Update(GenerateSnapshotMsg{Snapshot: generate.Snapshot{}})
	m = next.(Model)

	if m.editor.Value() != "graph TD\nA-->B-->C" {
		t.Errorf("editor = %q, should reload from store after generation", m.editor.Value())
	}
}

func TestUpdate_ExplanationOpensOverlay(t *testing.T) {
	m := testModel(t)

	next, _ := m.Update(GenerateSnapshotMsg{Snapshot: generate.Snapshot{Explanation: "it flows"}})
	m = next.(Model)
	if m.overlay != OverlayExplanation {
		t.Fatal("explanation should open the overlay")
	}

	m = updateKey(m, tea.KeyMsg{Type: tea.KeyEsc})
	if m.overlay != OverlayNone {
		t.Error("esc should dismiss the explanation")
	}
}

func TestUpdate_StatusExpiry(t *testing.T) {
	m := testModel(t)

	next, _ := m.Update(StatusMsg{Text: "exported flow.svg"})
	m = next.(Model)
	if m.statusText != "exported flow.svg" {
		t.Fatalf("statusText = %q", m.statusText)
	}

	// A stale expiry must not clear a newer status.
	next, _ = m.Update(statusExpireMsg{setAt: m.statusSetAt.Add(-time.Second)})
	m = next.(Model)
	if m.statusText == "" {
		t.Error("stale expiry cleared a live status")
	}

	next, _ = m.Update(statusExpireMsg{setAt: m.statusSetAt})
	m = next.(Model)
	if m.statusText != "" {
		t.Error("matching expiry should clear the status")
	}
}

// =============================================================================
// VIEW HELPER TESTS
// =============================================================================

func TestTruncate(t *testing.T) {
	if got := truncate("Invoice Approval Flow", 10); !strings.HasSuffix(got, "...") {
		t.Errorf("truncate() = %q, want ellipsis", got)
	}
	if got := truncate("short", 10); got != "short" {
		t.Errorf("truncate() = %q", got)
	}
}

func TestWrap(t *testing.T) {
	got := wrap("one two three four five six seven", 12)
	for _, line := range strings.Split(got, "\n") {
		if len(line) > 12 {
			t.Errorf("line %q exceeds wrap width", line)
		}
	}
	if !strings.Contains(got, "\n") {
		t.Error("long text should wrap")
	}
}

func TestView_RendersWithoutSize(t *testing.T) {
	m := testModel(t)
	if m.View() == "" {
		t.Error("View() must not be empty before the first resize")
	}
}

func TestUpdate_ProjectContextEditing(t *testing.T) {
	m := testModel(t)

	m = updateKey(m, tea.KeyMsg{Type: tea.KeyCtrlG})
	if m.overlay != OverlayProjectContext {
		t.Fatal("ctrl+g should open the project context overlay")
	}
	if m.contextInput.Value() != m.deps.Project.Get() {
		t.Error("overlay should be prefilled with the current context")
	}

	m = updateKey(m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(" Invoices settle nightly.")})
	m = updateKey(m, tea.KeyMsg{Type: tea.KeyEsc})

	if m.overlay != OverlayNone {
		t.Error("esc should close the overlay")
	}
	if !strings.Contains(m.deps.Project.Get(), "Invoices settle nightly.") {
		t.Errorf("Project.Get() = %q, want the edited text committed", m.deps.Project.Get())
	}
}
