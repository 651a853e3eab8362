// Copyright (c) 2025 tpaschkow
// SPDX-License-Identifier: AGPL-3.0-or-later

package ui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/tpaschkow/VelPRO-Mermaid/internal/document"
	"github.com/tpaschkow/VelPRO-Mermaid/internal/export"
	"github.com/tpaschkow/VelPRO-Mermaid/internal/generate"
)

// =============================================================================
// UPDATE
// =============================================================================

// Update handles all incoming messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case RenderSnapshotMsg:
		m.renderSnap = msg.Snapshot
		return m, nil

	case AnalysisSnapshotMsg:
		m.analysisSnap = msg.Snapshot
		return m, nil

	case GenerateSnapshotMsg:
		return m.onGenerateSnapshot(msg.Snapshot)

	case PlannerSnapshotMsg:
		m.planSnap = msg.Snapshot
		m.refreshPlannerView()
		return m, nil

	case FlowChangedOnDiskMsg:
		return m.onFlowChangedOnDisk(msg.ID)

	case ExportDoneMsg:
		if msg.Err != nil {
			return m, statusCmd(fmt.Sprintf("%s export failed: %v", msg.Format, msg.Err))
		}
		return m, statusCmd(fmt.Sprintf("exported %s", msg.Path))

	case StatusMsg:
		m.statusText = msg.Text
		m.statusSetAt = time.Now()
		setAt := m.statusSetAt
		return m, tea.Tick(statusDisplayWindow, func(time.Time) tea.Msg {
			return statusExpireMsg{setAt: setAt}
		})

	case statusExpireMsg:
		if msg.setAt.Equal(m.statusSetAt) {
			m.statusText = ""
		}
		return m, nil

	case tea.KeyMsg:
		return m.onKey(msg)
	}

	return m, nil
}

// resize distributes the window across the panes.
func (m *Model) resize(width, height int) {
	m.width = width
	m.height = height

	editorWidth := width - sidebarWidth - rightPaneWidth - 6
	if editorWidth < 20 {
		editorWidth = 20
	}
	bodyHeight := height - 7
	if bodyHeight < 5 {
		bodyHeight = 5
	}

	m.editor.SetWidth(editorWidth)
	m.editor.SetHeight(bodyHeight)
	m.contextInput.SetWidth(width / 2)
	m.promptInput.Width = width - 12
	m.plannerInput.Width = rightPaneWidth - 4
	m.plannerView.Width = rightPaneWidth - 2
	m.plannerView.Height = bodyHeight - 3
}

// =============================================================================
// COORDINATOR SNAPSHOT HANDLING
// =============================================================================

// onGenerateSnapshot applies an authoring state change. A generation
// that just completed successfully rewrote the issuing document, so the
// editor, render, and autosave all refresh from the store.
func (m Model) onGenerateSnapshot(snap generate.Snapshot) (tea.Model, tea.Cmd) {
	prev := m.genSnap
	m.genSnap = snap

	finishedGeneration := prev.Generating && !snap.Generating
	if finishedGeneration && snap.ErrMessage == "" {
		m.refreshEditorFromActive()
		m.promptInput.SetValue("")
		m.scheduleSaveActive()
	}

	// A fresh explanation opens the overlay; dismissal closes it.
	if snap.Explanation != "" && m.overlay == OverlayNone {
		m.overlay = OverlayExplanation
	}
	if snap.Explanation == "" && m.overlay == OverlayExplanation {
		m.overlay = OverlayNone
	}

	return m, nil
}

// onFlowChangedOnDisk refreshes a flow from its saved file after an
// external edit. Unknown IDs are new files; they load on next startup.
func (m Model) onFlowChangedOnDisk(id string) (tea.Model, tea.Cmd) {
	if m.deps.Library == nil {
		return m, nil
	}
	if _, ok := m.deps.Store.Get(id); !ok {
		return m, statusCmd("new flow on disk; restart to load it")
	}

	doc, err := m.deps.Library.Load(id)
	if err != nil {
		return m, nil
	}
	m.deps.Store.Update(id, doc.Text)
	m.deps.Store.Rename(id, doc.Name)

	if id == m.deps.Store.ActiveID() {
		m.refreshEditorFromActive()
	}
	return m, statusCmd("reloaded " + doc.Name + " from disk")
}

// =============================================================================
// KEY HANDLING
// =============================================================================

func (m Model) onKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Overlays capture all input while open.
	if m.overlay != OverlayNone {
		return m.onOverlayKey(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.overlay = OverlayHelp
		return m, nil

	case key.Matches(msg, m.keys.CycleFocus):
		m.cycleFocus()
		return m, nil

	case key.Matches(msg, m.keys.Planner):
		m.plannerOpen = !m.plannerOpen
		if m.plannerOpen {
			m.setFocus(FocusPlanner)
		} else if m.focus == FocusPlanner {
			m.setFocus(FocusEditor)
		}
		return m, nil

	case key.Matches(msg, m.keys.NewMicro):
		return m.createFlow(document.KindMicro)

	case key.Matches(msg, m.keys.NewMacro):
		return m.createFlow(document.KindMacro)

	case key.Matches(msg, m.keys.Rename):
		m.renameInput.SetValue(m.deps.Store.Active().Name)
		m.renameInput.Focus()
		m.overlay = OverlayRename
		return m, nil

	case key.Matches(msg, m.keys.DeleteFlow):
		m.overlay = OverlayConfirmDelete
		return m, nil

	case key.Matches(msg, m.keys.Templates):
		m.templateIndex = 0
		m.overlay = OverlayTemplates
		return m, nil

	case key.Matches(msg, m.keys.DeepReason):
		m.deps.Generate.ToggleDeepReasoning()
		m.genSnap = m.deps.Generate.Snapshot()
		return m, nil

	case key.Matches(msg, m.keys.Explain):
		m.deps.Generate.Explain()
		return m, nil

	case key.Matches(msg, m.keys.ProjectCtx):
		m.contextInput.SetValue(m.deps.Project.Get())
		m.contextInput.Focus()
		m.overlay = OverlayProjectContext
		return m, nil

	case key.Matches(msg, m.keys.ExportSVG):
		return m, m.exportCmd("svg")
	case key.Matches(msg, m.keys.ExportPNG):
		return m, m.exportCmd("png")
	case key.Matches(msg, m.keys.ExportHTML):
		return m, m.exportCmd("html")

	case key.Matches(msg, m.keys.NextFlow):
		return m.stepFlow(1)
	case key.Matches(msg, m.keys.PrevFlow):
		return m.stepFlow(-1)
	}

	// Pane-local input.
	switch m.focus {
	case FocusEditor:
		return m.onEditorKey(msg)
	case FocusPrompt:
		return m.onPromptKey(msg)
	case FocusSidebar:
		return m.onSidebarKey(msg)
	case FocusPlanner:
		return m.onPlannerKey(msg)
	}
	return m, nil
}

func (m *Model) cycleFocus() {
	order := []Focus{FocusEditor, FocusPrompt, FocusSidebar}
	if m.plannerOpen {
		order = append(order, FocusPlanner)
	}
	for i, f := range order {
		if f == m.focus {
			m.setFocus(order[(i+1)%len(order)])
			return
		}
	}
	m.setFocus(FocusEditor)
}

func (m *Model) setFocus(f Focus) {
	m.focus = f
	m.editor.Blur()
	m.promptInput.Blur()
	m.plannerInput.Blur()
	switch f {
	case FocusEditor:
		m.editor.Focus()
	case FocusPrompt:
		m.promptInput.Focus()
	case FocusPlanner:
		m.plannerInput.Focus()
	}
}

// =============================================================================
// PANE KEY HANDLERS
// =============================================================================

func (m Model) onEditorKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	before := m.editor.Value()
	var cmd tea.Cmd
	m.editor, cmd = m.editor.Update(msg)

	if text := m.editor.Value(); text != before {
		m.onTextEdited(text)
	}
	return m, cmd
}

// onTextEdited pushes an editor change through the store and both
// coordinators, and schedules the debounced autosave.
func (m *Model) onTextEdited(text string) {
	id := m.deps.Store.ActiveID()
	m.deps.Store.Update(id, text)
	m.deps.Render.TextChanged(text)
	m.deps.Analysis.TextChanged(text, m.deps.Project.Get())
	m.scheduleSaveActive()
}

func (m Model) onPromptKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Submit) {
		m.deps.Generate.SetPrompt(m.promptInput.Value())
		m.deps.Generate.Generate()
		return m, nil
	}
	var cmd tea.Cmd
	m.promptInput, cmd = m.promptInput.Update(msg)
	return m, cmd
}

func (m Model) onSidebarKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	list := m.deps.Store.List()
	switch msg.String() {
	case "up", "k":
		if m.sidebarIndex > 0 {
			m.sidebarIndex--
		}
	case "down", "j":
		if m.sidebarIndex < len(list)-1 {
			m.sidebarIndex++
		}
	case "enter":
		if m.sidebarIndex < len(list) {
			m.activateFlow(list[m.sidebarIndex].ID)
		}
	}
	return m, nil
}

func (m Model) onPlannerKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Submit) {
		text := m.plannerInput.Value()
		m.plannerInput.SetValue("")
		m.deps.Planner.Send(text)
		return m, nil
	}
	var cmd tea.Cmd
	m.plannerInput, cmd = m.plannerInput.Update(msg)
	return m, cmd
}

// =============================================================================
// OVERLAY KEY HANDLERS
// =============================================================================

func (m Model) onOverlayKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.overlay {
	case OverlayHelp:
		if key.Matches(msg, m.keys.Escape) || key.Matches(msg, m.keys.Help) {
			m.overlay = OverlayNone
		}
		return m, nil

	case OverlayExplanation:
		if key.Matches(msg, m.keys.Escape) {
			m.deps.Generate.DismissExplanation()
			m.genSnap = m.deps.Generate.Snapshot()
			m.overlay = OverlayNone
		}
		return m, nil

	case OverlayTemplates:
		return m.onTemplatesKey(msg)

	case OverlayRename:
		return m.onRenameKey(msg)

	case OverlayProjectContext:
		return m.onProjectContextKey(msg)

	case OverlayConfirmDelete:
		return m.onConfirmDeleteKey(msg)
	}
	return m, nil
}

func (m Model) onTemplatesKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	templates := document.Templates()
	switch msg.String() {
	case "esc":
		m.overlay = OverlayNone
	case "up", "k":
		if m.templateIndex > 0 {
			m.templateIndex--
		}
	case "down", "j":
		if m.templateIndex < len(templates)-1 {
			m.templateIndex++
		}
	case "enter":
		tmpl := templates[m.templateIndex]
		m.overlay = OverlayNone
		m.onTextEdited(tmpl.Text)
		m.editor.SetValue(tmpl.Text)
		return m, statusCmd("loaded template: " + tmpl.Name)
	}
	return m, nil
}

func (m Model) onRenameKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Escape):
		m.overlay = OverlayNone
		return m, nil
	case key.Matches(msg, m.keys.Submit):
		name := m.renameInput.Value()
		m.overlay = OverlayNone
		if name == "" {
			return m, nil
		}
		m.deps.Store.Rename(m.deps.Store.ActiveID(), name)
		m.scheduleSaveActive()
		return m, statusCmd("renamed to " + name)
	}
	var cmd tea.Cmd
	m.renameInput, cmd = m.renameInput.Update(msg)
	return m, cmd
}

// onProjectContextKey edits the project context grounding every
// assistant call. Esc commits; the textarea keeps enter for newlines.
func (m Model) onProjectContextKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Escape) {
		m.overlay = OverlayNone
		m.contextInput.Blur()
		m.deps.Project.Set(m.contextInput.Value())
		m.deps.Analysis.TextChanged(m.deps.Store.Active().Text, m.deps.Project.Get())
		return m, statusCmd("project context updated")
	}
	var cmd tea.Cmd
	m.contextInput, cmd = m.contextInput.Update(msg)
	return m, cmd
}

func (m Model) onConfirmDeleteKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "Y":
		m.overlay = OverlayNone
		return m.deleteActiveFlow()
	case "n", "N", "esc":
		m.overlay = OverlayNone
	}
	return m, nil
}

// =============================================================================
// FLOW OPERATIONS
// =============================================================================

func (m Model) createFlow(kind document.Kind) (tea.Model, tea.Cmd) {
	doc := m.deps.Store.Create(kind)
	m.refreshEditorFromActive()
	m.syncSidebarIndex()
	m.scheduleSaveActive()
	return m, statusCmd("created " + doc.Name)
}

// deleteActiveFlow removes the active flow. Deleting the sole flow is a
// store-level no-op; the library copy is only dropped when the store
// actually removed the document.
func (m Model) deleteActiveFlow() (tea.Model, tea.Cmd) {
	id := m.deps.Store.ActiveID()
	name := m.deps.Store.Active().Name
	if !m.deps.Store.Delete(id) {
		return m, statusCmd("cannot delete the last flow")
	}
	if m.deps.Library != nil {
		if err := m.deps.Library.Delete(id); err != nil {
			return m, statusCmd("deleted from session; disk copy remains: " + err.Error())
		}
	}
	m.refreshEditorFromActive()
	m.syncSidebarIndex()
	return m, statusCmd("deleted " + name)
}

func (m Model) stepFlow(delta int) (tea.Model, tea.Cmd) {
	list := m.deps.Store.List()
	if len(list) < 2 {
		return m, nil
	}
	activeID := m.deps.Store.ActiveID()
	for i, d := range list {
		if d.ID == activeID {
			next := (i + delta + len(list)) % len(list)
			m.activateFlow(list[next].ID)
			break
		}
	}
	return m, nil
}

// activateFlow switches the active document and repoints the editor,
// render, and analysis at its text.
func (m *Model) activateFlow(id string) {
	if !m.deps.Store.SetActive(id) {
		return
	}
	m.refreshEditorFromActive()
	m.syncSidebarIndex()
}

// refreshEditorFromActive reloads the editor from the store and kicks
// the coordinators with the now-current text.
func (m *Model) refreshEditorFromActive() {
	active := m.deps.Store.Active()
	m.editor.SetValue(active.Text)
	m.deps.Render.TextChanged(active.Text)
	m.deps.Analysis.TextChanged(active.Text, m.deps.Project.Get())
}

// scheduleSaveActive queues the debounced autosave for the active flow.
func (m *Model) scheduleSaveActive() {
	if m.deps.Library == nil {
		return
	}
	m.deps.Library.ScheduleSave(m.deps.Store.ActiveID(), m.deps.Store.Get)
}

// =============================================================================
// COMMANDS
// =============================================================================

// exportCmd writes the active flow in the requested format.
func (m Model) exportCmd(format string) tea.Cmd {
	doc := m.deps.Store.Active()
	graphic := m.renderSnap.Graphic
	opts := m.deps.Export

	return func() tea.Msg {
		var path string
		var err error
		switch format {
		case "svg":
			path, err = export.ExportSVG(doc, graphic, opts)
		case "png":
			path, err = export.ExportPNG(doc, graphic, opts)
		case "html":
			path, err = export.ExportHTML(doc, graphic, opts)
		default:
			path, err = export.ExportSource(doc, opts)
		}
		return ExportDoneMsg{Format: format, Path: path, Err: err}
	}
}

// statusCmd emits a transient status line.
func statusCmd(text string) tea.Cmd {
	return func() tea.Msg {
		return StatusMsg{Text: text}
	}
}
