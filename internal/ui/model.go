// Copyright (c) 2025 tpaschkow
// SPDX-License-Identifier: AGPL-3.0-or-later

package ui

import (
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/tpaschkow/VelPRO-Mermaid/internal/analysis"
	"github.com/tpaschkow/VelPRO-Mermaid/internal/document"
	"github.com/tpaschkow/VelPRO-Mermaid/internal/export"
	"github.com/tpaschkow/VelPRO-Mermaid/internal/generate"
	"github.com/tpaschkow/VelPRO-Mermaid/internal/library"
	"github.com/tpaschkow/VelPRO-Mermaid/internal/planner"
	"github.com/tpaschkow/VelPRO-Mermaid/internal/project"
	"github.com/tpaschkow/VelPRO-Mermaid/internal/render"
)

// =============================================================================
// FOCUS AND OVERLAYS
// =============================================================================

// Focus identifies which pane receives keystrokes.
type Focus int

const (
	FocusEditor Focus = iota
	FocusPrompt
	FocusSidebar
	FocusPlanner
)

// Overlay identifies the modal overlay on display, if any.
type Overlay int

const (
	OverlayNone Overlay = iota
	OverlayHelp
	OverlayTemplates
	OverlayRename
	OverlayConfirmDelete
	OverlayExplanation
	OverlayProjectContext
)

// statusDisplayWindow is how long a transient status line stays visible.
const statusDisplayWindow = 4 * time.Second

// =============================================================================
// DEPENDENCIES
// =============================================================================

// Deps carries the studio's collaborators. All fields except Library
// are required; a nil Library disables autosave.
type Deps struct {
	Store    *document.Store
	Render   *render.Coordinator
	Analysis *analysis.Coordinator
	Generate *generate.Coordinator
	Planner  *planner.Session
	Project  *project.Context
	Library  *library.Library
	Export   *export.Options
}

// =============================================================================
// MODEL
// =============================================================================

// Model is the Bubble Tea model for the studio.
type Model struct {
	deps Deps
	keys KeyMap

	// Dimensions
	width  int
	height int

	// Focus and overlay state
	focus   Focus
	overlay Overlay

	// Components
	editor       textarea.Model
	promptInput  textinput.Model
	plannerInput textinput.Model
	renameInput  textinput.Model
	contextInput textarea.Model
	plannerView  viewport.Model
	spinner      spinner.Model

	// Coordinator snapshots
	renderSnap   render.Snapshot
	analysisSnap analysis.Snapshot
	genSnap      generate.Snapshot
	planSnap     planner.Snapshot

	// Sidebar selection (index into deps.Store.List())
	sidebarIndex int

	// Template gallery selection
	templateIndex int

	// Transient status line
	statusText  string
	statusSetAt time.Time

	// Planner drawer visibility
	plannerOpen bool
}

// New creates the studio model. The editor starts on the active flow.
func New(deps Deps) Model {
	ed := textarea.New()
	ed.Placeholder = "graph TD\n    A[Start] --> B[End]"
	ed.CharLimit = 0
	ed.ShowLineNumbers = true
	ed.Focus()

	prompt := textinput.New()
	prompt.Prompt = "build> "
	prompt.Placeholder = "Describe a change, e.g. add a retry loop after the payment step"
	prompt.CharLimit = 2048

	plannerIn := textinput.New()
	plannerIn.Prompt = "plan> "
	plannerIn.Placeholder = "Ask the planner..."
	plannerIn.CharLimit = 2048

	rename := textinput.New()
	rename.Prompt = "name> "
	rename.CharLimit = 128

	ctxEd := textarea.New()
	ctxEd.Placeholder = "Describe the system these flows belong to..."
	ctxEd.CharLimit = 0
	ctxEd.ShowLineNumbers = false
	ctxEd.SetWidth(60)
	ctxEd.SetHeight(8)

	// ASCII frames keep the spinner safe on terminals without Unicode.
	sp := spinner.New()
	sp.Spinner = spinner.Spinner{
		Frames: []string{"|", "/", "-", "\\"},
		FPS:    time.Second / 10,
	}

	pv := viewport.New(40, 10)

	active := deps.Store.Active()
	ed.SetValue(active.Text)

	m := Model{
		deps:         deps,
		keys:         DefaultKeyMap(),
		focus:        FocusEditor,
		overlay:      OverlayNone,
		editor:       ed,
		promptInput:  prompt,
		plannerInput: plannerIn,
		renameInput:  rename,
		contextInput: ctxEd,
		plannerView:  pv,
		spinner:      sp,
		renderSnap:   deps.Render.Snapshot(),
		analysisSnap: deps.Analysis.Snapshot(),
		genSnap:      deps.Generate.Snapshot(),
		planSnap:     deps.Planner.Snapshot(),
	}
	m.syncSidebarIndex()
	return m
}

// Init starts the cursor blink and spinner, and kicks off the first
// render and analysis pass for the startup document.
func (m Model) Init() tea.Cmd {
	active := m.deps.Store.Active()
	m.deps.Render.TextChanged(active.Text)
	m.deps.Analysis.TextChanged(active.Text, m.deps.Project.Get())

	return tea.Batch(textarea.Blink, m.spinner.Tick)
}

// syncSidebarIndex points the sidebar selection at the active flow.
func (m *Model) syncSidebarIndex() {
	activeID := m.deps.Store.ActiveID()
	for i, d := range m.deps.Store.List() {
		if d.ID == activeID {
			m.sidebarIndex = i
			return
		}
	}
	m.sidebarIndex = 0
}

// busy reports whether any background call is in flight.
func (m Model) busy() bool {
	return m.renderSnap.Rendering ||
		m.analysisSnap.Analyzing ||
		m.genSnap.Generating ||
		m.genSnap.Explaining ||
		m.planSnap.AwaitingResponse
}
