// Copyright (c) 2025 tpaschkow
// SPDX-License-Identifier: AGPL-3.0-or-later

package ui

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/tpaschkow/VelPRO-Mermaid/internal/analysis"
	"github.com/tpaschkow/VelPRO-Mermaid/internal/generate"
	"github.com/tpaschkow/VelPRO-Mermaid/internal/planner"
	"github.com/tpaschkow/VelPRO-Mermaid/internal/render"
)

// =============================================================================
// PROGRAM RELAY
// =============================================================================

// App relays coordinator callbacks into the running Bubble Tea program.
// Coordinators fire on their own goroutines and are created before the
// program exists, so callbacks bind to the App and the program attaches
// later. Sends before Attach are dropped; the model seeds itself from
// coordinator snapshots at construction, so nothing is lost.
type App struct {
	mu      sync.Mutex
	program *tea.Program
}

// NewApp creates an unattached relay.
func NewApp() *App {
	return &App{}
}

// Attach binds the running program to the relay.
func (a *App) Attach(p *tea.Program) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.program = p
}

// Send forwards a message to the program, if one is attached.
func (a *App) Send(msg tea.Msg) {
	a.mu.Lock()
	p := a.program
	a.mu.Unlock()
	if p != nil {
		p.Send(msg)
	}
}

// =============================================================================
// CALLBACK ADAPTERS
// =============================================================================

// OnRender adapts the render coordinator callback.
func (a *App) OnRender(snap render.Snapshot) {
	a.Send(RenderSnapshotMsg{Snapshot: snap})
}

// OnAnalysis adapts the analysis coordinator callback.
func (a *App) OnAnalysis(snap analysis.Snapshot) {
	a.Send(AnalysisSnapshotMsg{Snapshot: snap})
}

// OnGenerate adapts the generation coordinator callback.
func (a *App) OnGenerate(snap generate.Snapshot) {
	a.Send(GenerateSnapshotMsg{Snapshot: snap})
}

// OnPlanner adapts the planner session callback.
func (a *App) OnPlanner(snap planner.Snapshot) {
	a.Send(PlannerSnapshotMsg{Snapshot: snap})
}

// OnFlowChanged adapts the library watcher callback.
func (a *App) OnFlowChanged(id string) {
	a.Send(FlowChangedOnDiskMsg{ID: id})
}
