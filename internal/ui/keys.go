// Copyright (c) 2025 tpaschkow
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ui provides the bubbletea studio: editor, flow list, preview
// and insights panes, builder prompt, and the planner drawer. The UI is
// presentation only; all behavior lives in the coordinator packages.
//
// This file defines keyboard bindings for the studio.
package ui

import (
	"github.com/charmbracelet/bubbles/key"
)

// =============================================================================
// KEY MAP DEFINITION
// =============================================================================

// KeyMap defines all keyboard bindings for the studio.
type KeyMap struct {
	Quit        key.Binding
	Help        key.Binding
	CycleFocus  key.Binding
	NewMicro    key.Binding
	NewMacro    key.Binding
	Rename      key.Binding
	DeleteFlow  key.Binding
	Templates   key.Binding
	Planner     key.Binding
	DeepReason  key.Binding
	Explain     key.Binding
	ProjectCtx  key.Binding
	ExportSVG   key.Binding
	ExportPNG   key.Binding
	ExportHTML  key.Binding
	Escape      key.Binding
	Submit      key.Binding
	NextFlow    key.Binding
	PrevFlow    key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Quit: key.NewBinding(
			key.WithKeys("ctrl+q"),
			key.WithHelp("C-q", "quit"),
		),
		Help: key.NewBinding(
			key.WithKeys("ctrl+h"),
			key.WithHelp("C-h", "toggle help"),
		),
		CycleFocus: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("Tab", "cycle focus"),
		),
		NewMicro: key.NewBinding(
			key.WithKeys("ctrl+n"),
			key.WithHelp("C-n", "new micro flow"),
		),
		NewMacro: key.NewBinding(
			key.WithKeys("ctrl+b"),
			key.WithHelp("C-b", "new macro flow"),
		),
		Rename: key.NewBinding(
			key.WithKeys("f2"),
			key.WithHelp("F2", "rename flow"),
		),
		DeleteFlow: key.NewBinding(
			key.WithKeys("ctrl+x"),
			key.WithHelp("C-x", "delete flow"),
		),
		Templates: key.NewBinding(
			key.WithKeys("ctrl+t"),
			key.WithHelp("C-t", "template gallery"),
		),
		Planner: key.NewBinding(
			key.WithKeys("ctrl+p"),
			key.WithHelp("C-p", "planner drawer"),
		),
		DeepReason: key.NewBinding(
			key.WithKeys("ctrl+r"),
			key.WithHelp("C-r", "deep reasoning"),
		),
		Explain: key.NewBinding(
			key.WithKeys("ctrl+e"),
			key.WithHelp("C-e", "explain diagram"),
		),
		ProjectCtx: key.NewBinding(
			key.WithKeys("ctrl+g"),
			key.WithHelp("C-g", "edit project context"),
		),
		ExportSVG: key.NewBinding(
			key.WithKeys("f5"),
			key.WithHelp("F5", "export SVG"),
		),
		ExportPNG: key.NewBinding(
			key.WithKeys("f6"),
			key.WithHelp("F6", "export PNG"),
		),
		ExportHTML: key.NewBinding(
			key.WithKeys("f7"),
			key.WithHelp("F7", "export HTML"),
		),
		Escape: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("Esc", "close overlay"),
		),
		Submit: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("Enter", "submit"),
		),
		NextFlow: key.NewBinding(
			key.WithKeys("ctrl+down"),
			key.WithHelp("C-down", "next flow"),
		),
		PrevFlow: key.NewBinding(
			key.WithKeys("ctrl+up"),
			key.WithHelp("C-up", "previous flow"),
		),
	}
}

// ShortHelp returns the bindings shown in the status bar.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.CycleFocus, k.Planner, k.Explain, k.Help, k.Quit}
}

// FullHelp returns the bindings shown in the help overlay, grouped.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		// Flows
		{k.NewMicro, k.NewMacro, k.Rename, k.DeleteFlow, k.NextFlow, k.PrevFlow},
		// Assistant
		{k.DeepReason, k.Explain, k.Planner, k.Templates, k.ProjectCtx},
		// Export
		{k.ExportSVG, k.ExportPNG, k.ExportHTML},
		// General
		{k.CycleFocus, k.Help, k.Escape, k.Quit},
	}
}
