// Copyright (c) 2025 tpaschkow
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ui provides the bubbletea studio for VelPRO.
//
// This file defines the Bubble Tea message types used by the studio.
// Coordinator callbacks run on their own goroutines; the App relay
// forwards their snapshots into the program as these messages, so every
// state change flows through Update like any other event.
package ui

import (
	"time"

	"github.com/tpaschkow/VelPRO-Mermaid/internal/analysis"
	"github.com/tpaschkow/VelPRO-Mermaid/internal/generate"
	"github.com/tpaschkow/VelPRO-Mermaid/internal/planner"
	"github.com/tpaschkow/VelPRO-Mermaid/internal/render"
)

// =============================================================================
// COORDINATOR SNAPSHOTS
// =============================================================================

// RenderSnapshotMsg delivers the latest render state.
type RenderSnapshotMsg struct {
	Snapshot render.Snapshot
}

// AnalysisSnapshotMsg delivers the latest analysis state.
type AnalysisSnapshotMsg struct {
	Snapshot analysis.Snapshot
}

// GenerateSnapshotMsg delivers the latest authoring state.
type GenerateSnapshotMsg struct {
	Snapshot generate.Snapshot
}

// PlannerSnapshotMsg delivers the latest planner chat state.
type PlannerSnapshotMsg struct {
	Snapshot planner.Snapshot
}

// =============================================================================
// LIBRARY MESSAGES
// =============================================================================

// FlowChangedOnDiskMsg reports an external edit to a saved flow file.
type FlowChangedOnDiskMsg struct {
	ID string
}

// =============================================================================
// EXPORT MESSAGES
// =============================================================================

// ExportDoneMsg reports the outcome of an export.
type ExportDoneMsg struct {
	Format string
	Path   string
	Err    error
}

// =============================================================================
// STATUS MESSAGES
// =============================================================================

// StatusMsg shows a transient line in the status bar.
type StatusMsg struct {
	Text string
}

// statusExpireMsg clears the status line after its display window.
type statusExpireMsg struct {
	setAt time.Time
}
