// Copyright (c) 2025 tpaschkow
// SPDX-License-Identifier: AGPL-3.0-or-later

package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/tpaschkow/VelPRO-Mermaid/internal/document"
	"github.com/tpaschkow/VelPRO-Mermaid/internal/storage"
	"github.com/tpaschkow/VelPRO-Mermaid/internal/ui/styles"
)

// =============================================================================
// LAYOUT CONSTANTS
// =============================================================================

const (
	sidebarWidth   = 24
	rightPaneWidth = 38
)

// =============================================================================
// STYLES
// =============================================================================

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(styles.Purple).
			Bold(true)

	paneStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(styles.Overlay)

	paneFocusedStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(styles.FocusRing)

	paneTitleStyle = lipgloss.NewStyle().
			Foreground(styles.TextSecondary).
			Bold(true)

	activeFlowStyle = lipgloss.NewStyle().
			Foreground(styles.Cyan).
			Bold(true)

	selectedFlowStyle = lipgloss.NewStyle().
				Background(styles.SelectionBg).
				Foreground(styles.TextPrimary)

	flowStyle = lipgloss.NewStyle().
			Foreground(styles.TextSecondary)

	okStyle = lipgloss.NewStyle().
			Foreground(styles.Emerald)

	warnStyle = lipgloss.NewStyle().
			Foreground(styles.Amber)

	errStyle = lipgloss.NewStyle().
			Foreground(styles.Rose)

	hintStyle = lipgloss.NewStyle().
			Foreground(styles.TextMuted)

	userTurnStyle = lipgloss.NewStyle().
			Foreground(styles.UserBubbleFg).
			Bold(true)

	plannerTurnStyle = lipgloss.NewStyle().
				Foreground(styles.AssistantBubbleFg).
				Bold(true)

	overlayStyle = lipgloss.NewStyle().
			Border(lipgloss.DoubleBorder()).
			BorderForeground(styles.Purple).
			Padding(1, 2)
)

// =============================================================================
// VIEW
// =============================================================================

// View renders the studio.
func (m Model) View() string {
	if m.width == 0 {
		return "loading..."
	}

	if m.overlay != OverlayNone {
		return m.viewOverlay()
	}

	header := m.viewHeader()
	body := lipgloss.JoinHorizontal(lipgloss.Top,
		m.viewSidebar(),
		m.viewEditor(),
		m.viewRightPane(),
	)
	prompt := m.viewPromptBar()
	status := m.viewStatusBar()

	return lipgloss.JoinVertical(lipgloss.Left, header, body, prompt, status)
}

// viewHeader shows the product name, the active flow, and busy state.
func (m Model) viewHeader() string {
	active := m.deps.Store.Active()

	left := titleStyle.Render("VelPRO Architect")
	flow := activeFlowStyle.Render(truncate(active.Name, 40)) +
		hintStyle.Render(" ("+active.Kind.DisplayName()+")")

	var right string
	if m.genSnap.DeepReasoning {
		right += warnStyle.Render("[deep reasoning] ")
	}
	if m.busy() {
		right += m.spinner.View() + " " + hintStyle.Render(m.busyLabel())
	}

	line := left + "  " + flow
	gap := m.width - lipgloss.Width(line) - lipgloss.Width(right) - 1
	if gap < 1 {
		gap = 1
	}
	return line + strings.Repeat(" ", gap) + right
}

// busyLabel names the most interesting in-flight call.
func (m Model) busyLabel() string {
	switch {
	case m.genSnap.Generating:
		return "generating"
	case m.genSnap.Explaining:
		return "explaining"
	case m.planSnap.AwaitingResponse:
		return "planning"
	case m.renderSnap.Rendering:
		return "rendering"
	case m.analysisSnap.Analyzing:
		return "analyzing"
	}
	return ""
}

// =============================================================================
// PANES
// =============================================================================

func (m Model) paneBorder(f Focus) lipgloss.Style {
	if m.focus == f {
		return paneFocusedStyle
	}
	return paneStyle
}

// viewSidebar lists every flow, macro flows first as the store orders them.
func (m Model) viewSidebar() string {
	var sb strings.Builder
	sb.WriteString(paneTitleStyle.Render("Flows") + "\n")

	activeID := m.deps.Store.ActiveID()
	for i, d := range m.deps.Store.List() {
		marker := "  "
		if d.ID == activeID {
			marker = "* "
		}
		label := marker + truncate(d.Name, sidebarWidth-4)
		switch {
		case m.focus == FocusSidebar && i == m.sidebarIndex:
			label = selectedFlowStyle.Render(pad(label, sidebarWidth-2))
		case d.ID == activeID:
			label = activeFlowStyle.Render(label)
		default:
			label = flowStyle.Render(label)
		}
		sb.WriteString(label + "\n")
	}

	if m.focus == FocusSidebar {
		sb.WriteString("\n" + hintStyle.Render("enter: open"))
	}

	return m.paneBorder(FocusSidebar).
		Width(sidebarWidth).
		Height(m.bodyHeight()).
		Render(sb.String())
}

func (m Model) viewEditor() string {
	return m.paneBorder(FocusEditor).Render(m.editor.View())
}

// viewRightPane shows the planner drawer when open, the preview and
// insights otherwise.
func (m Model) viewRightPane() string {
	if m.plannerOpen {
		return m.viewPlanner()
	}
	return m.viewPreview()
}

// viewPreview reports render state and the latest insights. The SVG
// itself is for export; the terminal shows its status.
func (m Model) viewPreview() string {
	var sb strings.Builder
	sb.WriteString(paneTitleStyle.Render("Preview") + "\n")

	switch {
	case m.renderSnap.Rendering:
		sb.WriteString(warnStyle.Render("rendering...") + "\n")
	case m.renderSnap.ErrMessage != "":
		sb.WriteString(errStyle.Render("syntax error") + "\n")
		sb.WriteString(wrap(m.renderSnap.ErrMessage, rightPaneWidth-4) + "\n")
	case m.renderSnap.Graphic != nil:
		sb.WriteString(okStyle.Render("diagram up to date") + "\n")
		sb.WriteString(hintStyle.Render(fmt.Sprintf("SVG: %d bytes", len(m.renderSnap.Graphic.SVG))) + "\n")
	default:
		sb.WriteString(hintStyle.Render("nothing rendered yet") + "\n")
	}

	sb.WriteString("\n" + paneTitleStyle.Render("Insights") + "\n")
	if r := m.analysisSnap.Result; r != nil {
		if !r.SyntaxValid {
			sb.WriteString(errStyle.Render("syntax issues found") + "\n")
		}
		for _, s := range r.Suggestions {
			sb.WriteString("- " + wrap(s, rightPaneWidth-6) + "\n")
		}
		for _, g := range r.LogicGaps {
			sb.WriteString(warnStyle.Render("! ") + wrap(g, rightPaneWidth-6) + "\n")
		}
	} else if m.analysisSnap.Analyzing {
		sb.WriteString(hintStyle.Render("analyzing...") + "\n")
	} else {
		sb.WriteString(hintStyle.Render("edit to get suggestions") + "\n")
	}

	if m.genSnap.ErrMessage != "" {
		sb.WriteString("\n" + errStyle.Render(wrap(m.genSnap.ErrMessage, rightPaneWidth-4)) + "\n")
	}

	return paneStyle.
		Width(rightPaneWidth).
		Height(m.bodyHeight()).
		Render(sb.String())
}

// viewPlanner renders the chat drawer.
func (m Model) viewPlanner() string {
	var sb strings.Builder
	sb.WriteString(paneTitleStyle.Render("Planner") + "\n")
	sb.WriteString(m.plannerView.View() + "\n")
	if m.planSnap.AwaitingResponse {
		sb.WriteString(hintStyle.Render("thinking...") + "\n")
	}
	sb.WriteString(m.plannerInput.View())

	return m.paneBorder(FocusPlanner).
		Width(rightPaneWidth).
		Height(m.bodyHeight()).
		Render(sb.String())
}

// refreshPlannerView rebuilds the drawer transcript and follows the tail.
func (m *Model) refreshPlannerView() {
	var sb strings.Builder
	for _, msg := range m.planSnap.Messages {
		label := userTurnStyle.Render("You")
		if msg.Role == storage.RoleAssistant {
			label = plannerTurnStyle.Render("Planner")
		}
		sb.WriteString(label + "\n")
		sb.WriteString(wrap(msg.Text, rightPaneWidth-4) + "\n\n")
	}
	m.plannerView.SetContent(sb.String())
	m.plannerView.GotoBottom()
}

// =============================================================================
// BARS
// =============================================================================

func (m Model) viewPromptBar() string {
	return m.paneBorder(FocusPrompt).Width(m.width - 2).Render(m.promptInput.View())
}

func (m Model) viewStatusBar() string {
	if m.statusText != "" {
		return " " + okStyle.Render(m.statusText)
	}

	var hints []string
	for _, b := range m.keys.ShortHelp() {
		hints = append(hints, b.Help().Key+" "+b.Help().Desc)
	}
	return " " + hintStyle.Render(strings.Join(hints, " | "))
}

// =============================================================================
// OVERLAYS
// =============================================================================

func (m Model) viewOverlay() string {
	var content string
	switch m.overlay {
	case OverlayHelp:
		content = m.viewHelpOverlay()
	case OverlayTemplates:
		content = m.viewTemplatesOverlay()
	case OverlayRename:
		content = paneTitleStyle.Render("Rename flow") + "\n\n" + m.renameInput.View() +
			"\n\n" + hintStyle.Render("enter: save | esc: cancel")
	case OverlayConfirmDelete:
		content = paneTitleStyle.Render("Delete flow") + "\n\n" +
			"Delete " + activeFlowStyle.Render(m.deps.Store.Active().Name) + "?\n\n" +
			hintStyle.Render("y: delete | n: keep")
	case OverlayExplanation:
		content = paneTitleStyle.Render("Explanation") + "\n\n" +
			wrap(m.genSnap.Explanation, m.width/2) +
			"\n\n" + hintStyle.Render("esc: dismiss")
	case OverlayProjectContext:
		content = paneTitleStyle.Render("Project context") + "\n\n" +
			m.contextInput.View() +
			"\n\n" + hintStyle.Render("esc: save and close")
	}

	box := overlayStyle.Render(content)
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
}

func (m Model) viewHelpOverlay() string {
	var sb strings.Builder
	sb.WriteString(paneTitleStyle.Render("Keyboard Shortcuts") + "\n\n")
	for _, group := range m.keys.FullHelp() {
		for _, b := range group {
			sb.WriteString(fmt.Sprintf("  %s  %s\n",
				activeFlowStyle.Render(pad(b.Help().Key, 10)),
				b.Help().Desc))
		}
		sb.WriteString("\n")
	}
	sb.WriteString(hintStyle.Render("esc: close"))
	return sb.String()
}

func (m Model) viewTemplatesOverlay() string {
	var sb strings.Builder
	sb.WriteString(paneTitleStyle.Render("Template Gallery") + "\n\n")
	for i, t := range document.Templates() {
		line := fmt.Sprintf("%s - %s", t.Name, t.Description)
		if i == m.templateIndex {
			sb.WriteString(selectedFlowStyle.Render("> "+line) + "\n")
		} else {
			sb.WriteString(flowStyle.Render("  "+line) + "\n")
		}
	}
	sb.WriteString("\n" + hintStyle.Render("enter: load into active flow | esc: cancel"))
	return sb.String()
}

// =============================================================================
// TEXT HELPERS
// =============================================================================

func (m Model) bodyHeight() int {
	h := m.height - 7
	if h < 5 {
		h = 5
	}
	return h
}

// truncate shortens a string to the given display width, rune-safe.
func truncate(s string, w int) string {
	return runewidth.Truncate(s, w, "...")
}

// pad right-pads a string to the given display width.
func pad(s string, w int) string {
	return runewidth.FillRight(s, w)
}

// wrap performs simple word wrapping to the given display width.
func wrap(s string, w int) string {
	if w < 8 {
		w = 8
	}
	var out strings.Builder
	for i, line := range strings.Split(s, "\n") {
		if i > 0 {
			out.WriteString("\n")
		}
		lineWidth := 0
		for j, word := range strings.Fields(line) {
			ww := runewidth.StringWidth(word)
			if j > 0 && lineWidth+ww+1 > w {
				out.WriteString("\n")
				lineWidth = 0
			} else if j > 0 {
				out.WriteString(" ")
				lineWidth++
			}
			out.WriteString(word)
			lineWidth += ww
		}
	}
	return out.String()
}
