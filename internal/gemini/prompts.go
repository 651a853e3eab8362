// Copyright (c) 2025 tpaschkow
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package gemini provides the HTTP client for the Gemini generative API.
package gemini

import (
	"strings"

	"github.com/tpaschkow/VelPRO-Mermaid/internal/util"
)

// =============================================================================
// SYSTEM INSTRUCTIONS
// =============================================================================

// otherDocPrefixRunes bounds how much of each other document is inlined
// into a generation request, to keep request size bounded.
const otherDocPrefixRunes = 500

// generateSystemInstruction grounds the builder with the project context
// and a bounded prefix of every other document in the project.
func generateSystemInstruction(projectContext string, otherDocs []DocumentContext) string {
	var sb strings.Builder
	sb.WriteString("You are an expert diagram architect for VelPRO.\n\n")
	sb.WriteString("PROJECT CONTEXT (Global definitions for this project):\n")
	if projectContext == "" {
		sb.WriteString("No specific project context provided.")
	} else {
		sb.WriteString(projectContext)
	}
	sb.WriteString("\n")

	if len(otherDocs) > 0 {
		sb.WriteString("\nCONTEXT - OTHER RELATED DIAGRAMS IN PROJECT:\n")
		for _, d := range otherDocs {
			sb.WriteString("- " + d.Name + " (" + d.Kind + "):\n")
			sb.WriteString(util.TruncateRunesNoEllipsis(d.Text, otherDocPrefixRunes))
			sb.WriteString("...\n")
		}
	}

	sb.WriteString(`
Your task is to generate VALID Mermaid.js code based on the user's description.

Rules:
1. Return ONLY the raw Mermaid code.
2. Do NOT wrap the code in markdown code blocks.
3. Do NOT provide explanations.
4. Maintain valid syntax.
5. Prefer modern syntax (graph TD/LR).`)
	return sb.String()
}

const explainSystemInstruction = "You are a helpful assistant. Explain this Mermaid diagram concisely to a non-technical stakeholder."

// analyzeSystemInstruction asks for a fixed JSON shape so the reply can be
// decoded into AnalysisResult.
func analyzeSystemInstruction(projectContext string) string {
	return `You are a QA bot for Mermaid diagrams.
Project Context: ` + projectContext + `

Analyze the code for:
1. Syntax correctness.
2. Logical flow gaps (dead ends, isolated nodes).
3. Alignment with project context (if provided).

Return JSON format:
{
  "suggestions": ["suggestion1", "suggestion2"],
  "syntaxValid": true/false,
  "logicGaps": ["gap1", "gap2"]
}`
}

// chatSystemInstruction rebuilds the planner's grounding on every turn.
// Document contents change while the user chats, so the assistant must
// always see the current state of every flow, not a session-start snapshot.
func chatSystemInstruction(projectContext string, docs []DocumentContext) string {
	var states strings.Builder
	for i, d := range docs {
		if i > 0 {
			states.WriteString("\n\n")
		}
		states.WriteString("FILE: " + d.Name + " (" + d.Kind + ")\nCODE:\n" + d.Text)
	}

	return `You are the Strategic Planning Lead for VelPRO.
Your role is to help the user plan macro and micro architectures, ensuring consistency across the entire system.

You have access to the current state of all diagram files in the project.

PROJECT CONTEXT:
` + projectContext + `

CURRENT DIAGRAM STATES:
` + states.String() + `

Your Goals:
1. Provide high-level architectural advice.
2. Identify inconsistencies between macro and micro flows.
3. Help plan next steps for implementation.
4. Be concise but insightful.

Do not generate Mermaid code unless specifically asked for a snippet example. Focus on reasoning and strategy.`
}

// chatPrompt renders the prior conversation as alternating labelled turns
// followed by the new user line.
func chatPrompt(history []ChatTurn, userText string) string {
	var sb strings.Builder
	for _, turn := range history {
		label := "Planner"
		if turn.Role == "user" {
			label = "User"
		}
		sb.WriteString(label + ": " + turn.Text + "\n")
	}
	sb.WriteString("User: " + userText + "\nPlanner:")
	return sb.String()
}
