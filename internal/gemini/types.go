// Copyright (c) 2025 tpaschkow
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package gemini provides the HTTP client for the Gemini generative API.
package gemini

// =============================================================================
// REQUEST TYPES
// =============================================================================

// GenerateContentRequest is the request body for the generateContent endpoint.
type GenerateContentRequest struct {
	Contents          []Content         `json:"contents"`
	SystemInstruction *Content          `json:"systemInstruction,omitempty"`
	GenerationConfig  *GenerationConfig `json:"generationConfig,omitempty"`
}

// Content is a single turn of request or response content.
type Content struct {
	Role  string `json:"role,omitempty"`
	Parts []Part `json:"parts"`
}

// Part is one fragment of content. Only text parts are used here.
type Part struct {
	Text string `json:"text"`
}

// GenerationConfig tunes sampling and output constraints for a request.
//
// Temperature and ThinkingConfig are mutually exclusive by construction:
// deep-reasoning requests set a thinking budget and leave Temperature nil.
type GenerationConfig struct {
	Temperature      *float64        `json:"temperature,omitempty"`
	ResponseMimeType string          `json:"responseMimeType,omitempty"`
	ThinkingConfig   *ThinkingConfig `json:"thinkingConfig,omitempty"`
}

// ThinkingConfig requests extended reasoning effort from the model.
type ThinkingConfig struct {
	ThinkingBudget int `json:"thinkingBudget"`
}

// NewUserContent builds a single-part user content turn.
func NewUserContent(text string) Content {
	return Content{Role: "user", Parts: []Part{{Text: text}}}
}

// NewSystemContent builds a system instruction content block.
func NewSystemContent(text string) *Content {
	return &Content{Parts: []Part{{Text: text}}}
}

// =============================================================================
// RESPONSE TYPES
// =============================================================================

// GenerateContentResponse is the response body from the generateContent endpoint.
type GenerateContentResponse struct {
	Candidates []Candidate `json:"candidates"`
}

// Candidate is one generated completion.
type Candidate struct {
	Content      Content `json:"content"`
	FinishReason string  `json:"finishReason,omitempty"`
}

// Text returns the concatenated text of the first candidate, or "".
func (r *GenerateContentResponse) Text() string {
	if len(r.Candidates) == 0 {
		return ""
	}
	out := ""
	for _, p := range r.Candidates[0].Content.Parts {
		out += p.Text
	}
	return out
}

// =============================================================================
// DOMAIN TYPES
// =============================================================================

// AnalysisResult is the structured reply of the live-analysis operation.
// Replaced wholesale on each successful analysis; never persisted.
type AnalysisResult struct {
	Suggestions []string `json:"suggestions"`
	SyntaxValid bool     `json:"syntaxValid"`
	LogicGaps   []string `json:"logicGaps"`
}

// FallbackAnalysis is the safe substitute used when the assistant's
// structured reply cannot be parsed.
func FallbackAnalysis() *AnalysisResult {
	return &AnalysisResult{
		Suggestions: []string{"Analysis unavailable"},
		SyntaxValid: true,
		LogicGaps:   []string{},
	}
}

// EmptyAnalysis is the result used when the assistant returns no content.
func EmptyAnalysis() *AnalysisResult {
	return &AnalysisResult{
		Suggestions: []string{},
		SyntaxValid: true,
		LogicGaps:   []string{},
	}
}

// DocumentContext is the slice of a document sent as grounding context.
type DocumentContext struct {
	Name string
	Kind string
	Text string
}

// ChatTurn is one prior turn of the planning conversation.
type ChatTurn struct {
	Role string // "user" or "assistant"
	Text string
}
