// Copyright (c) 2025 tpaschkow
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package gemini provides the HTTP client for the Gemini generative API.
package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// newTestClient points a client at a stub Gemini endpoint.
func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := NewClient(&ClientConfig{
		BaseURL:           srv.URL,
		APIKey:            "test-key",
		RequestsPerMinute: 0, // no throttling in tests
	})
	require.NoError(t, err)
	return client
}

// textReply writes a well-formed generateContent response.
func textReply(w http.ResponseWriter, text string) {
	resp := GenerateContentResponse{
		Candidates: []Candidate{{Content: Content{Role: "model", Parts: []Part{{Text: text}}}}},
	}
	json.NewEncoder(w).Encode(resp)
}

// =============================================================================
// CONFIGURATION TESTS
// =============================================================================

func TestNewClient_MissingKeyIsFatal(t *testing.T) {
	_, err := NewClient(&ClientConfig{})
	require.ErrorIs(t, err, ErrMissingAPIKey)
}

func TestNewClient_Defaults(t *testing.T) {
	client, err := NewClient(&ClientConfig{APIKey: "k"})
	require.NoError(t, err)
	require.Equal(t, "gemini-2.5-flash", client.config.FlashModel)
	require.Equal(t, "gemini-3-pro-preview", client.config.ProModel)
	require.Equal(t, 32768, client.config.ThinkingBudget)
}

// =============================================================================
// GENERATE CODE TESTS
// =============================================================================

func TestGenerateCode_FastModeUsesTemperature(t *testing.T) {
	var captured GenerateContentRequest
	var path string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		json.NewDecoder(r.Body).Decode(&captured)
		textReply(w, "graph TD\nA-->B")
	})

	out, err := client.GenerateCode(context.Background(), "draw a flow", "", false, "ctx", nil)
	require.NoError(t, err)
	require.Equal(t, "graph TD\nA-->B", out)

	require.Contains(t, path, "gemini-2.5-flash")
	require.NotNil(t, captured.GenerationConfig.Temperature)
	require.Nil(t, captured.GenerationConfig.ThinkingConfig)
}

func TestGenerateCode_DeepModeDropsTemperature(t *testing.T) {
	var captured GenerateContentRequest
	var path string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		json.NewDecoder(r.Body).Decode(&captured)
		textReply(w, "graph TD\nA-->B")
	})

	_, err := client.GenerateCode(context.Background(), "draw a flow", "", true, "", nil)
	require.NoError(t, err)

	// Deep-reasoning mode and temperature control are mutually exclusive.
	require.Contains(t, path, "gemini-3-pro-preview")
	require.Nil(t, captured.GenerationConfig.Temperature)
	require.NotNil(t, captured.GenerationConfig.ThinkingConfig)
	require.Equal(t, 32768, captured.GenerationConfig.ThinkingConfig.ThinkingBudget)
}

func TestGenerateCode_PromptIncludesCurrentText(t *testing.T) {
	var captured GenerateContentRequest
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&captured)
		textReply(w, "ok")
	})

	_, err := client.GenerateCode(context.Background(), "add a node", "graph TD\nA-->B", false, "", nil)
	require.NoError(t, err)

	prompt := captured.Contents[0].Parts[0].Text
	require.Contains(t, prompt, "Current Diagram Code:\ngraph TD\nA-->B")
	require.Contains(t, prompt, "Request: add a node")
}

func TestGenerateCode_OtherDocsTruncated(t *testing.T) {
	var captured GenerateContentRequest
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&captured)
		textReply(w, "ok")
	})

	long := strings.Repeat("x", 2000)
	docs := []DocumentContext{{Name: "Billing", Kind: "micro", Text: long}}
	_, err := client.GenerateCode(context.Background(), "p", "", false, "", docs)
	require.NoError(t, err)

	sys := captured.SystemInstruction.Parts[0].Text
	require.Contains(t, sys, "Billing (micro)")
	require.NotContains(t, sys, long)
	require.Contains(t, sys, strings.Repeat("x", 500)+"...")
}

func TestGenerateCode_EmptyReplyIsError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		textReply(w, "")
	})

	_, err := client.GenerateCode(context.Background(), "p", "", false, "", nil)
	require.ErrorIs(t, err, ErrEmptyResponse)
}

// =============================================================================
// ANALYZE TESTS
// =============================================================================

func TestAnalyze_StructuredReply(t *testing.T) {
	var captured GenerateContentRequest
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&captured)
		textReply(w, `{"suggestions":["label the edges"],"syntaxValid":true,"logicGaps":["C is a dead end"]}`)
	})

	result, err := client.Analyze(context.Background(), "graph TD\nA-->B", "proj")
	require.NoError(t, err)
	require.Equal(t, []string{"label the edges"}, result.Suggestions)
	require.True(t, result.SyntaxValid)
	require.Equal(t, []string{"C is a dead end"}, result.LogicGaps)
	require.Equal(t, "application/json", captured.GenerationConfig.ResponseMimeType)
}

func TestAnalyze_InvalidJSONYieldsFallback(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		textReply(w, "Sorry, here is some prose instead of JSON")
	})

	result, err := client.Analyze(context.Background(), "graph TD\nA-->B", "")
	require.NoError(t, err)
	require.Equal(t, []string{"Analysis unavailable"}, result.Suggestions)
	require.True(t, result.SyntaxValid)
	require.Empty(t, result.LogicGaps)
}

func TestAnalyze_TransportFailureIsError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})

	_, err := client.Analyze(context.Background(), "graph TD", "")
	require.Error(t, err)

	var clientErr *ClientError
	require.True(t, errors.As(err, &clientErr))
	require.Equal(t, ErrTypeInvalidResponse, clientErr.Type)
}

func TestParseAnalysis(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		want  *AnalysisResult
	}{
		{
			name:  "empty reply",
			reply: "   ",
			want:  EmptyAnalysis(),
		},
		{
			name:  "malformed reply",
			reply: "{not json",
			want:  FallbackAnalysis(),
		},
		{
			name:  "missing arrays normalized",
			reply: `{"syntaxValid":false}`,
			want:  &AnalysisResult{Suggestions: []string{}, SyntaxValid: false, LogicGaps: []string{}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, ParseAnalysis(tt.reply))
		})
	}
}

// =============================================================================
// EXPLAIN TESTS
// =============================================================================

func TestExplain_EmptyReplyFallsBack(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		textReply(w, "")
	})

	out, err := client.Explain(context.Background(), "graph TD", false)
	require.NoError(t, err)
	require.Equal(t, ExplainFallback, out)
}

type mapCache struct {
	entries map[string]string
	puts    int
}

func (m *mapCache) Get(key string) (string, bool) {
	v, ok := m.entries[key]
	return v, ok
}

func (m *mapCache) Put(key, value string) error {
	m.entries[key] = value
	m.puts++
	return nil
}

func TestExplain_UsesCache(t *testing.T) {
	calls := 0
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		textReply(w, "This diagram shows a login flow.")
	})
	client.SetCache(&mapCache{entries: map[string]string{}})

	first, err := client.Explain(context.Background(), "graph TD\nA-->B", false)
	require.NoError(t, err)
	second, err := client.Explain(context.Background(), "graph TD\nA-->B", false)
	require.NoError(t, err)

	require.Equal(t, first, second)
	require.Equal(t, 1, calls, "second explain should be served from cache")
}

// =============================================================================
// CHAT TESTS
// =============================================================================

func TestChat_SendsFullGrounding(t *testing.T) {
	var captured GenerateContentRequest
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&captured)
		textReply(w, "Consider splitting the checkout macro flow.")
	})

	history := []ChatTurn{
		{Role: "user", Text: "Where do we start?"},
		{Role: "assistant", Text: "Map the macro flow first."},
	}
	docs := []DocumentContext{
		{Name: "Main Flow", Kind: "macro", Text: "graph TD\nA-->B"},
		{Name: "Checkout", Kind: "micro", Text: "graph TD\nC-->D"},
	}

	reply, err := client.Chat(context.Background(), "What's missing?", history, "VelPRO links to Xero.", docs)
	require.NoError(t, err)
	require.Equal(t, "Consider splitting the checkout macro flow.", reply)

	sys := captured.SystemInstruction.Parts[0].Text
	require.Contains(t, sys, "VelPRO links to Xero.")
	require.Contains(t, sys, "FILE: Main Flow (macro)")
	require.Contains(t, sys, "FILE: Checkout (micro)")
	require.Contains(t, sys, "graph TD\nC-->D")

	prompt := captured.Contents[0].Parts[0].Text
	require.Contains(t, prompt, "User: Where do we start?")
	require.Contains(t, prompt, "Planner: Map the macro flow first.")
	require.True(t, strings.HasSuffix(prompt, "User: What's missing?\nPlanner:"))
}

func TestChat_EmptyReplyFallsBack(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		textReply(w, "")
	})

	reply, err := client.Chat(context.Background(), "hello", nil, "", nil)
	require.NoError(t, err)
	require.Equal(t, ChatFallback, reply)
}
