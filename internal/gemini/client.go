// Copyright (c) 2025 tpaschkow
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package gemini provides the HTTP client for the Gemini generative API.
package gemini

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// ClientError represents an error from the Gemini client.
type ClientError struct {
	Type    ErrorType
	Message string
	Cause   error
}

func (e *ClientError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *ClientError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is a ClientError of the same type.
func (e *ClientError) Is(target error) bool {
	t, ok := target.(*ClientError)
	if !ok {
		return false
	}
	return e.Type == t.Type
}

// ErrorType categorizes client errors for handling.
type ErrorType int

const (
	ErrTypeUnknown ErrorType = iota
	ErrTypeMissingKey
	ErrTypeTimeout
	ErrTypeConnection
	ErrTypeRateLimited
	ErrTypeInvalidResponse
	ErrTypeEmptyResponse
)

// Sentinel errors for easy checking.
var (
	// ErrMissingAPIKey is a configuration error. It is raised before any
	// request is attempted and is not retried.
	ErrMissingAPIKey = &ClientError{Type: ErrTypeMissingKey, Message: "Gemini API key is missing"}
	ErrTimeout       = &ClientError{Type: ErrTypeTimeout, Message: "request timed out"}
	ErrRateLimited   = &ClientError{Type: ErrTypeRateLimited, Message: "Gemini rejected the request: rate limited"}
	ErrEmptyResponse = &ClientError{Type: ErrTypeEmptyResponse, Message: "no content generated"}
)

// =============================================================================
// CLIENT CONFIGURATION
// =============================================================================

// ClientConfig holds configuration options for the Gemini client.
type ClientConfig struct {
	// BaseURL is the Gemini API base URL
	// (default: https://generativelanguage.googleapis.com/v1beta)
	BaseURL string

	// APIKey is the externally supplied credential. Required.
	APIKey string

	// FlashModel is the fast default model (default: "gemini-2.5-flash")
	FlashModel string

	// ProModel is the deep-reasoning model (default: "gemini-3-pro-preview")
	ProModel string

	// ThinkingBudget is the token budget for deep-reasoning requests
	// (default: 32768)
	ThinkingBudget int

	// Temperature is the sampling temperature for fast generation requests.
	// Ignored in deep-reasoning mode. (default: 0.2)
	Temperature float64

	// Timeout for requests (default: 120s; deep-reasoning calls are slow)
	Timeout time.Duration

	// RequestsPerMinute caps outgoing calls (default: 30, 0 disables)
	RequestsPerMinute int
}

// DefaultConfig returns the default client configuration.
func DefaultConfig() *ClientConfig {
	return &ClientConfig{
		BaseURL:           "https://generativelanguage.googleapis.com/v1beta",
		FlashModel:        "gemini-2.5-flash",
		ProModel:          "gemini-3-pro-preview",
		ThinkingBudget:    32768,
		Temperature:       0.2,
		Timeout:           120 * time.Second,
		RequestsPerMinute: 30,
	}
}

// =============================================================================
// RESPONSE CACHE
// =============================================================================

// ResponseCache stores assistant replies for reuse across identical
// one-shot requests. Implemented by the cache package.
type ResponseCache interface {
	Get(key string) (string, bool)
	Put(key, value string) error
}

// =============================================================================
// CLIENT
// =============================================================================

// Client handles communication with the Gemini API.
//
// The Client is safe for concurrent use. All four studio operations
// (GenerateCode, Explain, Analyze, Chat) go through one generateContent
// call, share one rate limiter, and surface the same error taxonomy.
type Client struct {
	config     *ClientConfig
	httpClient *http.Client
	limiter    *rate.Limiter
	cache      ResponseCache
}

// NewClient creates a Gemini client. The API key is validated here so a
// missing credential fails at startup, before any call is attempted.
func NewClient(config *ClientConfig) (*Client, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if config.APIKey == "" {
		return nil, ErrMissingAPIKey
	}

	// Fill in defaults for any zero values
	if config.BaseURL == "" {
		config.BaseURL = "https://generativelanguage.googleapis.com/v1beta"
	}
	if config.FlashModel == "" {
		config.FlashModel = "gemini-2.5-flash"
	}
	if config.ProModel == "" {
		config.ProModel = "gemini-3-pro-preview"
	}
	if config.ThinkingBudget == 0 {
		config.ThinkingBudget = 32768
	}
	if config.Temperature == 0 {
		config.Temperature = 0.2
	}
	if config.Timeout == 0 {
		config.Timeout = 120 * time.Second
	}

	var limiter *rate.Limiter
	if config.RequestsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(config.RequestsPerMinute)), config.RequestsPerMinute)
	}

	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		limiter: limiter,
	}, nil
}

// SetCache installs a response cache for deterministic one-shot replies.
func (c *Client) SetCache(cache ResponseCache) {
	c.cache = cache
}

// model picks the model for the requested effort tier.
func (c *Client) model(deepReasoning bool) string {
	if deepReasoning {
		return c.config.ProModel
	}
	return c.config.FlashModel
}

// =============================================================================
// CORE REQUEST
// =============================================================================

// generateContent posts a request to the given model and returns the raw
// reply text.
func (c *Client) generateContent(ctx context.Context, model string, req *GenerateContentRequest) (string, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", &ClientError{Type: ErrTypeTimeout, Message: "rate limiter wait aborted", Cause: err}
		}
	}

	body, err := json.Marshal(req)
	if err != nil {
		return "", &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to marshal request", Cause: err}
	}

	url := c.config.BaseURL + "/models/" + model + ":generateContent"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", &ClientError{Type: ErrTypeConnection, Message: "failed to create request", Cause: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", c.config.APIKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", ErrTimeout
		}
		return "", &ClientError{Type: ErrTypeConnection, Message: "failed to reach Gemini", Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return "", ErrRateLimited
	}
	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", &ClientError{
			Type:    ErrTypeInvalidResponse,
			Message: "unexpected status from Gemini: " + resp.Status + " " + strings.TrimSpace(string(msg)),
		}
	}

	var result GenerateContentResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to decode response", Cause: err}
	}

	return result.Text(), nil
}

// =============================================================================
// GENERATE CODE
// =============================================================================

// GenerateCode asks the assistant to produce Mermaid code from a natural
// language instruction, grounded in the current text, the project context,
// and a bounded prefix of every other document.
//
// Deep-reasoning mode selects the pro model with a thinking budget and
// removes the temperature hint; the two are mutually exclusive.
func (c *Client) GenerateCode(ctx context.Context, prompt, currentText string, deepReasoning bool, projectContext string, otherDocs []DocumentContext) (string, error) {
	fullPrompt := prompt
	if currentText != "" {
		fullPrompt = "Current Diagram Code:\n" + currentText + "\n\nRequest: " + prompt
	}

	genCfg := &GenerationConfig{}
	if deepReasoning {
		genCfg.ThinkingConfig = &ThinkingConfig{ThinkingBudget: c.config.ThinkingBudget}
	} else {
		temp := c.config.Temperature
		genCfg.Temperature = &temp
	}

	req := &GenerateContentRequest{
		Contents:          []Content{NewUserContent(fullPrompt)},
		SystemInstruction: NewSystemContent(generateSystemInstruction(projectContext, otherDocs)),
		GenerationConfig:  genCfg,
	}

	text, err := c.generateContent(ctx, c.model(deepReasoning), req)
	if err != nil {
		return "", err
	}
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

// =============================================================================
// EXPLAIN
// =============================================================================

// ExplainFallback is shown when the one-shot explanation call fails.
const ExplainFallback = "Could not generate explanation."

// Explain turns diagram text into a stakeholder-readable summary.
// Replies are cached by model and input when a cache is installed, since
// explaining unchanged text is deterministic enough to reuse.
func (c *Client) Explain(ctx context.Context, text string, deepReasoning bool) (string, error) {
	model := c.model(deepReasoning)

	cacheKey := ""
	if c.cache != nil {
		cacheKey = hashKey("explain", model, text)
		if cached, ok := c.cache.Get(cacheKey); ok {
			return cached, nil
		}
	}

	genCfg := &GenerationConfig{}
	if deepReasoning {
		genCfg.ThinkingConfig = &ThinkingConfig{ThinkingBudget: c.config.ThinkingBudget}
	}

	req := &GenerateContentRequest{
		Contents:          []Content{NewUserContent("Explain this diagram:\n" + text)},
		SystemInstruction: NewSystemContent(explainSystemInstruction),
		GenerationConfig:  genCfg,
	}

	reply, err := c.generateContent(ctx, model, req)
	if err != nil {
		return "", err
	}
	if reply == "" {
		reply = ExplainFallback
	}

	if c.cache != nil && cacheKey != "" {
		c.cache.Put(cacheKey, reply)
	}
	return reply, nil
}

// =============================================================================
// ANALYZE
// =============================================================================

// Analyze runs the structured QA pass over diagram text.
//
// Transport failures return an error so the caller can keep its previous
// result. A reply that cannot be decoded is not an error: the safe
// fallback result is substituted, matching the advisory-only contract.
func (c *Client) Analyze(ctx context.Context, text, projectContext string) (*AnalysisResult, error) {
	req := &GenerateContentRequest{
		Contents:          []Content{NewUserContent("Analyze this Mermaid code:\n" + text)},
		SystemInstruction: NewSystemContent(analyzeSystemInstruction(projectContext)),
		GenerationConfig: &GenerationConfig{
			ResponseMimeType: "application/json",
		},
	}

	// Analysis always uses the fast model; it runs on every edit.
	reply, err := c.generateContent(ctx, c.config.FlashModel, req)
	if err != nil {
		return nil, err
	}

	return ParseAnalysis(reply), nil
}

// ParseAnalysis decodes the assistant's structured analysis reply.
// Empty replies yield an empty result; malformed replies yield the
// fallback result. Never returns nil.
func ParseAnalysis(reply string) *AnalysisResult {
	if strings.TrimSpace(reply) == "" {
		return EmptyAnalysis()
	}

	var result AnalysisResult
	if err := json.Unmarshal([]byte(reply), &result); err != nil {
		return FallbackAnalysis()
	}
	if result.Suggestions == nil {
		result.Suggestions = []string{}
	}
	if result.LogicGaps == nil {
		result.LogicGaps = []string{}
	}
	return &result
}

// =============================================================================
// CHAT
// =============================================================================

// ChatFallback is appended when the assistant returns an empty reply.
const ChatFallback = "I'm thinking, but I couldn't formulate a response."

// Chat sends one planning turn. The system instruction carries the project
// context and the current text of every document; the prompt carries the
// full prior conversation plus the new user line. Always uses the
// deep-reasoning model.
func (c *Client) Chat(ctx context.Context, userText string, history []ChatTurn, projectContext string, docs []DocumentContext) (string, error) {
	req := &GenerateContentRequest{
		Contents:          []Content{NewUserContent(chatPrompt(history, userText))},
		SystemInstruction: NewSystemContent(chatSystemInstruction(projectContext, docs)),
		GenerationConfig: &GenerationConfig{
			ThinkingConfig: &ThinkingConfig{ThinkingBudget: c.config.ThinkingBudget},
		},
	}

	reply, err := c.generateContent(ctx, c.config.ProModel, req)
	if err != nil {
		return "", err
	}
	if reply == "" {
		return ChatFallback, nil
	}
	return reply, nil
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// hashKey derives a stable cache key from request parts.
func hashKey(parts ...string) string {
	h := sha256.New()
	for _, p := range parts {
		h.Write([]byte(p))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}
