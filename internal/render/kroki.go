// Copyright (c) 2025 tpaschkow
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package render keeps the live preview in sync with the active document.
package render

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"
)

// =============================================================================
// KROKI RENDERER
// =============================================================================

// KrokiConfig holds configuration for the Kroki rendering service.
type KrokiConfig struct {
	// BaseURL of the Kroki server (default: https://kroki.io)
	BaseURL string

	// Theme is the Mermaid theme passed with every request so output is
	// deterministic for identical input (default: "neutral")
	Theme string

	// Timeout for render requests (default: 15s)
	Timeout time.Duration
}

// DefaultKrokiConfig returns the default Kroki configuration.
func DefaultKrokiConfig() *KrokiConfig {
	return &KrokiConfig{
		BaseURL: "https://kroki.io",
		Theme:   "neutral",
		Timeout: 15 * time.Second,
	}
}

// KrokiRenderer renders Mermaid text to SVG via a Kroki server.
// It implements Renderer.
type KrokiRenderer struct {
	config     *KrokiConfig
	httpClient *http.Client
}

// NewKrokiRenderer creates a Kroki-backed renderer.
func NewKrokiRenderer(config *KrokiConfig) *KrokiRenderer {
	if config == nil {
		config = DefaultKrokiConfig()
	}
	if config.BaseURL == "" {
		config.BaseURL = "https://kroki.io"
	}
	if config.Theme == "" {
		config.Theme = "neutral"
	}
	if config.Timeout == 0 {
		config.Timeout = 15 * time.Second
	}

	return &KrokiRenderer{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
	}
}

// Render posts the diagram text and returns the SVG markup. A 400 from
// the server is surfaced as a SyntaxError carrying the server's message.
func (k *KrokiRenderer) Render(ctx context.Context, text string) (*Graphic, error) {
	// A fixed init directive pins the visual theme, keeping output
	// deterministic for identical input.
	body := "%%{init: {'theme': '" + k.config.Theme + "'}}%%\n" + text

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, k.config.BaseURL+"/mermaid/svg", strings.NewReader(body))
	if err != nil {
		return nil, errors.New("failed to create render request: " + err.Error())
	}
	req.Header.Set("Content-Type", "text/plain")

	resp, err := k.httpClient.Do(req)
	if err != nil {
		return nil, errors.New("rendering service unreachable: " + err.Error())
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.New("failed to read render response: " + err.Error())
	}

	if resp.StatusCode == http.StatusBadRequest {
		return nil, &SyntaxError{Message: strings.TrimSpace(string(payload))}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errors.New("unexpected status from rendering service: " + resp.Status)
	}

	return &Graphic{SVG: string(payload)}, nil
}
