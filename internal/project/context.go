// Copyright (c) 2025 tpaschkow
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package project holds the user-editable project context string.
package project

import "sync"

// DefaultContext primes the assistant when the user has not written a
// project description yet. Always non-empty.
const DefaultContext = "VelPRO is a Construction Management software linking to Xero."

// Context is the free-text grounding sent verbatim with every assistant
// request. Held in memory for the session only.
type Context struct {
	mu   sync.Mutex
	text string
}

// NewContext returns a context holding the default description.
func NewContext() *Context {
	return &Context{text: DefaultContext}
}

// Get returns the current context text.
func (c *Context) Get() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.text
}

// Set replaces the context text. An empty string falls back to the
// default so the context is always a defined, non-empty string.
func (c *Context) Set(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if text == "" {
		text = DefaultContext
	}
	c.text = text
}
