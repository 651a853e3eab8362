// Copyright (c) 2025 tpaschkow
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides shared helpers for the VelPRO studio.
package util

import (
	"strconv"
	"strings"
)

// TruncateRunes truncates a string to a maximum number of runes (characters).
// This is safe for UTF-8 strings as it counts characters, not bytes.
// If the string is truncated, "..." is appended.
func TruncateRunes(s string, maxRunes int) string {
	if maxRunes <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= maxRunes {
		return s
	}
	if maxRunes <= 3 {
		return string(runes[:maxRunes])
	}
	return string(runes[:maxRunes-3]) + "..."
}

// TruncateRunesNoEllipsis truncates a string to a maximum number of runes
// without appending an ellipsis.
func TruncateRunesNoEllipsis(s string, maxRunes int) string {
	if maxRunes <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= maxRunes {
		return s
	}
	return string(runes[:maxRunes])
}

// FirstLine returns the text up to (not including) the first newline.
func FirstLine(s string) string {
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		return s[:idx]
	}
	return s
}

// ExportFilename derives a download filename from a document name:
// runs of whitespace collapse to a single underscore, then the
// extension is appended. An empty name falls back to "diagram".
func ExportFilename(name, ext string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		name = "diagram"
	}
	name = strings.Join(strings.Fields(name), "_")
	return name + "." + ext
}

// IntToString converts an int to string.
func IntToString(i int) string {
	return strconv.Itoa(i)
}
