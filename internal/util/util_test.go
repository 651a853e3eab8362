// Copyright (c) 2025 tpaschkow
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides shared helpers for the VelPRO studio.
package util

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// =============================================================================
// ATOMIC WRITE TESTS
// =============================================================================

func TestAtomicWriteFile_Basic(t *testing.T) {
	tempDir := t.TempDir()
	path := filepath.Join(tempDir, "transcript.json")
	data := []byte(`[{"role":"user","text":"hello"}]`)

	if err := AtomicWriteFile(path, data, 0644); err != nil {
		t.Fatalf("AtomicWriteFile failed: %v", err)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file: %v", err)
	}
	if string(content) != string(data) {
		t.Errorf("Content mismatch: got %q, want %q", string(content), string(data))
	}
}

func TestAtomicWriteFile_CreatesParentDir(t *testing.T) {
	tempDir := t.TempDir()
	path := filepath.Join(tempDir, "flows", "deep", "doc.json")

	if err := AtomicWriteFile(path, []byte("x"), 0644); err != nil {
		t.Fatalf("AtomicWriteFile failed: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("File should exist: %v", err)
	}
}

func TestAtomicWriteFile_Overwrite(t *testing.T) {
	tempDir := t.TempDir()
	path := filepath.Join(tempDir, "transcript.json")

	if err := AtomicWriteFile(path, []byte("old"), 0644); err != nil {
		t.Fatalf("first write failed: %v", err)
	}
	if err := AtomicWriteFile(path, []byte("new"), 0644); err != nil {
		t.Fatalf("second write failed: %v", err)
	}

	content, _ := os.ReadFile(path)
	if string(content) != "new" {
		t.Errorf("Content = %q, want %q", string(content), "new")
	}
}

func TestAtomicWriteFile_NoTempLeftovers(t *testing.T) {
	tempDir := t.TempDir()
	path := filepath.Join(tempDir, "doc.json")

	if err := AtomicWriteFile(path, []byte("data"), 0644); err != nil {
		t.Fatalf("AtomicWriteFile failed: %v", err)
	}

	entries, err := os.ReadDir(tempDir)
	if err != nil {
		t.Fatalf("ReadDir failed: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("Expected exactly one file, got %d", len(entries))
	}
}

// =============================================================================
// STRING TESTS
// =============================================================================

func TestTruncateRunes(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		maxRunes int
		want     string
	}{
		{"short string unchanged", "graph TD", 20, "graph TD"},
		{"exact length unchanged", "abcde", 5, "abcde"},
		{"truncated with ellipsis", "abcdefghij", 8, "abcde..."},
		{"zero max", "abc", 0, ""},
		{"unicode safe", "日本語のダイアグラム", 6, "日本語..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TruncateRunes(tt.input, tt.maxRunes)
			if got != tt.want {
				t.Errorf("TruncateRunes(%q, %d) = %q, want %q", tt.input, tt.maxRunes, got, tt.want)
			}
		})
	}
}

func TestTruncateRunesNoEllipsis(t *testing.T) {
	got := TruncateRunesNoEllipsis("graph TD\n  A-->B", 8)
	if got != "graph TD" {
		t.Errorf("TruncateRunesNoEllipsis = %q, want %q", got, "graph TD")
	}
}

func TestFirstLine(t *testing.T) {
	if got := FirstLine("graph TD\nA-->B"); got != "graph TD" {
		t.Errorf("FirstLine = %q, want %q", got, "graph TD")
	}
	if got := FirstLine("single"); got != "single" {
		t.Errorf("FirstLine = %q, want %q", got, "single")
	}
}

func TestExportFilename(t *testing.T) {
	tests := []struct {
		name string
		ext  string
		want string
	}{
		{"Main Flow", "svg", "Main_Flow.svg"},
		{"  spaced   out  name ", "png", "spaced_out_name.png"},
		{"NoSpaces", "svg", "NoSpaces.svg"},
		{"", "png", "diagram.png"},
		{"tab\tand\nnewline", "svg", "tab_and_newline.svg"},
	}

	for _, tt := range tests {
		got := ExportFilename(tt.name, tt.ext)
		if got != tt.want {
			t.Errorf("ExportFilename(%q, %q) = %q, want %q", tt.name, tt.ext, got, tt.want)
		}
	}
}

func TestLogger_WritesTimestampedLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "velpro.log")
	l := NewLoggerWithPath(path)
	l.Printf("render failed: %s", "timeout")
	l.Close()

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read log: %v", err)
	}
	if !strings.Contains(string(content), "render failed: timeout") {
		t.Errorf("Log missing message: %q", string(content))
	}
}

func TestLogger_SafeWithoutFile(t *testing.T) {
	l := NewLoggerWithPath(filepath.Join(t.TempDir(), "missing", "velpro.log"))
	l.Printf("dropped")
	l.Close()
}
