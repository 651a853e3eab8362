// Copyright (c) 2025 tpaschkow
// SPDX-License-Identifier: AGPL-3.0-or-later

package util

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// =============================================================================
// FILE LOGGER
// =============================================================================

// Logger appends timestamped lines to ~/.velpro/velpro.log. The studio
// owns the whole terminal, so failures that should not interrupt the
// user land here instead of stderr. A Logger with no usable file is
// still safe to call; lines are dropped.
type Logger struct {
	mu   sync.Mutex
	file *os.File
}

// NewLogger opens the log file for appending. Errors are swallowed;
// logging is best effort.
func NewLogger() *Logger {
	home, err := os.UserHomeDir()
	if err != nil {
		return &Logger{}
	}
	dir := filepath.Join(home, ".velpro")
	if err := os.MkdirAll(dir, 0700); err != nil {
		return &Logger{}
	}
	f, err := os.OpenFile(filepath.Join(dir, "velpro.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return &Logger{}
	}
	return &Logger{file: f}
}

// NewLoggerWithPath opens a logger at an explicit path, mainly for tests.
func NewLoggerWithPath(path string) *Logger {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return &Logger{}
	}
	return &Logger{file: f}
}

// Printf writes one timestamped line.
func (l *Logger) Printf(format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return
	}
	ts := time.Now().Format(time.RFC3339)
	fmt.Fprintf(l.file, "%s %s\n", ts, fmt.Sprintf(format, args...))
}

// Close releases the log file.
func (l *Logger) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file != nil {
		l.file.Close()
		l.file = nil
	}
}
