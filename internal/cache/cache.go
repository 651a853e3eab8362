// Copyright (c) 2025 tpaschkow
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cache stores assistant replies in a local SQLite database so
// repeated one-shot requests (explanations of unchanged diagrams) do not
// spend another API call.
package cache

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	ErrClosed        = errors.New("cache closed")
	ErrDatabaseError = errors.New("database error")
)

// =============================================================================
// SCHEMA
// =============================================================================

// SQLite schema for the response cache.
const schema = `
CREATE TABLE IF NOT EXISTS responses (
    key        TEXT PRIMARY KEY,
    value      TEXT NOT NULL,
    created_at INTEGER NOT NULL  -- Unix timestamp
) WITHOUT ROWID;

CREATE INDEX IF NOT EXISTS idx_responses_created_at ON responses(created_at);
`

// =============================================================================
// RESPONSE CACHE
// =============================================================================

// Config holds cache configuration.
type Config struct {
	// DatabasePath is where to store the SQLite database.
	// Default: ~/.velpro/responses.db
	DatabasePath string

	// MaxEntries limits stored responses (0 = unlimited). Oldest entries
	// are evicted first.
	MaxEntries int

	// TTL expires entries after this duration (0 = never).
	TTL time.Duration
}

// DefaultConfig returns the default cache configuration.
func DefaultConfig() (*Config, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}
	return &Config{
		DatabasePath: filepath.Join(homeDir, ".velpro", "responses.db"),
		MaxEntries:   500,
		TTL:          7 * 24 * time.Hour,
	}, nil
}

// ResponseCache is a durable key/value store for assistant replies.
// Safe for concurrent use; database/sql serializes access.
type ResponseCache struct {
	db     *sql.DB
	config *Config
}

// Open creates or opens the response cache database.
func Open(config *Config) (*ResponseCache, error) {
	if config == nil {
		var err error
		config, err = DefaultConfig()
		if err != nil {
			return nil, err
		}
	}

	dbDir := filepath.Dir(config.DatabasePath)
	if err := os.MkdirAll(dbDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	db, err := sql.Open("sqlite", config.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}

	// SQLite only supports one writer at a time, so limit connections.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA temp_store=MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &ResponseCache{db: db, config: config}, nil
}

// Close closes the underlying database.
func (c *ResponseCache) Close() error {
	return c.db.Close()
}

// =============================================================================
// GET / PUT
// =============================================================================

// Get returns the cached reply for key. Expired and missing entries are
// both misses; database errors degrade to a miss rather than failing the
// caller's request.
func (c *ResponseCache) Get(key string) (string, bool) {
	var value string
	var createdAt int64

	row := c.db.QueryRow("SELECT value, created_at FROM responses WHERE key = ?", key)
	if err := row.Scan(&value, &createdAt); err != nil {
		return "", false
	}

	if c.config.TTL > 0 {
		created := time.Unix(createdAt, 0)
		if time.Since(created) > c.config.TTL {
			c.db.Exec("DELETE FROM responses WHERE key = ?", key)
			return "", false
		}
	}

	return value, true
}

// Put stores a reply under key, replacing any previous entry.
func (c *ResponseCache) Put(key, value string) error {
	_, err := c.db.Exec(
		"INSERT OR REPLACE INTO responses (key, value, created_at) VALUES (?, ?, ?)",
		key, value, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}

	if c.config.MaxEntries > 0 {
		c.enforceLimit()
	}
	return nil
}

// enforceLimit evicts the oldest entries when over the cap.
func (c *ResponseCache) enforceLimit() {
	c.db.Exec(`
		DELETE FROM responses WHERE key IN (
			SELECT key FROM responses
			ORDER BY created_at ASC
			LIMIT max(0, (SELECT COUNT(*) FROM responses) - ?)
		)`, c.config.MaxEntries)
}

// =============================================================================
// MAINTENANCE
// =============================================================================

// Len returns the number of stored entries.
func (c *ResponseCache) Len() (int, error) {
	var n int
	if err := c.db.QueryRow("SELECT COUNT(*) FROM responses").Scan(&n); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	return n, nil
}

// Purge removes every stored entry.
func (c *ResponseCache) Purge() error {
	if _, err := c.db.Exec("DELETE FROM responses"); err != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	return nil
}

// PurgeExpired removes entries older than the TTL.
func (c *ResponseCache) PurgeExpired() error {
	if c.config.TTL <= 0 {
		return nil
	}
	cutoff := time.Now().Add(-c.config.TTL).Unix()
	if _, err := c.db.Exec("DELETE FROM responses WHERE created_at < ?", cutoff); err != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	return nil
}
