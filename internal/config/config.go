// Copyright (c) 2025 tpaschkow
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for the
// VelPRO studio.
//
// Configuration sources (in order of precedence):
//   - Environment variables (including a .env file in the working directory)
//   - ~/.velpro/config.toml
//   - Built-in defaults
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete studio configuration.
type Config struct {
	// General settings
	Version string `toml:"version"`

	// Assistant (Gemini) configuration
	Assistant AssistantConfig `toml:"assistant"`

	// Render (Kroki) configuration
	Render RenderConfig `toml:"render"`

	// Cache configuration
	Cache CacheConfig `toml:"cache"`

	// Library configuration
	Library LibraryConfig `toml:"library"`

	// Export configuration
	Export ExportConfig `toml:"export"`

	// UI configuration
	UI UIConfig `toml:"ui"`

	// Project configuration
	Project ProjectConfig `toml:"project"`
}

// AssistantConfig contains Gemini API configuration.
type AssistantConfig struct {
	// APIKey is the Gemini API key. Usually set via GEMINI_API_KEY.
	APIKey string `toml:"api_key"`
	// FlashModel handles fast generation and background analysis.
	FlashModel string `toml:"flash_model"`
	// ProModel handles deep reasoning and planning chat.
	ProModel string `toml:"pro_model"`
	// ThinkingBudget is the token budget for deep reasoning requests.
	ThinkingBudget int `toml:"thinking_budget"`
	// Temperature for fast-mode generation.
	Temperature float64 `toml:"temperature"`
	// TimeoutSecs is the per-request timeout in seconds.
	TimeoutSecs int `toml:"timeout_secs"`
	// RequestsPerMinute caps the client-side request rate.
	RequestsPerMinute int `toml:"requests_per_minute"`
}

// RenderConfig contains diagram render service configuration.
type RenderConfig struct {
	// KrokiURL is the base URL of the Kroki render service.
	KrokiURL string `toml:"kroki_url"`
	// Theme is the Mermaid theme pinned into every render.
	Theme string `toml:"theme"`
	// TimeoutSecs is the render request timeout in seconds.
	TimeoutSecs int `toml:"timeout_secs"`
}

// CacheConfig contains response cache configuration.
type CacheConfig struct {
	// Enabled controls whether the response cache is active.
	Enabled bool `toml:"enabled"`
	// TTLHours is the time-to-live for cache entries in hours.
	TTLHours int `toml:"ttl_hours"`
	// MaxEntries is the maximum number of cached responses.
	MaxEntries int `toml:"max_entries"`
}

// LibraryConfig contains flow library configuration.
type LibraryConfig struct {
	// Dir is the flow storage directory (empty = ~/.velpro/flows).
	Dir string `toml:"dir"`
	// AutosaveMs is the autosave debounce in milliseconds.
	AutosaveMs int `toml:"autosave_ms"`
	// WatchEnabled reloads flows edited outside the app.
	WatchEnabled bool `toml:"watch_enabled"`
}

// ExportConfig contains export configuration.
type ExportConfig struct {
	// OutputDir is where exported files land (empty = working directory).
	OutputDir string `toml:"output_dir"`
	// OpenAfterExport opens exported files in the default application.
	OpenAfterExport bool `toml:"open_after_export"`
	// PNGScale multiplies raster size for PNG export.
	PNGScale float64 `toml:"png_scale"`
	// HTMLTheme is the page theme for HTML export: "light" or "dark".
	HTMLTheme string `toml:"html_theme"`
}

// UIConfig contains UI configuration.
type UIConfig struct {
	// Theme is the UI theme: "dark", "light", "auto"
	Theme string `toml:"theme"`
	// CompactMode uses a more compact layout.
	CompactMode bool `toml:"compact_mode"`
}

// ProjectConfig contains project grounding configuration.
type ProjectConfig struct {
	// Context is the free-text project description sent with every
	// assistant request (empty = built-in default).
	Context string `toml:"context"`
}

// =============================================================================
// DEFAULT CONFIGURATION
// =============================================================================

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Version: "1.0.0",

		Assistant: AssistantConfig{
			FlashModel:        "gemini-2.5-flash",
			ProModel:          "gemini-3-pro-preview",
			ThinkingBudget:    32768,
			Temperature:       0.2,
			TimeoutSecs:       60,
			RequestsPerMinute: 30,
		},

		Render: RenderConfig{
			KrokiURL:    "https://kroki.io",
			Theme:       "neutral",
			TimeoutSecs: 15,
		},

		Cache: CacheConfig{
			Enabled:    true,
			TTLHours:   168,
			MaxEntries: 500,
		},

		Library: LibraryConfig{
			AutosaveMs:   500,
			WatchEnabled: true,
		},

		Export: ExportConfig{
			OutputDir:       "",
			OpenAfterExport: false,
			PNGScale:        2,
			HTMLTheme:       "light",
		},

		UI: UIConfig{
			Theme:       "dark",
			CompactMode: false,
		},

		Project: ProjectConfig{
			Context: "",
		},
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the studio configuration directory path.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".velpro"), nil
}

// ConfigPath returns the path to the TOML config file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// EnsureConfigDir ensures the config directory exists.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0755)
}

// ensureSecurePermissions fixes permissions on the config file. The file
// can carry the API key, so it must be owner-only.
func ensureSecurePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}

	if info.Mode().Perm() != 0600 {
		if err := os.Chmod(path, 0600); err != nil {
			return fmt.Errorf("failed to fix insecure permissions: %w", err)
		}
	}
	return nil
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load loads configuration from ~/.velpro/config.toml, then applies
// environment overrides and validates. A missing config file is not an
// error; defaults apply.
func Load() (*Config, error) {
	// A .env in the working directory supplies env vars for development
	// setups. Missing is fine.
	godotenv.Load()

	cfg := Default()

	path, err := ConfigPath()
	if err == nil {
		if _, statErr := os.Stat(path); statErr == nil {
			if err := LoadTOML(cfg, path); err != nil {
				return nil, fmt.Errorf("failed to load config: %w", err)
			}
		}
	}

	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadTOML loads configuration from a TOML file.
func LoadTOML(cfg *Config, path string) error {
	if err := ensureSecurePermissions(path); err != nil {
		// Permissions might not be fixable on all filesystems.
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	return nil
}

// LoadFromPath loads configuration from a specific file path with full
// validation.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()
	if err := LoadTOML(cfg, path); err != nil {
		return nil, err
	}

	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save saves the configuration to the default TOML file.
func Save(cfg *Config) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return SaveTOML(cfg, path)
}

// SaveTOML saves the configuration to a TOML file with owner-only
// permissions; the file can carry the API key.
func SaveTOML(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer file.Close()

	if err := os.Chmod(path, 0600); err != nil {
		return fmt.Errorf("failed to set config file permissions: %w", err)
	}

	fmt.Fprintln(file, "# VelPRO studio configuration file")
	fmt.Fprintln(file, "# Edit with care; restart to apply")
	fmt.Fprintln(file, "")

	if err := toml.NewEncoder(file).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate validates the configuration and returns any errors. The API
// key is deliberately not validated here; the client reports it with a
// clearer message at startup.
func (c *Config) Validate() error {
	var errs ValidateErrors

	if c.Assistant.ThinkingBudget < 0 {
		errs = append(errs, ValidationError{
			Field:   "assistant.thinking_budget",
			Message: "must be non-negative",
		})
	}
	if c.Assistant.Temperature < 0 || c.Assistant.Temperature > 2 {
		errs = append(errs, ValidationError{
			Field:   "assistant.temperature",
			Message: fmt.Sprintf("must be between 0.0 and 2.0, got %g", c.Assistant.Temperature),
		})
	}
	if c.Assistant.TimeoutSecs <= 0 {
		errs = append(errs, ValidationError{
			Field:   "assistant.timeout_secs",
			Message: "must be positive",
		})
	}
	if c.Assistant.RequestsPerMinute < 0 {
		errs = append(errs, ValidationError{
			Field:   "assistant.requests_per_minute",
			Message: "must be non-negative (0 = unlimited)",
		})
	}

	if c.Render.KrokiURL != "" {
		if u, err := url.Parse(c.Render.KrokiURL); err != nil || u.Scheme == "" {
			errs = append(errs, ValidationError{
				Field:   "render.kroki_url",
				Message: fmt.Sprintf("invalid URL '%s'", c.Render.KrokiURL),
			})
		}
	}
	if c.Render.TimeoutSecs <= 0 {
		errs = append(errs, ValidationError{
			Field:   "render.timeout_secs",
			Message: "must be positive",
		})
	}

	if c.Cache.TTLHours < 0 {
		errs = append(errs, ValidationError{
			Field:   "cache.ttl_hours",
			Message: "must be non-negative",
		})
	}
	if c.Cache.MaxEntries < 0 {
		errs = append(errs, ValidationError{
			Field:   "cache.max_entries",
			Message: "must be non-negative (0 = unlimited)",
		})
	}

	if c.Library.AutosaveMs < 0 {
		errs = append(errs, ValidationError{
			Field:   "library.autosave_ms",
			Message: "must be non-negative",
		})
	}

	if c.Export.PNGScale <= 0 {
		errs = append(errs, ValidationError{
			Field:   "export.png_scale",
			Message: "must be positive",
		})
	}
	validHTMLThemes := map[string]bool{"light": true, "dark": true}
	if !validHTMLThemes[strings.ToLower(c.Export.HTMLTheme)] {
		errs = append(errs, ValidationError{
			Field:   "export.html_theme",
			Message: fmt.Sprintf("invalid theme '%s', must be one of: light, dark", c.Export.HTMLTheme),
		})
	}

	validThemes := map[string]bool{"dark": true, "light": true, "auto": true}
	if !validThemes[strings.ToLower(c.UI.Theme)] {
		errs = append(errs, ValidationError{
			Field:   "ui.theme",
			Message: fmt.Sprintf("invalid theme '%s', must be one of: dark, light, auto", c.UI.Theme),
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// SetDefaults fills missing or zero values with defaults.
func (c *Config) SetDefaults() {
	defaults := Default()

	if c.Version == "" {
		c.Version = defaults.Version
	}

	if c.Assistant.FlashModel == "" {
		c.Assistant.FlashModel = defaults.Assistant.FlashModel
	}
	if c.Assistant.ProModel == "" {
		c.Assistant.ProModel = defaults.Assistant.ProModel
	}
	if c.Assistant.ThinkingBudget == 0 {
		c.Assistant.ThinkingBudget = defaults.Assistant.ThinkingBudget
	}
	if c.Assistant.Temperature == 0 {
		c.Assistant.Temperature = defaults.Assistant.Temperature
	}
	if c.Assistant.TimeoutSecs == 0 {
		c.Assistant.TimeoutSecs = defaults.Assistant.TimeoutSecs
	}
	if c.Assistant.RequestsPerMinute == 0 {
		c.Assistant.RequestsPerMinute = defaults.Assistant.RequestsPerMinute
	}

	if c.Render.KrokiURL == "" {
		c.Render.KrokiURL = defaults.Render.KrokiURL
	}
	if c.Render.Theme == "" {
		c.Render.Theme = defaults.Render.Theme
	}
	if c.Render.TimeoutSecs == 0 {
		c.Render.TimeoutSecs = defaults.Render.TimeoutSecs
	}

	if c.Cache.TTLHours == 0 {
		c.Cache.TTLHours = defaults.Cache.TTLHours
	}
	if c.Cache.MaxEntries == 0 {
		c.Cache.MaxEntries = defaults.Cache.MaxEntries
	}

	if c.Library.AutosaveMs == 0 {
		c.Library.AutosaveMs = defaults.Library.AutosaveMs
	}

	if c.Export.PNGScale == 0 {
		c.Export.PNGScale = defaults.Export.PNGScale
	}
	if c.Export.HTMLTheme == "" {
		c.Export.HTMLTheme = defaults.Export.HTMLTheme
	}

	if c.UI.Theme == "" {
		c.UI.Theme = defaults.UI.Theme
	}
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides to the config.
//
// Supported environment variables:
//   - GEMINI_API_KEY: overrides assistant.api_key
//   - VELPRO_FLASH_MODEL: overrides assistant.flash_model
//   - VELPRO_PRO_MODEL: overrides assistant.pro_model
//   - VELPRO_KROKI_URL: overrides render.kroki_url
//   - VELPRO_THEME: overrides ui.theme
//   - VELPRO_FLOWS_DIR: overrides library.dir
//   - VELPRO_CACHE: set to "0" or "false" to disable the response cache
func (c *Config) ApplyEnvOverrides() {
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		c.Assistant.APIKey = key
	}
	if model := os.Getenv("VELPRO_FLASH_MODEL"); model != "" {
		c.Assistant.FlashModel = model
	}
	if model := os.Getenv("VELPRO_PRO_MODEL"); model != "" {
		c.Assistant.ProModel = model
	}
	if u := os.Getenv("VELPRO_KROKI_URL"); u != "" {
		c.Render.KrokiURL = u
	}
	if theme := os.Getenv("VELPRO_THEME"); theme != "" {
		c.UI.Theme = theme
	}
	if dir := os.Getenv("VELPRO_FLOWS_DIR"); dir != "" {
		c.Library.Dir = dir
	}
	if cache := os.Getenv("VELPRO_CACHE"); cache != "" {
		c.Cache.Enabled = cache != "0" && strings.ToLower(cache) != "false"
	}
}

// =============================================================================
// DERIVED VALUES
// =============================================================================

// AssistantTimeout returns the per-request timeout as a duration.
func (c *Config) AssistantTimeout() time.Duration {
	return time.Duration(c.Assistant.TimeoutSecs) * time.Second
}

// RenderTimeout returns the render timeout as a duration.
func (c *Config) RenderTimeout() time.Duration {
	return time.Duration(c.Render.TimeoutSecs) * time.Second
}

// CacheTTL returns the cache TTL as a duration.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Cache.TTLHours) * time.Hour
}

// AutosaveDebounce returns the library autosave debounce as a duration.
func (c *Config) AutosaveDebounce() time.Duration {
	return time.Duration(c.Library.AutosaveMs) * time.Millisecond
}
