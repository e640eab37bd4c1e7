// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides unified configuration loading and management for quill.
//
// Supports both TOML and JSON configuration formats, with sensible defaults,
// environment variable overrides, and validation.
//
// Configuration file locations (in order of precedence):
//   - ~/.quill/config.toml
//   - ~/.quill/config.json
//   - Built-in defaults
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"
	"github.com/jeranaias/quill-tui/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete quill configuration.
type Config struct {
	// General settings
	Version string `toml:"version" json:"version"`

	// API endpoint configuration
	API APIConfig `toml:"api" json:"api"`

	// Rendering configuration
	Render RenderConfig `toml:"render" json:"render"`

	// Authentication configuration
	Auth AuthConfig `toml:"auth" json:"auth"`

	// Rate limiting configuration
	Rate RateConfig `toml:"rate" json:"rate"`

	// Local history storage configuration
	Storage StorageConfig `toml:"storage" json:"storage"`

	// UI configuration
	UI UIConfig `toml:"ui" json:"ui"`
}

// APIConfig contains backend endpoint configuration.
type APIConfig struct {
	// BaseURL is the chat backend base URL
	BaseURL string `toml:"base_url" json:"base_url"`
	// StreamPath is the streaming chat endpoint path
	StreamPath string `toml:"stream_path" json:"stream_path"`
	// ChatPath is the non-streaming fallback endpoint path
	ChatPath string `toml:"chat_path" json:"chat_path"`
	// Streaming selects the streaming endpoint; when false every message
	// goes through the single-response fallback
	Streaming bool `toml:"streaming" json:"streaming"`
	// RequestTimeoutSecs bounds a whole non-streaming request
	RequestTimeoutSecs int `toml:"request_timeout_secs" json:"request_timeout_secs"`
	// ConnectTimeoutSecs bounds dialing and the wait for the first byte
	ConnectTimeoutSecs int `toml:"connect_timeout_secs" json:"connect_timeout_secs"`
}

// RenderConfig contains renderer tuning.
type RenderConfig struct {
	// SettleDelayMs is how long after a turn ends an unclosed code block
	// stays in its raw provisional form before full formatting
	SettleDelayMs int `toml:"settle_delay_ms" json:"settle_delay_ms"`
	// SyntaxTheme is the chroma style used for settled code blocks
	SyntaxTheme string `toml:"syntax_theme" json:"syntax_theme"`
	// HTMLPreview frames settled html blocks as an embedded-page preview
	// instead of plain code
	HTMLPreview bool `toml:"html_preview" json:"html_preview"`
}

// AuthConfig contains authentication configuration.
type AuthConfig struct {
	// Enabled turns on login and bearer-token requests. When false every
	// request is sent unauthenticated.
	Enabled bool `toml:"enabled" json:"enabled"`
	// Username is the default login identity
	Username string `toml:"username" json:"username"`
	// TOTPRequired requires a one-time code at login
	TOTPRequired bool `toml:"totp_required" json:"totp_required"`
	// KeystorePath overrides the credential keystore location
	// (empty = ~/.quill/keystore.bin)
	KeystorePath string `toml:"keystore_path" json:"keystore_path"`
}

// RateConfig contains outbound request rate limiting.
type RateConfig struct {
	// RequestsPerMinute caps how many messages can be sent per minute
	// (0 = unlimited)
	RequestsPerMinute int `toml:"requests_per_minute" json:"requests_per_minute"`
	// Burst is the short-term burst allowance
	Burst int `toml:"burst" json:"burst"`
}

// StorageConfig contains conversation persistence configuration.
type StorageConfig struct {
	// Enabled controls whether sessions are persisted at all
	Enabled bool `toml:"enabled" json:"enabled"`
	// Path is the sqlite database location (empty = ~/.quill/history.db)
	Path string `toml:"path" json:"path"`
	// MaxSessions caps stored sessions; oldest are pruned past the cap
	// (0 = unlimited)
	MaxSessions int `toml:"max_sessions" json:"max_sessions"`
}

// UIConfig contains UI configuration.
type UIConfig struct {
	// Theme is the UI theme: "dark", "light", "auto"
	Theme string `toml:"theme" json:"theme"`
	// ShowReasoning displays reasoning annotations under replies
	ShowReasoning bool `toml:"show_reasoning" json:"show_reasoning"`
	// ShowToolCalls displays tool invocation annotations under replies
	ShowToolCalls bool `toml:"show_tool_calls" json:"show_tool_calls"`
	// CompactMode uses a more compact UI layout
	CompactMode bool `toml:"compact_mode" json:"compact_mode"`
	// VimMode enables vim-style scroll bindings in the TUI
	VimMode bool `toml:"vim_mode" json:"vim_mode"`
}

// =============================================================================
// DEFAULT CONFIGURATION
// =============================================================================

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Version: "1.0.0",

		API: APIConfig{
			BaseURL:            "http://127.0.0.1:8080",
			StreamPath:         "/api/chat/stream",
			ChatPath:           "/api/chat",
			Streaming:          true,
			RequestTimeoutSecs: 120,
			ConnectTimeoutSecs: 10,
		},

		Render: RenderConfig{
			SettleDelayMs: 250,
			SyntaxTheme:   "monokai",
			HTMLPreview:   true,
		},

		Auth: AuthConfig{
			Enabled:      false,
			TOTPRequired: false,
		},

		Rate: RateConfig{
			RequestsPerMinute: 30,
			Burst:             5,
		},

		Storage: StorageConfig{
			Enabled:     true,
			MaxSessions: 200,
		},

		UI: UIConfig{
			Theme:         "dark",
			ShowReasoning: true,
			ShowToolCalls: true,
			CompactMode:   false,
			VimMode:       false,
		},
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the quill configuration directory path.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".quill"), nil
}

// ConfigPathTOML returns the path to the TOML config file.
func ConfigPathTOML() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// ConfigPathJSON returns the path to the JSON config file.
func ConfigPathJSON() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// EnsureConfigDir ensures the config directory exists.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0755)
}

// ensureSecurePermissions checks and fixes permissions on config files.
// SECURITY: Config files should be 0600 (owner read/write only).
func ensureSecurePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}

	mode := info.Mode().Perm()
	if mode != 0600 {
		if err := os.Chmod(path, 0600); err != nil {
			return fmt.Errorf("failed to fix insecure permissions (was %o): %w", mode, err)
		}
	}

	return nil
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load loads configuration from the config file(s).
// Tries TOML first, then JSON, and falls back to defaults.
// Environment overrides are applied last.
func Load() (*Config, error) {
	cfg := Default()
	var loadErr error

	// Try TOML first
	tomlPath, err := ConfigPathTOML()
	if err == nil {
		if _, statErr := os.Stat(tomlPath); statErr == nil {
			if err := LoadTOML(cfg, tomlPath); err != nil {
				loadErr = fmt.Errorf("failed to load TOML config: %w", err)
			} else {
				return finishLoad(cfg)
			}
		}
	}

	// Try JSON as fallback
	jsonPath, err := ConfigPathJSON()
	if err == nil {
		if _, statErr := os.Stat(jsonPath); statErr == nil {
			if err := LoadJSON(cfg, jsonPath); err != nil {
				loadErr = fmt.Errorf("failed to load JSON config: %w", err)
			} else {
				return finishLoad(cfg)
			}
		}
	}

	// Return defaults (with any load error for informational purposes)
	cfg, err = finishLoad(cfg)
	if err != nil {
		return nil, err
	}
	return cfg, loadErr
}

// finishLoad applies env overrides, defaults, and validation.
func finishLoad(cfg *Config) (*Config, error) {
	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadTOML loads configuration from a TOML file.
// SECURITY: Checks and fixes file permissions on load.
func LoadTOML(cfg *Config, path string) error {
	if err := ensureSecurePermissions(path); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}

	_, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	return nil
}

// LoadJSON loads configuration from a JSON file.
// SECURITY: Checks and fixes file permissions on load.
func LoadJSON(cfg *Config, path string) error {
	if err := ensureSecurePermissions(path); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read JSON file: %w", err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to decode JSON file: %w", err)
	}
	return nil
}

// LoadFromPath loads configuration from a specific file path with full validation.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	if strings.HasSuffix(path, ".json") {
		if err := LoadJSON(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load JSON config from %s: %w", path, err)
		}
	} else {
		// Default to TOML
		if err := LoadTOML(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load TOML config from %s: %w", path, err)
		}
	}

	return finishLoad(cfg)
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save saves the configuration to the default TOML file.
func Save(cfg *Config) error {
	path, err := ConfigPathTOML()
	if err != nil {
		return err
	}
	return SaveTOML(cfg, path)
}

// SaveTOML saves the configuration to a TOML file.
// SECURITY: Creates config files with 0600 permissions (owner read/write only).
func SaveTOML(cfg *Config, path string) error {
	if err := EnsureConfigDir(); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer file.Close()

	// SECURITY: Ensure permissions are correct even if file already existed
	if err := os.Chmod(path, 0600); err != nil {
		return fmt.Errorf("failed to set config file permissions: %w", err)
	}

	// Write header comment
	fmt.Fprintln(file, "# quill configuration file")
	fmt.Fprintln(file, "# Generated by quill - edit with care")
	fmt.Fprintln(file, "")

	encoder := toml.NewEncoder(file)
	if err := encoder.Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	return nil
}

// SaveJSON saves the configuration to a JSON file.
// RELIABILITY: Atomic write with fsync prevents data loss on crash.
func SaveJSON(cfg *Config, path string) error {
	if err := EnsureConfigDir(); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := util.AtomicWriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
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

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	var errs ValidateErrors

	// Validate base URL
	if c.API.BaseURL != "" {
		u, err := url.Parse(c.API.BaseURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, ValidationError{
				Field:   "api.base_url",
				Message: fmt.Sprintf("invalid URL '%s'", c.API.BaseURL),
			})
		}
	}

	// Endpoint paths must be rooted
	if c.API.StreamPath != "" && !strings.HasPrefix(c.API.StreamPath, "/") {
		errs = append(errs, ValidationError{
			Field:   "api.stream_path",
			Message: fmt.Sprintf("must start with '/', got '%s'", c.API.StreamPath),
		})
	}
	if c.API.ChatPath != "" && !strings.HasPrefix(c.API.ChatPath, "/") {
		errs = append(errs, ValidationError{
			Field:   "api.chat_path",
			Message: fmt.Sprintf("must start with '/', got '%s'", c.API.ChatPath),
		})
	}

	// Validate timeouts
	if c.API.RequestTimeoutSecs < 0 {
		errs = append(errs, ValidationError{
			Field:   "api.request_timeout_secs",
			Message: "must be non-negative",
		})
	}
	if c.API.ConnectTimeoutSecs < 0 {
		errs = append(errs, ValidationError{
			Field:   "api.connect_timeout_secs",
			Message: "must be non-negative",
		})
	}

	// Validate settle delay (0 = use built-in default; cap at 5s so the
	// UI never appears frozen waiting to format)
	if c.Render.SettleDelayMs < 0 || c.Render.SettleDelayMs > 5000 {
		errs = append(errs, ValidationError{
			Field:   "render.settle_delay_ms",
			Message: fmt.Sprintf("must be 0-5000, got %d", c.Render.SettleDelayMs),
		})
	}

	// Validate rate limits
	if c.Rate.RequestsPerMinute < 0 {
		errs = append(errs, ValidationError{
			Field:   "rate.requests_per_minute",
			Message: "must be non-negative",
		})
	}
	if c.Rate.Burst < 0 {
		errs = append(errs, ValidationError{
			Field:   "rate.burst",
			Message: "must be non-negative",
		})
	}

	// Validate storage cap
	if c.Storage.MaxSessions < 0 {
		errs = append(errs, ValidationError{
			Field:   "storage.max_sessions",
			Message: "must be non-negative",
		})
	}

	// Validate UI theme
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

// SetDefaults sets default values for any missing or zero-value fields.
func (c *Config) SetDefaults() {
	defaults := Default()

	if c.Version == "" {
		c.Version = defaults.Version
	}

	// API defaults
	if c.API.BaseURL == "" {
		c.API.BaseURL = defaults.API.BaseURL
	}
	if c.API.StreamPath == "" {
		c.API.StreamPath = defaults.API.StreamPath
	}
	if c.API.ChatPath == "" {
		c.API.ChatPath = defaults.API.ChatPath
	}
	if c.API.RequestTimeoutSecs == 0 {
		c.API.RequestTimeoutSecs = defaults.API.RequestTimeoutSecs
	}
	if c.API.ConnectTimeoutSecs == 0 {
		c.API.ConnectTimeoutSecs = defaults.API.ConnectTimeoutSecs
	}

	// Render defaults
	if c.Render.SettleDelayMs == 0 {
		c.Render.SettleDelayMs = defaults.Render.SettleDelayMs
	}
	if c.Render.SyntaxTheme == "" {
		c.Render.SyntaxTheme = defaults.Render.SyntaxTheme
	}

	// Rate defaults
	if c.Rate.Burst == 0 && c.Rate.RequestsPerMinute > 0 {
		c.Rate.Burst = defaults.Rate.Burst
	}

	// Storage defaults
	if c.Storage.MaxSessions == 0 {
		c.Storage.MaxSessions = defaults.Storage.MaxSessions
	}

	// UI defaults
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
//   - QUILL_API_URL: overrides api.base_url
//   - QUILL_STREAMING: "1"/"true" or "0"/"false" to force the transport
//   - QUILL_AUTH: "1"/"true" to require login
//   - QUILL_USERNAME: overrides auth.username
//   - QUILL_DB: overrides storage.path
//   - QUILL_THEME: overrides ui.theme
func (c *Config) ApplyEnvOverrides() {
	if u := os.Getenv("QUILL_API_URL"); u != "" {
		c.API.BaseURL = u
	}

	if streaming := os.Getenv("QUILL_STREAMING"); streaming != "" {
		c.API.Streaming = streaming == "1" || strings.ToLower(streaming) == "true"
	}

	if auth := os.Getenv("QUILL_AUTH"); auth != "" {
		c.Auth.Enabled = auth == "1" || strings.ToLower(auth) == "true"
	}

	if user := os.Getenv("QUILL_USERNAME"); user != "" {
		c.Auth.Username = user
	}

	if db := os.Getenv("QUILL_DB"); db != "" {
		c.Storage.Path = db
	}

	if theme := os.Getenv("QUILL_THEME"); theme != "" {
		c.UI.Theme = theme
	}
}

// =============================================================================
// GET/SET HELPERS (DOT NOTATION)
// =============================================================================

// Get retrieves a configuration value using dot notation (e.g., "api.base_url").
func (c *Config) Get(key string) (interface{}, error) {
	parts := strings.Split(key, ".")
	if len(parts) == 0 {
		return nil, errors.New("empty key")
	}

	v := reflect.ValueOf(c).Elem()
	for i, part := range parts {
		fieldName := normalizeFieldName(part)

		field := v.FieldByNameFunc(func(name string) bool {
			return strings.EqualFold(name, fieldName)
		})

		if !field.IsValid() {
			return nil, fmt.Errorf("unknown field: %s", strings.Join(parts[:i+1], "."))
		}

		if i == len(parts)-1 {
			return field.Interface(), nil
		}

		if field.Kind() == reflect.Struct {
			v = field
		} else {
			return nil, fmt.Errorf("field '%s' is not a struct", strings.Join(parts[:i+1], "."))
		}
	}

	return nil, fmt.Errorf("invalid key: %s", key)
}

// Set sets a configuration value using dot notation (e.g., "ui.theme").
func (c *Config) Set(key string, value interface{}) error {
	parts := strings.Split(key, ".")
	if len(parts) == 0 {
		return errors.New("empty key")
	}

	v := reflect.ValueOf(c).Elem()
	for i, part := range parts {
		fieldName := normalizeFieldName(part)

		field := v.FieldByNameFunc(func(name string) bool {
			return strings.EqualFold(name, fieldName)
		})

		if !field.IsValid() {
			return fmt.Errorf("unknown field: %s", strings.Join(parts[:i+1], "."))
		}

		if i == len(parts)-1 {
			if !field.CanSet() {
				return fmt.Errorf("cannot set field: %s", key)
			}
			return setFieldValue(field, value)
		}

		if field.Kind() == reflect.Struct {
			v = field
		} else {
			return fmt.Errorf("field '%s' is not a struct", strings.Join(parts[:i+1], "."))
		}
	}

	return fmt.Errorf("invalid key: %s", key)
}

// normalizeFieldName converts a snake_case or kebab-case name to its Go field equivalent.
func normalizeFieldName(name string) string {
	parts := strings.FieldsFunc(name, func(r rune) bool {
		return r == '_' || r == '-'
	})

	var result strings.Builder
	for _, part := range parts {
		if len(part) > 0 {
			result.WriteString(strings.ToUpper(string(part[0])))
			result.WriteString(strings.ToLower(part[1:]))
		}
	}

	return result.String()
}

// setFieldValue sets a reflect.Value from an interface{} value with type conversion.
func setFieldValue(field reflect.Value, value interface{}) error {
	// Handle string input with type conversion
	if strVal, ok := value.(string); ok {
		switch field.Kind() {
		case reflect.String:
			field.SetString(strVal)
			return nil
		case reflect.Int, reflect.Int64:
			intVal, err := strconv.ParseInt(strVal, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid integer value: %v", err)
			}
			field.SetInt(intVal)
			return nil
		case reflect.Float64:
			floatVal, err := strconv.ParseFloat(strVal, 64)
			if err != nil {
				return fmt.Errorf("invalid float value: %v", err)
			}
			field.SetFloat(floatVal)
			return nil
		case reflect.Bool:
			boolVal := strVal == "1" || strings.ToLower(strVal) == "true" || strings.ToLower(strVal) == "yes"
			field.SetBool(boolVal)
			return nil
		}
	}

	// Direct assignment for matching types
	val := reflect.ValueOf(value)
	if val.Type().AssignableTo(field.Type()) {
		field.Set(val)
		return nil
	}

	// Type conversion for compatible types
	if val.Type().ConvertibleTo(field.Type()) {
		field.Set(val.Convert(field.Type()))
		return nil
	}

	return fmt.Errorf("cannot assign %T to %s", value, field.Type())
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// GetAllKeys returns all configuration keys in dot notation.
func GetAllKeys() []string {
	return []string{
		"version",
		"api.base_url",
		"api.stream_path",
		"api.chat_path",
		"api.streaming",
		"api.request_timeout_secs",
		"api.connect_timeout_secs",
		"render.settle_delay_ms",
		"render.syntax_theme",
		"render.html_preview",
		"auth.enabled",
		"auth.username",
		"auth.totp_required",
		"auth.keystore_path",
		"rate.requests_per_minute",
		"rate.burst",
		"storage.enabled",
		"storage.path",
		"storage.max_sessions",
		"ui.theme",
		"ui.show_reasoning",
		"ui.show_tool_calls",
		"ui.compact_mode",
		"ui.vim_mode",
	}
}

// Clone creates a copy of the configuration. All fields are value types
// so a struct copy is a full copy.
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}

// String returns a string representation of the config for debugging.
// SECURITY: Redacts credential fields to keep secrets out of logs.
func (c *Config) String() string {
	safe := c.Clone()

	if safe.Auth.Username != "" {
		safe.Auth.Username = "[REDACTED]"
	}

	data, _ := json.MarshalIndent(safe, "", "  ")
	return string(data)
}

// =============================================================================
// SINGLETON PATTERN (THREAD-SAFE)
// =============================================================================

var (
	globalConfig     *Config
	globalConfigOnce sync.Once
	globalConfigMu   sync.RWMutex
)

// Global returns the global configuration instance.
// Loads configuration on first access. Thread-safe.
func Global() *Config {
	globalConfigOnce.Do(func() {
		cfg, err := Load()
		if err != nil {
			// Log but don't fail - use defaults
			fmt.Fprintf(os.Stderr, "Warning: %v (using defaults)\n", err)
			cfg = Default()
		}
		globalConfig = cfg
	})

	globalConfigMu.RLock()
	defer globalConfigMu.RUnlock()
	return globalConfig
}

// ReloadGlobal reloads the global configuration from disk. Thread-safe.
func ReloadGlobal() error {
	cfg, err := Load()
	if err != nil {
		return err
	}
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = cfg
	return nil
}

// SetGlobal sets the global configuration instance. Thread-safe.
func SetGlobal(cfg *Config) {
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = cfg
}

// ResetGlobalForTesting resets the global config state for testing.
func ResetGlobalForTesting() {
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = nil
	globalConfigOnce = sync.Once{}
}
