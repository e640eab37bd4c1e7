// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

// TestConfig_ConcurrentAccess tests that Global(), SetGlobal(), and ReloadGlobal()
// can be safely called concurrently without race conditions.
// Run with: go test -race -v ./internal/config/
func TestConfig_ConcurrentAccess(t *testing.T) {
	ResetGlobalForTesting()

	var wg sync.WaitGroup

	// 50 writers using SetGlobal, 50 readers using Global
	for i := 0; i < 50; i++ {
		wg.Add(2)

		go func() {
			defer wg.Done()
			c := Default()
			c.Version = "test"
			SetGlobal(c)
		}()

		go func() {
			defer wg.Done()
			cfg := Global()
			if cfg == nil {
				t.Error("Global() returned nil")
			}
		}()
	}

	wg.Wait()
}

// TestConfig_GlobalInitialization tests that Global() properly initializes
// the config on first access.
func TestConfig_GlobalInitialization(t *testing.T) {
	ResetGlobalForTesting()

	cfg := Global()
	if cfg == nil {
		t.Fatal("Global() returned nil")
	}

	if cfg.Version == "" {
		t.Error("Config version should not be empty")
	}
	if cfg.API.StreamPath == "" {
		t.Error("Stream path should not be empty")
	}
}

func TestDefaultValidates(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Errorf("default config must validate: %v", err)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad base url", func(c *Config) { c.API.BaseURL = "not a url" }},
		{"relative stream path", func(c *Config) { c.API.StreamPath = "api/chat/stream" }},
		{"negative timeout", func(c *Config) { c.API.RequestTimeoutSecs = -1 }},
		{"settle delay too large", func(c *Config) { c.Render.SettleDelayMs = 10000 }},
		{"negative rate", func(c *Config) { c.Rate.RequestsPerMinute = -5 }},
		{"bad theme", func(c *Config) { c.UI.Theme = "solarized" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error, got nil")
			}
		})
	}
}

func TestLoadFromPathTOML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	content := `
[api]
base_url = "https://chat.example.com"
streaming = true

[render]
settle_delay_ms = 500

[ui]
theme = "light"
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath failed: %v", err)
	}

	if cfg.API.BaseURL != "https://chat.example.com" {
		t.Errorf("base_url not loaded: %q", cfg.API.BaseURL)
	}
	if cfg.Render.SettleDelayMs != 500 {
		t.Errorf("settle_delay_ms not loaded: %d", cfg.Render.SettleDelayMs)
	}
	if cfg.UI.Theme != "light" {
		t.Errorf("theme not loaded: %q", cfg.UI.Theme)
	}
	// Unset fields fall back to defaults.
	if cfg.API.StreamPath != "/api/chat/stream" {
		t.Errorf("default stream path missing: %q", cfg.API.StreamPath)
	}
}

func TestLoadFromPathJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")

	content := `{"api": {"base_url": "http://localhost:9999"}, "ui": {"theme": "dark"}}`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath failed: %v", err)
	}
	if cfg.API.BaseURL != "http://localhost:9999" {
		t.Errorf("base_url not loaded: %q", cfg.API.BaseURL)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("QUILL_API_URL", "http://override:1234")
	t.Setenv("QUILL_STREAMING", "false")
	t.Setenv("QUILL_THEME", "light")

	cfg := Default()
	cfg.ApplyEnvOverrides()

	if cfg.API.BaseURL != "http://override:1234" {
		t.Errorf("QUILL_API_URL not applied: %q", cfg.API.BaseURL)
	}
	if cfg.API.Streaming {
		t.Error("QUILL_STREAMING=false not applied")
	}
	if cfg.UI.Theme != "light" {
		t.Errorf("QUILL_THEME not applied: %q", cfg.UI.Theme)
	}
}

func TestGetSetDotNotation(t *testing.T) {
	cfg := Default()

	if err := cfg.Set("ui.theme", "light"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	got, err := cfg.Get("ui.theme")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got != "light" {
		t.Errorf("expected 'light', got %v", got)
	}

	// String to int conversion.
	if err := cfg.Set("render.settle_delay_ms", "400"); err != nil {
		t.Fatalf("Set int failed: %v", err)
	}
	got, _ = cfg.Get("render.settle_delay_ms")
	if got != 400 {
		t.Errorf("expected 400, got %v", got)
	}

	if _, err := cfg.Get("no.such.key"); err == nil {
		t.Error("expected error for unknown key")
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	cfg := Default()
	cfg.API.BaseURL = "https://round.trip"
	cfg.UI.VimMode = true

	if err := SaveTOML(cfg, path); err != nil {
		t.Fatalf("SaveTOML failed: %v", err)
	}

	loaded, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath failed: %v", err)
	}
	if loaded.API.BaseURL != cfg.API.BaseURL {
		t.Errorf("base_url lost in round trip: %q", loaded.API.BaseURL)
	}
	if !loaded.UI.VimMode {
		t.Error("vim_mode lost in round trip")
	}

	// SECURITY: saved config must be owner-only.
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("config file permissions should be 0600, got %o", perm)
	}
}

func TestStringRedactsCredentials(t *testing.T) {
	cfg := Default()
	cfg.Auth.Username = "alice@example.com"

	s := cfg.String()
	if strings.Contains(s, "alice@example.com") {
		t.Error("String() leaked the username")
	}
	if !strings.Contains(s, "[REDACTED]") {
		t.Error("String() should mark redacted fields")
	}
}
