// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides unified configuration loading and management for quill.
//
// Supports both TOML and JSON configuration formats, with sensible defaults,
// environment variable overrides, and validation.
//
// # Key Types
//
//   - Config: Main configuration structure with all settings
//   - APIConfig: Backend endpoint and transport selection
//   - RenderConfig: Renderer tuning (settle delay, syntax theme)
//   - AuthConfig: Login and keystore settings
//   - Watcher: Live reload on config file changes
//
// # Configuration Precedence
//
// Configuration is loaded from (in order of precedence):
//   - Environment variables (QUILL_*)
//   - ~/.quill/config.toml
//   - ~/.quill/config.json
//   - Built-in defaults
//
// # Usage
//
// Load configuration:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// Access settings:
//
//	url := cfg.API.BaseURL
//	delay := cfg.Render.SettleDelayMs
package config
