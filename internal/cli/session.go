// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"log"
	"net/http"
	"os"
	"time"

	"github.com/jeranaias/quill-tui/internal/auth"
	"github.com/jeranaias/quill-tui/internal/config"
	"github.com/jeranaias/quill-tui/internal/controller"
	"github.com/jeranaias/quill-tui/internal/storage"
	"github.com/jeranaias/quill-tui/internal/transcript"
)

// =============================================================================
// WIRING
// =============================================================================

// BuildProvider constructs the auth provider for outgoing requests.
// A stored token is only recoverable when the keystore passphrase is
// available (QUILL_KEYSTORE_PASS); otherwise requests go out anonymous
// until the user logs in.
func BuildProvider(cfg *config.Config) auth.Provider {
	if !cfg.Auth.Enabled {
		return auth.NullProvider{}
	}

	passphrase := os.Getenv("QUILL_KEYSTORE_PASS")
	if passphrase == "" {
		return auth.NullProvider{}
	}

	ks, err := auth.NewKeystore(cfg.Auth.KeystorePath, passphrase)
	if err != nil {
		log.Printf("CLI | keystore unavailable: %v", err)
		return auth.NullProvider{}
	}
	return auth.NewTokenProvider(cfg.API.BaseURL, &http.Client{Timeout: 30 * time.Second}, ks)
}

// BuildController wires the chat client, transcript, and controller
// from the effective config. The returned store is nil when
// persistence is disabled.
func BuildController(cfg *config.Config, args Args) (*controller.Controller, *storage.Store, error) {
	if args.Server != "" {
		cfg.API.BaseURL = args.Server
	}

	client := controller.NewClient(controller.ClientConfig{
		BaseURL:        cfg.API.BaseURL,
		StreamPath:     cfg.API.StreamPath,
		ChatPath:       cfg.API.ChatPath,
		RequestTimeout: time.Duration(cfg.API.RequestTimeoutSecs) * time.Second,
		ConnectTimeout: time.Duration(cfg.API.ConnectTimeoutSecs) * time.Second,
	}, BuildProvider(cfg))

	streaming := cfg.API.Streaming && !args.NoStream

	var store *storage.Store
	if cfg.Storage.Enabled {
		path := cfg.Storage.Path
		if path == "" {
			var err error
			path, err = storage.DefaultPath()
			if err != nil {
				return nil, nil, err
			}
		}
		var err error
		store, err = storage.Open(path, cfg.Storage.MaxSessions)
		if err != nil {
			return nil, nil, err
		}
	}

	ctrl := controller.New(client, transcript.NewSession(), controller.Config{
		Streaming:         streaming,
		RequestsPerMinute: cfg.Rate.RequestsPerMinute,
		Burst:             cfg.Rate.Burst,
	})
	return ctrl, store, nil
}
