// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/term"

	"github.com/jeranaias/quill-tui/internal/auth"
	"github.com/jeranaias/quill-tui/internal/config"
)

// =============================================================================
// LOGIN / LOGOUT
// =============================================================================

// HandleLogin prompts for credentials, authenticates against the
// backend, and stores the issued token in the encrypted keystore. The
// login password doubles as the keystore passphrase, so a later restore
// only needs QUILL_KEYSTORE_PASS.
func HandleLogin(args Args) error {
	if !IsTTY() {
		return errors.New("login requires an interactive terminal")
	}

	cfg := config.Global()
	if args.Server != "" {
		cfg.API.BaseURL = args.Server
	}

	username := cfg.Auth.Username
	if username == "" {
		var err error
		username, err = promptLine("Username: ")
		if err != nil {
			return err
		}
	} else {
		fmt.Printf("Username: %s\n", username)
	}
	if username == "" {
		return errors.New("username is required")
	}

	password, err := promptPassword("Password: ")
	if err != nil {
		return err
	}
	if password == "" {
		return errors.New("password is required")
	}

	ks, err := auth.NewKeystore(cfg.Auth.KeystorePath, password)
	if err != nil {
		return err
	}
	provider := auth.NewTokenProvider(cfg.API.BaseURL, &http.Client{Timeout: 30 * time.Second}, ks)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	creds := auth.Credentials{Username: username, Password: password}
	err = provider.Login(ctx, creds)
	if errors.Is(err, auth.ErrTOTPRequired) {
		creds.TOTPCode, err = promptLine("One-time code: ")
		if err != nil {
			return err
		}
		err = provider.Login(ctx, creds)
	}
	if err != nil {
		return err
	}

	fmt.Printf("Logged in as %s.\n", username)
	if os.Getenv("QUILL_KEYSTORE_PASS") == "" {
		fmt.Println("Set QUILL_KEYSTORE_PASS to your password so quill can reuse the token.")
	}
	return nil
}

// HandleLogout discards the stored token.
func HandleLogout(args Args) error {
	cfg := config.Global()

	ks, err := auth.NewKeystore(cfg.Auth.KeystorePath, "unused")
	if err != nil {
		return err
	}
	if !ks.Exists() {
		fmt.Println("No stored token.")
		return nil
	}
	if err := ks.Delete(); err != nil {
		return err
	}
	fmt.Println("Logged out.")
	return nil
}

// =============================================================================
// PROMPTS
// =============================================================================

func promptLine(prompt string) (string, error) {
	fmt.Print(prompt)
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func promptPassword(prompt string) (string, error) {
	fmt.Print(prompt)
	pw, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return "", err
	}
	defer auth.ZeroBytes(pw)
	return string(pw), nil
}
