// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package auth provides optional login and bearer-token management for
// the chat backend. When no provider is configured, or a provider holds
// no token, requests are simply sent unauthenticated.
package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"sync"
	"time"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrNotLoggedIn indicates no valid token is held.
	ErrNotLoggedIn = errors.New("not logged in")

	// ErrLoginFailed indicates the backend rejected the credentials.
	ErrLoginFailed = errors.New("login failed")

	// ErrTOTPRequired indicates the backend wants a one-time code.
	ErrTOTPRequired = errors.New("one-time code required")
)

// =============================================================================
// PROVIDER INTERFACE
// =============================================================================

// Credentials carries everything a login attempt needs. TOTPCode may be
// empty when the account has no second factor enrolled.
type Credentials struct {
	Username string
	Password string
	TOTPCode string
}

// Provider supplies bearer tokens for backend requests.
type Provider interface {
	// Login exchanges credentials for a token.
	Login(ctx context.Context, creds Credentials) error

	// Logout discards the held token.
	Logout() error

	// AccessToken returns the current token. ok is false when no token
	// is held; callers then proceed unauthenticated.
	AccessToken() (token string, ok bool)
}

// =============================================================================
// NULL PROVIDER
// =============================================================================

// NullProvider never holds a token. Used when auth is disabled.
type NullProvider struct{}

func (NullProvider) Login(context.Context, Credentials) error { return errors.New("auth disabled") }
func (NullProvider) Logout() error                            { return nil }
func (NullProvider) AccessToken() (string, bool)              { return "", false }

// =============================================================================
// TOKEN PROVIDER
// =============================================================================

// tokenRecord is the persisted shape of a login result.
type tokenRecord struct {
	Token     string    `json:"token"`
	Username  string    `json:"username"`
	ExpiresAt time.Time `json:"expires_at,omitempty"`
}

// TokenProvider logs in against the backend's /api/auth/login endpoint
// and keeps the resulting token in an encrypted keystore so a restart
// does not force a fresh login.
type TokenProvider struct {
	baseURL  string
	client   *http.Client
	keystore *Keystore

	mu    sync.RWMutex
	token tokenRecord
}

// NewTokenProvider creates a provider. keystore may be nil, in which
// case tokens live only for the process lifetime.
func NewTokenProvider(baseURL string, client *http.Client, keystore *Keystore) *TokenProvider {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	p := &TokenProvider{
		baseURL:  baseURL,
		client:   client,
		keystore: keystore,
	}
	p.restore()
	return p
}

// restore loads a previously stored token, ignoring errors: a missing
// or unreadable keystore just means the user logs in again.
func (p *TokenProvider) restore() {
	if p.keystore == nil {
		return
	}
	data, err := p.keystore.Retrieve()
	if err != nil {
		return
	}
	var rec tokenRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		log.Printf("AUTH | discarding corrupt token record: %v", err)
		return
	}
	if !rec.ExpiresAt.IsZero() && time.Now().After(rec.ExpiresAt) {
		return
	}
	p.token = rec
}

// Login posts credentials to the backend and stores the issued token.
func (p *TokenProvider) Login(ctx context.Context, creds Credentials) error {
	body, err := json.Marshal(map[string]string{
		"username":  creds.Username,
		"password":  creds.Password,
		"totp_code": creds.TOTPCode,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/api/auth/login", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("login request: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		// fall through
	case http.StatusUnauthorized:
		return ErrLoginFailed
	case http.StatusPreconditionRequired:
		return ErrTOTPRequired
	default:
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("login: unexpected status %d", resp.StatusCode)
	}

	var result struct {
		Token     string    `json:"token"`
		ExpiresAt time.Time `json:"expires_at"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("login response: %w", err)
	}
	if result.Token == "" {
		return ErrLoginFailed
	}

	rec := tokenRecord{
		Token:     result.Token,
		Username:  creds.Username,
		ExpiresAt: result.ExpiresAt,
	}

	p.mu.Lock()
	p.token = rec
	p.mu.Unlock()

	if p.keystore != nil {
		data, _ := json.Marshal(rec)
		if err := p.keystore.Store(data); err != nil {
			log.Printf("AUTH | token not persisted: %v", err)
		}
	}

	log.Printf("AUTH | logged in user=%s", creds.Username)
	return nil
}

// Logout discards the token in memory and on disk.
func (p *TokenProvider) Logout() error {
	p.mu.Lock()
	p.token = tokenRecord{}
	p.mu.Unlock()

	if p.keystore != nil {
		if err := p.keystore.Delete(); err != nil {
			return fmt.Errorf("clear keystore: %w", err)
		}
	}
	log.Printf("AUTH | logged out")
	return nil
}

// AccessToken returns the held token unless it is absent or expired.
func (p *TokenProvider) AccessToken() (string, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.token.Token == "" {
		return "", false
	}
	if !p.token.ExpiresAt.IsZero() && time.Now().After(p.token.ExpiresAt) {
		return "", false
	}
	return p.token.Token, true
}

// Username returns the identity of the held token, if any.
func (p *TokenProvider) Username() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.token.Username
}
