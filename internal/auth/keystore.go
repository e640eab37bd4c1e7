// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package auth

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/crypto/pbkdf2"

	"github.com/jeranaias/quill-tui/internal/util"
)

// =============================================================================
// CONSTANTS
// =============================================================================

const (
	// NonceSize is the AES-GCM nonce size (12 bytes / 96 bits).
	NonceSize = 12

	// KeySize is the AES-256 key size.
	KeySize = 32

	// SaltSize is the key-derivation salt size.
	SaltSize = 32

	// PBKDF2Iterations follows OWASP guidance for PBKDF2-SHA-256.
	PBKDF2Iterations = 600000
)

var (
	// ErrNoKeystore indicates no keystore file exists yet.
	ErrNoKeystore = errors.New("keystore not found")

	// ErrKeystoreCorrupt indicates the file is too short or tampered.
	ErrKeystoreCorrupt = errors.New("keystore corrupt or tampered")
)

// ZeroBytes securely zeros sensitive byte slices.
// SECURITY: Zero key material to prevent memory disclosure via crash dumps.
func ZeroBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// =============================================================================
// KEYSTORE
// =============================================================================

// Keystore stores one small secret (the auth token record) encrypted at
// rest with AES-256-GCM. The key is derived with PBKDF2-SHA-256 from a
// passphrase and a per-keystore random salt stored alongside the
// ciphertext.
//
// File layout: salt(32) | nonce(12) | ciphertext+tag.
type Keystore struct {
	path       string
	passphrase string
}

// NewKeystore creates a keystore at path. An empty path selects the
// default location under ~/.quill.
func NewKeystore(path, passphrase string) (*Keystore, error) {
	if path == "" {
		var err error
		path, err = defaultKeystorePath()
		if err != nil {
			return nil, err
		}
	}
	if passphrase == "" {
		return nil, errors.New("keystore passphrase required")
	}
	return &Keystore{path: path, passphrase: passphrase}, nil
}

// defaultKeystorePath returns ~/.quill/keystore.bin.
func defaultKeystorePath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".quill", "keystore.bin"), nil
}

// DeriveKey derives an AES-256 key from a passphrase and salt.
func DeriveKey(passphrase string, salt []byte) []byte {
	return pbkdf2.Key([]byte(passphrase), salt, PBKDF2Iterations, KeySize, sha256.New)
}

// Store encrypts and writes the secret.
// RELIABILITY: Atomic write with fsync prevents data loss on crash.
func (k *Keystore) Store(secret []byte) error {
	dir := filepath.Dir(k.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create keystore directory: %w", err)
	}

	salt := make([]byte, SaltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return fmt.Errorf("salt generation: %w", err)
	}

	key := DeriveKey(k.passphrase, salt)
	defer ZeroBytes(key)

	aead, err := newAEAD(key)
	if err != nil {
		return err
	}

	nonce := make([]byte, NonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return fmt.Errorf("nonce generation: %w", err)
	}

	out := make([]byte, 0, SaltSize+NonceSize+len(secret)+aead.Overhead())
	out = append(out, salt...)
	out = append(out, nonce...)
	out = aead.Seal(out, nonce, secret, nil)

	if err := util.AtomicWriteFile(k.path, out, 0600); err != nil {
		return fmt.Errorf("failed to write keystore: %w", err)
	}

	return k.checkOwnerOnly()
}

// Retrieve reads and decrypts the secret.
func (k *Keystore) Retrieve() ([]byte, error) {
	if err := k.checkOwnerOnly(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(k.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoKeystore
		}
		return nil, fmt.Errorf("failed to read keystore: %w", err)
	}

	if len(data) < SaltSize+NonceSize+1 {
		return nil, ErrKeystoreCorrupt
	}

	salt := data[:SaltSize]
	nonce := data[SaltSize : SaltSize+NonceSize]
	ciphertext := data[SaltSize+NonceSize:]

	key := DeriveKey(k.passphrase, salt)
	defer ZeroBytes(key)

	aead, err := newAEAD(key)
	if err != nil {
		return nil, err
	}

	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrKeystoreCorrupt
	}
	return plaintext, nil
}

// Delete removes the keystore file.
func (k *Keystore) Delete() error {
	if err := os.Remove(k.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete keystore: %w", err)
	}
	return nil
}

// Exists reports whether a keystore file is present.
func (k *Keystore) Exists() bool {
	_, err := os.Stat(k.path)
	return err == nil
}

// newAEAD builds an AES-256-GCM cipher from a derived key.
func newAEAD(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("cipher init: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("gcm init: %w", err)
	}
	return aead, nil
}
