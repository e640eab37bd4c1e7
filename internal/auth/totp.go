// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package auth

import (
	"errors"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

// TOTPIssuer is the issuer string shown in authenticator apps.
const TOTPIssuer = "quill"

// GenerateTOTPSecret enrolls a new TOTP secret for the given account.
// Returns the secret (for keystore storage) and the otpauth:// URL for
// QR display.
func GenerateTOTPSecret(account string) (secret, url string, err error) {
	if account == "" {
		return "", "", errors.New("account name required")
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      TOTPIssuer,
		AccountName: account,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return "", "", err
	}
	return key.Secret(), key.URL(), nil
}

// ValidateTOTP checks a one-time code against a stored secret.
func ValidateTOTP(code, secret string) bool {
	if code == "" || secret == "" {
		return false
	}
	return totp.Validate(code, secret)
}
