// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

//go:build windows
// +build windows

package auth

// checkOwnerOnly is a no-op on Windows: NTFS ACLs do not map onto the
// Unix permission bits this check relies on, and the profile directory
// is already user-scoped.
func (k *Keystore) checkOwnerOnly() error {
	return nil
}
