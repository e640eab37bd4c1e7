// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

//go:build !windows
// +build !windows

package auth

import (
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

// checkOwnerOnly verifies the keystore file and its directory are owned
// by the current user with no group/world access. A keystore readable
// by others is refused outright rather than silently repaired, since
// the token may already be disclosed.
func (k *Keystore) checkOwnerOnly() error {
	var st unix.Stat_t
	if err := unix.Stat(k.path, &st); err != nil {
		if os.IsNotExist(err) || err == unix.ENOENT {
			return nil
		}
		return fmt.Errorf("failed to stat keystore: %w", err)
	}

	if int(st.Uid) != os.Geteuid() {
		return fmt.Errorf("keystore %s not owned by current user (uid %d)", k.path, st.Uid)
	}
	if st.Mode&0077 != 0 {
		return fmt.Errorf("keystore has insecure permissions (%o), fix with: chmod 600 %s",
			st.Mode&0777, k.path)
	}

	dir := filepath.Dir(k.path)
	var dst unix.Stat_t
	if err := unix.Stat(dir, &dst); err != nil {
		return fmt.Errorf("failed to stat keystore directory: %w", err)
	}
	if dst.Mode&0077 != 0 {
		return fmt.Errorf("keystore directory has insecure permissions (%o), fix with: chmod 700 %s",
			dst.Mode&0777, dir)
	}

	return nil
}
