// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import "testing"

func TestNewTheme(t *testing.T) {
	theme := NewTheme("auto")
	if theme == nil {
		t.Fatal("NewTheme returned nil")
	}
	// Styles render without panicking even before a size is set.
	if out := theme.Header.Render("quill"); out == "" {
		t.Error("header style produced no output")
	}
}

func TestThemePreferenceOverridesDetection(t *testing.T) {
	if !NewTheme("dark").IsDark {
		t.Error("dark preference must force a dark theme")
	}
	if NewTheme("light").IsDark {
		t.Error("light preference must force a light theme")
	}
}

func TestContentWidthFloor(t *testing.T) {
	theme := NewTheme("dark")
	theme.SetSize(10, 5)
	if w := theme.ContentWidth(); w < 20 {
		t.Errorf("content width must be floored at 20, got %d", w)
	}
	theme.SetSize(120, 40)
	if w := theme.ContentWidth(); w != 118 {
		t.Errorf("expected 118, got %d", w)
	}
}
