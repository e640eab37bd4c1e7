// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"
	"testing"

	"github.com/jeranaias/quill-tui/internal/ui/styles"
)

func TestCodeBlockRenderSettled(t *testing.T) {
	theme := styles.NewTheme("dark")
	cb := NewCodeBlock("go", "package main\n\nfunc main() {}\n")
	out := cb.Render(theme)

	if !strings.Contains(out, "go") {
		t.Error("language badge missing")
	}
	if !strings.Contains(out, "main") {
		t.Error("code content missing")
	}
}

func TestCodeBlockRenderProvisional(t *testing.T) {
	theme := styles.NewTheme("dark")
	cb := NewCodeBlock("python", "def half_typed(")
	cb.Provisional = true
	out := cb.Render(theme)

	if !strings.Contains(out, "def half_typed(") {
		t.Error("provisional code content missing")
	}
	if !strings.Contains(out, "…") {
		t.Error("typing indicator missing on provisional block")
	}
}

func TestDetectLanguage(t *testing.T) {
	lang := detectLanguage("package main\n\nimport \"fmt\"\n\nfunc main() { fmt.Println() }")
	if lang == "" {
		t.Error("expected Go source to be detected")
	}
}

func TestMarkdownRendererFallsBackOnRaw(t *testing.T) {
	md, err := NewMarkdownRenderer(true, 60)
	if err != nil {
		t.Fatalf("NewMarkdownRenderer failed: %v", err)
	}
	out := md.Render("plain **bold** text")
	if out == "" {
		t.Error("render produced no output")
	}
}
