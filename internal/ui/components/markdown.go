// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/charmbracelet/glamour"
)

// =============================================================================
// MARKDOWN RENDERER
// =============================================================================

// MarkdownRenderer renders prose paragraphs with inline Markdown markup
// (bold, italic, inline code, links). The glamour renderer is rebuilt
// only when the wrap width or theme changes.
type MarkdownRenderer struct {
	renderer *glamour.TermRenderer
	width    int
	dark     bool
}

// NewMarkdownRenderer creates a renderer for the given theme and width.
func NewMarkdownRenderer(dark bool, width int) (*MarkdownRenderer, error) {
	m := &MarkdownRenderer{dark: dark}
	if err := m.rebuild(width); err != nil {
		return nil, err
	}
	return m, nil
}

// rebuild replaces the underlying glamour renderer.
func (m *MarkdownRenderer) rebuild(width int) error {
	if width < 20 {
		width = 20
	}
	styleName := "light"
	if m.dark {
		styleName = "dark"
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(styleName),
		glamour.WithWordWrap(width),
		glamour.WithEmoji(),
	)
	if err != nil {
		return err
	}
	m.renderer = r
	m.width = width
	return nil
}

// SetWidth adjusts the wrap width, rebuilding the renderer if needed.
func (m *MarkdownRenderer) SetWidth(width int) error {
	if width == m.width {
		return nil
	}
	return m.rebuild(width)
}

// Render renders markdown prose. On renderer failure the raw text is
// returned so content is never dropped.
func (m *MarkdownRenderer) Render(text string) string {
	if m.renderer == nil {
		return text
	}
	out, err := m.renderer.Render(text)
	if err != nil {
		return text
	}
	// Glamour pads with blank lines top and bottom; the message layout
	// handles its own spacing.
	return strings.Trim(out, "\n")
}
