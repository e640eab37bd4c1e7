// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/jeranaias/quill-tui/internal/render"
	"github.com/jeranaias/quill-tui/internal/transcript"
	"github.com/jeranaias/quill-tui/internal/ui/styles"
)

// =============================================================================
// MESSAGE RENDERER
// =============================================================================

// MessageRenderer turns transcript turns and their projected display
// blocks into styled terminal output.
type MessageRenderer struct {
	theme    *styles.Theme
	markdown *MarkdownRenderer
	width    int

	// ChromaStyle names the syntax highlighting style for code blocks.
	ChromaStyle string

	// ShowReasoning and ShowToolCalls control whether annotation lines
	// appear. The transcript keeps the items either way.
	ShowReasoning bool
	ShowToolCalls bool

	// HTMLPreview frames html blocks as an embedded-page preview; when
	// off they render as ordinary code.
	HTMLPreview bool

	// Compact drops the user bubble chrome for dense transcripts.
	Compact bool
}

// NewMessageRenderer creates a message renderer with annotations and
// HTML previews enabled.
func NewMessageRenderer(theme *styles.Theme, markdown *MarkdownRenderer, width int) *MessageRenderer {
	return &MessageRenderer{
		theme:         theme,
		markdown:      markdown,
		width:         width,
		ShowReasoning: true,
		ShowToolCalls: true,
		HTMLPreview:   true,
	}
}

// SetWidth adjusts the layout width.
func (r *MessageRenderer) SetWidth(width int) {
	r.width = width
	if r.markdown != nil {
		r.markdown.SetWidth(width - 4)
	}
}

// RenderUserTurn renders a user message as a right-aligned bubble, or
// a flush label-prefixed line in compact mode.
func (r *MessageRenderer) RenderUserTurn(turn *transcript.Turn) string {
	label := r.theme.UserLabel.Render(turn.Role.DisplayName())
	if r.Compact {
		return label + " " + turn.Text() + "\n"
	}
	bubble := r.theme.UserBubble.MaxWidth(r.width - 4).Render(turn.Text())
	return label + "\n" + bubble + "\n"
}

// RenderAssistantTurn renders an assistant turn from its display blocks.
func (r *MessageRenderer) RenderAssistantTurn(turn *transcript.Turn, blocks []render.Block) string {
	var sb strings.Builder
	sb.WriteString(r.theme.AssistantLabel.Render(turn.Role.DisplayName()))
	sb.WriteString("\n")

	if turn.Status == transcript.StatusErrored {
		sb.WriteString(r.theme.ErrorBody.Render(turn.Text()))
		sb.WriteString("\n")
		return sb.String()
	}

	for _, block := range blocks {
		rendered := r.renderBlock(block)
		if rendered == "" {
			continue
		}
		sb.WriteString(rendered)
		sb.WriteString("\n")
	}

	return sb.String()
}

// renderBlock renders one projected display block.
func (r *MessageRenderer) renderBlock(block render.Block) string {
	switch block.Kind {
	case render.BlockCode:
		cb := NewCodeBlock(block.Language, block.Content)
		cb.MaxWidth = r.width
		cb.Provisional = block.Provisional
		cb.Style = r.ChromaStyle
		return cb.Render(r.theme)

	case render.BlockHTML:
		if !r.HTMLPreview {
			cb := NewCodeBlock("html", block.Content)
			cb.MaxWidth = r.width
			cb.Provisional = block.Provisional
			cb.Style = r.ChromaStyle
			return cb.Render(r.theme)
		}
		// Terminals have no embedded browser; show the source inside a
		// clearly bounded preview frame.
		cb := NewCodeBlock("html", block.Content)
		cb.MaxWidth = r.width - 2
		cb.Style = r.ChromaStyle
		title := r.theme.EmbedTitle.Render("embedded page")
		return r.theme.EmbedBox.MaxWidth(r.width).Render(title + "\n" + cb.Render(r.theme))

	case render.BlockAnnotation:
		return r.renderAnnotation(block)

	default:
		text := block.Text
		if strings.TrimSpace(text) == "" {
			return ""
		}
		if r.markdown != nil && !block.Provisional {
			return r.theme.AssistantBody.Render(r.markdown.Render(text))
		}
		// Streaming prose stays raw until it settles; re-rendering
		// markdown on every delta causes visible reflow.
		return r.theme.AssistantBody.Render(text)
	}
}

// renderAnnotation renders a reasoning or tool annotation line.
// Suppressed annotations return empty and the caller skips the block.
func (r *MessageRenderer) renderAnnotation(block render.Block) string {
	if block.Annotation == render.AnnotationReasoning {
		if !r.ShowReasoning {
			return ""
		}
		return r.theme.Reasoning.MaxWidth(r.width - 2).Render(block.Text)
	}

	if !r.ShowToolCalls {
		return ""
	}

	style := r.theme.ToolSuccess
	switch {
	case block.ToolFailed:
		style = r.theme.ToolError
	case strings.Contains(block.Text, "…"):
		style = r.theme.ToolPending
	}
	return style.Render(block.Text)
}
