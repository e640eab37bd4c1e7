// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"fmt"
	"strings"
	"time"

	"github.com/jeranaias/quill-tui/internal/transcript"
)

// =============================================================================
// MARKDOWN EXPORTER
// =============================================================================

// MarkdownExporter exports sessions to Markdown format.
type MarkdownExporter struct {
	options *Options
}

// NewMarkdownExporter creates a new Markdown exporter.
func NewMarkdownExporter(opts *Options) *MarkdownExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &MarkdownExporter{options: opts}
}

// Export converts a session to Markdown format. Assistant text is
// already Markdown, so it passes through verbatim; only headings and
// metadata are escaped.
func (e *MarkdownExporter) Export(sess *transcript.Session) ([]byte, error) {
	if sess == nil {
		return nil, fmt.Errorf("session is nil")
	}
	if sess.IsEmpty() {
		return nil, fmt.Errorf("session has no turns")
	}

	var sb strings.Builder

	// YAML frontmatter with metadata
	if e.options.IncludeMetadata {
		sb.WriteString("---\n")
		sb.WriteString(fmt.Sprintf("title: %s\n", escapeYAML(exportTitle(sess))))
		sb.WriteString(fmt.Sprintf("date: %s\n", sess.CreatedAt.Format(time.RFC3339)))
		sb.WriteString(fmt.Sprintf("updated: %s\n", sess.UpdatedAt.Format(time.RFC3339)))
		sb.WriteString(fmt.Sprintf("turns: %d\n", len(sess.Turns)))
		sb.WriteString(fmt.Sprintf("exported: %s\n", time.Now().Format(time.RFC3339)))
		sb.WriteString("generator: quill-tui\n")
		sb.WriteString("---\n\n")
	}

	sb.WriteString(fmt.Sprintf("# %s\n\n", escapeMarkdown(exportTitle(sess))))

	if e.options.IncludeMetadata {
		sb.WriteString(fmt.Sprintf("Created: %s\n\n", formatTimestamp(sess.CreatedAt)))
		sb.WriteString("---\n\n")
	}

	for _, turn := range sess.Turns {
		sb.WriteString(e.renderTurn(turn))
	}

	return []byte(sb.String()), nil
}

// renderTurn renders one turn as a labeled section.
func (e *MarkdownExporter) renderTurn(turn *transcript.Turn) string {
	var sb strings.Builder

	label := "**" + turn.Role.DisplayName() + "**"
	if e.options.IncludeTimestamps {
		label += " (" + formatShortTimestamp(turn.CreatedAt) + ")"
	}
	sb.WriteString(label + ":\n\n")

	sb.WriteString(turn.Text())
	sb.WriteString("\n\n")

	// Annotations come after the text, quoted so they read as asides.
	for _, item := range turn.Items {
		switch item.Kind {
		case transcript.ItemReasoning:
			sb.WriteString("> _Reasoning:_ " + firstLine(item.Content) + "\n")
		case transcript.ItemToolInvocation:
			sb.WriteString("> _Tool:_ " + item.Summary() + "\n")
		}
	}
	if len(turn.Items) > 0 {
		sb.WriteString("\n")
	}

	sb.WriteString("---\n\n")
	return sb.String()
}

// FileExtension returns the file extension for Markdown.
func (e *MarkdownExporter) FileExtension() string {
	return ".md"
}

// MimeType returns the MIME type for Markdown.
func (e *MarkdownExporter) MimeType() string {
	return "text/markdown"
}

// =============================================================================
// ESCAPING HELPERS
// =============================================================================

// escapeMarkdown escapes special Markdown characters in plain text.
func escapeMarkdown(s string) string {
	// Only escape characters that would break formatting in titles/headings
	s = strings.ReplaceAll(s, "#", "\\#")
	s = strings.ReplaceAll(s, "*", "\\*")
	s = strings.ReplaceAll(s, "_", "\\_")
	s = strings.ReplaceAll(s, "[", "\\[")
	s = strings.ReplaceAll(s, "]", "\\]")
	return s
}

// escapeYAML escapes special YAML characters in values.
func escapeYAML(s string) string {
	if strings.ContainsAny(s, ":#|>@`\"'[]{}!%&*\n\r\\") || strings.HasPrefix(s, " ") || strings.HasSuffix(s, " ") {
		s = strings.ReplaceAll(s, "\\", "\\\\")
		s = strings.ReplaceAll(s, "\"", "\\\"")
		s = strings.ReplaceAll(s, "\n", "\\n")
		s = strings.ReplaceAll(s, "\r", "\\r")
		return fmt.Sprintf("\"%s\"", s)
	}
	return s
}

// firstLine truncates an annotation to its first line.
func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
