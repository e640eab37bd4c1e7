// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/jeranaias/quill-tui/internal/classify"
	"github.com/jeranaias/quill-tui/internal/render"
	"github.com/jeranaias/quill-tui/internal/transcript"
)

// =============================================================================
// HTML EXPORTER
// =============================================================================

// HTMLExporter exports sessions to HTML format with embedded CSS.
// Assistant turns are run through the same block projection the live
// view uses, so code fences and embeddable HTML come out structured
// rather than as raw text.
type HTMLExporter struct {
	options    *Options
	classifier *classify.Classifier
}

// NewHTMLExporter creates a new HTML exporter.
func NewHTMLExporter(opts *Options) *HTMLExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &HTMLExporter{options: opts, classifier: classify.New()}
}

// Export converts a session to HTML format.
func (e *HTMLExporter) Export(sess *transcript.Session) ([]byte, error) {
	if sess == nil {
		return nil, fmt.Errorf("session is nil")
	}
	if sess.IsEmpty() {
		return nil, fmt.Errorf("session has no turns")
	}

	var sb strings.Builder

	sb.WriteString("<!DOCTYPE html>\n")
	sb.WriteString("<html lang=\"en\">\n")
	sb.WriteString("<head>\n")
	sb.WriteString("    <meta charset=\"UTF-8\">\n")
	sb.WriteString("    <meta name=\"viewport\" content=\"width=device-width, initial-scale=1.0\">\n")
	sb.WriteString(fmt.Sprintf("    <title>%s</title>\n", html.EscapeString(exportTitle(sess))))
	sb.WriteString("    <meta name=\"generator\" content=\"quill-tui\">\n")
	sb.WriteString(fmt.Sprintf("    <meta name=\"date\" content=\"%s\">\n", sess.CreatedAt.Format(time.RFC3339)))
	sb.WriteString(e.getCSS())
	sb.WriteString("</head>\n")
	sb.WriteString(fmt.Sprintf("<body class=\"%s-theme\">\n", e.options.Theme))
	sb.WriteString("    <div class=\"container\">\n")

	if e.options.IncludeMetadata {
		sb.WriteString(e.renderHeader(sess))
	}

	sb.WriteString("        <main class=\"conversation\">\n")
	for _, turn := range sess.Turns {
		sb.WriteString(e.renderTurn(turn))
	}
	sb.WriteString("        </main>\n")

	sb.WriteString("        <footer class=\"footer\">\n")
	sb.WriteString(fmt.Sprintf("            <p>Exported from <strong>quill</strong> on %s</p>\n",
		time.Now().Format("January 2, 2006 at 3:04 PM")))
	sb.WriteString("        </footer>\n")
	sb.WriteString("    </div>\n")
	sb.WriteString("</body>\n")
	sb.WriteString("</html>\n")

	return []byte(sb.String()), nil
}

// FileExtension returns the file extension for HTML.
func (e *HTMLExporter) FileExtension() string {
	return ".html"
}

// MimeType returns the MIME type for HTML.
func (e *HTMLExporter) MimeType() string {
	return "text/html"
}

// =============================================================================
// RENDERING FUNCTIONS
// =============================================================================

// renderHeader renders the header section with metadata.
func (e *HTMLExporter) renderHeader(sess *transcript.Session) string {
	var sb strings.Builder

	sb.WriteString("        <header class=\"header\">\n")
	sb.WriteString(fmt.Sprintf("            <h1>%s</h1>\n", html.EscapeString(exportTitle(sess))))
	sb.WriteString("            <div class=\"metadata\">\n")
	sb.WriteString(fmt.Sprintf("                <span class=\"meta-item\"><strong>Created:</strong> %s</span>\n", formatTimestamp(sess.CreatedAt)))
	sb.WriteString(fmt.Sprintf("                <span class=\"meta-item\"><strong>Turns:</strong> %d</span>\n", len(sess.Turns)))
	sb.WriteString("            </div>\n")
	sb.WriteString("        </header>\n")

	return sb.String()
}

// renderTurn renders a single turn.
func (e *HTMLExporter) renderTurn(turn *transcript.Turn) string {
	var sb strings.Builder

	roleClass := strings.ToLower(string(turn.Role))
	sb.WriteString(fmt.Sprintf("            <div class=\"message %s-message\">\n", roleClass))

	sb.WriteString("                <div class=\"message-header\">\n")
	sb.WriteString(fmt.Sprintf("                    <span class=\"role-label\">%s</span>\n", turn.Role.DisplayName()))
	if e.options.IncludeTimestamps {
		sb.WriteString(fmt.Sprintf("                    <span class=\"timestamp\">%s</span>\n", formatShortTimestamp(turn.CreatedAt)))
	}
	sb.WriteString("                </div>\n")

	sb.WriteString("                <div class=\"message-content\">\n")
	// Exported turns are terminal, so every block projects as settled.
	for _, block := range render.ProjectText(turn, e.classifier, time.Hour) {
		sb.WriteString(e.renderBlock(block))
	}
	sb.WriteString("                </div>\n")

	sb.WriteString("            </div>\n")
	return sb.String()
}

// renderBlock renders one projected display block.
func (e *HTMLExporter) renderBlock(block render.Block) string {
	switch block.Kind {
	case render.BlockCode:
		lang := block.Language
		if lang == "" {
			lang = "text"
		}
		return fmt.Sprintf("                    <pre><code class=\"language-%s\">%s</code></pre>\n",
			html.EscapeString(lang), html.EscapeString(block.Content))

	case render.BlockHTML:
		// Embedded HTML runs inside a sandboxed iframe, never inline.
		return fmt.Sprintf("                    <iframe class=\"embed\" sandbox=\"\" srcdoc=\"%s\"></iframe>\n",
			html.EscapeString(block.Content))

	case render.BlockAnnotation:
		class := "annotation reasoning"
		if block.Annotation == render.AnnotationToolCall {
			class = "annotation tool"
			if block.ToolFailed {
				class += " failed"
			}
		}
		return fmt.Sprintf("                    <div class=\"%s\">%s</div>\n",
			class, html.EscapeString(block.Text))

	default:
		var sb strings.Builder
		sb.WriteString("                    <p>")
		for i, line := range strings.Split(block.Text, "\n") {
			if i > 0 {
				sb.WriteString("<br>\n")
			}
			sb.WriteString(html.EscapeString(line))
		}
		sb.WriteString("</p>\n")
		return sb.String()
	}
}

// =============================================================================
// STYLING
// =============================================================================

// getCSS returns the embedded stylesheet for both themes.
func (e *HTMLExporter) getCSS() string {
	return `    <style>
        :root {
            --bg: #ffffff; --fg: #1a1a1a; --muted: #6a737d;
            --border: #e1e4e8; --accent: #0366d6;
            --user-bg: #f1f8ff; --assistant-bg: #f6f8fa;
            --code-bg: #f0f0f0;
        }
        .dark-theme {
            --bg: #0d1117; --fg: #c9d1d9; --muted: #8b949e;
            --border: #30363d; --accent: #58a6ff;
            --user-bg: #161b22; --assistant-bg: #11151c;
            --code-bg: #161b22;
        }
        body {
            margin: 0; padding: 0;
            background: var(--bg); color: var(--fg);
            font-family: -apple-system, "Segoe UI", Helvetica, Arial, sans-serif;
            line-height: 1.6;
        }
        .container { max-width: 860px; margin: 0 auto; padding: 24px; }
        .header { border-bottom: 1px solid var(--border); margin-bottom: 24px; padding-bottom: 12px; }
        .header h1 { margin: 0 0 8px; font-size: 1.5em; }
        .metadata { color: var(--muted); font-size: 0.875em; }
        .meta-item { margin-right: 16px; }
        .message { border: 1px solid var(--border); border-radius: 8px; margin-bottom: 16px; overflow: hidden; }
        .user-message { background: var(--user-bg); }
        .assistant-message { background: var(--assistant-bg); }
        .message-header {
            display: flex; justify-content: space-between;
            padding: 8px 16px; border-bottom: 1px solid var(--border);
            font-size: 0.875em;
        }
        .role-label { font-weight: 600; color: var(--accent); }
        .timestamp { color: var(--muted); }
        .message-content { padding: 12px 16px; }
        .message-content p { margin: 0 0 12px; white-space: pre-wrap; }
        pre {
            background: var(--code-bg); border: 1px solid var(--border);
            border-radius: 6px; padding: 12px; overflow-x: auto;
        }
        code { font-family: "SFMono-Regular", Consolas, Menlo, monospace; font-size: 0.875em; }
        .embed { width: 100%; min-height: 240px; border: 1px dashed var(--border); border-radius: 6px; }
        .annotation {
            color: var(--muted); font-size: 0.8125em; font-style: italic;
            border-left: 3px solid var(--border); padding-left: 8px; margin: 8px 0;
        }
        .annotation.failed { border-left-color: #d73a49; }
        .footer { color: var(--muted); font-size: 0.8125em; text-align: center; margin-top: 32px; }
    </style>
`
}
