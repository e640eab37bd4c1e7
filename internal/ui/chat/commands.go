// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/quill-tui/internal/export"
	"github.com/jeranaias/quill-tui/internal/transcript"
)

// =============================================================================
// SLASH COMMANDS
// =============================================================================

// isCommand reports whether the input is a slash command.
func isCommand(text string) bool {
	return strings.HasPrefix(strings.TrimSpace(text), "/")
}

// executeCommand runs a slash command typed at the prompt.
func (m Model) executeCommand(text string) (Model, tea.Cmd) {
	fields := strings.Fields(strings.TrimSpace(text))
	if len(fields) == 0 {
		return m, nil
	}
	name := strings.ToLower(fields[0])
	args := fields[1:]

	switch name {
	case "/help":
		m.showHelp = !m.showHelp
		return m, nil

	case "/quit", "/exit":
		m.quitting = true
		m.persistSession()
		return m, tea.Quit

	case "/new", "/clear":
		return m, m.newSession()

	case "/save":
		return m, m.saveSession()

	case "/sessions", "/list":
		return m, m.listSessions()

	case "/load":
		if len(args) != 1 {
			return m, m.setStatus("usage: /load <number from /sessions>")
		}
		return m, m.loadSession(args[0])

	case "/export":
		format := "markdown"
		if len(args) > 0 {
			format = strings.ToLower(args[0])
		}
		return m, m.exportSession(format)

	default:
		return m, m.setStatus("unknown command " + name + ", try /help")
	}
}

// =============================================================================
// COMMAND IMPLEMENTATIONS
// =============================================================================

// newSession saves the current conversation and starts a fresh one.
func (m *Model) newSession() tea.Cmd {
	if m.ctrl.Busy() {
		return m.setStatus("stop the current response first")
	}
	m.persistSession()
	if err := m.ctrl.Reset(transcript.NewSession()); err != nil {
		return m.setStatus("could not start a new session: " + err.Error())
	}
	m.refreshViewport()
	return m.setStatus("new session started")
}

// saveSession persists the current conversation on demand.
func (m *Model) saveSession() tea.Cmd {
	if m.store == nil {
		return m.setStatus("persistence is disabled")
	}
	session := m.ctrl.SnapshotSession()
	if session.IsEmpty() {
		return m.setStatus("nothing to save yet")
	}
	if err := m.store.Save(session); err != nil {
		return m.setStatus("save failed: " + err.Error())
	}
	return m.setStatus("session saved")
}

// listSessions shows stored sessions in the status area.
func (m *Model) listSessions() tea.Cmd {
	if m.store == nil {
		return m.setStatus("persistence is disabled")
	}
	metas, err := m.store.List()
	if err != nil {
		return m.setStatus("list failed: " + err.Error())
	}
	if len(metas) == 0 {
		return m.setStatus("no saved sessions")
	}
	shown := len(metas)
	if shown > 5 {
		shown = 5
	}
	var parts []string
	for i := 0; i < shown; i++ {
		title := metas[i].Title
		if title == "" {
			title = metas[i].Preview
		}
		parts = append(parts, strconv.Itoa(i)+":"+title)
	}
	return m.setStatus("sessions  " + strings.Join(parts, "  ") + "  (/load <n>)")
}

// loadSession replaces the transcript with a stored session.
func (m *Model) loadSession(arg string) tea.Cmd {
	if m.store == nil {
		return m.setStatus("persistence is disabled")
	}
	if m.ctrl.Busy() {
		return m.setStatus("stop the current response first")
	}

	index, err := strconv.Atoi(arg)
	if err != nil {
		return m.setStatus("usage: /load <number from /sessions>")
	}
	session, err := m.store.LoadByIndex(index)
	if err != nil {
		return m.setStatus("load failed: " + err.Error())
	}

	m.persistSession()
	if err := m.ctrl.Reset(session); err != nil {
		return m.setStatus("load failed: " + err.Error())
	}
	m.refreshViewport()
	m.viewport.GotoBottom()
	return m.setStatus("loaded session " + arg)
}

// exportSession writes the conversation to a file in the given format.
func (m *Model) exportSession(format string) tea.Cmd {
	session := m.ctrl.SnapshotSession()
	if session.IsEmpty() {
		return m.setStatus("nothing to export yet")
	}

	opts := export.DefaultOptions()
	var path string
	var err error
	switch format {
	case "markdown", "md":
		path, err = export.ExportMarkdown(session, opts)
	case "html":
		path, err = export.ExportHTML(session, opts)
	case "json":
		path, err = export.ExportJSON(session, opts)
	default:
		return m.setStatus("unknown format " + format + ", use markdown, html, or json")
	}
	if err != nil {
		return m.setStatus("export failed: " + err.Error())
	}
	return m.setStatus("exported to " + path)
}

// persistSession saves the conversation if a store is configured.
// Errors are logged by the store; quitting must never block on them.
func (m *Model) persistSession() {
	if m.store == nil {
		return
	}
	session := m.ctrl.SnapshotSession()
	if session.IsEmpty() {
		return
	}
	m.store.Save(session)
}
