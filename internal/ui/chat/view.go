// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/quill-tui/internal/controller"
	"github.com/jeranaias/quill-tui/internal/render"
	"github.com/jeranaias/quill-tui/internal/transcript"
	"github.com/jeranaias/quill-tui/internal/util"
)

// =============================================================================
// VIEW
// =============================================================================

// View renders the full chat screen.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if !m.ready {
		return "starting quill…"
	}

	var sections []string
	sections = append(sections, m.renderHeader())
	sections = append(sections, m.viewport.View())
	sections = append(sections, m.renderInput())
	sections = append(sections, m.renderStatus())

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// renderHeader renders the title bar.
func (m Model) renderHeader() string {
	title := m.theme.HeaderTitle.Render("quill")
	session := m.ctrl.SnapshotSession()
	if session.Title != "" {
		title += " " + m.theme.HeaderSubtitle.Render(util.TruncateWidth(session.Title, m.width-12))
	}
	return m.theme.Header.Width(m.width).Render(title)
}

// renderInput renders the input line, with the spinner while streaming.
func (m Model) renderInput() string {
	var line string
	if m.ctrl.Busy() {
		label := "thinking"
		if m.ctrl.State() == controller.StateStreaming {
			label = "responding"
		}
		line = m.spinner.View() + " " + m.theme.ThinkingText.Render(label+" (Esc to stop)")
	} else {
		line = m.input.View()
	}
	return m.theme.InputContainer.Width(m.width).Render(line)
}

// renderStatus renders the status bar, or the full help when toggled.
func (m Model) renderStatus() string {
	if m.showHelp {
		return m.renderHelp()
	}

	state := m.theme.StatusIdle.Render("ready")
	if m.ctrl.Busy() {
		state = m.theme.StatusBusy.Render(m.ctrl.State().String())
	}

	msg := m.statusMsg
	if msg == "" {
		msg = m.theme.ShortcutKey.Render("Enter") + m.theme.ShortcutDesc.Render(" send  ") +
			m.theme.ShortcutKey.Render("Esc") + m.theme.ShortcutDesc.Render(" stop  ") +
			m.theme.ShortcutKey.Render("C-h") + m.theme.ShortcutDesc.Render(" help")
	}

	return m.theme.StatusBar.Width(m.width).Render(state + "  " + msg)
}

// renderHelp renders the expanded key binding help.
func (m Model) renderHelp() string {
	var lines []string
	for _, group := range m.keyMap.FullHelp() {
		var parts []string
		for _, b := range group {
			parts = append(parts,
				m.theme.ShortcutKey.Render(b.Help().Key)+" "+
					m.theme.ShortcutDesc.Render(b.Help().Desc))
		}
		lines = append(lines, strings.Join(parts, "   "))
	}
	lines = append(lines, m.theme.ShortcutDesc.Render("commands: /help /new /save /sessions /load /export /quit"))
	return m.theme.StatusBar.Width(m.width).Render(strings.Join(lines, "\n"))
}

// =============================================================================
// TRANSCRIPT PROJECTION
// =============================================================================

// refreshViewport re-renders the conversation into the viewport. The
// projection is pure, so re-running it on every update is safe; only
// the trailing turn's blocks actually change while streaming. The
// stream goroutine owns the live turn, so rendering works on a frozen
// snapshot.
func (m *Model) refreshViewport() {
	if !m.ready {
		return
	}

	atBottom := m.viewport.AtBottom()

	var sb strings.Builder
	session := m.ctrl.SnapshotSession()
	for _, turn := range session.Turns {
		sb.WriteString(m.renderTurn(turn))
		if !m.compact {
			sb.WriteString("\n")
		}
	}

	m.viewport.SetContent(sb.String())
	if atBottom {
		m.viewport.GotoBottom()
	}
}

// renderTurn renders one turn for the scrollback.
func (m *Model) renderTurn(turn *transcript.Turn) string {
	switch turn.Role {
	case transcript.RoleUser:
		return m.renderer.RenderUserTurn(turn)
	case transcript.RoleAssistant:
		blocks := render.ProjectText(turn, m.classifier, m.ctrl.SinceTerminal())
		return m.renderer.RenderAssistantTurn(turn, blocks)
	default:
		return m.theme.SystemLabel.Render(turn.Role.DisplayName()) + "\n" + turn.Text() + "\n"
	}
}
