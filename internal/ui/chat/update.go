// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"errors"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/quill-tui/internal/controller"
)

// =============================================================================
// UPDATE
// =============================================================================

// Update handles incoming messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		m.refreshViewport()

	case TranscriptUpdatedMsg:
		m.refreshViewport()
		if !m.ctrl.Busy() {
			// The turn just reached a terminal state; one more render
			// after the settle window closes out provisional blocks.
			cmds = append(cmds, m.settleCmd())
		}

	case settleTickMsg:
		m.refreshViewport()

	case statusExpiredMsg:
		if msg.id == m.statusID {
			m.statusMsg = ""
		}

	case spinner.TickMsg:
		if m.ctrl.Busy() {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			cmds = append(cmds, cmd)
		} else {
			// Keep the spinner ticking cheaply so it resumes instantly.
			cmds = append(cmds, m.spinner.Tick)
		}

	case tea.KeyMsg:
		model, cmd, handled := m.handleKey(msg)
		if handled {
			return model, cmd
		}
		m = model
		cmds = append(cmds, cmd)
	}

	// Forward remaining input to the focused components.
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)

	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

// handleKey processes a key press. handled is true when the key was
// consumed and must not reach the input field.
func (m Model) handleKey(msg tea.KeyMsg) (Model, tea.Cmd, bool) {
	switch {
	case key.Matches(msg, m.keyMap.Quit):
		m.quitting = true
		m.persistSession()
		return m, tea.Quit, true

	case key.Matches(msg, m.keyMap.Cancel):
		if m.ctrl.Busy() {
			m.ctrl.Cancel()
			return m, nil, true
		}
		return m, nil, false

	case key.Matches(msg, m.keyMap.Help):
		m.showHelp = !m.showHelp
		return m, nil, true

	case key.Matches(msg, m.keyMap.Clear):
		cmd := m.newSession()
		return m, cmd, true

	case key.Matches(msg, m.keyMap.Submit):
		model, cmd := m.submit()
		return model, cmd, true

	case key.Matches(msg, m.keyMap.PageUp):
		m.viewport.HalfViewUp()
		return m, nil, true

	case key.Matches(msg, m.keyMap.PageDown):
		m.viewport.HalfViewDown()
		return m, nil, true

	case key.Matches(msg, m.keyMap.Home):
		m.viewport.GotoTop()
		return m, nil, true

	case key.Matches(msg, m.keyMap.End):
		m.viewport.GotoBottom()
		return m, nil, true
	}

	return m, nil, false
}

// submit sends the input line as a message or slash command.
func (m Model) submit() (Model, tea.Cmd) {
	text := m.input.Value()
	if text == "" {
		return m, nil
	}

	if isCommand(text) {
		m.input.Reset()
		return m.executeCommand(text)
	}

	err := m.ctrl.Send(text)
	switch {
	case err == nil:
		m.input.Reset()
		m.refreshViewport()
		return m, nil
	case errors.Is(err, controller.ErrBusy):
		return m, m.setStatus("still streaming, press Esc to stop first")
	case errors.Is(err, controller.ErrRateLimited):
		return m, m.setStatus("sending too fast, slow down")
	case errors.Is(err, controller.ErrEmptyMessage):
		m.input.Reset()
		return m, nil
	default:
		return m, m.setStatus("send failed: " + err.Error())
	}
}

// resize recomputes the layout for a new terminal size.
func (m *Model) resize(width, height int) {
	m.width = width
	m.height = height
	m.theme.SetSize(width, height)

	headerHeight := 1
	inputHeight := 3
	statusHeight := 1
	if m.showHelp {
		statusHeight = 4
	}

	vpHeight := height - headerHeight - inputHeight - statusHeight
	if vpHeight < 3 {
		vpHeight = 3
	}

	m.viewport.Width = width
	m.viewport.Height = vpHeight
	m.input.Width = width - 6
	m.renderer.SetWidth(width - 2)
	m.ready = true
}
