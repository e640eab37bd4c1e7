// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the Bubble Tea chat view: a scrollback viewport
// over the projected transcript, an input line, and a status bar.
package chat

import (
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/quill-tui/internal/classify"
	"github.com/jeranaias/quill-tui/internal/config"
	"github.com/jeranaias/quill-tui/internal/controller"
	"github.com/jeranaias/quill-tui/internal/storage"
	"github.com/jeranaias/quill-tui/internal/ui/components"
	"github.com/jeranaias/quill-tui/internal/ui/styles"
)

// =============================================================================
// MESSAGES
// =============================================================================

// TranscriptUpdatedMsg signals that the controller mutated the
// transcript. The owning program sends it from the controller's update
// callback.
type TranscriptUpdatedMsg struct{}

// settleTickMsg fires after the classifier settle window elapses so a
// trailing provisional block gets its settled re-render.
type settleTickMsg struct{}

// statusExpiredMsg clears a transient status message.
type statusExpiredMsg struct{ id int }

// =============================================================================
// CHAT MODEL
// =============================================================================

// Model is the Bubble Tea model for the chat view.
type Model struct {
	// Styling
	theme *styles.Theme

	// Dimensions
	width  int
	height int
	ready  bool

	// Engine
	ctrl       *controller.Controller
	classifier *classify.Classifier
	store      *storage.Store
	renderer   *components.MessageRenderer

	// UI components
	viewport viewport.Model
	input    textinput.Model
	spinner  spinner.Model

	// Key bindings
	keyMap KeyMap

	// compact drops the blank line between turns in the scrollback.
	compact bool

	// Transient UI state
	showHelp  bool
	statusMsg string
	statusID  int
	quitting  bool
}

// New creates the chat model. store may be nil to run without
// persistence.
func New(ctrl *controller.Controller, store *storage.Store, cfg *config.Config) Model {
	themePref := ""
	if cfg != nil {
		themePref = cfg.UI.Theme
	}
	theme := styles.NewTheme(themePref)

	ti := textinput.New()
	ti.Placeholder = "Type a message, or /help for commands"
	ti.Prompt = "> "
	ti.PromptStyle = theme.InputPrompt
	ti.PlaceholderStyle = theme.InputPlaceholder
	ti.CharLimit = 8192
	ti.Focus()

	vp := viewport.New(80, 20)

	sp := spinner.New()
	sp.Spinner = spinner.MiniDot
	sp.Style = theme.Spinner

	classifier := classify.New()
	if cfg != nil && cfg.Render.SettleDelayMs > 0 {
		classifier.SettleDelay = time.Duration(cfg.Render.SettleDelayMs) * time.Millisecond
	}

	md, err := components.NewMarkdownRenderer(theme.IsDark, 76)
	if err != nil {
		md = nil
	}
	renderer := components.NewMessageRenderer(theme, md, 80)
	keyMap := DefaultKeyMap()
	compact := false
	if cfg != nil {
		renderer.ChromaStyle = cfg.Render.SyntaxTheme
		renderer.ShowReasoning = cfg.UI.ShowReasoning
		renderer.ShowToolCalls = cfg.UI.ShowToolCalls
		renderer.HTMLPreview = cfg.Render.HTMLPreview
		renderer.Compact = cfg.UI.CompactMode
		compact = cfg.UI.CompactMode
		if cfg.UI.VimMode {
			keyMap = VimKeyMap()
		}
	}

	return Model{
		theme:      theme,
		ctrl:       ctrl,
		classifier: classifier,
		store:      store,
		renderer:   renderer,
		viewport:   vp,
		input:      ti,
		spinner:    sp,
		keyMap:     keyMap,
		compact:    compact,
	}
}

// Init starts the cursor blink and spinner.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick)
}

// settleCmd schedules a re-render just past the settle window, so a
// trailing unclosed fence flips from provisional to settled without
// another transcript event.
func (m Model) settleCmd() tea.Cmd {
	delay := m.classifier.SettleDelay
	if delay <= 0 {
		delay = classify.DefaultSettleDelay
	}
	return tea.Tick(delay+20*time.Millisecond, func(time.Time) tea.Msg {
		return settleTickMsg{}
	})
}

// setStatus shows a transient status message for a few seconds.
func (m *Model) setStatus(msg string) tea.Cmd {
	m.statusMsg = msg
	m.statusID++
	id := m.statusID
	return tea.Tick(4*time.Second, func(time.Time) tea.Msg {
		return statusExpiredMsg{id: id}
	})
}
