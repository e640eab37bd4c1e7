// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"
	"testing"
	"time"

	"github.com/jeranaias/quill-tui/internal/config"
	"github.com/jeranaias/quill-tui/internal/controller"
	"github.com/jeranaias/quill-tui/internal/transcript"
)

func testController(t *testing.T) *controller.Controller {
	t.Helper()
	client := controller.NewClient(controller.ClientConfig{
		BaseURL:        "http://127.0.0.1:1",
		StreamPath:     "/api/chat/stream",
		ChatPath:       "/api/chat",
		RequestTimeout: time.Second,
	}, nil)
	return controller.New(client, transcript.NewSession(), controller.Config{Streaming: true})
}

func testModel(t *testing.T) Model {
	t.Helper()
	return New(testController(t), nil, nil)
}

func TestIsCommand(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"/help", true},
		{"  /new", true},
		{"hello", false},
		{"what does / mean", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := isCommand(tt.in); got != tt.want {
			t.Errorf("isCommand(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestUnknownCommandSetsStatus(t *testing.T) {
	m := testModel(t)
	m, _ = m.executeCommand("/bogus")
	if !strings.Contains(m.statusMsg, "unknown command") {
		t.Errorf("expected unknown-command status, got %q", m.statusMsg)
	}
}

func TestHelpCommandTogglesHelp(t *testing.T) {
	m := testModel(t)
	m, _ = m.executeCommand("/help")
	if !m.showHelp {
		t.Error("/help should enable the help view")
	}
	m, _ = m.executeCommand("/help")
	if m.showHelp {
		t.Error("/help should toggle the help view off")
	}
}

func TestNewSessionCommandResetsTranscript(t *testing.T) {
	m := testModel(t)
	oldID := m.ctrl.Session().ID

	m, _ = m.executeCommand("/new")

	if m.ctrl.Session().ID == oldID {
		t.Error("/new should start a fresh session")
	}
}

func TestSaveWithoutStore(t *testing.T) {
	m := testModel(t)
	m, _ = m.executeCommand("/save")
	if !strings.Contains(m.statusMsg, "persistence is disabled") {
		t.Errorf("expected disabled-persistence status, got %q", m.statusMsg)
	}
}

func TestExportUnknownFormat(t *testing.T) {
	m := testModel(t)
	m.ctrl.Session().Append(transcript.NewUserTurn("hi"))

	m, _ = m.executeCommand("/export docx")
	if !strings.Contains(m.statusMsg, "unknown format") {
		t.Errorf("expected unknown-format status, got %q", m.statusMsg)
	}
}

func TestKeyMapHelp(t *testing.T) {
	k := DefaultKeyMap()
	if len(k.ShortHelp()) == 0 {
		t.Error("short help must not be empty")
	}
	if len(k.FullHelp()) == 0 {
		t.Error("full help must not be empty")
	}
}

func TestVimModeSelectsVimBindings(t *testing.T) {
	cfg := config.Default()
	cfg.UI.VimMode = true
	m := New(testController(t), nil, cfg)

	if m.keyMap.PageDown.Help().Key != "C-f" {
		t.Errorf("vim mode should bind C-f for page down, got %q", m.keyMap.PageDown.Help().Key)
	}
	if m.keyMap.Up.Help().Key != "C-y" {
		t.Errorf("vim mode should bind C-y for scroll up, got %q", m.keyMap.Up.Help().Key)
	}
}

func TestCompactModeConfigured(t *testing.T) {
	cfg := config.Default()
	cfg.UI.CompactMode = true
	m := New(testController(t), nil, cfg)

	if !m.compact {
		t.Error("compact mode from config must reach the model")
	}
	if !m.renderer.Compact {
		t.Error("compact mode from config must reach the renderer")
	}
}
