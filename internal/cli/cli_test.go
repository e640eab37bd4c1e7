// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import "testing"

func TestParseArgsDefaultsToTUI(t *testing.T) {
	cmd, args := ParseArgs(nil)
	if cmd != CmdTUI {
		t.Errorf("expected CmdTUI, got %v", cmd)
	}
	if args.Quiet || args.NoStream || args.Server != "" {
		t.Error("flags should default to zero values")
	}
}

func TestParseArgsCommands(t *testing.T) {
	tests := []struct {
		argv []string
		want Command
	}{
		{[]string{"chat"}, CmdChat},
		{[]string{"ask", "hello"}, CmdAsk},
		{[]string{"login"}, CmdLogin},
		{[]string{"logout"}, CmdLogout},
		{[]string{"sessions"}, CmdSessions},
		{[]string{"session", "list"}, CmdSessions},
		{[]string{"export", "html"}, CmdExport},
		{[]string{"config", "get", "ui.theme"}, CmdConfig},
		{[]string{"version"}, CmdVersion},
		{[]string{"--version"}, CmdVersion},
		{[]string{"--help"}, CmdHelp},
		{[]string{"help"}, CmdHelp},
		{[]string{"bogus"}, CmdHelp},
	}

	for _, tt := range tests {
		cmd, _ := ParseArgs(tt.argv)
		if cmd != tt.want {
			t.Errorf("ParseArgs(%v) = %v, want %v", tt.argv, cmd, tt.want)
		}
	}
}

func TestParseArgsAskJoinsQuery(t *testing.T) {
	cmd, args := ParseArgs([]string{"ask", "what", "is", "go"})
	if cmd != CmdAsk {
		t.Fatalf("expected CmdAsk, got %v", cmd)
	}
	if args.Query != "what is go" {
		t.Errorf("expected joined query, got %q", args.Query)
	}
}

func TestParseArgsFlags(t *testing.T) {
	cmd, args := ParseArgs([]string{"--quiet", "--no-stream", "--server", "http://localhost:9999", "chat"})
	if cmd != CmdChat {
		t.Fatalf("expected CmdChat, got %v", cmd)
	}
	if !args.Quiet {
		t.Error("expected Quiet")
	}
	if !args.NoStream {
		t.Error("expected NoStream")
	}
	if args.Server != "http://localhost:9999" {
		t.Errorf("unexpected server %q", args.Server)
	}
}

func TestParseArgsServerEquals(t *testing.T) {
	_, args := ParseArgs([]string{"--server=http://example.com", "chat"})
	if args.Server != "http://example.com" {
		t.Errorf("unexpected server %q", args.Server)
	}
}

func TestParseArgsSubcommand(t *testing.T) {
	cmd, args := ParseArgs([]string{"sessions", "delete", "2"})
	if cmd != CmdSessions {
		t.Fatalf("expected CmdSessions, got %v", cmd)
	}
	if args.Subcommand != "delete" {
		t.Errorf("expected subcommand delete, got %q", args.Subcommand)
	}
	if len(args.Raw) != 2 || args.Raw[1] != "2" {
		t.Errorf("unexpected raw args %v", args.Raw)
	}
}
