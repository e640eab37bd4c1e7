// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli parses command line arguments and implements the
// non-TUI surfaces: the line-mode chat REPL, one-shot ask, auth,
// session management, and config commands.
package cli

import (
	"fmt"
	"os"
	"strings"
)

// Version information (can be overridden at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Command represents the CLI command to execute.
type Command int

const (
	CmdTUI Command = iota
	CmdChat
	CmdAsk
	CmdLogin
	CmdLogout
	CmdSessions
	CmdExport
	CmdConfig
	CmdVersion
	CmdHelp
)

// Args holds parsed CLI arguments.
type Args struct {
	// Global flags
	Quiet    bool
	NoStream bool
	Server   string

	// Command-specific
	Query      string
	Subcommand string

	// Raw args remaining after flag parsing
	Raw []string
}

const usageText = `quill - terminal client for streaming AI chat

Usage:
  quill                     Start the full-screen TUI
  quill chat                Start the line-mode chat REPL
  quill ask <question>      Ask one question and print the answer
  quill login               Authenticate against the chat backend
  quill logout              Discard the stored token
  quill sessions [cmd]      Manage saved sessions (list, delete, clear)
  quill export [format]     Export the most recent session (markdown, html, json)
  quill config [cmd]        Inspect or change settings (list, get, set, path)
  quill version             Print version information

Flags:
  --server <url>            Override the backend base URL
  --no-stream               Use the non-streaming endpoint
  --quiet                   Suppress informational output
  --help                    Show this help
`

// ParseArgs parses the command line into a command and its arguments.
func ParseArgs(argv []string) (Command, Args) {
	args := Args{}
	var positional []string

	i := 0
	for i < len(argv) {
		arg := argv[i]
		switch {
		case arg == "--help" || arg == "-h" || arg == "help":
			return CmdHelp, args
		case arg == "--quiet" || arg == "-q":
			args.Quiet = true
		case arg == "--no-stream":
			args.NoStream = true
		case arg == "--server":
			if i+1 < len(argv) {
				i++
				args.Server = argv[i]
			}
		case strings.HasPrefix(arg, "--server="):
			args.Server = strings.TrimPrefix(arg, "--server=")
		case arg == "--version":
			return CmdVersion, args
		default:
			positional = append(positional, arg)
		}
		i++
	}

	if len(positional) == 0 {
		return CmdTUI, args
	}

	cmd := positional[0]
	args.Raw = positional[1:]
	if len(args.Raw) > 0 {
		args.Subcommand = args.Raw[0]
	}

	switch cmd {
	case "chat":
		return CmdChat, args
	case "ask":
		args.Query = strings.Join(args.Raw, " ")
		return CmdAsk, args
	case "login":
		return CmdLogin, args
	case "logout":
		return CmdLogout, args
	case "sessions", "session":
		return CmdSessions, args
	case "export":
		return CmdExport, args
	case "config":
		return CmdConfig, args
	case "version":
		return CmdVersion, args
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", cmd)
		return CmdHelp, args
	}
}

// PrintUsage writes the usage text to stdout.
func PrintUsage() {
	fmt.Print(usageText)
}

// PrintVersion writes version information to stdout.
func PrintVersion() {
	fmt.Printf("quill %s (commit %s, built %s)\n", Version, GitCommit, BuildDate)
}
