// quill - a terminal client for streaming AI chat.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"fmt"
	"log"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/quill-tui/internal/cli"
	"github.com/jeranaias/quill-tui/internal/config"
	"github.com/jeranaias/quill-tui/internal/ui/chat"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func init() {
	cli.Version = Version
	cli.GitCommit = GitCommit
	cli.BuildDate = BuildDate
}

func main() {
	cmd, args := cli.ParseArgs(os.Args[1:])

	var err error
	switch cmd {
	case cli.CmdTUI:
		err = runTUI(args)
	case cli.CmdChat:
		err = cli.HandleChat(args)
	case cli.CmdAsk:
		err = cli.HandleAsk(args)
	case cli.CmdLogin:
		err = cli.HandleLogin(args)
	case cli.CmdLogout:
		err = cli.HandleLogout(args)
	case cli.CmdSessions:
		err = cli.HandleSessions(args)
	case cli.CmdExport:
		err = cli.HandleExport(args)
	case cli.CmdConfig:
		err = cli.HandleConfig(args)
	case cli.CmdVersion:
		cli.PrintVersion()
	case cli.CmdHelp:
		cli.PrintUsage()
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// runTUI starts the full-screen interface.
func runTUI(args cli.Args) error {
	if !cli.IsTTY() {
		return fmt.Errorf("the TUI needs an interactive terminal, try `quill ask` instead")
	}

	cfg := config.Global()
	ctrl, store, err := cli.BuildController(cfg, args)
	if err != nil {
		return err
	}
	if store != nil {
		defer store.Close()
	}

	model := chat.New(ctrl, store, cfg)
	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithMouseCellMotion())

	// Stream events arrive on the controller's goroutine; forward them
	// into the program's message loop.
	ctrl.SetOnUpdate(func() {
		program.Send(chat.TranscriptUpdatedMsg{})
	})

	// Live-reload the config file so theme and render tweaks apply
	// without a restart.
	if path, err := config.ConfigPathTOML(); err == nil {
		if watcher, err := config.NewWatcher(path, func(updated *config.Config) {
			config.SetGlobal(updated)
			program.Send(chat.TranscriptUpdatedMsg{})
		}); err == nil {
			if err := watcher.Watch(); err == nil {
				defer watcher.Close()
			}
		}
	}

	if _, err := program.Run(); err != nil {
		log.Printf("TUI | program error: %v", err)
		return err
	}
	return nil
}
