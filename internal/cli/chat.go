// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/peterh/liner"

	"github.com/jeranaias/quill-tui/internal/config"
	"github.com/jeranaias/quill-tui/internal/controller"
	"github.com/jeranaias/quill-tui/internal/export"
	"github.com/jeranaias/quill-tui/internal/storage"
	"github.com/jeranaias/quill-tui/internal/transcript"
)

// =============================================================================
// LINE EDITOR
// =============================================================================

// ChatCLI provides input history and line editing for interactive chat.
type ChatCLI struct {
	line        *liner.State
	historyFile string
}

// NewChatCLI creates a new ChatCLI with input history support.
func NewChatCLI() *ChatCLI {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	configDir, err := config.ConfigDir()
	if err != nil {
		configDir = os.TempDir()
	}

	cli := &ChatCLI{
		line:        line,
		historyFile: filepath.Join(configDir, "chat_history"),
	}
	cli.LoadHistory()
	return cli
}

// LoadHistory loads command history from file.
func (c *ChatCLI) LoadHistory() {
	if f, err := os.Open(c.historyFile); err == nil {
		c.line.ReadHistory(f)
		f.Close()
	}
}

// ReadInput reads a line of input with the given prompt. Non-empty
// input is added to the history.
func (c *ChatCLI) ReadInput(prompt string) (string, error) {
	input, err := c.line.Prompt(prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		c.line.AppendHistory(input)
	}
	return input, nil
}

// SaveHistory persists command history with owner-only permissions.
func (c *ChatCLI) SaveHistory() {
	if err := config.EnsureConfigDir(); err != nil {
		return
	}
	f, err := os.OpenFile(c.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return
	}
	defer f.Close()
	c.line.WriteHistory(f)
}

// Close saves history and closes the liner.
func (c *ChatCLI) Close() {
	c.SaveHistory()
	c.line.Close()
}

// =============================================================================
// CHAT REPL
// =============================================================================

// HandleChat runs the line-mode chat REPL.
func HandleChat(args Args) error {
	cfg := config.Global()
	ctrl, store, err := BuildController(cfg, args)
	if err != nil {
		return err
	}
	if store != nil {
		defer store.Close()
	}

	cli := NewChatCLI()
	defer cli.Close()

	if !args.Quiet {
		fmt.Println("quill chat - /help for commands, Ctrl-D to exit")
	}

	for {
		input, err := cli.ReadInput("you> ")
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) || err == io.EOF {
				break
			}
			return err
		}
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}

		if strings.HasPrefix(input, "/") {
			quit, err := handleSlashCommand(input, ctrl, store)
			if err != nil {
				fmt.Fprintf(os.Stderr, "error: %v\n", err)
			}
			if quit {
				break
			}
			continue
		}

		if err := streamExchange(ctrl, input); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
	}

	persistREPLSession(ctrl, store)
	return nil
}

// streamExchange sends one message and prints the reply as it arrives.
// Ctrl-C while the reply streams cancels it instead of exiting.
func streamExchange(ctrl *controller.Controller, input string) error {
	if err := ctrl.Send(input); err != nil {
		return err
	}

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	defer func() {
		signal.Stop(interrupt)
		close(interrupt)
	}()
	go func() {
		for range interrupt {
			ctrl.Cancel()
		}
	}()

	fmt.Print("assistant> ")

	// The stream goroutine owns the live turn; read frozen snapshots.
	printed := 0
	itemsShown := 0
	for ctrl.Busy() {
		time.Sleep(40 * time.Millisecond)
		turn := ctrl.SnapshotSession().LastTurn()
		if turn == nil || turn.Role != transcript.RoleAssistant {
			continue
		}
		printed, itemsShown = printProgress(turn, printed, itemsShown)
	}

	turn := ctrl.Session().LastTurn()
	if turn == nil || turn.Role != transcript.RoleAssistant {
		fmt.Println()
		return nil
	}

	if turn.Status == transcript.StatusErrored {
		// Streamed fragments are superseded by the fixed failure text.
		fmt.Println()
		fmt.Println(turn.FinalText)
		return nil
	}

	printed, _ = printProgress(turn, printed, itemsShown)
	text := turn.Text()
	if printed < len(text) {
		fmt.Print(text[printed:])
	}
	fmt.Println()
	return nil
}

// printProgress prints any new text and item annotations, returning the
// updated counts.
func printProgress(turn *transcript.Turn, printed, itemsShown int) (int, int) {
	text := turn.Text()
	if printed < len(text) {
		fmt.Print(text[printed:])
		printed = len(text)
	}
	for ; itemsShown < len(turn.Items); itemsShown++ {
		fmt.Printf("\n[%s]\n", turn.Items[itemsShown].Summary())
	}
	return printed, itemsShown
}

// =============================================================================
// SLASH COMMANDS
// =============================================================================

// handleSlashCommand executes a REPL slash command. quit is true when
// the REPL should exit.
func handleSlashCommand(input string, ctrl *controller.Controller, store *storage.Store) (bool, error) {
	fields := strings.Fields(input)
	name := strings.ToLower(fields[0])
	args := fields[1:]

	switch name {
	case "/help":
		printREPLHelp()
		return false, nil

	case "/quit", "/exit":
		return true, nil

	case "/new", "/clear":
		persistREPLSession(ctrl, store)
		if err := ctrl.Reset(transcript.NewSession()); err != nil {
			return false, err
		}
		fmt.Println("started a new session")
		return false, nil

	case "/save":
		if store == nil {
			return false, errors.New("persistence is disabled")
		}
		if err := store.Save(ctrl.Session()); err != nil {
			return false, err
		}
		fmt.Println("session saved")
		return false, nil

	case "/sessions", "/list":
		if store == nil {
			return false, errors.New("persistence is disabled")
		}
		metas, err := store.List()
		if err != nil {
			return false, err
		}
		fmt.Print(storage.FormatSessionList(metas))
		return false, nil

	case "/load":
		if store == nil {
			return false, errors.New("persistence is disabled")
		}
		if len(args) != 1 {
			return false, errors.New("usage: /load <number from /sessions>")
		}
		index, err := strconv.Atoi(args[0])
		if err != nil {
			return false, errors.New("usage: /load <number from /sessions>")
		}
		session, err := store.LoadByIndex(index)
		if err != nil {
			return false, err
		}
		persistREPLSession(ctrl, store)
		if err := ctrl.Reset(session); err != nil {
			return false, err
		}
		fmt.Printf("loaded session %s\n", session.ID)
		replayTranscript(session)
		return false, nil

	case "/export":
		format := "markdown"
		if len(args) > 0 {
			format = strings.ToLower(args[0])
		}
		path, err := exportCurrent(ctrl.Session(), format)
		if err != nil {
			return false, err
		}
		fmt.Printf("exported to %s\n", path)
		return false, nil

	default:
		return false, fmt.Errorf("unknown command %s, try /help", name)
	}
}

// exportCurrent writes the session in the requested format.
func exportCurrent(session *transcript.Session, format string) (string, error) {
	opts := export.DefaultOptions()
	switch format {
	case "markdown", "md":
		return export.ExportMarkdown(session, opts)
	case "html":
		return export.ExportHTML(session, opts)
	case "json":
		return export.ExportJSON(session, opts)
	default:
		return "", fmt.Errorf("unknown format %s, use markdown, html, or json", format)
	}
}

// replayTranscript prints a loaded session's turns.
func replayTranscript(session *transcript.Session) {
	for _, turn := range session.Turns {
		switch turn.Role {
		case transcript.RoleUser:
			fmt.Printf("you> %s\n", turn.Text())
		case transcript.RoleAssistant:
			fmt.Printf("assistant> %s\n", turn.Text())
		}
	}
}

// persistREPLSession saves the current session when possible.
func persistREPLSession(ctrl *controller.Controller, store *storage.Store) {
	if store == nil {
		return
	}
	session := ctrl.Session()
	if session.IsEmpty() {
		return
	}
	if err := store.Save(session); err != nil {
		fmt.Fprintf(os.Stderr, "warning: failed to save session: %v\n", err)
	}
}

func printREPLHelp() {
	fmt.Print(`Commands:
  /help            Show this help
  /new             Save and start a new session
  /save            Save the current session
  /sessions        List saved sessions
  /load <n>        Load a saved session by number
  /export [fmt]    Export (markdown, html, json)
  /quit            Exit
Press Ctrl-C during a reply to stop it.
`)
}
