// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/jeranaias/quill-tui/internal/config"
	"github.com/jeranaias/quill-tui/internal/transcript"
)

// =============================================================================
// ONE-SHOT ASK
// =============================================================================

// HandleAsk sends a single question and prints the reply to stdout.
// The question comes from the arguments, or from stdin when piped.
func HandleAsk(args Args) error {
	query := strings.TrimSpace(args.Query)
	if query == "" && !IsTTY() {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return err
		}
		query = strings.TrimSpace(string(data))
	}
	if query == "" {
		return errors.New("usage: quill ask <question>")
	}

	cfg := config.Global()
	ctrl, store, err := BuildController(cfg, args)
	if err != nil {
		return err
	}
	if store != nil {
		defer store.Close()
	}

	if err := ctrl.Send(query); err != nil {
		return err
	}

	// When stdout is a terminal, print deltas as they arrive. Piped
	// output gets the final text in one write. The live turn belongs
	// to the stream goroutine, so each poll reads a frozen snapshot.
	printed := 0
	live := IsStdoutTTY()
	for ctrl.Busy() {
		time.Sleep(40 * time.Millisecond)
		if !live {
			continue
		}
		if turn := ctrl.SnapshotSession().LastTurn(); turn != nil && turn.Role == transcript.RoleAssistant {
			text := turn.Text()
			if printed < len(text) {
				fmt.Print(text[printed:])
				printed = len(text)
			}
		}
	}

	turn := ctrl.Session().LastTurn()
	if turn == nil || turn.Role != transcript.RoleAssistant {
		return errors.New("no reply received")
	}

	if turn.Status == transcript.StatusErrored {
		if printed > 0 {
			fmt.Println()
		}
		fmt.Fprintln(os.Stderr, turn.FinalText)
		os.Exit(1)
	}

	text := turn.Text()
	if printed < len(text) {
		fmt.Print(text[printed:])
	}
	fmt.Println()
	return nil
}
