// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jeranaias/quill-tui/internal/config"
	"github.com/jeranaias/quill-tui/internal/storage"
)

// =============================================================================
// SESSION MANAGEMENT
// =============================================================================

// HandleSessions implements `quill sessions [list|search|delete|clear]`.
func HandleSessions(args Args) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	sub := args.Subcommand
	if sub == "" {
		sub = "list"
	}

	switch sub {
	case "list":
		metas, err := store.List()
		if err != nil {
			return err
		}
		fmt.Print(storage.FormatSessionList(metas))
		return nil

	case "search":
		if len(args.Raw) < 2 {
			return errors.New("usage: quill sessions search <query>")
		}
		metas, err := store.Search(strings.Join(args.Raw[1:], " "))
		if err != nil {
			return err
		}
		fmt.Print(storage.FormatSessionList(metas))
		return nil

	case "delete":
		if len(args.Raw) != 2 {
			return errors.New("usage: quill sessions delete <number>")
		}
		index, err := strconv.Atoi(args.Raw[1])
		if err != nil {
			return errors.New("usage: quill sessions delete <number>")
		}
		session, err := store.LoadByIndex(index)
		if err != nil {
			return err
		}
		if err := store.Delete(session.ID); err != nil {
			return err
		}
		fmt.Printf("deleted session %s\n", session.ID)
		return nil

	case "clear":
		if err := store.Clear(); err != nil {
			return err
		}
		fmt.Println("all sessions deleted")
		return nil

	default:
		return fmt.Errorf("unknown sessions command %q (list, search, delete, clear)", sub)
	}
}

// HandleExport exports the most recent saved session.
func HandleExport(args Args) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	session, err := store.LoadByIndex(0)
	if err != nil {
		return err
	}

	format := args.Subcommand
	if format == "" {
		format = "markdown"
	}
	path, err := exportCurrent(session, format)
	if err != nil {
		return err
	}
	if !args.Quiet {
		fmt.Printf("exported to %s\n", path)
	}
	return nil
}

// openStore opens the session store regardless of the storage.enabled
// flag, so saved history stays reachable after persistence is turned
// off.
func openStore() (*storage.Store, error) {
	cfg := config.Global()
	path := cfg.Storage.Path
	if path == "" {
		var err error
		path, err = storage.DefaultPath()
		if err != nil {
			return nil, err
		}
	}
	return storage.Open(path, cfg.Storage.MaxSessions)
}
