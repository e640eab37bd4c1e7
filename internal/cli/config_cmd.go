// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"errors"
	"fmt"

	"github.com/jeranaias/quill-tui/internal/config"
)

// =============================================================================
// CONFIG COMMAND
// =============================================================================

// HandleConfig implements `quill config [list|get|set|path]`.
func HandleConfig(args Args) error {
	sub := args.Subcommand
	if sub == "" {
		sub = "list"
	}

	cfg := config.Global()

	switch sub {
	case "list":
		for _, key := range config.GetAllKeys() {
			value, err := cfg.Get(key)
			if err != nil {
				continue
			}
			fmt.Printf("%-28s = %v\n", key, value)
		}
		return nil

	case "get":
		if len(args.Raw) != 2 {
			return errors.New("usage: quill config get <key>")
		}
		value, err := cfg.Get(args.Raw[1])
		if err != nil {
			return err
		}
		fmt.Printf("%v\n", value)
		return nil

	case "set":
		if len(args.Raw) != 3 {
			return errors.New("usage: quill config set <key> <value>")
		}
		key, value := args.Raw[1], args.Raw[2]
		if err := cfg.Set(key, value); err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		if err := config.Save(cfg); err != nil {
			return err
		}
		fmt.Printf("%s = %s\n", key, value)
		return nil

	case "path":
		path, err := config.ConfigPathTOML()
		if err != nil {
			return err
		}
		fmt.Println(path)
		return nil

	default:
		return fmt.Errorf("unknown config command %q (list, get, set, path)", sub)
	}
}
