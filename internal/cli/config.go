// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"io"

	"github.com/jeranaias/alfred-tui/internal/config"
)

// HandleConfig runs "alfred config". cfg is the effective configuration
// (file plus environment); path is the file that set writes to.
func HandleConfig(args Args, cfg *config.Config, path string, w io.Writer) error {
	switch args.ConfigAction {
	case "", "list":
		return listConfig(cfg, w)

	case "get":
		v, err := cfg.Get(args.ConfigKey)
		if err != nil {
			return NewUsageError(err.Error())
		}
		fmt.Fprintln(w, v)
		return nil

	case "set":
		return setConfig(args.ConfigKey, args.ConfigValue, path, w)

	case "path":
		fmt.Fprintln(w, path)
		return nil

	default:
		return NewUsageError("unknown config action: " + args.ConfigAction)
	}
}

func listConfig(cfg *config.Config, w io.Writer) error {
	keys := config.Keys()
	width := 0
	for _, k := range keys {
		width = max(width, len(k))
	}
	for _, k := range keys {
		v, err := cfg.Get(k)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%s  %s\n", LabelStyle.Render(fmt.Sprintf("%-*s", width, k)), ValueStyle.Render(fmt.Sprint(v)))
	}
	return nil
}

// setConfig edits the file contents only, so environment overrides never
// leak into the saved file.
func setConfig(key, value, path string, w io.Writer) error {
	cfg, err := config.ReadFile(path)
	if err != nil {
		return err
	}
	if err := cfg.Set(key, value); err != nil {
		return NewUsageError(err.Error())
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if err := config.SaveTo(cfg, path); err != nil {
		return err
	}
	fmt.Fprintf(w, "%s %s = %s\n", SuccessStyle.Render("Saved"), key, value)
	return nil
}
