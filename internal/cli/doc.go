// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli provides command-line parsing and the non-TUI surfaces of
// alfred: the config subcommand and the line-mode chat REPL.
//
// # Key Types
//
//   - Args: Parsed command-line arguments
//   - ArgParser: Flag and positional argument splitting
//   - LineMode: Interactive chat over a plain terminal using liner
//
// # Usage
//
//	args, err := cli.ParseArgs(os.Args[1:])
//	if err != nil {
//	    cli.HandleErrorAndExit(err)
//	}
//	switch args.Cmd {
//	case cli.CmdConfig:
//	    return cli.HandleConfig(args, cfg, os.Stdout)
//	case cli.CmdLine:
//	    return lineMode.Run(ctx)
//	}
package cli
