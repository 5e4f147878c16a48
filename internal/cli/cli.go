// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"io"
	"runtime"
	"slices"
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
	CmdLine
	CmdConfig
	CmdVersion
	CmdHelp
)

// Args holds parsed CLI arguments.
type Args struct {
	Cmd Command

	// LineMode forces the plain-terminal REPL even on a terminal.
	LineMode bool

	// NewSession discards the stored session identifier first.
	NewSession bool

	// APIBase and Model override the configuration for this run.
	APIBase string
	Model   string

	// ConfigAction is list, get, set or path.
	ConfigAction string
	ConfigKey    string
	ConfigValue  string
}

var boolFlags = []string{"line", "l", "new-session", "version", "v", "help", "h"}

var valueFlags = []string{"api-base", "model", "m"}

const usageText = `alfred - terminal client for the Alfred personal assistant

Usage:
  alfred [flags]                     Start the chat interface
  alfred config list                 Show every configuration key
  alfred config get <key>            Show one configuration value
  alfred config set <key> <value>    Change a configuration value
  alfred config path                 Show the configuration file path
  alfred version                     Show version information
  alfred help                        Show this help

Flags:
  -l, --line            Use the line-mode REPL instead of the full-screen UI
      --new-session     Start a new session (forgets this device's chats)
      --api-base URL    Backend address (overrides backend.url)
  -m, --model NAME      Model for this run (overrides agent.model)
  -v, --version         Show version information
  -h, --help            Show this help

The line-mode REPL is used automatically when stdin or stdout is not a
terminal. Type /help inside either interface for chat commands.

Environment:
  ALFRED_HOME           Configuration directory (default: ~/.alfred)
  ALFRED_API_BASE       Backend address
  ALFRED_MODEL          Model name
  ALFRED_LOG_FILE       Debug log destination
`

// ParseArgs parses os.Args[1:].
func ParseArgs(raw []string) (Args, error) {
	p := NewArgParser(raw, boolFlags...)
	for _, name := range p.FlagNames() {
		if !slices.Contains(boolFlags, name) && !slices.Contains(valueFlags, name) {
			return Args{}, NewUsageError("unknown flag: " + name)
		}
	}

	args := Args{
		LineMode:   p.BoolFlag("line", "l"),
		NewSession: p.BoolFlag("new-session"),
		APIBase:    p.Flag("api-base"),
		Model:      p.Flag("model", "m"),
	}
	if p.BoolFlag("api-base") || p.BoolFlag("model", "m") {
		return Args{}, NewUsageError("flag needs a value")
	}

	switch {
	case p.BoolFlag("help", "h"):
		args.Cmd = CmdHelp
		return args, nil
	case p.BoolFlag("version", "v"):
		args.Cmd = CmdVersion
		return args, nil
	}

	switch sub := p.Subcommand(); sub {
	case "":
		args.Cmd = CmdTUI
		if args.LineMode {
			args.Cmd = CmdLine
		}
	case "config":
		args.Cmd = CmdConfig
		return parseConfigArgs(args, p.PositionalFrom(1))
	case "version":
		args.Cmd = CmdVersion
	case "help":
		args.Cmd = CmdHelp
	default:
		return Args{}, NewUsageError("unknown command: " + sub)
	}
	return args, nil
}

func parseConfigArgs(args Args, rest []string) (Args, error) {
	if len(rest) == 0 {
		args.ConfigAction = "list"
		return args, nil
	}
	args.ConfigAction = rest[0]
	switch args.ConfigAction {
	case "list", "path":
		return args, nil
	case "get":
		if len(rest) < 2 {
			return Args{}, NewUsageError("usage: alfred config get <key>")
		}
		args.ConfigKey = rest[1]
	case "set":
		if len(rest) < 3 {
			return Args{}, NewUsageError("usage: alfred config set <key> <value>")
		}
		args.ConfigKey = rest[1]
		args.ConfigValue = rest[2]
	default:
		return Args{}, NewUsageError("unknown config action: " + args.ConfigAction)
	}
	return args, nil
}

// PrintUsage writes the help text.
func PrintUsage(w io.Writer) {
	fmt.Fprint(w, usageText)
}

// PrintVersion writes version information.
func PrintVersion(w io.Writer) {
	fmt.Fprintf(w, "alfred %s\n", Version)
	fmt.Fprintf(w, "  Commit:  %s\n", GitCommit)
	fmt.Fprintf(w, "  Built:   %s\n", BuildDate)
	fmt.Fprintf(w, "  Go:      %s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
}
