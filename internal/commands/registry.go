// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package commands

import (
	"errors"
	"fmt"
	"sort"

	"github.com/jeranaias/alfred-tui/internal/conversation"
)

// =============================================================================
// COMMAND DEFINITION
// =============================================================================

// Command represents a slash command that can be executed.
type Command struct {
	// Name is the primary command name (e.g., "/help")
	Name string

	// Aliases are alternative names (e.g., "/h", "/?")
	Aliases []string

	// Description is shown in help and completion
	Description string

	// Usage shows argument syntax (e.g., "/model <name>")
	Usage string

	// Args defines the expected arguments
	Args []ArgDef

	// Handler executes the command on the manager's loop
	Handler func(ctx *Context, args []string) error

	// Category for grouping in help display
	Category string
}

// ArgDef defines an argument for a command.
type ArgDef struct {
	Name     string
	Required bool
	Type     ArgType
	// Values for enum types
	Values []string
}

// ArgType indicates what kind of completion to provide.
type ArgType int

const (
	ArgTypeString ArgType = iota // Free-form string
	ArgTypeModel                 // Model name
	ArgTypeChat                  // Chat number from /chats
	ArgTypeFile                  // File path
	ArgTypeEnum                  // One of predefined values
)

// Context is what a handler acts on.
type Context struct {
	Chat *conversation.Manager

	// Print shows informational output to the user.
	Print func(string)

	// Quit ends the program.
	Quit func()

	Registry *Registry
}

func (c *Context) printf(format string, args ...any) {
	if c.Print != nil {
		c.Print(fmt.Sprintf(format, args...))
	}
}

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrUnknownCommand is returned for a slash command nobody registered.
	ErrUnknownCommand = errors.New("unknown command")

	// ErrMissingArgument is returned when a required argument is absent.
	ErrMissingArgument = errors.New("missing argument")
)

// =============================================================================
// COMMAND REGISTRY
// =============================================================================

// Registry holds all registered commands.
type Registry struct {
	commands map[string]*Command
	aliases  map[string]*Command
}

// NewRegistry creates a new command registry with all built-in commands.
func NewRegistry() *Registry {
	r := &Registry{
		commands: make(map[string]*Command),
		aliases:  make(map[string]*Command),
	}
	r.registerBuiltins()
	return r
}

// Register adds a command to the registry.
func (r *Registry) Register(cmd *Command) {
	r.commands[cmd.Name] = cmd
	for _, alias := range cmd.Aliases {
		r.aliases[alias] = cmd
	}
}

// Get retrieves a command by name or alias.
func (r *Registry) Get(name string) *Command {
	if cmd, ok := r.commands[name]; ok {
		return cmd
	}
	if cmd, ok := r.aliases[name]; ok {
		return cmd
	}
	return nil
}

// All returns all registered commands sorted by name.
func (r *Registry) All() []*Command {
	cmds := make([]*Command, 0, len(r.commands))
	for _, cmd := range r.commands {
		cmds = append(cmds, cmd)
	}
	sort.Slice(cmds, func(i, j int) bool { return cmds[i].Name < cmds[j].Name })
	return cmds
}

// ByCategory returns commands grouped by category.
func (r *Registry) ByCategory() map[string][]*Command {
	result := make(map[string][]*Command)
	for _, cmd := range r.All() {
		category := cmd.Category
		if category == "" {
			category = "General"
		}
		result[category] = append(result[category], cmd)
	}
	return result
}

// Execute runs a parsed command.
func (r *Registry) Execute(ctx *Context, res ParseResult) error {
	if res.Command == nil {
		return fmt.Errorf("%w: %s", ErrUnknownCommand, res.CommandName)
	}
	for i, arg := range res.Command.Args {
		if arg.Required && i >= len(res.Args) {
			return fmt.Errorf("%w: usage %s", ErrMissingArgument, res.Command.Usage)
		}
	}
	if ctx.Registry == nil {
		ctx.Registry = r
	}
	return res.Command.Handler(ctx, res.Args)
}
