// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package commands

import (
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// Completer handles tab completion for commands and arguments.
type Completer struct {
	registry *Registry

	// ChatCountFn returns how many chats are listed, for /open and /delete.
	ChatCountFn func() int
}

// NewCompleter creates a new completer with the given registry.
func NewCompleter(registry *Registry) *Completer {
	return &Completer{registry: registry}
}

// Complete returns full-line candidates for input. Non-command input has
// none.
func (c *Completer) Complete(input string) []string {
	if !strings.HasPrefix(strings.TrimLeft(input, " "), "/") {
		return nil
	}
	input = strings.TrimLeft(input, " ")

	parts := splitCommandLine(input)
	if len(parts) == 0 {
		return nil
	}
	if len(parts) == 1 && !strings.HasSuffix(input, " ") {
		return c.completeCommands(parts[0])
	}

	cmd := c.registry.Get(strings.ToLower(parts[0]))
	if cmd == nil || len(cmd.Args) == 0 {
		return nil
	}

	argIndex := len(parts) - 2
	partial := parts[len(parts)-1]
	if strings.HasSuffix(input, " ") {
		argIndex++
		partial = ""
	}
	// Variadic file arguments reuse the last definition.
	if argIndex >= len(cmd.Args) {
		last := cmd.Args[len(cmd.Args)-1]
		if last.Type != ArgTypeFile {
			return nil
		}
		argIndex = len(cmd.Args) - 1
	}

	prefix := strings.TrimSuffix(input, partial)
	var values []string
	switch def := cmd.Args[argIndex]; def.Type {
	case ArgTypeModel:
		values = filterPrefix(SuggestedModels, partial)
	case ArgTypeEnum:
		values = filterPrefix(def.Values, partial)
	case ArgTypeFile:
		values = completeFiles(partial)
	case ArgTypeChat:
		if c.ChatCountFn != nil {
			var nums []string
			for i := 1; i <= c.ChatCountFn(); i++ {
				nums = append(nums, strconv.Itoa(i))
			}
			values = filterPrefix(nums, partial)
		}
	}

	out := make([]string, len(values))
	for i, v := range values {
		out[i] = prefix + v
	}
	return out
}

func (c *Completer) completeCommands(partial string) []string {
	partial = strings.ToLower(partial)
	var names []string
	for _, cmd := range c.registry.All() {
		if strings.HasPrefix(cmd.Name, partial) {
			names = append(names, cmd.Name)
		}
	}
	return names
}

func filterPrefix(values []string, partial string) []string {
	var out []string
	for _, v := range values {
		if strings.HasPrefix(v, partial) {
			out = append(out, v)
		}
	}
	return out
}

// completeFiles lists entries matching partial; directories get a trailing
// separator so completion can continue into them.
func completeFiles(partial string) []string {
	dir, base := filepath.Split(partial)
	readDir := dir
	if readDir == "" {
		readDir = "."
	}
	entries, err := os.ReadDir(readDir)
	if err != nil {
		return nil
	}
	var out []string
	for _, e := range entries {
		name := e.Name()
		if !strings.HasPrefix(name, base) || (strings.HasPrefix(name, ".") && !strings.HasPrefix(base, ".")) {
			continue
		}
		if e.IsDir() {
			name += string(filepath.Separator)
		}
		out = append(out, dir+name)
	}
	sort.Strings(out)
	return out
}
