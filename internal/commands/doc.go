// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package commands provides the slash command system shared by the TUI and
// the line-mode prompt.
//
// Handlers act on a conversation.Manager and must run on its loop. Output
// goes through Context.Print so each host can show it its own way.
//
// # Key Types
//
//   - Registry: Command registry with all available commands
//   - Parser: Splits input into a command and quoted arguments
//   - Completer: Tab completion for command names and arguments
//
// # Built-in Commands
//
//   - /help: Show available commands
//   - /new, /chats, /open, /delete: Chat management
//   - /model: Show or switch the model
//   - /attach, /detach, /files, /clear-files: Attachments
//   - /cancel: Stop the reply in progress
//
// # Usage
//
//	result := parser.Parse(input)
//	if result.IsCommand {
//	    err := registry.Execute(ctx, result)
//	}
//
//	completer.Complete("/mo") // ["/model"]
package commands
