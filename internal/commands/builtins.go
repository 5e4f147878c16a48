// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package commands

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/jeranaias/alfred-tui/internal/export"
	"github.com/jeranaias/alfred-tui/internal/model"
)

// SuggestedModels are offered by /model completion. Any name the backend
// accepts works.
var SuggestedModels = []string{
	"llama3.2",
	"mistral",
	"gemini-1.5-flash",
	"gemini-1.5-pro",
	"gpt-4o-mini",
	"gpt-4o",
}

func (r *Registry) registerBuiltins() {
	r.Register(&Command{
		Name:        "/help",
		Aliases:     []string{"/h", "/?"},
		Description: "Show available commands",
		Usage:       "/help",
		Category:    "General",
		Handler:     handleHelp,
	})
	r.Register(&Command{
		Name:        "/quit",
		Aliases:     []string{"/q", "/exit"},
		Description: "Exit alfred",
		Usage:       "/quit",
		Category:    "General",
		Handler: func(ctx *Context, _ []string) error {
			if ctx.Quit != nil {
				ctx.Quit()
			}
			return nil
		},
	})
	r.Register(&Command{
		Name:        "/cancel",
		Description: "Stop the reply in progress",
		Usage:       "/cancel",
		Category:    "General",
		Handler: func(ctx *Context, _ []string) error {
			ctx.Chat.Cancel()
			return nil
		},
	})
	r.Register(&Command{
		Name:        "/session",
		Description: "Show the session identifier",
		Usage:       "/session",
		Category:    "General",
		Handler: func(ctx *Context, _ []string) error {
			ctx.printf("Session: %s", ctx.Chat.SessionID())
			return nil
		},
	})

	r.Register(&Command{
		Name:        "/new",
		Aliases:     []string{"/n"},
		Description: "Start a new chat",
		Usage:       "/new",
		Category:    "Chats",
		Handler: func(ctx *Context, _ []string) error {
			ctx.Chat.NewChat()
			return nil
		},
	})
	r.Register(&Command{
		Name:        "/chats",
		Aliases:     []string{"/list", "/ls"},
		Description: "List chats",
		Usage:       "/chats",
		Category:    "Chats",
		Handler:     handleChats,
	})
	r.Register(&Command{
		Name:        "/open",
		Aliases:     []string{"/o"},
		Description: "Open a chat by number or #id",
		Usage:       "/open <n|#id>",
		Args:        []ArgDef{{Name: "chat", Required: true, Type: ArgTypeChat}},
		Category:    "Chats",
		Handler: func(ctx *Context, args []string) error {
			id, err := resolveChat(ctx, args[0])
			if err != nil {
				return err
			}
			ctx.Chat.SelectChat(id)
			return nil
		},
	})
	r.Register(&Command{
		Name:        "/delete",
		Aliases:     []string{"/rm"},
		Description: "Delete a chat by number or #id",
		Usage:       "/delete <n|#id>",
		Args:        []ArgDef{{Name: "chat", Required: true, Type: ArgTypeChat}},
		Category:    "Chats",
		Handler: func(ctx *Context, args []string) error {
			id, err := resolveChat(ctx, args[0])
			if err != nil {
				return err
			}
			ctx.Chat.DeleteChat(id)
			return nil
		},
	})
	r.Register(&Command{
		Name:        "/refresh",
		Description: "Reload the chat list",
		Usage:       "/refresh",
		Category:    "Chats",
		Handler: func(ctx *Context, _ []string) error {
			ctx.Chat.RefreshChats()
			return nil
		},
	})

	r.Register(&Command{
		Name:        "/export",
		Description: "Save the conversation as Markdown or JSON",
		Usage:       "/export [md|json] [dir]",
		Args: []ArgDef{
			{Name: "format", Type: ArgTypeEnum, Values: []string{"md", "json"}},
			{Name: "dir", Type: ArgTypeFile},
		},
		Category: "Chats",
		Handler:  handleExport,
	})

	r.Register(&Command{
		Name:        "/model",
		Aliases:     []string{"/m"},
		Description: "Show or switch the model",
		Usage:       "/model [name]",
		Args:        []ArgDef{{Name: "name", Type: ArgTypeModel}},
		Category:    "Model",
		Handler: func(ctx *Context, args []string) error {
			if len(args) == 0 {
				ctx.printf("Model: %s (%s)", ctx.Chat.Model(), model.ProviderFor(ctx.Chat.Model()))
				return nil
			}
			ctx.Chat.SetModel(args[0])
			ctx.printf("Model: %s", ctx.Chat.Model())
			return nil
		},
	})

	r.Register(&Command{
		Name:        "/attach",
		Aliases:     []string{"/a"},
		Description: "Attach files to the next message",
		Usage:       "/attach <path>...",
		Args:        []ArgDef{{Name: "path", Required: true, Type: ArgTypeFile}},
		Category:    "Files",
		Handler: func(ctx *Context, args []string) error {
			for _, p := range args {
				if err := ctx.Chat.AddAttachment(p); err != nil {
					return err
				}
			}
			ctx.printf("%d file(s) queued", len(ctx.Chat.Attachments()))
			return nil
		},
	})
	r.Register(&Command{
		Name:        "/detach",
		Description: "Remove a queued attachment",
		Usage:       "/detach <n>",
		Args:        []ArgDef{{Name: "n", Required: true}},
		Category:    "Files",
		Handler: func(ctx *Context, args []string) error {
			n, err := strconv.Atoi(args[0])
			if err != nil || n < 1 || n > len(ctx.Chat.Attachments()) {
				return fmt.Errorf("no attachment %q", args[0])
			}
			ctx.Chat.RemoveAttachment(n - 1)
			return nil
		},
	})
	r.Register(&Command{
		Name:        "/files",
		Description: "List queued attachments",
		Usage:       "/files",
		Category:    "Files",
		Handler: func(ctx *Context, _ []string) error {
			files := ctx.Chat.Attachments()
			if len(files) == 0 {
				ctx.printf("No files queued.")
				return nil
			}
			var b strings.Builder
			for i, f := range files {
				fmt.Fprintf(&b, "%d. %s\n", i+1, filepath.Base(f))
			}
			ctx.printf("%s", strings.TrimRight(b.String(), "\n"))
			return nil
		},
	})
	r.Register(&Command{
		Name:        "/clear-files",
		Description: "Forget files uploaded to this session",
		Usage:       "/clear-files",
		Category:    "Files",
		Handler: func(ctx *Context, _ []string) error {
			ctx.Chat.ClearFiles()
			return nil
		},
	})
}

// =============================================================================
// HANDLERS
// =============================================================================

var categoryOrder = []string{"Chats", "Model", "Files", "General"}

func handleHelp(ctx *Context, _ []string) error {
	groups := ctx.Registry.ByCategory()
	var b strings.Builder
	for _, cat := range categoryOrder {
		cmds := groups[cat]
		if len(cmds) == 0 {
			continue
		}
		fmt.Fprintf(&b, "%s\n", cat)
		for _, cmd := range cmds {
			fmt.Fprintf(&b, "  %-20s %s\n", cmd.Usage, cmd.Description)
		}
	}
	ctx.printf("%s", strings.TrimRight(b.String(), "\n"))
	return nil
}

func handleChats(ctx *Context, _ []string) error {
	chats := ctx.Chat.Chats()
	if len(chats) == 0 {
		ctx.printf("No conversations yet.")
		return nil
	}
	var b strings.Builder
	for i, c := range chats {
		marker := " "
		if c.ID == ctx.Chat.CurrentChat() {
			marker = "*"
		}
		fmt.Fprintf(&b, "%s %2d. %s (#%d)\n", marker, i+1, c.Title, c.ID)
	}
	ctx.printf("%s", strings.TrimRight(b.String(), "\n"))
	return nil
}

func handleExport(ctx *Context, args []string) error {
	format, dir := "md", "."
	if len(args) > 0 {
		format = args[0]
	}
	if len(args) > 1 {
		dir = args[1]
	}
	opts := export.DefaultOptions()
	opts.OutputDir = dir
	exporter, err := export.ForFormat(format, opts)
	if err != nil {
		return err
	}

	t := export.NewTranscript(ctx.Chat.CurrentTitle(), ctx.Chat.CurrentChat(),
		ctx.Chat.SessionID(), ctx.Chat.Model(), ctx.Chat.Displayed())
	path, err := export.ExportToFile(t, exporter, opts)
	if err != nil {
		return err
	}
	ctx.printf("Exported to %s", path)
	return nil
}

// resolveChat maps "3" to the third listed chat and "#42" to chat 42.
func resolveChat(ctx *Context, arg string) (model.ChatID, error) {
	if strings.HasPrefix(arg, "#") {
		id, err := strconv.ParseInt(arg[1:], 10, 64)
		if err != nil || !model.ChatID(id).Valid() {
			return model.NoChat, fmt.Errorf("invalid chat id %q", arg)
		}
		return model.ChatID(id), nil
	}
	n, err := strconv.Atoi(arg)
	chats := ctx.Chat.Chats()
	if err != nil || n < 1 || n > len(chats) {
		return model.NoChat, fmt.Errorf("no chat %q, see /chats", arg)
	}
	return chats[n-1].ID, nil
}
