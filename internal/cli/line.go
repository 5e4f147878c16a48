// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"

	"github.com/peterh/liner"

	"github.com/jeranaias/alfred-tui/internal/commands"
	"github.com/jeranaias/alfred-tui/internal/conversation"
	"github.com/jeranaias/alfred-tui/internal/loop"
	"github.com/jeranaias/alfred-tui/internal/model"
	"github.com/jeranaias/alfred-tui/internal/overlay"
	"github.com/jeranaias/alfred-tui/internal/util"
)

// =============================================================================
// LINE MODE
// =============================================================================

// LineOptions configures line mode.
type LineOptions struct {
	// Queue is the loop the conversation manager posts to. LineMode runs it.
	Queue *loop.Queue

	Registry *commands.Registry

	// HistoryFile keeps input history between runs; empty disables it.
	HistoryFile string

	Out io.Writer
}

// LineMode is the chat REPL for plain terminals and pipes. Replies are
// printed as they stream.
//
// The manager is only touched on the queue goroutine. Input is read on the
// caller's goroutine and handed to the queue with call.
type LineMode struct {
	queue     *loop.Queue
	registry  *commands.Registry
	parser    *commands.Parser
	completer *commands.Completer
	history   string
	out       io.Writer

	chat      *conversation.Manager
	chatCount atomic.Int64

	// Loop-owned reply tracking.
	waiting bool
	done    chan struct{}
	replyID string
	printed int
	started bool
}

// NewLineMode creates a line-mode host. Pass Refresh as the manager's
// OnUpdate and then call Bind.
func NewLineMode(opts LineOptions) *LineMode {
	registry := opts.Registry
	if registry == nil {
		registry = commands.NewRegistry()
	}
	out := opts.Out
	if out == nil {
		out = os.Stdout
	}

	l := &LineMode{
		queue:    opts.Queue,
		registry: registry,
		parser:   commands.NewParser(registry),
		history:  opts.HistoryFile,
		out:      out,
	}
	l.completer = commands.NewCompleter(registry)
	l.completer.ChatCountFn = func() int { return int(l.chatCount.Load()) }

	registry.Register(&commands.Command{
		Name:        "/history",
		Description: "Print the current conversation",
		Usage:       "/history",
		Category:    "Chats",
		Handler:     l.printHistory,
	})
	return l
}

// Bind attaches the manager. It must be called before Run.
func (l *LineMode) Bind(m *conversation.Manager) {
	l.chat = m
}

// Run reads input until EOF, Ctrl+C at the prompt, or /quit.
func (l *LineMode) Run(ctx context.Context) error {
	if l.chat == nil {
		return errors.New("line mode has no conversation manager")
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go l.queue.Run(ctx)

	l.call(l.chat.Start)

	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)
	line.SetCompleter(l.completer.Complete)
	l.loadHistory(line)
	defer l.saveHistory(line)

	l.printWelcome()

	for ctx.Err() == nil {
		input, err := line.Prompt("alfred> ")
		if err != nil {
			// Ctrl+C, Ctrl+D or a closed stdin.
			fmt.Fprintln(l.out)
			break
		}
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		line.AppendHistory(input)
		if l.handle(ctx, input) {
			break
		}
	}

	l.call(l.chat.Close)
	return nil
}

// handle runs one input line and reports whether to quit.
func (l *LineMode) handle(ctx context.Context, input string) bool {
	if commands.IsCommand(input) {
		return l.runCommand(input)
	}

	done := make(chan struct{})
	var err error
	l.call(func() {
		l.chat.SetDraft(input)
		if err = l.chat.Send(); err != nil {
			return
		}
		l.waiting = true
		l.done = done
		l.replyID = ""
		l.printed = 0
		l.started = false
	})
	switch {
	case errors.Is(err, conversation.ErrEmptyMessage):
		return false
	case err != nil:
		fmt.Fprintln(l.out, ErrorStyle.Render(err.Error()))
		return false
	}
	l.wait(ctx, done)
	return false
}

func (l *LineMode) runCommand(input string) bool {
	res := l.parser.Parse(input)
	var quit bool
	var err error
	l.call(func() {
		cctx := &commands.Context{
			Chat:     l.chat,
			Print:    func(s string) { fmt.Fprintln(l.out, s) },
			Quit:     func() { quit = true },
			Registry: l.registry,
		}
		err = l.registry.Execute(cctx, res)
	})
	if err != nil {
		fmt.Fprintln(l.out, ErrorStyle.Render(err.Error()))
	}
	return quit
}

// wait blocks until the reply finishes. Ctrl+C cancels it.
func (l *LineMode) wait(ctx context.Context, done <-chan struct{}) {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt)
	defer signal.Stop(sig)

	for {
		select {
		case <-done:
			return
		case <-sig:
			l.call(l.chat.Cancel)
		case <-ctx.Done():
			return
		}
	}
}

// call runs fn on the queue and waits for it.
func (l *LineMode) call(fn func()) {
	done := make(chan struct{})
	l.queue.Post(func() {
		defer close(done)
		fn()
	})
	<-done
}

// =============================================================================
// STREAMED OUTPUT
// =============================================================================

// Refresh is the manager's change callback. It prints whatever part of the
// streaming reply has not been printed yet and ends the wait once the
// manager is idle.
func (l *LineMode) Refresh() {
	if l.chat == nil {
		return
	}
	l.chatCount.Store(int64(len(l.chat.Chats())))
	if !l.waiting {
		return
	}

	if l.chat.Streaming() {
		l.printDelta()
	}
	if l.chat.Busy() {
		return
	}

	l.waiting = false
	if l.started {
		fmt.Fprintln(l.out)
	}
	if status := l.chat.Status(); status != "" {
		fmt.Fprintln(l.out, ErrorStyle.Render(status))
	}
	close(l.done)
}

func (l *LineMode) printDelta() {
	msgs := l.chat.Displayed()
	if len(msgs) == 0 {
		return
	}
	reply := msgs[len(msgs)-1]
	if reply.Role != model.RoleAssistant {
		return
	}
	if reply.ID != l.replyID {
		l.replyID = reply.ID
		l.printed = 0
	}
	if reply.Content == "" || reply.Content == overlay.Placeholder {
		return
	}
	if !l.started {
		fmt.Fprint(l.out, AssistantStyle.Render(model.RoleAssistant.DisplayName()+":")+" ")
		l.started = true
	}
	if len(reply.Content) > l.printed {
		fmt.Fprint(l.out, reply.Content[l.printed:])
		l.printed = len(reply.Content)
	}
}

func (l *LineMode) printHistory(ctx *commands.Context, _ []string) error {
	msgs := ctx.Chat.Displayed()
	if len(msgs) == 0 {
		ctx.Print("No messages yet.")
		return nil
	}
	var b strings.Builder
	for i, m := range msgs {
		if i > 0 {
			b.WriteString("\n\n")
		}
		label := LabelStyle.Render(m.Role.DisplayName() + ":")
		if m.Role == model.RoleAssistant {
			label = AssistantStyle.Render(m.Role.DisplayName() + ":")
		}
		b.WriteString(label + " " + m.Content)
		if len(m.AttachmentNames) > 0 {
			b.WriteString("\n" + DimStyle.Render("attached: "+strings.Join(m.AttachmentNames, ", ")))
		}
	}
	ctx.Print(b.String())
	return nil
}

func (l *LineMode) printWelcome() {
	var mdl, sid string
	l.call(func() {
		mdl = l.chat.Model()
		sid = l.chat.SessionID()
	})
	fmt.Fprintln(l.out, TitleStyle.Render("Alfred - Personal Assistant"))
	fmt.Fprintln(l.out, DimStyle.Render(fmt.Sprintf("Model: %s  Session: %s", mdl, util.TruncateWidth(sid, 11))))
	fmt.Fprintln(l.out, DimStyle.Render("Type /help for commands, Ctrl+D to exit."))
	fmt.Fprintln(l.out)
}

// =============================================================================
// INPUT HISTORY
// =============================================================================

func (l *LineMode) loadHistory(line *liner.State) {
	if l.history == "" {
		return
	}
	f, err := os.Open(l.history)
	if err != nil {
		return
	}
	defer f.Close()
	if _, err := line.ReadHistory(f); err != nil {
		log.Printf("CLI | history load failed: %v", err)
	}
}

func (l *LineMode) saveHistory(line *liner.State) {
	if l.history == "" {
		return
	}
	f, err := os.OpenFile(l.history, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		log.Printf("CLI | history save failed: %v", err)
		return
	}
	defer f.Close()
	if _, err := line.WriteHistory(f); err != nil {
		log.Printf("CLI | history save failed: %v", err)
	}
}
