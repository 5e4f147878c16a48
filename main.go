// alfred - A terminal client for the Alfred personal assistant.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/alfred-tui/internal/api"
	"github.com/jeranaias/alfred-tui/internal/cli"
	"github.com/jeranaias/alfred-tui/internal/commands"
	"github.com/jeranaias/alfred-tui/internal/config"
	"github.com/jeranaias/alfred-tui/internal/conversation"
	"github.com/jeranaias/alfred-tui/internal/loop"
	"github.com/jeranaias/alfred-tui/internal/session"
	"github.com/jeranaias/alfred-tui/internal/storage"
	"github.com/jeranaias/alfred-tui/internal/stream"
	"github.com/jeranaias/alfred-tui/internal/ui/chat"
	"github.com/jeranaias/alfred-tui/internal/ui/styles"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func init() {
	// Sync version info with cli package
	cli.Version = Version
	cli.GitCommit = GitCommit
	cli.BuildDate = BuildDate
}

func main() {
	args, err := cli.ParseArgs(os.Args[1:])
	if err != nil {
		cli.HandleErrorAndExit(err)
	}

	switch args.Cmd {
	case cli.CmdHelp:
		cli.PrintUsage(os.Stdout)
		return
	case cli.CmdVersion:
		cli.PrintVersion(os.Stdout)
		return
	}

	cfg, err := config.Load()
	if err != nil {
		cli.HandleErrorAndExit(err)
	}

	if args.Cmd == cli.CmdConfig {
		cli.ConfigureColors()
		path, err := config.ConfigPath()
		if err == nil {
			err = cli.HandleConfig(args, cfg, path, os.Stdout)
		}
		cli.HandleErrorAndExit(err)
		return
	}

	if args.APIBase != "" {
		cfg.Backend.URL = args.APIBase
	}
	if args.Model != "" {
		cfg.Agent.Model = args.Model
	}
	if err := cfg.Validate(); err != nil {
		cli.HandleErrorAndExit(fmt.Errorf("invalid config: %w", err))
	}

	if args.Cmd == cli.CmdLine || !cli.Interactive() {
		err = runLine(args, cfg)
	} else {
		err = runTUI(args, cfg)
	}
	cli.HandleErrorAndExit(err)
}

// =============================================================================
// SHARED WIRING
// =============================================================================

// app holds the pieces both front ends share.
type app struct {
	manager *conversation.Manager
	cache   *storage.HistoryCache
}

func (a *app) Close() {
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			log.Printf("STORAGE | close failed: %v", err)
		}
	}
}

// setupLogging points the standard logger at the configured file, or
// discards it so log lines never land on the terminal.
func setupLogging(cfg *config.Config) (io.Closer, error) {
	if cfg.Log.File == "" {
		log.SetOutput(io.Discard)
		return io.NopCloser(nil), nil
	}
	f, err := tea.LogToFile(cfg.Log.File, "alfred")
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return f, nil
}

func newApp(args cli.Args, cfg *config.Config, l loop.Loop, onUpdate func()) (*app, error) {
	sessionPath, err := cfg.SessionFilePath()
	if err != nil {
		return nil, err
	}
	var sid string
	if args.NewSession {
		sid, err = session.Reset(sessionPath)
	} else {
		sid, _, err = session.LoadOrCreate(sessionPath)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	a := &app{}
	var cache conversation.Cache
	if cfg.Storage.CacheEnabled {
		path, err := cfg.CacheDBPath()
		if err == nil {
			a.cache, err = storage.Open(path)
		}
		if err != nil {
			log.Printf("STORAGE | history cache disabled: %v", err)
		} else {
			cache = a.cache
		}
	}

	client := api.NewClientWithConfig(&api.ClientConfig{
		BaseURL:           cfg.Backend.URL,
		Timeout:           cfg.Backend.Timeout(),
		RequestsPerSecond: cfg.Backend.RequestsPerSecond,
	})
	// The stream has no overall deadline; it ends with the reply.
	transport := stream.NewHTTPTransport(cfg.Backend.URL, &http.Client{})
	transport.MaxLineSize = cfg.Stream.MaxLineSize()

	ctrl := stream.NewController(l, loop.NewTickerScheduler(l), transport, stream.Options{
		SessionID:    sid,
		Temperature:  cfg.Stream.Temperature,
		PaceInterval: cfg.Stream.PaceInterval(),
	})

	a.manager = conversation.NewManager(l, client, cache, ctrl, conversation.Options{
		SessionID:       sid,
		Model:           cfg.Agent.Model,
		CreateChatFirst: cfg.Stream.CreateChatFirst,
		OnUpdate:        onUpdate,
	})
	log.Printf("APP | started session=%s backend=%s", sid, cfg.Backend.URL)
	return a, nil
}

// watchConfig applies model changes made to the config file while running.
// A model given on the command line wins and is never replaced.
func (a *app) watchConfig(ctx context.Context, args cli.Args, cfg *config.Config, l loop.Loop) {
	if args.Model != "" {
		return
	}
	path, err := config.ConfigPath()
	if err != nil {
		return
	}
	last := cfg.Agent.Model
	w, err := config.NewWatcher(path, config.DefaultWatchDebounce, func(c *config.Config) {
		l.Post(func() {
			if c.Agent.Model == last {
				return
			}
			last = c.Agent.Model
			log.Printf("APP | model changed in config: %s", last)
			a.manager.SetModel(last)
		})
	})
	if err != nil {
		log.Printf("APP | config watch disabled: %v", err)
		return
	}
	go w.Run(ctx)
}

// =============================================================================
// FRONT ENDS
// =============================================================================

func runTUI(args cli.Args, cfg *config.Config) error {
	logs, err := setupLogging(cfg)
	if err != nil {
		return err
	}
	defer logs.Close()

	var pl chat.ProgramLoop
	a, err := newApp(args, cfg, &pl, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	a.watchConfig(ctx, args, cfg, &pl)

	m := chat.New(chat.Options{
		Theme:        styles.NewTheme(cfg.UI.Theme),
		Manager:      a.manager,
		Registry:     commands.NewRegistry(),
		Markdown:     cfg.UI.Markdown,
		SidebarWidth: cfg.UI.SidebarWidth,
	})

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion())
	pl.Attach(p)
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running program: %w", err)
	}
	return nil
}

func runLine(args cli.Args, cfg *config.Config) error {
	cli.ConfigureColors()
	logs, err := setupLogging(cfg)
	if err != nil {
		return err
	}
	defer logs.Close()

	q := loop.NewQueue(256)
	var history string
	if dir, err := config.ConfigDir(); err == nil && os.MkdirAll(dir, 0700) == nil {
		history = filepath.Join(dir, "line_history")
	}
	lm := cli.NewLineMode(cli.LineOptions{
		Queue:       q,
		Registry:    commands.NewRegistry(),
		HistoryFile: history,
	})

	a, err := newApp(args, cfg, q, lm.Refresh)
	if err != nil {
		return err
	}
	defer a.Close()
	lm.Bind(a.manager)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	a.watchConfig(ctx, args, cfg, q)

	return lm.Run(ctx)
}
