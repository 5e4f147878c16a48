// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/alfred-tui/internal/commands"
	"github.com/jeranaias/alfred-tui/internal/conversation"
	"github.com/jeranaias/alfred-tui/internal/model"
	"github.com/jeranaias/alfred-tui/internal/ui/styles"
)

// =============================================================================
// OPTIONS
// =============================================================================

// Options configures the chat view.
type Options struct {
	Theme    *styles.Theme
	Manager  *conversation.Manager
	Registry *commands.Registry

	// Markdown enables glamour rendering of assistant replies.
	Markdown bool

	// SidebarWidth is the chat list width in columns.
	SidebarWidth int
}

type focus int

const (
	focusComposer focus = iota
	focusSidebar
)

// maxNoticeLines caps the command output box.
const maxNoticeLines = 12

// =============================================================================
// CHAT MODEL
// =============================================================================

// Model is the Bubble Tea model for the chat view.
type Model struct {
	theme     *styles.Theme
	chat      *conversation.Manager
	registry  *commands.Registry
	parser    *commands.Parser
	completer *commands.Completer
	keys      KeyMap
	markdown  *markdownRenderer

	// Dimensions
	width        int
	height       int
	sidebarWidth int
	ready        bool

	// UI Components
	viewport viewport.Model
	input    textinput.Model
	spinner  spinner.Model
	help     help.Model

	focus         focus
	cursor        int
	pendingDelete model.ChatID
	notice        string
	spinning      bool
	lastContent   string
	seenDraft     string
}

// New creates a new chat model.
func New(opts Options) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask Alfred anything, or /help"
	ti.CharLimit = 16384
	ti.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = opts.Theme.StatusBusy

	registry := opts.Registry
	if registry == nil {
		registry = commands.NewRegistry()
	}
	completer := commands.NewCompleter(registry)
	mgr := opts.Manager
	completer.ChatCountFn = func() int { return len(mgr.Chats()) }

	width := opts.SidebarWidth
	if width <= 0 {
		width = 28
	}

	return Model{
		theme:        opts.Theme,
		chat:         opts.Manager,
		registry:     registry,
		parser:       commands.NewParser(registry),
		completer:    completer,
		keys:         DefaultKeyMap(),
		markdown:     newMarkdownRenderer(opts.Theme.GlamourStyle(), opts.Markdown),
		sidebarWidth: width,
		viewport:     viewport.New(80, 20),
		input:        ti,
		spinner:      sp,
		help:         help.New(),
	}
}

// Init starts loading chats and the cursor blink.
func (m Model) Init() tea.Cmd {
	m.chat.Start()
	return textinput.Blink
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleResize(msg)

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.MouseMsg:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd

	case RunMsg:
		msg.Fn()
		return m, m.sync()

	case spinner.TickMsg:
		if !m.chat.Busy() {
			m.spinning = false
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

// View renders the chat interface.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	return m.render()
}

// sync brings the widgets in line with the manager after any change and
// starts the spinner when work begins.
func (m *Model) sync() tea.Cmd {
	chats := m.chat.Chats()
	if m.cursor >= len(chats) {
		m.cursor = max(0, len(chats)-1)
	}
	if d := m.chat.Draft(); d != m.seenDraft {
		m.input.SetValue(d)
		m.seenDraft = d
	}
	m.layout()
	m.refreshViewport()

	if m.chat.Busy() && !m.spinning {
		m.spinning = true
		return m.spinner.Tick
	}
	return nil
}

// refreshViewport re-renders the messages, keeping the view pinned to the
// bottom if it was there.
func (m *Model) refreshViewport() {
	content := m.messagesContent()
	if content == m.lastContent {
		return
	}
	atBottom := m.viewport.AtBottom() || m.lastContent == ""
	m.lastContent = content
	m.viewport.SetContent(content)
	if atBottom {
		m.viewport.GotoBottom()
	}
}

func (m *Model) messagesContent() string {
	msgs := m.chat.Displayed()
	if len(msgs) == 0 {
		if m.chat.CurrentChat().Valid() {
			return m.theme.EmptyConversation.Render("No messages yet.")
		}
		return m.theme.EmptyConversation.Render("Start a conversation by typing a message below.")
	}
	streamingID := ""
	if m.chat.Streaming() {
		for i := len(msgs) - 1; i >= 0; i-- {
			if msgs[i].Role == model.RoleAssistant {
				streamingID = msgs[i].ID
				break
			}
		}
	}
	return renderMessages(m.theme, m.markdown, msgs, streamingID, m.viewport.Width-1)
}
