// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/alfred-tui/internal/commands"
	"github.com/jeranaias/alfred-tui/internal/conversation"
	"github.com/jeranaias/alfred-tui/internal/model"
	"github.com/jeranaias/alfred-tui/internal/ui/styles"
)

// =============================================================================
// RESIZE
// =============================================================================

func (m Model) handleResize(msg tea.WindowSizeMsg) (tea.Model, tea.Cmd) {
	m.width = msg.Width
	m.height = msg.Height
	m.theme.SetSize(msg.Width, msg.Height)
	m.ready = true
	m.layout()
	m.lastContent = ""
	return m, m.sync()
}

// layout sizes the viewport and composer for the current window and notice.
func (m *Model) layout() {
	mainWidth := m.width
	if m.showSidebar() {
		mainWidth -= m.sidebarWidth + 3
	}
	m.viewport.Width = max(mainWidth, 10)
	m.viewport.Height = max(m.height-m.chromeHeight(), 3)
	m.input.Width = max(mainWidth-4, 10)
	m.markdown.setWidth(m.viewport.Width - 1)
}

// chromeHeight counts the lines not used by the viewport.
func (m *Model) chromeHeight() int {
	h := 1 + 2 + 1 // header, composer, status
	if n := m.noticeLines(); n > 0 {
		h += n + 2
	}
	if len(m.chat.Attachments()) > 0 {
		h++
	}
	return h
}

func (m *Model) showSidebar() bool {
	return m.theme.GetLayoutMode() != styles.LayoutNarrow
}

func (m *Model) noticeLines() int {
	if m.notice == "" {
		return 0
	}
	return min(strings.Count(m.notice, "\n")+1, maxNoticeLines)
}

func (m *Model) setNotice(text string) {
	m.notice = text
	m.layout()
}

// =============================================================================
// KEYS
// =============================================================================

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.chat.Close()
		return m, tea.Quit

	case key.Matches(msg, m.keys.NewChat):
		m.chat.NewChat()
		m.setNotice("")
		m.focus = focusComposer
		m.input.Focus()
		return m, m.sync()

	case key.Matches(msg, m.keys.SwitchFocus):
		if !m.showSidebar() {
			return m, nil
		}
		m.pendingDelete = model.NoChat
		if m.focus == focusComposer {
			m.focus = focusSidebar
			m.input.Blur()
			m.cursor = m.currentIndex()
			return m, nil
		}
		m.focus = focusComposer
		m.input.Focus()
		return m, textinput.Blink

	case key.Matches(msg, m.keys.PageUp):
		m.viewport.HalfViewUp()
		return m, nil

	case key.Matches(msg, m.keys.PageDown):
		m.viewport.HalfViewDown()
		return m, nil
	}

	if m.focus == focusSidebar {
		return m.handleSidebarKey(msg)
	}
	return m.handleComposerKey(msg)
}

func (m Model) handleComposerKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Cancel):
		if m.chat.Streaming() {
			m.chat.Cancel()
			return m, m.sync()
		}
		if m.notice != "" {
			m.setNotice("")
			return m, m.sync()
		}
		return m, nil

	case key.Matches(msg, m.keys.Complete):
		if candidates := m.completer.Complete(m.input.Value()); len(candidates) > 0 {
			m.input.SetValue(commonPrefix(candidates))
			m.input.CursorEnd()
			if len(candidates) > 1 {
				m.setNotice(strings.Join(candidates, "  "))
			}
		}
		return m, nil

	case key.Matches(msg, m.keys.Submit):
		return m.submit()
	}

	// The composer is locked while a reply is in progress.
	if m.chat.Busy() {
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	m.chat.SetDraft(m.input.Value())
	m.seenDraft = m.input.Value()
	return m, cmd
}

// submit runs a slash command or sends the draft.
func (m Model) submit() (tea.Model, tea.Cmd) {
	text := m.input.Value()
	res := m.parser.Parse(text)
	if res.IsCommand {
		m.setNotice("")
		var quit bool
		ctx := &commands.Context{
			Chat:     m.chat,
			Print:    func(s string) { m.setNotice(s) },
			Quit:     func() { quit = true },
			Registry: m.registry,
		}
		if err := m.registry.Execute(ctx, res); err != nil {
			m.chat.SetStatus(err.Error())
		}
		if quit {
			m.chat.Close()
			return m, tea.Quit
		}
		m.input.Reset()
		m.chat.SetDraft("")
		m.seenDraft = ""
		m.layout()
		return m, m.sync()
	}

	m.chat.SetDraft(text)
	err := m.chat.Send()
	switch {
	case errors.Is(err, conversation.ErrEmptyMessage):
		return m, nil
	case errors.Is(err, conversation.ErrBusy):
		m.chat.SetStatus("Wait for the current reply, or press Esc to stop it")
		return m, nil
	}
	m.setNotice("")
	m.viewport.GotoBottom()
	return m, m.sync()
}

func (m Model) handleSidebarKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	chats := m.chat.Chats()
	deleteArmed := m.pendingDelete
	m.pendingDelete = model.NoChat

	switch {
	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(chats)-1 {
			m.cursor++
		}
	case key.Matches(msg, m.keys.Open):
		if m.cursor < len(chats) {
			m.chat.SelectChat(chats[m.cursor].ID)
			m.focus = focusComposer
			m.input.Focus()
			return m, m.sync()
		}
	case key.Matches(msg, m.keys.Delete):
		if m.cursor >= len(chats) {
			break
		}
		id := chats[m.cursor].ID
		if deleteArmed == id {
			m.chat.DeleteChat(id)
			m.chat.SetStatus("")
			break
		}
		m.pendingDelete = id
		m.chat.SetStatus("Press d again to delete \"" + chats[m.cursor].Title + "\"")
	case key.Matches(msg, m.keys.Cancel):
		m.focus = focusComposer
		m.input.Focus()
		return m, textinput.Blink
	}
	return m, m.sync()
}

func (m *Model) currentIndex() int {
	for i, c := range m.chat.Chats() {
		if c.ID == m.chat.CurrentChat() {
			return i
		}
	}
	return 0
}

// commonPrefix returns the longest prefix shared by all candidates.
func commonPrefix(candidates []string) string {
	prefix := candidates[0]
	for _, c := range candidates[1:] {
		for !strings.HasPrefix(c, prefix) {
			prefix = prefix[:len(prefix)-1]
		}
	}
	return prefix
}
