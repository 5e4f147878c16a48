// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/alfred-tui/internal/util"
)

const appTitle = "Alfred - Personal Assistant"

func (m Model) render() string {
	main := m.viewport.View()
	if m.showSidebar() {
		main = lipgloss.JoinHorizontal(lipgloss.Top, m.renderSidebar(), " ", main)
	}

	parts := []string{m.renderHeader(), main}
	if m.notice != "" {
		parts = append(parts, m.renderNotice())
	}
	if chips := m.renderAttachments(); chips != "" {
		parts = append(parts, chips)
	}
	parts = append(parts, m.renderComposer(), m.renderStatus())
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

// =============================================================================
// HEADER
// =============================================================================

func (m Model) renderHeader() string {
	left := m.theme.HeaderTitle.Render(appTitle)
	if title := m.chat.CurrentTitle(); title != "" {
		left += m.theme.HeaderMeta.Render("  " + util.TruncateWidth(title, 40))
	}
	right := m.theme.HeaderMeta.Render("Model: " + m.chat.Model())

	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right) - 2
	if gap < 1 {
		gap = 1
	}
	return m.theme.Header.Width(m.width).Render(left + strings.Repeat(" ", gap) + right)
}

// =============================================================================
// SIDEBAR
// =============================================================================

func (m Model) renderSidebar() string {
	inner := m.sidebarWidth - 2
	var b strings.Builder
	b.WriteString(m.theme.SidebarTitle.Render("Conversations"))
	b.WriteString("\n")

	chats := m.chat.Chats()
	switch {
	case len(chats) == 0 && !m.chat.ChatsLoaded():
		b.WriteString(m.theme.SidebarEmpty.Render("Loading..."))
	case len(chats) == 0:
		b.WriteString(m.theme.SidebarEmpty.Render("No conversations yet."))
	}

	current := m.chat.CurrentChat()
	for i, c := range chats {
		marker := "  "
		if c.ID == current {
			marker = "• "
		}
		line := util.PadWidth(marker+util.TruncateWidth(c.Title, inner-2), inner)
		style := m.theme.SidebarItem
		switch {
		case m.focus == focusSidebar && i == m.cursor:
			style = m.theme.SidebarItemCursor
		case c.ID == current:
			style = m.theme.SidebarItemActive
		}
		b.WriteString(style.Render(line))
		if i < len(chats)-1 {
			b.WriteString("\n")
		}
	}

	box := m.theme.Sidebar.
		Width(m.sidebarWidth).
		Height(max(m.viewport.Height-2, 1))
	if m.focus == focusSidebar {
		box = box.BorderForeground(m.theme.SidebarFocusBorder)
	}
	return box.Render(b.String())
}

// =============================================================================
// NOTICE, ATTACHMENTS, COMPOSER
// =============================================================================

func (m Model) renderNotice() string {
	lines := strings.Split(m.notice, "\n")
	if len(lines) > maxNoticeLines {
		lines = append(lines[:maxNoticeLines-1], fmt.Sprintf("... %d more", len(lines)-maxNoticeLines+1))
	}
	return m.theme.Notice.Width(max(m.width-2, 10)).Render(strings.Join(lines, "\n"))
}

func (m Model) renderAttachments() string {
	files := m.chat.Attachments()
	if len(files) == 0 {
		return ""
	}
	chips := make([]string, len(files))
	for i, f := range files {
		chips[i] = m.theme.AttachmentChip.Render(fmt.Sprintf("%d %s", i+1, util.TruncateWidth(filepath.Base(f), 24)))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, chips...)
}

func (m Model) renderComposer() string {
	return m.theme.InputContainer.Width(max(m.width-2, 10)).Render(m.input.View())
}

// =============================================================================
// STATUS LINE
// =============================================================================

func (m Model) renderStatus() string {
	var left string
	switch status := m.chat.Status(); {
	case status != "":
		left = m.theme.StatusError.Render(util.FirstLine(status))
	case m.chat.Streaming():
		left = m.spinner.View() + m.theme.StatusBusy.Render(" Alfred is replying")
	case m.chat.Busy():
		left = m.spinner.View() + m.theme.StatusBusy.Render(" Preparing")
	default:
		left = m.theme.StatusInfo.Render("Ready")
	}

	bindings := m.keys.ShortHelp()
	if m.focus == focusSidebar {
		bindings = m.keys.SidebarHelp()
	}
	m.help.Styles.ShortKey = m.theme.ShortcutKey
	m.help.Styles.ShortDesc = m.theme.ShortcutDesc
	right := m.help.ShortHelpView(bindings)

	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right) - 2
	if gap < 1 {
		// Drop the shortcuts before the status text.
		return m.theme.StatusBar.Width(m.width).MaxHeight(1).Render(left)
	}
	return m.theme.StatusBar.Width(m.width).Render(left + strings.Repeat(" ", gap) + right)
}
