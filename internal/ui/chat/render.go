// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"log"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/alfred-tui/internal/model"
	"github.com/jeranaias/alfred-tui/internal/overlay"
	"github.com/jeranaias/alfred-tui/internal/ui/styles"
)

// markdownRenderer renders assistant replies with glamour and caches the
// output per message, so only changed messages are re-rendered.
type markdownRenderer struct {
	style    string
	width    int
	term     *glamour.TermRenderer
	cache    map[string]cachedRender
	disabled bool
}

type cachedRender struct {
	content string
	out     string
}

func newMarkdownRenderer(style string, enabled bool) *markdownRenderer {
	return &markdownRenderer{
		style:    style,
		cache:    make(map[string]cachedRender),
		disabled: !enabled,
	}
}

// setWidth rebuilds the glamour renderer for a new wrap width.
func (r *markdownRenderer) setWidth(width int) {
	if width < 20 {
		width = 20
	}
	if width == r.width && r.term != nil {
		return
	}
	r.width = width
	r.cache = make(map[string]cachedRender)
	if r.disabled {
		return
	}
	term, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(r.style),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		log.Printf("TUI | markdown disabled: %v", err)
		r.term = nil
		return
	}
	r.term = term
}

// render returns the rendered markdown, or wrapped plain text if glamour
// is unavailable.
func (r *markdownRenderer) render(id, content string) string {
	if c, ok := r.cache[id]; ok && c.content == content {
		return c.out
	}
	out := wrapPlain(content, r.width)
	if r.term != nil {
		if rendered, err := r.term.Render(content); err == nil {
			out = strings.Trim(rendered, "\n")
		}
	}
	r.cache[id] = cachedRender{content: content, out: out}
	return out
}

func wrapPlain(s string, width int) string {
	if width <= 0 {
		return s
	}
	return lipgloss.NewStyle().Width(width).Render(s)
}

// renderMessages lays out the displayed sequence. The reply still
// streaming is shown as plain text and rendered as markdown once done.
func renderMessages(theme *styles.Theme, md *markdownRenderer, msgs []model.Message, streamingID string, width int) string {
	if width < 20 {
		width = 20
	}
	var b strings.Builder
	for i, m := range msgs {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(renderMessage(theme, md, m, m.ID == streamingID, width))
	}
	return b.String()
}

func renderMessage(theme *styles.Theme, md *markdownRenderer, m model.Message, streaming bool, width int) string {
	var b strings.Builder
	if m.Role == model.RoleUser {
		b.WriteString(theme.UserLabel.Render(m.Role.DisplayName()))
	} else {
		b.WriteString(theme.AssistantLabel.Render(m.Role.DisplayName()))
	}
	b.WriteString("\n")

	switch {
	case m.Role == model.RoleUser:
		body := theme.UserBody.Width(width - 2).Render(m.Content)
		b.WriteString(body)
		if len(m.AttachmentNames) > 0 {
			b.WriteString("\n")
			b.WriteString(theme.Attachment.Render("attached: " + strings.Join(m.AttachmentNames, ", ")))
		}
	case m.Content == "" || m.Content == overlay.Placeholder:
		b.WriteString(theme.Placeholder.Render(overlay.Placeholder))
	case streaming:
		b.WriteString(theme.AssistantBody.Width(width).Render(m.Content))
	default:
		b.WriteString(md.render(m.ID, m.Content))
	}
	return b.String()
}
