// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/jeranaias/alfred-tui/internal/model"
)

// chatItem is the wire form of a chat.
type chatItem struct {
	ID        int64  `json:"id"`
	SessionID string `json:"session_id"`
	Title     string `json:"title"`
}

func (c chatItem) toModel() model.Chat {
	return model.Chat{ID: model.ChatID(c.ID), SessionID: c.SessionID, Title: c.Title}
}

// messageItem is the wire form of a persisted message.
type messageItem struct {
	ID        int64  `json:"id"`
	ChatID    int64  `json:"chat_id"`
	Role      string `json:"role"`
	Content   string `json:"content"`
	CreatedAt string `json:"created_at"`
}

// createdAtLayouts are tried in order; the backend emits naive ISO times.
var createdAtLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02 15:04:05.999999",
	"2006-01-02T15:04:05",
}

func parseCreatedAt(s string) time.Time {
	for _, layout := range createdAtLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// ListChats returns the chats of a session, newest first as ordered by the
// backend.
func (c *Client) ListChats(ctx context.Context, sessionID string) ([]model.Chat, error) {
	var items []chatItem
	path := "/api/chats/?session_id=" + url.QueryEscape(sessionID)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &items); err != nil {
		return nil, err
	}

	chats := make([]model.Chat, 0, len(items))
	for _, it := range items {
		chats = append(chats, it.toModel())
	}
	return chats, nil
}

// CreateChat creates a chat. An empty title becomes model.DefaultTitle.
func (c *Client) CreateChat(ctx context.Context, sessionID, title string) (model.Chat, error) {
	if title == "" {
		title = model.DefaultTitle
	}
	body := map[string]string{"session_id": sessionID, "title": title}

	var item chatItem
	if err := c.doJSON(ctx, http.MethodPost, "/api/chats/", body, &item); err != nil {
		return model.Chat{}, err
	}
	if item.ID <= 0 {
		return model.Chat{}, &ClientError{Type: ErrTypeInvalidResponse, Message: "backend returned chat without id"}
	}
	return item.toModel(), nil
}

// DeleteChat deletes a chat and its messages.
func (c *Client) DeleteChat(ctx context.Context, id model.ChatID) error {
	return c.doJSON(ctx, http.MethodDelete, fmt.Sprintf("/api/chats/%d", id), nil, nil)
}

// ListMessages returns the persisted messages of a chat in server order.
// Message ids are namespaced by chat; messages with unknown roles are
// skipped.
func (c *Client) ListMessages(ctx context.Context, id model.ChatID) ([]model.Message, error) {
	var items []messageItem
	if err := c.doJSON(ctx, http.MethodGet, fmt.Sprintf("/api/chats/%d/messages", id), nil, &items); err != nil {
		return nil, err
	}

	msgs := make([]model.Message, 0, len(items))
	for _, it := range items {
		role, err := model.ParseRole(it.Role)
		if err != nil {
			continue
		}
		chat := model.ChatID(it.ChatID)
		if !chat.Valid() {
			chat = id
		}
		msgs = append(msgs, model.Message{
			ID:        model.PersistedMessageID(chat, it.ID),
			Role:      role,
			Content:   it.Content,
			CreatedAt: parseCreatedAt(it.CreatedAt),
		})
	}
	return msgs, nil
}
