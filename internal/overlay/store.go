// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package overlay

import (
	"time"

	"github.com/google/uuid"

	"github.com/jeranaias/alfred-tui/internal/model"
)

// Placeholder is shown in an assistant message while the backend is
// thinking. The first streamed fragment replaces it.
const Placeholder = "Thinking..."

// NewMessage creates a provisional message with a random 128-bit id.
func NewMessage(role model.Role, content string) model.Message {
	return model.Message{
		ID:        uuid.NewString(),
		Role:      role,
		Content:   content,
		CreatedAt: time.Now(),
	}
}

// AppendToken returns seq with token added to the message identified by id.
// If that message still shows Placeholder, the token replaces it.
func AppendToken(seq []model.Message, id, token string) []model.Message {
	return update(seq, id, func(m *model.Message) bool {
		if m.Content == Placeholder {
			m.Content = token
		} else {
			m.Content += token
		}
		return true
	})
}

// SetContent returns seq with the content of the message identified by id
// replaced. With onlyIfEmpty, messages that already have content are left
// alone.
func SetContent(seq []model.Message, id, content string, onlyIfEmpty bool) []model.Message {
	return update(seq, id, func(m *model.Message) bool {
		if onlyIfEmpty && m.Content != "" {
			return false
		}
		m.Content = content
		return true
	})
}

// Find returns the message with the given id.
func Find(seq []model.Message, id string) (model.Message, bool) {
	for _, m := range seq {
		if m.ID == id {
			return m, true
		}
	}
	return model.Message{}, false
}

// update copies seq and applies fn to the first entry with the given id.
// When no entry matches, or fn reports no change, seq itself is returned.
func update(seq []model.Message, id string, fn func(*model.Message) bool) []model.Message {
	for i := range seq {
		if seq[i].ID != id {
			continue
		}
		target := seq[i]
		if !fn(&target) {
			return seq
		}
		out := make([]model.Message, len(seq))
		copy(out, seq)
		out[i] = target
		return out
	}
	return seq
}
