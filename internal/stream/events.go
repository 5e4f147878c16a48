// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/jeranaias/alfred-tui/internal/model"
)

// EventType is the normalised kind of a stream event.
type EventType string

const (
	EventStart    EventType = "start"
	EventThinking EventType = "thinking"
	EventContent  EventType = "content"
	EventDone     EventType = "done"
	EventError    EventType = "error"
	EventUnknown  EventType = "unknown"
)

// eventAliases maps wire event names onto event types.
var eventAliases = map[string]EventType{
	"start":        EventStart,
	"thinking":     EventThinking,
	"BOT_THINKING": EventThinking,
	"content":      EventContent,
	"BOT_Response": EventContent,
	"done":         EventDone,
	"error":        EventError,
}

// Event is a decoded stream frame.
type Event struct {
	Type      EventType
	RequestID string
	// ChatID is set by start events when the backend resolved a chat.
	ChatID model.ChatID
	// Content is the fragment of a content event, or the full text of done.
	Content string
	// Message is the failure text of an error event.
	Message string
}

type payload struct {
	RequestID json.RawMessage `json:"requestId"`
	ChatID    json.RawMessage `json:"chatId"`
	Content   json.RawMessage `json:"content"`
	Message   json.RawMessage `json:"message"`
}

// fieldText renders a payload field as text. Strings are unquoted, other
// scalars keep their JSON spelling, objects and arrays are compacted.
// Missing and null fields are empty.
func fieldText(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	if raw[0] == '"' {
		var str string
		if err := json.Unmarshal(raw, &str); err == nil {
			return str
		}
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return string(raw)
	}
	return buf.String()
}

// fieldChatID accepts a positive integer chat id.
func fieldChatID(raw json.RawMessage) model.ChatID {
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return model.NoChat
	}
	id, err := n.Int64()
	if err != nil || id <= 0 {
		return model.NoChat
	}
	return model.ChatID(id)
}

// Decode interprets a frame. Data that is not valid JSON falls back to the
// raw text: content uses it verbatim with escaped "\n" sequences turned
// into newlines, error uses it as the message (or DefaultErrorMessage when
// empty), and start carries no chat id. Valid JSON that is not an object
// has no fields.
func Decode(f Frame) Event {
	typ, ok := eventAliases[f.Event]
	if !ok {
		typ = EventUnknown
		if f.Event == "" {
			// Unnamed events are "message" events; treat them as content.
			typ = EventContent
		}
	}
	ev := Event{Type: typ}

	var p payload
	valid := len(f.Data) > 0 && json.Valid(f.Data)
	if valid {
		// Non-object JSON leaves every field empty.
		_ = json.Unmarshal(f.Data, &p)
		ev.RequestID = fieldText(p.RequestID)
	}

	switch typ {
	case EventStart:
		if valid {
			ev.ChatID = fieldChatID(p.ChatID)
		}
	case EventContent, EventDone, EventThinking:
		switch {
		case valid:
			ev.Content = fieldText(p.Content)
		case typ == EventContent:
			ev.Content = strings.ReplaceAll(string(f.Data), `\n`, "\n")
		}
	case EventError:
		switch {
		case valid && fieldText(p.Message) != "":
			ev.Message = fieldText(p.Message)
		case !valid && len(f.Data) > 0:
			ev.Message = string(f.Data)
		default:
			ev.Message = DefaultErrorMessage
		}
	}
	return ev
}
