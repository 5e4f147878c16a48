// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/jeranaias/alfred-tui/internal/model"
)

// StreamPath is the backend endpoint that answers prompts as SSE.
const StreamPath = "/api/agents/stream"

// DefaultTemperature is sent when Options.Temperature is zero.
const DefaultTemperature = 0.3

// Request is a single prompt submission.
type Request struct {
	SessionID   string
	Prompt      string
	Temperature float64
	// ChatID is omitted from the body when it is model.NoChat.
	ChatID model.ChatID
}

type requestBody struct {
	Prompt      string  `json:"prompt"`
	Temperature float64 `json:"temperature"`
	ChatID      *int64  `json:"chat_id,omitempty"`
}

// Transport delivers the frames of one stream. Stream blocks until the
// stream ends, ctx is cancelled, or an error occurs; emit is called from
// the transport's goroutine.
type Transport interface {
	Stream(ctx context.Context, req Request, emit func(Frame)) error
}

// HTTPTransport streams over HTTP from the backend.
type HTTPTransport struct {
	baseURL    string
	httpClient *http.Client

	// MaxLineSize bounds one line of the event stream; zero means
	// DefaultMaxLineSize.
	MaxLineSize int
}

// NewHTTPTransport creates a transport for baseURL. A nil client uses one
// without an overall timeout, since streams are bounded by their context.
func NewHTTPTransport(baseURL string, client *http.Client) *HTTPTransport {
	if client == nil {
		client = &http.Client{}
	}
	return &HTTPTransport{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: client,
	}
}

// Stream posts req and emits every frame until EOF.
func (t *HTTPTransport) Stream(ctx context.Context, req Request, emit func(Frame)) error {
	body := requestBody{Prompt: req.Prompt, Temperature: req.Temperature}
	if req.ChatID.Valid() {
		id := int64(req.ChatID)
		body.ChatID = &id
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return &TransportError{Message: "failed to encode stream request", Cause: err}
	}

	endpoint := t.baseURL + StreamPath + "?session_id=" + url.QueryEscape(req.SessionID)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return &TransportError{Message: "failed to create stream request", Cause: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	httpReq.Header.Set("Cache-Control", "no-cache")

	resp, err := t.httpClient.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return &TransportError{Message: DefaultErrorMessage, Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		msg := strings.TrimSpace(string(snippet))
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return &TransportError{
			Message:    fmt.Sprintf("stream request failed: %s", msg),
			StatusCode: resp.StatusCode,
		}
	}

	reader := NewSSEReaderSize(resp.Body, t.MaxLineSize)
	for {
		frame, err := reader.ReadFrame()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return &TransportError{Message: "stream interrupted", Cause: err}
		}
		emit(frame)
	}
}
