// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// ClientError represents an error from the backend client.
type ClientError struct {
	Type       ErrorType
	Message    string
	StatusCode int
	Cause      error
}

func (e *ClientError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *ClientError) Unwrap() error {
	return e.Cause
}

// Is matches sentinel errors by type.
func (e *ClientError) Is(target error) bool {
	t, ok := target.(*ClientError)
	if !ok {
		return false
	}
	return t.Message == "" && t.Type == e.Type
}

// ErrorType categorizes client errors for handling.
type ErrorType int

const (
	ErrTypeUnknown ErrorType = iota
	ErrTypeConnection
	ErrTypeTimeout
	ErrTypeNotFound
	ErrTypeServer
	ErrTypeBadRequest
	ErrTypeInvalidResponse
)

// Sentinel errors for errors.Is checks; they match any error of their type.
var (
	ErrConnection      = &ClientError{Type: ErrTypeConnection}
	ErrTimeout         = &ClientError{Type: ErrTypeTimeout}
	ErrNotFound        = &ClientError{Type: ErrTypeNotFound}
	ErrServer          = &ClientError{Type: ErrTypeServer}
	ErrBadRequest      = &ClientError{Type: ErrTypeBadRequest}
	ErrInvalidResponse = &ClientError{Type: ErrTypeInvalidResponse}
)

// =============================================================================
// CLIENT CONFIGURATION
// =============================================================================

// ClientConfig holds configuration options for the backend client.
type ClientConfig struct {
	// BaseURL is the backend root (default: http://localhost:8000)
	BaseURL string

	// Timeout for each request (default: 30s)
	Timeout time.Duration

	// RequestsPerSecond caps outgoing requests; 0 disables the limit
	RequestsPerSecond float64

	// Burst is the limiter bucket size (default: 5)
	Burst int
}

// DefaultBaseURL is the backend address used by a stock local install.
const DefaultBaseURL = "http://localhost:8000"

// DefaultConfig returns the default client configuration.
func DefaultConfig() *ClientConfig {
	return &ClientConfig{
		BaseURL:           DefaultBaseURL,
		Timeout:           30 * time.Second,
		RequestsPerSecond: 10,
		Burst:             5,
	}
}

// =============================================================================
// CLIENT
// =============================================================================

// Client talks to the backend REST API. It is safe for concurrent use.
type Client struct {
	config     *ClientConfig
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewClient creates a client with default configuration.
func NewClient() *Client {
	return NewClientWithConfig(DefaultConfig())
}

// NewClientWithConfig creates a client with custom configuration.
func NewClientWithConfig(config *ClientConfig) *Client {
	if config == nil {
		config = DefaultConfig()
	}
	if config.BaseURL == "" {
		config.BaseURL = DefaultBaseURL
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	if config.Burst <= 0 {
		config.Burst = 5
	}

	limit := rate.Inf
	if config.RequestsPerSecond > 0 {
		limit = rate.Limit(config.RequestsPerSecond)
	}

	return &Client{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
		limiter:    rate.NewLimiter(limit, config.Burst),
	}
}

// BaseURL returns the configured backend root.
func (c *Client) BaseURL() string {
	return c.config.BaseURL
}

// doJSON sends a request with an optional JSON body and decodes a JSON
// response into out (if non-nil).
func (c *Client) doJSON(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to marshal request", Cause: err}
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.config.BaseURL+path, reader)
	if err != nil {
		return &ClientError{Type: ErrTypeConnection, Message: "failed to create request", Cause: err}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	return c.do(req, out)
}

// do applies the rate limit, executes req and maps failures to ClientError.
func (c *Client) do(req *http.Request, out any) error {
	ctx := req.Context()
	if err := c.limiter.Wait(ctx); err != nil {
		return &ClientError{Type: ErrTypeTimeout, Message: "rate limit wait aborted", Cause: err}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
			return &ClientError{Type: ErrTypeTimeout, Message: "request timed out", Cause: err}
		}
		return &ClientError{
			Type:    ErrTypeConnection,
			Message: fmt.Sprintf("cannot reach backend at %s", c.config.BaseURL),
			Cause:   err,
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return statusError(req, resp)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to decode response", Cause: err}
	}
	return nil
}

// statusError builds a ClientError from a non-2xx response, preferring the
// backend's "detail" field when present.
func statusError(req *http.Request, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	detail := strings.TrimSpace(string(body))
	var parsed struct {
		Detail any `json:"detail"`
	}
	if json.Unmarshal(body, &parsed) == nil && parsed.Detail != nil {
		if s, ok := parsed.Detail.(string); ok {
			detail = s
		}
	}
	if detail == "" {
		detail = http.StatusText(resp.StatusCode)
	}

	typ := ErrTypeServer
	switch {
	case resp.StatusCode == http.StatusNotFound:
		typ = ErrTypeNotFound
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		typ = ErrTypeBadRequest
	}

	return &ClientError{
		Type:       typ,
		Message:    fmt.Sprintf("%s %s failed: %s", req.Method, req.URL.Path, detail),
		StatusCode: resp.StatusCode,
	}
}

func isTimeout(err error) bool {
	var te interface{ Timeout() bool }
	return errors.As(err, &te) && te.Timeout()
}
