// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"

	"github.com/jeranaias/alfred-tui/internal/model"
)

// MaxUploadSize caps a single context file (25MB).
const MaxUploadSize = 25 << 20

// UploadFile reads path and uploads it as session context.
func (c *Client) UploadFile(ctx context.Context, sessionID, path string) (model.UploadResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return model.UploadResult{}, fmt.Errorf("open attachment: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return model.UploadResult{}, fmt.Errorf("stat attachment: %w", err)
	}
	if info.Size() > MaxUploadSize {
		return model.UploadResult{}, fmt.Errorf("attachment %s is %d bytes, limit is %d", filepath.Base(path), info.Size(), MaxUploadSize)
	}

	return c.Upload(ctx, sessionID, filepath.Base(path), f)
}

// Upload sends r as a multipart file named name.
func (c *Client) Upload(ctx context.Context, sessionID, name string, r io.Reader) (model.UploadResult, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", name)
	if err != nil {
		return model.UploadResult{}, &ClientError{Type: ErrTypeBadRequest, Message: "failed to build upload", Cause: err}
	}
	if _, err := io.Copy(part, r); err != nil {
		return model.UploadResult{}, &ClientError{Type: ErrTypeBadRequest, Message: "failed to read attachment", Cause: err}
	}
	if err := mw.Close(); err != nil {
		return model.UploadResult{}, &ClientError{Type: ErrTypeBadRequest, Message: "failed to build upload", Cause: err}
	}

	endpoint := c.config.BaseURL + "/api/files/upload?session_id=" + url.QueryEscape(sessionID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &buf)
	if err != nil {
		return model.UploadResult{}, &ClientError{Type: ErrTypeConnection, Message: "failed to create request", Cause: err}
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var result model.UploadResult
	if err := c.do(req, &result); err != nil {
		return model.UploadResult{}, err
	}
	if result.Filename == "" {
		result.Filename = name
	}
	return result, nil
}

// ClearFiles drops all uploaded context for a session.
func (c *Client) ClearFiles(ctx context.Context, sessionID string) error {
	return c.doJSON(ctx, http.MethodDelete, "/api/files/clear?session_id="+url.QueryEscape(sessionID), nil, nil)
}
