// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package conversation

import (
	"errors"
	"fmt"
	"path/filepath"
)

var (
	// ErrEmptyMessage is returned by Send when the draft is blank.
	ErrEmptyMessage = errors.New("message is empty")

	// ErrBusy is returned by Send while a reply or upload is in progress.
	ErrBusy = errors.New("a reply is already in progress")
)

// Stage names the step of a send that failed before streaming.
type Stage string

const (
	StageCreateChat Stage = "create chat"
	StageUpload     Stage = "upload"
)

// SendError reports a send aborted before the stream was opened. The
// overlay is left untouched.
type SendError struct {
	Stage Stage
	// Path is the attachment that failed, for StageUpload.
	Path string
	Err  error
}

func (e *SendError) Error() string {
	if e.Stage == StageUpload {
		return fmt.Sprintf("upload of %s failed: %v", filepath.Base(e.Path), e.Err)
	}
	return fmt.Sprintf("failed to create chat: %v", e.Err)
}

func (e *SendError) Unwrap() error {
	return e.Err
}
