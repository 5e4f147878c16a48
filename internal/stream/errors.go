// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"errors"
	"fmt"
)

// DefaultErrorMessage is reported when the backend fails without saying why.
const DefaultErrorMessage = "Streaming connection failed"

var (
	// ErrEndedEarly means the connection closed before a done or error event.
	ErrEndedEarly = errors.New("stream ended before completion")

	// ErrFrameTooLarge means a single SSE line exceeded the reader's limit.
	ErrFrameTooLarge = errors.New("stream frame too large")
)

// TransportError covers every way a stream can fail once opened: the
// request failing, a non-200 status, the connection dropping, or an error
// event from the backend.
type TransportError struct {
	// Message is the one-line text shown to the user.
	Message string
	// StatusCode is set for HTTP status failures.
	StatusCode int
	// Cause is the underlying error, if any.
	Cause error
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s (HTTP %d)", e.Message, e.StatusCode)
	}
	return e.Message
}

// Unwrap returns the underlying cause.
func (e *TransportError) Unwrap() error {
	return e.Cause
}

// IsTransportError reports whether err is or wraps a TransportError.
func IsTransportError(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}
