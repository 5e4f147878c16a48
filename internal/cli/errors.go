// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/jeranaias/alfred-tui/internal/api"
	"github.com/jeranaias/alfred-tui/internal/config"
)

// =============================================================================
// EXIT CODES
// =============================================================================

const (
	// ExitSuccess indicates successful execution
	ExitSuccess = 0
	// ExitGeneralError indicates a general/unknown error
	ExitGeneralError = 1
	// ExitUsageError indicates invalid command usage or arguments
	ExitUsageError = 2
	// ExitConfigError indicates configuration file or settings error
	ExitConfigError = 3
	// ExitNetworkError indicates the backend could not be reached
	ExitNetworkError = 5
)

// UsageError reports a malformed command line.
type UsageError struct {
	Message string
}

func (e *UsageError) Error() string {
	return e.Message
}

// NewUsageError creates a usage error.
func NewUsageError(msg string) error {
	return &UsageError{Message: msg}
}

// ExitCode maps an error to a process exit status.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var usage *UsageError
	if errors.As(err, &usage) {
		return ExitUsageError
	}

	var verrs config.ValidateErrors
	if errors.As(err, &verrs) {
		return ExitConfigError
	}
	var verr config.ValidationError
	if errors.As(err, &verr) {
		return ExitConfigError
	}

	if errors.Is(err, api.ErrConnection) || errors.Is(err, api.ErrTimeout) {
		return ExitNetworkError
	}
	return ExitGeneralError
}

// DisplayError writes err to w, with a usage hint for usage errors.
func DisplayError(w io.Writer, err error) {
	fmt.Fprintf(w, "%s %v\n", ErrorStyle.Render("Error:"), err)
	var usage *UsageError
	if errors.As(err, &usage) {
		fmt.Fprintln(w, DimStyle.Render("Run 'alfred help' for usage."))
	}
}

// HandleErrorAndExit prints err to stderr and exits with its code.
func HandleErrorAndExit(err error) {
	if err == nil {
		return
	}
	DisplayError(os.Stderr, err)
	os.Exit(ExitCode(err))
}
