// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package export writes the displayed conversation to a file.
//
// # Key Types
//
//   - Transcript: A snapshot of one chat's displayed messages
//   - Exporter: Format interface (Markdown, JSON)
//   - Options: Export configuration options
//
// # Usage
//
//	t := export.NewTranscript(title, chatID, sessionID, model, msgs)
//	exp, err := export.ForFormat("md")
//	path, err := export.ExportToFile(t, exp, &export.Options{OutputDir: "."})
package export
