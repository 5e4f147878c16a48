// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"strconv"
	"strings"
)

// =============================================================================
// CHAT TYPES
// =============================================================================

// ChatID is a positive server-assigned chat identifier.
type ChatID int64

// NoChat marks "no chat selected yet" and is never assigned by the server.
const NoChat ChatID = 0

// Valid reports whether id refers to a server chat.
func (id ChatID) Valid() bool {
	return id > 0
}

// String returns the decimal form of the id.
func (id ChatID) String() string {
	return strconv.FormatInt(int64(id), 10)
}

// Chat is a chat summary.
type Chat struct {
	ID        ChatID `json:"id"`
	SessionID string `json:"session_id"`
	Title     string `json:"title"`
}

// =============================================================================
// PREFERENCE
// =============================================================================

// Provider names understood by the backend.
const (
	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

// DefaultModel is selected when nothing else is configured.
const DefaultModel = "llama3.2"

// Preference is the provider/model selection stored for a session.
type Preference struct {
	SessionID string `json:"session_id,omitempty"`
	Provider  string `json:"provider"`
	Model     string `json:"model"`
}

// NewPreference builds a preference for modelName, deriving the provider
// from the model name.
func NewPreference(sessionID, modelName string) Preference {
	return Preference{
		SessionID: sessionID,
		Provider:  ProviderFor(modelName),
		Model:     modelName,
	}
}

// ProviderFor maps a model name to the backend provider serving it.
func ProviderFor(modelName string) string {
	switch {
	case strings.HasPrefix(modelName, "gemini"):
		return ProviderGemini
	case strings.HasPrefix(modelName, "gpt-"):
		return ProviderOpenAI
	default:
		return ProviderOllama
	}
}

// =============================================================================
// UPLOADS
// =============================================================================

// UploadResult describes a context file accepted by the backend. Optional
// fields depend on the file type.
type UploadResult struct {
	Filename   string   `json:"filename"`
	Tokens     *int     `json:"tokens,omitempty"`
	Pages      *int     `json:"pages,omitempty"`
	Columns    []string `json:"columns,omitempty"`
	RAGIndexed *bool    `json:"rag_indexed,omitempty"`
}
