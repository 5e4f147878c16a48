// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for chats and messages.
//
// This package defines the domain types shared by the overlay engine, the
// backend client and the renderers.
//
// # Key Types
//
//   - Message: Single chat message (ID, role, content, creation time, attachments)
//   - Role: Tagged message role (user, assistant)
//   - ChatID: Server-assigned chat identifier; NoChat means not yet created
//   - Chat: Chat summary as listed in the sidebar
//   - Preference: Provider/model selection stored per session
//   - UploadResult: Backend summary of an uploaded context file
//
// # Usage
//
// Build the title for a chat created from a first prompt:
//
//	title := model.GenerateTitle("Explain recursion. Use an example.")
//	// "Explain recursion..."
//
// Derive the provider for a model name:
//
//	pref := model.NewPreference(sessionID, "gpt-4o-mini")
//	// pref.Provider == "openai"
package model
