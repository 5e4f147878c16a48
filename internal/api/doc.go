// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package api provides the HTTP client for the assistant backend's REST
// endpoints: chats, persisted messages, provider preferences and context
// file uploads.
//
// Streaming responses are handled by package stream; this client covers
// the request/response calls around them.
//
// # Usage
//
//	client := api.NewClientWithConfig(&api.ClientConfig{BaseURL: "http://localhost:8000"})
//	chat, err := client.CreateChat(ctx, sessionID, "Explain recursion...")
//	msgs, err := client.ListMessages(ctx, chat.ID)
package api
