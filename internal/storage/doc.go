// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage keeps a local SQLite copy of the chat list and persisted
// message sequences fetched from the backend.
//
// The cache lets a chat show its last known history immediately when it is
// selected, while the authoritative refetch is in flight. It is never
// written to by the overlay: only sequences the backend returned are stored.
//
// # Key Types
//
//   - HistoryCache: SQLite-backed cache of chats and messages
//
// # Usage
//
//	cache, err := storage.Open(path)
//	if err != nil {
//	    return err
//	}
//	defer cache.Close()
//
//	cache.PutMessages(ctx, chatID, msgs)
//	msgs, err := cache.Messages(ctx, chatID)
//	if errors.Is(err, storage.ErrNotCached) {
//	    // nothing known yet
//	}
package storage
