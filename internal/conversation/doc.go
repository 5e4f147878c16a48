// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package conversation drives one chat window: the send flow, chat
// selection, creation and deletion, and the sequence shown to the user.
//
// A Manager owns all chat state and must only be touched from its loop.
// Backend calls run on their own goroutines and post their results back,
// where they are dropped if the user has moved on in the meantime.
//
// # Send Flow
//
//  1. The draft is trimmed; empty drafts and sends while busy are refused.
//  2. Without a selected chat, one is created with a title derived from the
//     prompt.
//  3. Queued attachments are uploaded. Any failure aborts the send.
//  4. The user message and an empty assistant placeholder join the overlay.
//  5. The model preference is saved in the background.
//  6. The stream opens; tokens are paced into the placeholder.
//  7. On completion the persisted history is refetched and merged.
package conversation
