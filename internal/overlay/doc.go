// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package overlay holds client-side messages that the server has not yet
// persisted and merges them with persisted history for display.
//
// Every function is pure: inputs are never mutated and a fresh slice is
// returned whenever something changes. Operations addressing an id that is
// not present return the input unchanged.
//
// # Key Functions
//
//   - NewMessage: Provisional message with a fresh random id
//   - AppendToken: Stream a fragment into a message (replacing the placeholder)
//   - SetContent: Replace content, optionally only when empty
//   - Merge: Persisted prefix plus surviving overlay entries
//
// # Usage
//
//	user := overlay.NewMessage(model.RoleUser, "Explain recursion")
//	reply := overlay.NewMessage(model.RoleAssistant, "")
//	seq := []model.Message{user, reply}
//	seq = overlay.SetContent(seq, reply.ID, overlay.Placeholder, true)
//	seq = overlay.AppendToken(seq, reply.ID, "Recursion is")
//	shown := overlay.Merge(persisted, seq)
package overlay
