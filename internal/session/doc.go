// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session persists the client's session identifier.
//
// The backend scopes chats, preferences and uploaded context by a session
// id chosen by the client. The id is a random UUID written once to a file
// under the config directory and reused on every start.
//
// # Usage
//
//	id, created, err := session.LoadOrCreate(path)
//	if created {
//	    log.Printf("SESSION | new id=%s", id)
//	}
package session
