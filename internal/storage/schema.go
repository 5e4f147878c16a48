// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

// SchemaVersion tracks the database schema version.
const SchemaVersion = 1

// Schema creates the cache tables.
const Schema = `
CREATE TABLE IF NOT EXISTS metadata (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL
) WITHOUT ROWID;

-- Chats per session, in backend order
CREATE TABLE IF NOT EXISTS chats (
    id INTEGER NOT NULL,
    session_id TEXT NOT NULL,
    title TEXT NOT NULL,
    position INTEGER NOT NULL,
    PRIMARY KEY (session_id, id)
);

-- Marks a chat's message sequence as fetched, even when empty
CREATE TABLE IF NOT EXISTS histories (
    chat_id INTEGER PRIMARY KEY,
    fetched_at INTEGER NOT NULL -- Unix timestamp
);

CREATE TABLE IF NOT EXISTS messages (
    chat_id INTEGER NOT NULL,
    position INTEGER NOT NULL,
    id TEXT NOT NULL,
    role TEXT NOT NULL,
    content TEXT NOT NULL,
    created_at INTEGER NOT NULL, -- Unix nanoseconds, 0 if unknown
    PRIMARY KEY (chat_id, position),
    FOREIGN KEY(chat_id) REFERENCES histories(chat_id) ON DELETE CASCADE
);
`
