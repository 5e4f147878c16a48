// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/jeranaias/alfred-tui/internal/model"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrNotCached means nothing has been stored for the requested key.
	ErrNotCached = errors.New("not cached")

	// ErrSchemaVersion means the database was written by a newer client.
	ErrSchemaVersion = errors.New("unsupported cache schema version")
)

// =============================================================================
// HISTORY CACHE
// =============================================================================

// HistoryCache stores chat lists and persisted message sequences. It is
// safe for concurrent use.
type HistoryCache struct {
	db *sql.DB
}

// Open opens (creating if needed) the cache database at path. Use
// ":memory:" for a throwaway cache.
func Open(path string) (*HistoryCache, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
			return nil, fmt.Errorf("failed to create cache directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache: %w", err)
	}

	// One writer at a time; a single connection also keeps ":memory:"
	// databases alive across calls.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma %q: %w", p, err)
		}
	}

	c := &HistoryCache{db: db}
	if err := c.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return c, nil
}

// Close closes the database.
func (c *HistoryCache) Close() error {
	return c.db.Close()
}

func (c *HistoryCache) migrate() error {
	if _, err := c.db.Exec(Schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	var raw string
	err := c.db.QueryRow(`SELECT value FROM metadata WHERE key = 'schema_version'`).Scan(&raw)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		_, err = c.db.Exec(`INSERT INTO metadata(key, value) VALUES ('schema_version', ?)`, strconv.Itoa(SchemaVersion))
		if err != nil {
			return fmt.Errorf("failed to record schema version: %w", err)
		}
		return nil
	case err != nil:
		return fmt.Errorf("failed to read schema version: %w", err)
	}

	version, err := strconv.Atoi(raw)
	if err != nil || version > SchemaVersion {
		return fmt.Errorf("%w: %s", ErrSchemaVersion, raw)
	}
	return nil
}

// =============================================================================
// CHATS
// =============================================================================

// PutChats replaces the cached chat list of a session.
func (c *HistoryCache) PutChats(ctx context.Context, sessionID string, chats []model.Chat) error {
	return c.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM chats WHERE session_id = ?`, sessionID); err != nil {
			return err
		}
		stmt, err := tx.PrepareContext(ctx, `INSERT INTO chats(id, session_id, title, position) VALUES (?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for i, chat := range chats {
			if _, err := stmt.ExecContext(ctx, int64(chat.ID), sessionID, chat.Title, i); err != nil {
				return err
			}
		}
		return nil
	})
}

// Chats returns the cached chat list of a session, or ErrNotCached.
func (c *HistoryCache) Chats(ctx context.Context, sessionID string) ([]model.Chat, error) {
	rows, err := c.db.QueryContext(ctx,
		`SELECT id, title FROM chats WHERE session_id = ? ORDER BY position`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query chats: %w", err)
	}
	defer rows.Close()

	var chats []model.Chat
	for rows.Next() {
		var id int64
		var title string
		if err := rows.Scan(&id, &title); err != nil {
			return nil, fmt.Errorf("scan chat: %w", err)
		}
		chats = append(chats, model.Chat{ID: model.ChatID(id), SessionID: sessionID, Title: title})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(chats) == 0 {
		return nil, ErrNotCached
	}
	return chats, nil
}

// =============================================================================
// MESSAGES
// =============================================================================

// PutMessages replaces the cached persisted sequence of a chat.
func (c *HistoryCache) PutMessages(ctx context.Context, chat model.ChatID, msgs []model.Message) error {
	return c.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM messages WHERE chat_id = ?`, int64(chat)); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO histories(chat_id, fetched_at) VALUES (?, ?)
			 ON CONFLICT(chat_id) DO UPDATE SET fetched_at = excluded.fetched_at`,
			int64(chat), time.Now().Unix())
		if err != nil {
			return err
		}

		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO messages(chat_id, position, id, role, content, created_at) VALUES (?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for i, m := range msgs {
			var created int64
			if !m.CreatedAt.IsZero() {
				created = m.CreatedAt.UnixNano()
			}
			if _, err := stmt.ExecContext(ctx, int64(chat), i, m.ID, string(m.Role), m.Content, created); err != nil {
				return err
			}
		}
		return nil
	})
}

// Messages returns the cached persisted sequence of a chat. It returns
// ErrNotCached if the chat was never stored; a stored empty chat yields an
// empty slice.
func (c *HistoryCache) Messages(ctx context.Context, chat model.ChatID) ([]model.Message, error) {
	var fetched int64
	err := c.db.QueryRowContext(ctx, `SELECT fetched_at FROM histories WHERE chat_id = ?`, int64(chat)).Scan(&fetched)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotCached
	}
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}

	rows, err := c.db.QueryContext(ctx,
		`SELECT id, role, content, created_at FROM messages WHERE chat_id = ? ORDER BY position`, int64(chat))
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	msgs := []model.Message{}
	for rows.Next() {
		var m model.Message
		var role string
		var created int64
		if err := rows.Scan(&m.ID, &role, &m.Content, &created); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		m.Role = model.Role(role)
		if created != 0 {
			m.CreatedAt = time.Unix(0, created)
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

// DeleteChat removes a chat's cached messages and its chat-list entries.
func (c *HistoryCache) DeleteChat(ctx context.Context, chat model.ChatID) error {
	return c.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM histories WHERE chat_id = ?`, int64(chat)); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `DELETE FROM chats WHERE id = ?`, int64(chat))
		return err
	})
}

func (c *HistoryCache) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return fmt.Errorf("cache write: %w", err)
	}
	return tx.Commit()
}
