// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/google/uuid"

	"github.com/jeranaias/alfred-tui/internal/util"
)

// LoadOrCreate returns the session id stored at path. When the file is
// missing or does not hold a valid UUID, a new id is generated and written.
// created reports whether that happened.
func LoadOrCreate(path string) (id string, created bool, err error) {
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		existing := strings.TrimSpace(string(data))
		if _, parseErr := uuid.Parse(existing); parseErr == nil {
			return existing, false, nil
		}
		log.Printf("SESSION | discarding malformed id file=%s", path)
	case !errors.Is(err, os.ErrNotExist):
		return "", false, fmt.Errorf("read session file: %w", err)
	}

	id, err = Reset(path)
	if err != nil {
		return "", false, err
	}
	return id, true, nil
}

// Reset replaces the stored id with a fresh one and returns it.
func Reset(path string) (string, error) {
	id := uuid.NewString()
	if err := util.AtomicWriteFile(path, []byte(id+"\n"), 0600); err != nil {
		return "", fmt.Errorf("write session file: %w", err)
	}
	log.Printf("SESSION | created id=%s", id)
	return id, nil
}
