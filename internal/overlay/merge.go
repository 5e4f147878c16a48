// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package overlay

import (
	"strings"

	"github.com/jeranaias/alfred-tui/internal/model"
)

// Merge builds the displayed sequence from persisted history and the
// overlay.
//
// The persisted sequence is reproduced verbatim as a prefix. Overlay entries
// are deduplicated by id (first wins), then dropped if a persisted message of
// the same role has the same trimmed content. Surviving user entries follow,
// then surviving assistant entries, each keeping overlay order.
//
// Content matching is a heuristic: two turns with identical text collapse
// into the persisted one while the second is in flight.
func Merge(persisted, overlay []model.Message) []model.Message {
	persistedByRole := map[model.Role]map[string]struct{}{
		model.RoleUser:      {},
		model.RoleAssistant: {},
	}
	for _, m := range persisted {
		set, ok := persistedByRole[m.Role]
		if !ok {
			continue
		}
		set[strings.TrimSpace(m.Content)] = struct{}{}
	}

	seen := make(map[string]struct{}, len(overlay))
	var users, assistants []model.Message
	for _, m := range overlay {
		if _, dup := seen[m.ID]; dup {
			continue
		}
		seen[m.ID] = struct{}{}

		set, ok := persistedByRole[m.Role]
		if !ok {
			continue
		}
		if _, persistedAlready := set[strings.TrimSpace(m.Content)]; persistedAlready {
			continue
		}
		switch m.Role {
		case model.RoleUser:
			users = append(users, m)
		case model.RoleAssistant:
			assistants = append(assistants, m)
		}
	}

	out := make([]model.Message, 0, len(persisted)+len(users)+len(assistants))
	out = append(out, persisted...)
	out = append(out, users...)
	out = append(out, assistants...)
	return out
}
