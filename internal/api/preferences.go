// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"context"
	"net/http"
	"net/url"

	"github.com/jeranaias/alfred-tui/internal/model"
)

const preferencesPath = "/api/agents/preferences?session_id="

// GetPreference returns the provider/model stored for a session.
func (c *Client) GetPreference(ctx context.Context, sessionID string) (model.Preference, error) {
	var pref model.Preference
	err := c.doJSON(ctx, http.MethodGet, preferencesPath+url.QueryEscape(sessionID), nil, &pref)
	return pref, err
}

// SetPreference stores the provider/model for a session.
func (c *Client) SetPreference(ctx context.Context, pref model.Preference) error {
	body := map[string]string{"provider": pref.Provider, "model": pref.Model}
	return c.doJSON(ctx, http.MethodPost, preferencesPath+url.QueryEscape(pref.SessionID), body, nil)
}
