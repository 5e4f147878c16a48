// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package styles provides the visual styling system for the alfred TUI.

All colors use Lip Gloss AdaptiveColor so one palette serves light and dark
terminals. The background is detected through termenv unless the user
forces a theme in the config.

# Color System (colors.go)

  - Purple: assistant messages and selections
  - Cyan: brand color, user messages, the prompt
  - Emerald: success notices
  - Amber: busy and warning states
  - Rose: errors

# Theme (theme.go)

Theme bundles the styles for the sidebar, message list, composer and status
line, and picks the glamour style that matches the background.

# Usage

	theme := styles.NewTheme("auto")
	theme.SetSize(msg.Width, msg.Height)
	header := theme.Header.Render("Alfred")
*/
package styles
