// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package chat provides the Bubble Tea chat view for alfred.

The view is a thin host over conversation.Manager. Bubble Tea's Update is
the manager's event loop: background work posts closures through
ProgramLoop, which delivers them as RunMsg, and Update runs them before
re-rendering.

# Layout

  - Header with the app name, chat title and model
  - Sidebar listing the session's chats (hidden on narrow terminals)
  - Message viewport with markdown rendering for assistant replies
  - Notice box for slash command output
  - Composer with queued attachment chips
  - Status line with a spinner while busy, errors, and shortcuts

# Keys

Enter sends (or runs a slash command), Esc stops a reply, Shift+Tab moves
focus between the composer and the sidebar, Ctrl+N starts a new chat and
Ctrl+C quits. In the sidebar, Enter opens the highlighted chat and d twice
deletes it.
*/
package chat
