// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/alfred-tui/internal/ui/styles"
)

// =============================================================================
// SHARED STYLES
// =============================================================================

var (
	PromptStyle = lipgloss.NewStyle().
			Foreground(styles.Cyan).
			Bold(true)

	TitleStyle = lipgloss.NewStyle().
			Foreground(styles.Purple).
			Bold(true)

	LabelStyle = lipgloss.NewStyle().
			Foreground(styles.TextSecondary)

	ValueStyle = lipgloss.NewStyle().
			Foreground(styles.TextPrimary)

	AssistantStyle = lipgloss.NewStyle().
			Foreground(styles.AssistantAccent).
			Bold(true)

	SuccessStyle = lipgloss.NewStyle().
			Foreground(styles.Emerald)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(styles.Rose).
			Bold(true)

	DimStyle = lipgloss.NewStyle().
			Foreground(styles.TextMuted)
)

// ConfigureColors applies the detected color profile to lipgloss. Call it
// before printing in line mode or for subcommands.
func ConfigureColors() {
	lipgloss.SetColorProfile(GetColorProfile())
}
