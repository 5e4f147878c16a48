// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"testing"

	"github.com/muesli/termenv"
)

func TestNewTheme_ForcedBackground(t *testing.T) {
	if th := NewTheme(ThemeDark); !th.IsDark {
		t.Error("dark theme reported a light background")
	}
	if th := NewTheme(ThemeLight); th.IsDark {
		t.Error("light theme reported a dark background")
	}
}

func TestGlamourStyle(t *testing.T) {
	th := &Theme{IsDark: true, ColorProfile: termenv.TrueColor}
	if got := th.GlamourStyle(); got != "dark" {
		t.Errorf("GlamourStyle() = %q, want dark", got)
	}
	th.IsDark = false
	if got := th.GlamourStyle(); got != "light" {
		t.Errorf("GlamourStyle() = %q, want light", got)
	}
	th.ColorProfile = termenv.Ascii
	if got := th.GlamourStyle(); got != "notty" {
		t.Errorf("GlamourStyle() = %q, want notty", got)
	}
}

func TestGetLayoutMode(t *testing.T) {
	tests := []struct {
		width int
		want  LayoutMode
	}{
		{40, LayoutNarrow},
		{59, LayoutNarrow},
		{60, LayoutMedium},
		{99, LayoutMedium},
		{100, LayoutWide},
		{200, LayoutWide},
	}

	th := NewTheme(ThemeDark)
	for _, tc := range tests {
		th.SetSize(tc.width, 40)
		if got := th.GetLayoutMode(); got != tc.want {
			t.Errorf("width %d: got %v, want %v", tc.width, got, tc.want)
		}
	}
}
