// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"strings"
	"testing"
)

func TestRoleDisplayName(t *testing.T) {
	if RoleUser.DisplayName() != "You" {
		t.Errorf("RoleUser.DisplayName() = %q", RoleUser.DisplayName())
	}
	if RoleAssistant.DisplayName() != "Alfred" {
		t.Errorf("RoleAssistant.DisplayName() = %q", RoleAssistant.DisplayName())
	}
}

func TestParseRole(t *testing.T) {
	if r, err := ParseRole("assistant"); err != nil || r != RoleAssistant {
		t.Errorf("ParseRole(assistant) = %v, %v", r, err)
	}
	if _, err := ParseRole("system"); err == nil {
		t.Error("ParseRole(system) should fail")
	}
}

func TestPersistedMessageID(t *testing.T) {
	if got := PersistedMessageID(42, 7); got != "42:7" {
		t.Errorf("PersistedMessageID = %q, want 42:7", got)
	}
}

func TestChatIDValid(t *testing.T) {
	if NoChat.Valid() {
		t.Error("NoChat should not be valid")
	}
	if !ChatID(3).Valid() {
		t.Error("ChatID(3) should be valid")
	}
}

func TestProviderFor(t *testing.T) {
	tests := map[string]string{
		"llama3.2":         ProviderOllama,
		"gpt-4o-mini":      ProviderOpenAI,
		"gemini-1.5-flash": ProviderGemini,
		"mistral":          ProviderOllama,
	}
	for name, want := range tests {
		if got := ProviderFor(name); got != want {
			t.Errorf("ProviderFor(%q) = %q, want %q", name, got, want)
		}
	}

	pref := NewPreference("s1", "gpt-4o")
	if pref.Provider != ProviderOpenAI || pref.SessionID != "s1" || pref.Model != "gpt-4o" {
		t.Errorf("NewPreference = %+v", pref)
	}
}

func TestGenerateTitle(t *testing.T) {
	tests := []struct {
		name   string
		prompt string
		want   string
	}{
		{"empty", "   ", DefaultTitle},
		{"short", "Explain recursion", "Explain recursion"},
		{"first sentence", "Explain recursion. Use an example.", "Explain recursion..."},
		{"question", "What is Go? Tell me more", "What is Go..."},
		{"newlines", "hello\n\nworld", "hello world"},
		{"too many words", "one two three four five six seven eight nine ten eleven", "one two three four five six seven eight nine ten..."},
		{"trailing period only", "Say hi.", "Say hi."},
		{"sentence split by newline", "Hi.\nThere", "Hi."},
		{"sentence split by space", "Hi. There", "Hi..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GenerateTitle(tt.prompt); got != tt.want {
				t.Errorf("GenerateTitle(%q) = %q, want %q", tt.prompt, got, tt.want)
			}
		})
	}
}

func TestGenerateTitle_RuneLimit(t *testing.T) {
	long := strings.Repeat("ü", 120)
	got := GenerateTitle(long)
	if n := len([]rune(got)); n != titleMaxRunes {
		t.Errorf("title has %d runes, want %d", n, titleMaxRunes)
	}
}
