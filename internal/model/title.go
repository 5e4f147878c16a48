// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// DefaultTitle is used when a prompt yields no usable title.
const DefaultTitle = "New chat"

const (
	titleMaxWords = 10
	titleMaxRunes = 80
)

var sentenceSeparators = []string{". ", "? ", "! "}

// GenerateTitle derives a short chat title from the first prompt of a chat.
// The title is the first sentence, cut to ten words and 80 characters, with
// "..." appended when words were dropped or the prompt itself contains a
// sentence separator.
func GenerateTitle(prompt string) string {
	text := norm.NFC.String(strings.TrimSpace(prompt))
	text = joinLines(text)
	if text == "" {
		return DefaultTitle
	}

	for _, sep := range sentenceSeparators {
		if i := strings.Index(text, sep); i >= 0 {
			text = text[:i]
			break
		}
	}
	// A separator only counts as a second sentence when the user typed it;
	// one made by joining lines does not.
	multiSentence := false
	for _, sep := range sentenceSeparators {
		if strings.Contains(prompt, sep) {
			multiSentence = true
			break
		}
	}

	words := strings.Fields(text)
	tooManyWords := len(words) > titleMaxWords
	if tooManyWords {
		text = strings.Join(words[:titleMaxWords], " ")
	}

	if runes := []rune(text); len(runes) > titleMaxRunes {
		text = strings.TrimRight(string(runes[:titleMaxRunes]), " \t")
	}

	if (tooManyWords || multiSentence) && !strings.HasSuffix(text, "...") {
		text += "..."
	}
	if text == "" {
		return DefaultTitle
	}
	return text
}

// joinLines replaces each run of newlines with a single space.
func joinLines(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	inBreak := false
	for _, r := range s {
		if r == '\n' {
			if !inBreak {
				b.WriteByte(' ')
			}
			inBreak = true
			continue
		}
		inBreak = false
		b.WriteRune(r)
	}
	return b.String()
}
