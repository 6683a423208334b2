// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package util

import (
	"strings"

	"github.com/mattn/go-runewidth"
	"golang.org/x/text/unicode/norm"
)

// UNICODE: Width-aware truncation prevents mid-character corruption and
// keeps CJK text aligned in the sidebar and status bar.

// TruncateWidth truncates a string to a maximum display width, appending
// "..." when truncation occurs. Double-width characters count as 2 columns.
func TruncateWidth(s string, maxWidth int) string {
	if maxWidth <= 0 {
		return ""
	}
	if runewidth.StringWidth(s) <= maxWidth {
		return s
	}
	if maxWidth <= 3 {
		return runewidth.Truncate(s, maxWidth, "")
	}
	return runewidth.Truncate(s, maxWidth, "...")
}

// PadRight pads a string with spaces to the given display width.
func PadRight(s string, width int) string {
	return runewidth.FillRight(s, width)
}

// NormalizeFilename canonicalizes a file name for identity comparisons.
//
// Document deletion is keyed by file name, and macOS reports names in NFD
// while the backend stores NFC. Normalizing both sides keeps the optimistic
// removal and the backend delete pointing at the same document.
func NormalizeFilename(name string) string {
	return norm.NFC.String(strings.TrimSpace(name))
}
