// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"fmt"
	"strings"

	"github.com/jeranaias/nexus-tui/internal/ui/styles"
)

// StatusBar summarizes connection and session state at the bottom of the
// screen.
type StatusBar struct {
	theme *styles.Theme
	width int
}

// NewStatusBar creates a status bar.
func NewStatusBar(theme *styles.Theme) *StatusBar {
	return &StatusBar{theme: theme, width: 80}
}

// SetWidth sets the render width.
func (s *StatusBar) SetWidth(width int) { s.width = width }

// Render renders the bar. sessionID < 0 means no session assigned yet.
func (s *StatusBar) Render(sessionID int, docCount int, streaming bool) string {
	var parts []string

	session := "new session"
	if sessionID >= 0 {
		session = fmt.Sprintf("session #%d", sessionID)
	}
	parts = append(parts, s.theme.StatusKey.Render("⌁ ")+s.theme.StatusValue.Render(session))

	parts = append(parts, s.theme.StatusValue.Render(
		fmt.Sprintf("%d docs", docCount)))

	if streaming {
		parts = append(parts, s.theme.ThinkingText.Render("streaming..."))
	} else {
		parts = append(parts, s.theme.StatusValue.Render("/help for commands"))
	}

	line := strings.Join(parts, s.theme.StatusValue.Render(" │ "))
	return s.theme.StatusBar.Width(s.width).Render(line)
}
