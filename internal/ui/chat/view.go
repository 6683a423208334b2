// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// View renders the full screen: header, transcript viewport, optional
// command panel, input, status bar.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if !m.ready {
		return "starting..."
	}

	var b strings.Builder

	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(m.viewport.View())
	b.WriteString("\n")

	if m.panel != "" {
		b.WriteString(m.panel)
		b.WriteString("\n")
	}

	b.WriteString(m.theme.InputContainer.Width(m.width).Render(m.input.View()))
	b.WriteString("\n")

	if m.statusMsg != "" {
		b.WriteString(m.theme.ErrorText.Render(m.statusMsg))
		b.WriteString("\n")
	}

	b.WriteString(m.renderStatusBar())
	return b.String()
}

func (m Model) renderHeader() string {
	title := m.theme.HeaderTitle.Render("Nexus")
	sub := m.theme.Timestamp.Render(" · retrieval-augmented chat")
	line := lipgloss.JoinHorizontal(lipgloss.Left, title, sub)
	return m.theme.Header.Width(m.width).Render(line)
}

func (m Model) renderStatusBar() string {
	sessionID := -1
	if id := m.deps.Store.ActiveID(); id != nil {
		sessionID = *id
	}
	streaming := m.deps.Controller.Busy()
	bar := m.statusBar.Render(sessionID, len(m.deps.Registry.Documents()), streaming)
	if streaming {
		bar = m.spinner.View() + bar
	}
	return bar
}

// chromeHeight is the vertical space everything but the viewport occupies.
func (m Model) chromeHeight() int {
	h := 1 + 2 + 1 // header, input container with border, status bar
	if m.panel != "" {
		h += strings.Count(m.panel, "\n") + 1
	}
	if m.statusMsg != "" {
		h++
	}
	return h
}

// refreshViewport re-renders the transcript into the viewport. followTail
// keeps the newest message on screen, which is what chat wants whenever
// content grows.
func (m *Model) refreshViewport(followTail bool) {
	if !m.ready {
		return
	}

	var b strings.Builder
	for _, msg := range m.deps.Controller.Messages() {
		b.WriteString(m.renderer.Render(msg, m.visibleBody(msg)))
		b.WriteString("\n")
	}

	m.viewport.SetContent(b.String())
	if followTail {
		m.viewport.GotoBottom()
	}
}
