// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"

	"github.com/jeranaias/nexus-tui/internal/model"
	"github.com/jeranaias/nexus-tui/internal/ui/styles"
)

// =============================================================================
// MESSAGE RENDERER
// =============================================================================

// MessageRenderer turns transcript messages into terminal output.
type MessageRenderer struct {
	theme    *styles.Theme
	markdown bool
	width    int
	renderer *glamour.TermRenderer
}

// NewMessageRenderer creates a renderer. markdown enables glamour rendering
// of settled assistant messages.
func NewMessageRenderer(theme *styles.Theme, markdown bool) *MessageRenderer {
	r := &MessageRenderer{
		theme:    theme,
		markdown: markdown,
		width:    80,
	}
	r.rebuild()
	return r
}

// SetWidth adjusts word wrapping to the viewport width.
func (r *MessageRenderer) SetWidth(width int) {
	if width < 20 {
		width = 20
	}
	if width == r.width {
		return
	}
	r.width = width
	r.rebuild()
}

func (r *MessageRenderer) rebuild() {
	if !r.markdown {
		r.renderer = nil
		return
	}
	tr, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(r.width),
	)
	if err != nil {
		// Markdown becomes plain text; the transcript is still readable.
		r.renderer = nil
		return
	}
	r.renderer = tr
}

// Render renders one message. body is the text to display, which during
// streaming may lag the message's full content (typewriter reveal).
func (r *MessageRenderer) Render(m *model.Message, body string) string {
	var b strings.Builder

	label := r.theme.AssistantLabel.Render("Nexus")
	if m.Role == model.RoleUser {
		label = r.theme.UserLabel.Render("You")
	}
	b.WriteString(label)
	if m.Timestamp != "" {
		b.WriteString("  ")
		b.WriteString(r.theme.Timestamp.Render(m.Timestamp))
	}
	b.WriteString("\n")

	b.WriteString(r.renderBody(m, body))

	if len(m.Sources) > 0 && !m.IsStreaming {
		b.WriteString("\n")
		b.WriteString(r.theme.SourceTag.Render(
			fmt.Sprintf("Sources: %s", strings.Join(m.Sources, ", "))))
		b.WriteString("\n")
	}
	return b.String()
}

func (r *MessageRenderer) renderBody(m *model.Message, body string) string {
	if body == "" && m.IsStreaming {
		return r.theme.ThinkingText.Render("thinking...") + "\n"
	}

	// PERFORMANCE: markdown only for settled assistant messages. Re-running
	// glamour on every streamed fragment reflows the whole message each
	// frame.
	if r.renderer != nil && m.Role == model.RoleAssistant && !m.IsStreaming {
		out, err := r.renderer.Render(body)
		if err == nil {
			return strings.Trim(out, "\n") + "\n"
		}
	}
	return r.theme.MessageBody.Render(body) + "\n"
}
