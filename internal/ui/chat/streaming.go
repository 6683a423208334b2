// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/nexus-tui/internal/model"
)

// revealChunk is how many runes each typewriter tick uncovers. Network
// fragments land in bursts; revealing a few runes at a time keeps the pace
// readable without falling hopelessly behind the stream.
const revealChunk = 3

// typewriterTick schedules the next reveal step.
func (m Model) typewriterTick() tea.Cmd {
	return tea.Tick(m.typewriter, func(t time.Time) tea.Msg {
		return TypewriterTickMsg(t)
	})
}

// visibleBody returns the portion of a message's content to display. The
// reveal only lags for the message currently streaming; everything settled
// shows in full. This is purely cosmetic: the transcript always holds the
// full received content.
func (m *Model) visibleBody(msg *model.Message) string {
	content := msg.GetDisplayContent()
	if !msg.IsStreaming || m.typewriter <= 0 {
		return content
	}
	if msg.ID != m.revealedID {
		return ""
	}
	runes := []rune(content)
	if m.revealedRunes >= len(runes) {
		return content
	}
	return string(runes[:m.revealedRunes])
}

// syncReveal points the reveal state at the current streaming message, if
// any, and reports whether a tick loop is needed.
func (m *Model) syncReveal() bool {
	if m.typewriter <= 0 {
		return false
	}
	streaming := m.streamingMessage()
	if streaming == nil {
		m.revealedID = -1
		m.revealedRunes = 0
		return false
	}
	if streaming.ID != m.revealedID {
		m.revealedID = streaming.ID
		m.revealedRunes = 0
	}
	return m.revealedRunes < len([]rune(streaming.GetDisplayContent()))
}

// advanceReveal uncovers the next chunk and reports whether more remains.
func (m *Model) advanceReveal() bool {
	streaming := m.streamingMessage()
	if streaming == nil || streaming.ID != m.revealedID {
		// The stream settled while we were animating; show everything.
		m.revealedID = -1
		m.revealedRunes = 0
		return false
	}
	total := len([]rune(streaming.GetDisplayContent()))
	m.revealedRunes += revealChunk
	if m.revealedRunes >= total {
		m.revealedRunes = total
	}
	return m.revealedRunes < total || streaming.IsStreaming
}

func (m *Model) streamingMessage() *model.Message {
	msgs := m.deps.Controller.Messages()
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].IsStreaming {
			return msgs[i]
		}
	}
	return nil
}
