// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/nexus-tui/internal/transcript"
)

// Update handles all incoming messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		m.refreshViewport(true)

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keyMap.Quit):
			m.quitting = true
			return m, tea.Quit

		case key.Matches(msg, m.keyMap.Clear):
			m.input.SetValue("")
			m.panel = ""
			m.statusMsg = ""

		case key.Matches(msg, m.keyMap.Submit):
			return m.submit()

		case key.Matches(msg, m.keyMap.PageUp):
			m.viewport.HalfViewUp()

		case key.Matches(msg, m.keyMap.PageDown):
			m.viewport.HalfViewDown()

		case key.Matches(msg, m.keyMap.Bottom):
			m.viewport.GotoBottom()

		default:
			var cmd tea.Cmd
			m.input, cmd = m.input.Update(msg)
			cmds = append(cmds, cmd)
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)

	case TranscriptChangedMsg:
		m.refreshViewport(true)
		if m.syncReveal() && !m.ticking {
			m.ticking = true
			cmds = append(cmds, m.typewriterTick())
		}
		cmds = append(cmds, m.waitForEvent())

	case DocumentsChangedMsg:
		cmds = append(cmds, m.waitForEvent())

	case TypewriterTickMsg:
		if m.advanceReveal() {
			cmds = append(cmds, m.typewriterTick())
		} else {
			m.ticking = false
		}
		m.refreshViewport(true)

	case SendFinishedMsg:
		if errors.Is(msg.Err, transcript.ErrBusy) {
			m.statusMsg = "Still answering. Wait for the response to finish."
		}

	case RestoredMsg:
		// A stale or unreachable session already fell back to the welcome
		// screen; nothing to show beyond the transcript itself.
		m.refreshViewport(true)

	case SessionsLoadedMsg:
		m = m.showSessions(msg)

	case SessionSwitchedMsg:
		m = m.showSwitchResult(msg)
		m.refreshViewport(true)

	case NewSessionMsg:
		if msg.Err != nil {
			m.statusMsg = humanizeErr(msg.Err)
		} else {
			m.statusMsg = "Started a fresh session."
		}
		m.refreshViewport(true)

	case DocsRefreshedMsg:
		if msg.Err != nil {
			m.statusMsg = humanizeErr(msg.Err)
		}

	case UploadDoneMsg:
		if msg.Err != nil {
			m.statusMsg = humanizeErr(msg.Err)
		}
		m.refreshViewport(true)

	case RemoveDoneMsg:
		m.refreshViewport(true)

	case SearchDoneMsg:
		m = m.showSearchResults(msg)
	}

	return m, tea.Batch(cmds...)
}

// submit handles Enter: slash commands dispatch locally, everything else
// goes to the backend.
func (m Model) submit() (tea.Model, tea.Cmd) {
	text := strings.TrimSpace(m.input.Value())
	if text == "" {
		return m, nil
	}

	m.panel = ""
	m.statusMsg = ""

	if strings.HasPrefix(text, "/") {
		return m.runCommand(text)
	}

	if m.deps.Controller.Busy() {
		m.statusMsg = "Still answering. Wait for the response to finish."
		return m, nil
	}

	m.input.SetValue("")
	return m, m.sendCmd(text)
}

func (m *Model) resize(width, height int) {
	m.width = width
	m.height = height
	m.renderer.SetWidth(width - 2)
	m.statusBar.SetWidth(width)
	m.input.Width = width - 6

	vpHeight := height - m.chromeHeight()
	if vpHeight < 3 {
		vpHeight = 3
	}
	if !m.ready {
		m.viewport = viewport.New(width, vpHeight)
		m.ready = true
	} else {
		m.viewport.Width = width
		m.viewport.Height = vpHeight
	}
}
