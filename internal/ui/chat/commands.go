// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/nexus-tui/internal/api"
	"github.com/jeranaias/nexus-tui/internal/registry"
	"github.com/jeranaias/nexus-tui/internal/transcript"
	"github.com/jeranaias/nexus-tui/internal/ui/components"
)

const helpText = `Commands:
  /help              show this help
  /new               start a fresh session
  /sessions          list saved sessions
  /switch <id>       load a saved session
  /docs              list documents in memory
  /upload <path>     ingest a document
  /rm <name>         remove a document
  /search <term>     search your local transcript archive
  /quit              exit

Anything else is sent to the Nexus backend as a question.`

// runCommand dispatches a slash command. The input line is consumed either
// way; unknown commands report instead of being sent to the backend.
func (m Model) runCommand(line string) (tea.Model, tea.Cmd) {
	m.input.SetValue("")

	name, arg := splitCommand(line)
	switch name {

	case "/help":
		m.panel = helpText

	case "/quit", "/exit":
		m.quitting = true
		return m, tea.Quit

	case "/new":
		return m, func() tea.Msg {
			return NewSessionMsg{Err: m.deps.Store.StartNew()}
		}

	case "/sessions":
		return m, m.refreshSessionsCmd()

	case "/switch":
		id, err := strconv.Atoi(arg)
		if err != nil {
			m.statusMsg = "Usage: /switch <id>"
			return m, nil
		}
		return m, m.switchCmd(id)

	case "/docs":
		m.panel = components.RenderDocumentList(m.theme, m.deps.Registry.Documents())
		return m, m.refreshDocsCmd()

	case "/upload":
		if arg == "" {
			m.statusMsg = "Usage: /upload <path>"
			return m, nil
		}
		m.statusMsg = fmt.Sprintf("Ingesting %s...", arg)
		return m, m.uploadCmd(arg)

	case "/rm":
		if arg == "" {
			m.statusMsg = "Usage: /rm <name>"
			return m, nil
		}
		return m, m.removeCmd(arg)

	case "/search":
		if arg == "" {
			m.statusMsg = "Usage: /search <term>"
			return m, nil
		}
		if m.deps.Archive == nil {
			m.statusMsg = "The local archive is unavailable."
			return m, nil
		}
		return m, m.searchCmd(arg)

	default:
		m.statusMsg = fmt.Sprintf("Unknown command %s. Try /help.", name)
	}
	return m, nil
}

func splitCommand(line string) (name, arg string) {
	parts := strings.SplitN(strings.TrimSpace(line), " ", 2)
	name = strings.ToLower(parts[0])
	if len(parts) == 2 {
		arg = strings.TrimSpace(parts[1])
	}
	return name, arg
}

// =============================================================================
// ASYNC COMMAND RUNNERS
// =============================================================================

func (m Model) switchCmd(id int) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
		defer cancel()
		return SessionSwitchedMsg{ID: id, Err: m.deps.Store.Select(ctx, id)}
	}
}

func (m Model) uploadCmd(path string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
		defer cancel()
		return UploadDoneMsg{Path: path, Err: m.deps.Registry.Upload(ctx, path)}
	}
}

func (m Model) removeCmd(name string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
		defer cancel()
		return RemoveDoneMsg{Name: name, Err: m.deps.Registry.Remove(ctx, name)}
	}
}

func (m Model) searchCmd(term string) tea.Cmd {
	return func() tea.Msg {
		hits, err := m.deps.Archive.Search(term, 20)
		return SearchDoneMsg{Term: term, Hits: hits, Err: err}
	}
}

// =============================================================================
// RESULT PRESENTATION
// =============================================================================

func (m Model) showSessions(msg SessionsLoadedMsg) Model {
	if msg.Err != nil {
		m.statusMsg = humanizeErr(msg.Err)
		return m
	}
	m.panel = components.RenderSessionList(m.theme, msg.Sessions, m.deps.Store.ActiveID())
	return m
}

func (m Model) showSwitchResult(msg SessionSwitchedMsg) Model {
	switch {
	case msg.Err == nil:
		m.statusMsg = fmt.Sprintf("Switched to session #%d.", msg.ID)
	case errors.Is(msg.Err, transcript.ErrBusy):
		m.statusMsg = "Cannot switch sessions while a response is streaming."
	case errors.Is(msg.Err, api.ErrNotFound):
		m.statusMsg = fmt.Sprintf("Session #%d does not exist.", msg.ID)
	default:
		m.statusMsg = humanizeErr(msg.Err)
	}
	return m
}

func (m Model) showSearchResults(msg SearchDoneMsg) Model {
	if msg.Err != nil {
		m.statusMsg = humanizeErr(msg.Err)
		return m
	}
	if len(msg.Hits) == 0 {
		m.panel = fmt.Sprintf("No archived messages match %q.", msg.Term)
		return m
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Archive matches for %q:\n", msg.Term)
	for _, h := range msg.Hits {
		fmt.Fprintf(&b, "  %s #%d %s: %s\n",
			m.theme.SessionID.Render("s"),
			h.SessionID,
			h.Role.DisplayName(),
			h.Snippet)
	}
	m.panel = strings.TrimRight(b.String(), "\n")
	return m
}

// humanizeErr maps common failures to a short status line.
func humanizeErr(err error) string {
	switch {
	case errors.Is(err, api.ErrUnreachable):
		return "Backend unreachable. Is the Nexus server running?"
	case errors.Is(err, api.ErrNotFound):
		return "Not found."
	case errors.Is(err, registry.ErrUnknownDocument):
		return "No document by that name. See /docs."
	case errors.Is(err, transcript.ErrBusy):
		return "Still answering. Wait for the response to finish."
	}
	var be *api.BackendError
	if errors.As(err, &be) && be.Message != "" {
		return be.Message
	}
	return err.Error()
}
