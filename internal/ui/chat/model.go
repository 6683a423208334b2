// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/nexus-tui/internal/archive"
	"github.com/jeranaias/nexus-tui/internal/config"
	"github.com/jeranaias/nexus-tui/internal/registry"
	"github.com/jeranaias/nexus-tui/internal/session"
	"github.com/jeranaias/nexus-tui/internal/transcript"
	"github.com/jeranaias/nexus-tui/internal/ui/components"
	"github.com/jeranaias/nexus-tui/internal/ui/styles"
)

// opTimeout bounds the backend calls launched from slash commands.
const opTimeout = 30 * time.Second

// Deps are the wired application components the chat view presents.
type Deps struct {
	Config     *config.Config
	Theme      *styles.Theme
	Controller *transcript.Controller
	Store      *session.Store
	Registry   *registry.Registry
	Archive    *archive.Archive // nil disables /search

	// Events receives change notifications from the component hooks. The
	// model drains it with a wait command so hooks never touch Bubble Tea
	// state directly.
	Events chan tea.Msg
}

// Model is the Bubble Tea model for the chat view.
type Model struct {
	deps  Deps
	theme *styles.Theme

	width  int
	height int
	ready  bool

	viewport viewport.Model
	input    textinput.Model
	spinner  spinner.Model
	keyMap   KeyMap

	renderer  *components.MessageRenderer
	statusBar *components.StatusBar

	// panel holds transient command output (/help, /docs, /sessions,
	// /search) shown above the input until the next submit.
	panel string

	// Typewriter reveal state for the streaming message.
	typewriter    time.Duration
	revealedID    int
	revealedRunes int
	ticking       bool

	statusMsg string
	quitting  bool
}

// New creates the chat model.
func New(deps Deps) Model {
	input := textinput.New()
	input.Placeholder = "Ask about your documents..."
	input.Prompt = deps.Theme.InputPrompt.Render("> ")
	input.CharLimit = 4000
	input.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = deps.Theme.Spinner

	return Model{
		deps:       deps,
		theme:      deps.Theme,
		input:      input,
		spinner:    sp,
		keyMap:     DefaultKeyMap(),
		renderer:   components.NewMessageRenderer(deps.Theme, deps.Config.UI.Markdown),
		statusBar:  components.NewStatusBar(deps.Theme),
		typewriter: deps.Config.TypewriterDelay(),
		revealedID: -1,
	}
}

// Init starts the event pump and restores the persisted session.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		textinput.Blink,
		m.spinner.Tick,
		m.waitForEvent(),
		m.restoreCmd(),
		m.refreshDocsCmd(),
	)
}

// waitForEvent blocks on the hook channel and forwards the next message
// into the update loop.
func (m Model) waitForEvent() tea.Cmd {
	return func() tea.Msg {
		return <-m.deps.Events
	}
}

func (m Model) restoreCmd() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
		defer cancel()
		return RestoredMsg{Err: m.deps.Store.Restore(ctx)}
	}
}

func (m Model) refreshDocsCmd() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
		defer cancel()
		return DocsRefreshedMsg{Err: m.deps.Registry.Refresh(ctx)}
	}
}

func (m Model) refreshSessionsCmd() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
		defer cancel()
		sessions, err := m.deps.Store.RefreshSessions(ctx)
		return SessionsLoadedMsg{Sessions: sessions, Err: err}
	}
}

// sendCmd launches one send cycle on its own goroutine. Transcript updates
// arrive through the event channel while the cycle runs.
func (m Model) sendCmd(text string) tea.Cmd {
	return func() tea.Msg {
		return SendFinishedMsg{Err: m.deps.Controller.Send(context.Background(), text)}
	}
}
