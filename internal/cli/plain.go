// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/peterh/liner"

	"github.com/jeranaias/nexus-tui/internal/archive"
	"github.com/jeranaias/nexus-tui/internal/config"
	"github.com/jeranaias/nexus-tui/internal/model"
	"github.com/jeranaias/nexus-tui/internal/registry"
	"github.com/jeranaias/nexus-tui/internal/session"
	"github.com/jeranaias/nexus-tui/internal/transcript"
	"github.com/jeranaias/nexus-tui/internal/ui/components"
	"github.com/jeranaias/nexus-tui/internal/ui/styles"
)

var (
	promptStyle = lipgloss.NewStyle().Foreground(styles.Teal).Bold(true)
	userStyle   = lipgloss.NewStyle().Foreground(styles.Blue).Bold(true)
	infoStyle   = lipgloss.NewStyle().Foreground(styles.TextSecondary)
	errorStyle  = lipgloss.NewStyle().Foreground(styles.Rose)
	sourceStyle = lipgloss.NewStyle().Foreground(styles.Violet).Italic(true)
)

const plainHelp = `Commands:
  /help              show this help
  /new               start a fresh session
  /sessions          list saved sessions
  /switch <id>       load a saved session
  /docs              list documents in memory
  /upload <path>     ingest a document
  /rm <name>         remove a document
  /search <term>     search your local transcript archive
  /quit              exit`

// REPL is the plain interactive loop.
type REPL struct {
	cfg        *config.Config
	theme      *styles.Theme
	controller *transcript.Controller
	store      *session.Store
	registry   *registry.Registry
	archive    *archive.Archive

	line        *liner.State
	historyFile string
	markdown    *glamour.TermRenderer

	// printed tracks how much of the transcript has been echoed, so change
	// notifications during streaming only print the delta.
	printedID    int
	printedRunes int
}

// NewREPL creates the plain-mode loop. stateDir holds the input history.
func NewREPL(cfg *config.Config, theme *styles.Theme, ctl *transcript.Controller,
	store *session.Store, reg *registry.Registry, arc *archive.Archive, stateDir string) *REPL {

	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	r := &REPL{
		cfg:         cfg,
		theme:       theme,
		controller:  ctl,
		store:       store,
		registry:    reg,
		archive:     arc,
		line:        line,
		historyFile: filepath.Join(stateDir, "history"),
		printedID:   -1,
	}

	if cfg.UI.Markdown {
		if mr, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(100),
		); err == nil {
			r.markdown = mr
		}
	}

	if f, err := os.Open(r.historyFile); err == nil {
		r.line.ReadHistory(f)
		f.Close()
	}
	return r
}

// Close saves input history and releases the terminal.
func (r *REPL) Close() {
	if f, err := os.OpenFile(r.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600); err == nil {
		r.line.WriteHistory(f)
		f.Close()
	}
	r.line.Close()
}

// Run executes the REPL until exit. The transcript's change hook must be
// wired to r.OnTranscriptChange before calling Run.
func (r *REPL) Run(ctx context.Context) error {
	r.printWelcome()

	for {
		input, err := r.line.Prompt(promptStyle.Render("nexus> "))
		if err != nil {
			// Ctrl+C or Ctrl+D: leave quietly.
			if errors.Is(err, liner.ErrPromptAborted) {
				fmt.Println()
				return nil
			}
			fmt.Println()
			return nil
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		r.line.AppendHistory(input)

		if strings.HasPrefix(input, "/") {
			if quit := r.handleCommand(ctx, input); quit {
				return nil
			}
			continue
		}
		if strings.EqualFold(input, "exit") || strings.EqualFold(input, "quit") {
			return nil
		}

		r.sendMessage(ctx, input)
	}
}

func (r *REPL) printWelcome() {
	fmt.Println(r.renderMarkdown(transcript.WelcomeContent))
	fmt.Println(infoStyle.Render("Type /help for commands."))
}

// =============================================================================
// MESSAGE FLOW
// =============================================================================

// OnTranscriptChange streams newly received content to stdout. Called from
// the controller's change hook on the send goroutine; here Send runs
// synchronously, so this executes inline with the cycle.
func (r *REPL) OnTranscriptChange() {
	msgs := r.controller.Messages()
	for i := len(msgs) - 1; i >= 0; i-- {
		m := msgs[i]
		if !m.IsStreaming {
			continue
		}
		content := m.GetDisplayContent()
		runes := []rune(content)
		if m.ID != r.printedID {
			r.printedID = m.ID
			r.printedRunes = 0
		}
		if r.printedRunes < len(runes) {
			fmt.Print(string(runes[r.printedRunes:]))
			r.printedRunes = len(runes)
		}
		return
	}
}

func (r *REPL) sendMessage(ctx context.Context, text string) {
	fmt.Println()
	err := r.controller.Send(ctx, text)
	if errors.Is(err, transcript.ErrBusy) {
		fmt.Println(errorStyle.Render("Still answering. Wait for the response to finish."))
		return
	}
	fmt.Println()

	// The raw stream has been echoed already; re-render the settled message
	// nicely when markdown is on.
	msgs := r.controller.Messages()
	if len(msgs) == 0 {
		return
	}
	last := msgs[len(msgs)-1]
	if last.Role != model.RoleAssistant {
		return
	}
	if r.markdown != nil {
		fmt.Println(r.renderMarkdown(last.Content))
	}
	if len(last.Sources) > 0 {
		fmt.Println(sourceStyle.Render("Sources: " + strings.Join(last.Sources, ", ")))
	}
	r.printedID = -1
	r.printedRunes = 0
}

func (r *REPL) renderMarkdown(text string) string {
	if r.markdown != nil {
		if out, err := r.markdown.Render(text); err == nil {
			return strings.Trim(out, "\n")
		}
	}
	// No glamour: still highlight fenced code blocks.
	return components.HighlightCodeBlocks(text)
}

// =============================================================================
// COMMANDS
// =============================================================================

// handleCommand runs one slash command. Returns true to exit.
func (r *REPL) handleCommand(ctx context.Context, input string) bool {
	parts := strings.SplitN(input, " ", 2)
	name := strings.ToLower(parts[0])
	arg := ""
	if len(parts) == 2 {
		arg = strings.TrimSpace(parts[1])
	}

	switch name {
	case "/quit", "/exit", "/q":
		return true

	case "/help", "/h":
		fmt.Println(plainHelp)

	case "/new":
		if err := r.store.StartNew(); err != nil {
			r.printErr(err)
		} else {
			fmt.Println(infoStyle.Render("Started a fresh session."))
		}

	case "/sessions":
		sessions, err := r.store.RefreshSessions(ctx)
		if err != nil {
			r.printErr(err)
			break
		}
		fmt.Println(components.RenderSessionList(r.theme, sessions, r.store.ActiveID()))

	case "/switch":
		id, err := strconv.Atoi(arg)
		if err != nil {
			fmt.Println(infoStyle.Render("Usage: /switch <id>"))
			break
		}
		if err := r.store.Select(ctx, id); err != nil {
			r.printErr(err)
			break
		}
		fmt.Printf("%s\n", infoStyle.Render(fmt.Sprintf("Switched to session #%d.", id)))
		r.printHistory()

	case "/docs":
		if err := r.registry.Refresh(ctx); err != nil {
			r.printErr(err)
		}
		fmt.Println(components.RenderDocumentList(r.theme, r.registry.Documents()))

	case "/upload":
		if arg == "" {
			fmt.Println(infoStyle.Render("Usage: /upload <path>"))
			break
		}
		if err := r.registry.Upload(ctx, arg); err != nil {
			r.printErr(err)
			break
		}
		r.echoLastNotice()

	case "/rm":
		if arg == "" {
			fmt.Println(infoStyle.Render("Usage: /rm <name>"))
			break
		}
		if err := r.registry.Remove(ctx, arg); err != nil {
			r.printErr(err)
			break
		}
		r.echoLastNotice()

	case "/search":
		if arg == "" {
			fmt.Println(infoStyle.Render("Usage: /search <term>"))
			break
		}
		r.searchArchive(arg)

	default:
		fmt.Println(infoStyle.Render(fmt.Sprintf("Unknown command %s. Try /help.", name)))
	}
	return false
}

// echoLastNotice prints the outcome notice the registry just appended to
// the transcript.
func (r *REPL) echoLastNotice() {
	msgs := r.controller.Messages()
	if len(msgs) == 0 {
		return
	}
	last := msgs[len(msgs)-1]
	if last.Role == model.RoleAssistant && !last.IsStreaming {
		fmt.Println(r.renderMarkdown(last.Content))
	}
}

func (r *REPL) printHistory() {
	for _, m := range r.controller.Messages() {
		label := promptStyle.Render("Nexus")
		if m.Role == model.RoleUser {
			label = userStyle.Render("You")
		}
		fmt.Printf("%s  %s\n%s\n\n", label, infoStyle.Render(m.Timestamp), r.renderMarkdown(m.Content))
	}
}

func (r *REPL) searchArchive(term string) {
	if r.archive == nil {
		fmt.Println(infoStyle.Render("The local archive is unavailable."))
		return
	}
	hits, err := r.archive.Search(term, 20)
	if err != nil {
		r.printErr(err)
		return
	}
	if len(hits) == 0 {
		fmt.Println(infoStyle.Render(fmt.Sprintf("No archived messages match %q.", term)))
		return
	}
	fmt.Printf("Archive matches for %q:\n", term)
	for _, h := range hits {
		fmt.Printf("  #%d %s: %s\n", h.SessionID, h.Role.DisplayName(), h.Snippet)
	}
}

func (r *REPL) printErr(err error) {
	fmt.Fprintf(os.Stderr, "%s %v\n", errorStyle.Render("[Error]"), err)
}
