// nexus-tui - A terminal client for the Nexus RAG backend.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/nexus-tui/internal/api"
	"github.com/jeranaias/nexus-tui/internal/archive"
	"github.com/jeranaias/nexus-tui/internal/cli"
	"github.com/jeranaias/nexus-tui/internal/config"
	"github.com/jeranaias/nexus-tui/internal/registry"
	"github.com/jeranaias/nexus-tui/internal/session"
	"github.com/jeranaias/nexus-tui/internal/transcript"
	"github.com/jeranaias/nexus-tui/internal/ui/chat"
	"github.com/jeranaias/nexus-tui/internal/ui/styles"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func main() {
	var (
		flagURL     = flag.String("url", "", "backend base URL (overrides config)")
		flagPlain   = flag.Bool("plain", false, "force plain mode (no TUI)")
		flagWatch   = flag.String("watch", "", "auto-upload documents dropped into this directory")
		flagVersion = flag.Bool("version", false, "print version and exit")
	)
	flag.Parse()

	if *flagVersion {
		fmt.Printf("nexus-tui %s (%s, built %s)\n", Version, GitCommit, BuildDate)
		return
	}

	if err := run(*flagURL, *flagPlain, *flagWatch, flag.Args()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(urlOverride string, forcePlain bool, watchOverride string, args []string) error {
	stateDir, err := config.Dir()
	if err != nil {
		return err
	}

	// First run: materialize the defaults so there is a file to edit.
	if _, err := os.Stat(config.Path(stateDir)); os.IsNotExist(err) {
		if err := config.Save(config.Default(), stateDir); err != nil {
			log.Printf("writing default config: %v", err)
		}
	}

	cfg, err := config.Load(stateDir)
	if err != nil {
		return err
	}
	if urlOverride != "" {
		cfg.Backend.URL = urlOverride
	}
	if watchOverride != "" {
		cfg.Watch.Enabled = true
		cfg.Watch.Dir = watchOverride
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	// Keep internal logging out of the interactive screen.
	logFile, err := os.OpenFile(filepath.Join(stateDir, "nexus.log"),
		os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err == nil {
		log.SetOutput(logFile)
		defer logFile.Close()
	}

	client := api.NewClient(cfg.Backend.URL).
		WithMaxRetries(cfg.Backend.MaxRetries).
		WithTimeout(cfg.Timeout())

	// One-shot mode: remaining arguments form a single question, answered
	// without entering the UI. The persisted session is left untouched.
	if len(args) > 0 {
		return ask(client, strings.Join(args, " "))
	}

	controller := transcript.NewController(client, transcript.SystemClock())
	store := session.NewStore(client, controller, stateDir)
	controller.SetSessionBinder(store)
	reg := registry.New(client, controller)

	arc, err := archive.Open(filepath.Join(stateDir, "archive.db"))
	if err != nil {
		// The archive is a convenience; chat works without it.
		log.Printf("archive unavailable: %v", err)
		arc = nil
	} else {
		defer arc.Close()
	}
	if arc != nil {
		controller.SetOnCycleEnd(func(failed bool) {
			if failed {
				return
			}
			id := store.ActiveID()
			if id == nil {
				return
			}
			if err := arc.Save(*id, controller.Messages()); err != nil {
				log.Printf("archiving session %d: %v", *id, err)
			}
		})
	}

	if cfg.Watch.Enabled {
		dir := cfg.Watch.Dir
		if dir == "" {
			dir = filepath.Join(stateDir, "inbox")
		}
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("creating watch dir: %w", err)
		}
		w, err := registry.NewWatcher(reg, dir, cfg.WatchDebounce())
		if err != nil {
			return fmt.Errorf("starting watcher: %w", err)
		}
		if err := w.Watch(); err != nil {
			return fmt.Errorf("watching %s: %w", dir, err)
		}
		defer w.Close()
	}

	theme := styles.NewTheme()

	if forcePlain || !cli.IsInteractive() {
		return runPlain(cfg, theme, controller, store, reg, arc, stateDir)
	}
	return runTUI(cfg, theme, controller, store, reg, arc)
}

// ask sends one question with the non-streaming chat variant and prints the
// answer. Suited to scripting, where incremental output has no value.
func ask(client *api.Client, question string) error {
	resp, err := client.Send(context.Background(), question, nil)
	if err != nil {
		return err
	}
	fmt.Println(strings.TrimSpace(resp.Response))
	if len(resp.Sources) > 0 {
		fmt.Printf("\nSources: %s\n", strings.Join(resp.Sources, ", "))
	}
	return nil
}

func runPlain(cfg *config.Config, theme *styles.Theme, controller *transcript.Controller,
	store *session.Store, reg *registry.Registry, arc *archive.Archive, stateDir string) error {

	repl := cli.NewREPL(cfg, theme, controller, store, reg, arc, stateDir)
	defer repl.Close()
	controller.SetOnChange(repl.OnTranscriptChange)

	ctx := context.Background()
	if err := store.Restore(ctx); err != nil {
		log.Printf("restoring session: %v", err)
	}
	if err := reg.Refresh(ctx); err != nil {
		log.Printf("refreshing documents: %v", err)
	}
	return repl.Run(ctx)
}

func runTUI(cfg *config.Config, theme *styles.Theme, controller *transcript.Controller,
	store *session.Store, reg *registry.Registry, arc *archive.Archive) error {

	// Hooks run on component goroutines; the buffered channel decouples them
	// from the Bubble Tea loop.
	events := make(chan tea.Msg, 64)
	notify := func(msg tea.Msg) {
		select {
		case events <- msg:
		default:
			// A full queue means a redraw is already pending.
		}
	}
	controller.SetOnChange(func() { notify(chat.TranscriptChangedMsg{}) })
	reg.SetOnChange(func() { notify(chat.DocumentsChangedMsg{}) })
	store.SetOnSessionsChanged(func() { notify(chat.TranscriptChangedMsg{}) })

	m := chat.New(chat.Deps{
		Config:     cfg,
		Theme:      theme,
		Controller: controller,
		Store:      store,
		Registry:   reg,
		Archive:    arc,
		Events:     events,
	})

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion())
	_, err := p.Run()
	return err
}
