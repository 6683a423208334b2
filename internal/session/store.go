// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/jeranaias/nexus-tui/internal/api"
	"github.com/jeranaias/nexus-tui/internal/model"
	"github.com/jeranaias/nexus-tui/internal/transcript"
	"github.com/jeranaias/nexus-tui/internal/util"
)

// idFileName holds the persisted active session id under the state dir.
const idFileName = "session_id"

// Transcript is the store's view of the transcript controller.
type Transcript interface {
	Busy() bool
	Replace(msgs []*model.Message) error
	Reset() error
}

// Backend is the slice of the API client the store needs.
type Backend interface {
	ListSessions(ctx context.Context) ([]model.SessionSummary, error)
	History(ctx context.Context, sessionID int) ([]api.HistoryMessage, error)
}

// =============================================================================
// STORE
// =============================================================================

// Store owns the active session id. Safe for concurrent use.
type Store struct {
	mu sync.Mutex

	backend    Backend
	transcript Transcript
	idPath     string

	activeID *int
	sessions []model.SessionSummary

	onSessionsChanged func()
}

// NewStore creates a store persisting under stateDir (e.g. ~/.nexus).
func NewStore(backend Backend, transcript Transcript, stateDir string) *Store {
	return &Store{
		backend:    backend,
		transcript: transcript,
		idPath:     filepath.Join(stateDir, idFileName),
	}
}

// SetOnSessionsChanged registers a hook fired when the set of known sessions
// may have changed (a new id was adopted). The hook must not block.
func (s *Store) SetOnSessionsChanged(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onSessionsChanged = fn
}

// ActiveID returns the current session id, or nil when the conversation has
// not been assigned one yet.
func (s *Store) ActiveID() *int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.activeID == nil {
		return nil
	}
	id := *s.activeID
	return &id
}

// Sessions returns the last fetched session list.
func (s *Store) Sessions() []model.SessionSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.SessionSummary, len(s.sessions))
	copy(out, s.sessions)
	return out
}

// RefreshSessions fetches the session list from the backend.
func (s *Store) RefreshSessions(ctx context.Context) ([]model.SessionSummary, error) {
	list, err := s.backend.ListSessions(ctx)
	if err != nil {
		return nil, fmt.Errorf("refreshing sessions: %w", err)
	}
	s.mu.Lock()
	s.sessions = list
	s.mu.Unlock()
	return s.Sessions(), nil
}

// =============================================================================
// RESTORE / SELECT / NEW
// =============================================================================

// Restore loads the persisted session id, if any, and reloads that session's
// history. Any failure discards the persisted id rather than leaving it
// dangling, and the transcript falls back to the welcome screen; the session
// stays reachable through the session list.
func (s *Store) Restore(ctx context.Context) error {
	id, ok := s.loadPersistedID()
	if !ok {
		return nil
	}

	if err := s.Select(ctx, id); err != nil {
		log.Printf("session: could not restore session %d, clearing: %v", id, err)
		s.clearPersistedID()
		if rerr := s.transcript.Reset(); rerr != nil {
			return rerr
		}
		return err
	}
	return nil
}

// Select makes sessionID the active session: its history replaces the
// transcript and the id is persisted. A session with no messages yet shows
// the welcome screen instead of a blank transcript. Returns
// transcript.ErrBusy while a response is streaming.
func (s *Store) Select(ctx context.Context, sessionID int) error {
	if s.transcript.Busy() {
		return transcript.ErrBusy
	}

	history, err := s.backend.History(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("loading session %d: %w", sessionID, err)
	}

	msgs := make([]*model.Message, 0, len(history))
	for _, h := range history {
		m := model.NewMessage(h.ID, model.ParseRole(h.Role), h.Content, h.Timestamp)
		m.Sources = h.Sources
		msgs = append(msgs, m)
	}

	if len(msgs) == 0 {
		if err := s.transcript.Reset(); err != nil {
			return err
		}
	} else if err := s.transcript.Replace(msgs); err != nil {
		return err
	}

	s.mu.Lock()
	id := sessionID
	s.activeID = &id
	s.mu.Unlock()
	s.persistID(sessionID)
	return nil
}

// StartNew abandons the active session and returns to a fresh conversation.
// The next message sent will cause the backend to assign a new id.
func (s *Store) StartNew() error {
	if err := s.transcript.Reset(); err != nil {
		return err
	}
	s.mu.Lock()
	s.activeID = nil
	s.mu.Unlock()
	s.clearPersistedID()
	return nil
}

// Adopt records the id the backend assigned to the conversation. Called by
// the transcript controller when a meta record arrives; it must stay cheap
// and must not touch the network.
func (s *Store) Adopt(id int) {
	s.mu.Lock()
	if s.activeID != nil && *s.activeID == id {
		s.mu.Unlock()
		return
	}
	v := id
	s.activeID = &v
	hook := s.onSessionsChanged
	s.mu.Unlock()

	s.persistID(id)
	if hook != nil {
		hook()
	}
}

// =============================================================================
// PERSISTENCE
// =============================================================================

func (s *Store) loadPersistedID() (int, bool) {
	data, err := os.ReadFile(s.idPath)
	if err != nil {
		return 0, false
	}
	id, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		log.Printf("session: ignoring corrupt id file %s: %v", s.idPath, err)
		s.clearPersistedID()
		return 0, false
	}
	return id, true
}

func (s *Store) persistID(id int) {
	data := []byte(strconv.Itoa(id) + "\n")
	if err := util.AtomicWriteFile(s.idPath, data, 0o600); err != nil {
		log.Printf("session: persisting id: %v", err)
	}
}

func (s *Store) clearPersistedID() {
	if err := os.Remove(s.idPath); err != nil && !os.IsNotExist(err) {
		log.Printf("session: clearing id file: %v", err)
	}
}
