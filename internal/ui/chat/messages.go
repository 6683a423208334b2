// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"time"

	"github.com/jeranaias/nexus-tui/internal/archive"
	"github.com/jeranaias/nexus-tui/internal/model"
)

// =============================================================================
// BUBBLE TEA MESSAGES
// =============================================================================

// TranscriptChangedMsg signals that the transcript mutated (new message,
// streamed fragment, finalization). Sent through the event channel by the
// controller's change hook.
type TranscriptChangedMsg struct{}

// DocumentsChangedMsg signals that the document registry mutated.
type DocumentsChangedMsg struct{}

// SendFinishedMsg reports the outcome of a send cycle's launch. Cycle
// failures surface inside the transcript; only pre-flight rejections
// (busy, empty input) arrive here.
type SendFinishedMsg struct {
	Err error
}

// RestoredMsg reports startup restoration of the persisted session.
type RestoredMsg struct {
	Err error
}

// SessionsLoadedMsg carries a refreshed session list.
type SessionsLoadedMsg struct {
	Sessions []model.SessionSummary
	Err      error
}

// SessionSwitchedMsg reports the outcome of /switch.
type SessionSwitchedMsg struct {
	ID  int
	Err error
}

// NewSessionMsg reports the outcome of /new.
type NewSessionMsg struct {
	Err error
}

// DocsRefreshedMsg reports the outcome of a registry refresh.
type DocsRefreshedMsg struct {
	Err error
}

// UploadDoneMsg reports that an /upload finished. The ingest outcome itself
// lands in the transcript as a notice.
type UploadDoneMsg struct {
	Path string
	Err  error
}

// RemoveDoneMsg reports that a /rm finished.
type RemoveDoneMsg struct {
	Name string
	Err  error
}

// SearchDoneMsg carries local archive search results.
type SearchDoneMsg struct {
	Term string
	Hits []archive.Hit
	Err  error
}

// TypewriterTickMsg drives the gradual reveal of streamed content.
type TypewriterTickMsg time.Time
