// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package archive

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/jeranaias/nexus-tui/internal/model"
)

const schema = `
CREATE TABLE IF NOT EXISTS messages (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id  INTEGER NOT NULL,
	message_id  INTEGER NOT NULL,
	role        TEXT NOT NULL,
	content     TEXT NOT NULL,
	timestamp   TEXT NOT NULL,
	sources     TEXT NOT NULL DEFAULT '',
	archived_at INTEGER NOT NULL,
	UNIQUE(session_id, message_id)
);
CREATE INDEX IF NOT EXISTS idx_messages_session ON messages(session_id);
`

// snippetRunes bounds how much of a matched message a search hit carries.
const snippetRunes = 160

// Archive is a local transcript store backed by SQLite.
type Archive struct {
	db *sql.DB
}

// Hit is one search result.
type Hit struct {
	SessionID int
	Role      model.Role
	Timestamp string
	Snippet   string
}

// Open opens (creating if needed) the archive database at path.
func Open(path string) (*Archive, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening archive: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing archive schema: %w", err)
	}
	return &Archive{db: db}, nil
}

// Close releases the database handle.
func (a *Archive) Close() error {
	return a.db.Close()
}

// Save upserts the transcript of sessionID. Streaming placeholders are
// skipped; only settled messages are archived.
func (a *Archive) Save(sessionID int, msgs []*model.Message) error {
	tx, err := a.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO messages (session_id, message_id, role, content, timestamp, sources, archived_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(session_id, message_id) DO UPDATE SET
			content = excluded.content,
			sources = excluded.sources,
			archived_at = excluded.archived_at
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	now := time.Now().Unix()
	for _, m := range msgs {
		if m.IsStreaming {
			continue
		}
		_, err := stmt.Exec(sessionID, m.ID, m.Role.String(), m.Content,
			m.Timestamp, strings.Join(m.Sources, ","), now)
		if err != nil {
			return fmt.Errorf("archiving message %d: %w", m.ID, err)
		}
	}
	return tx.Commit()
}

// Search returns messages whose content contains term, newest session
// first. The match is case-insensitive for ASCII, which is what SQLite's
// LIKE gives us without extensions.
func (a *Archive) Search(term string, limit int) ([]Hit, error) {
	if limit <= 0 {
		limit = 20
	}
	pattern := "%" + escapeLike(term) + "%"

	rows, err := a.db.Query(`
		SELECT session_id, role, timestamp, content
		FROM messages
		WHERE content LIKE ? ESCAPE '\'
		ORDER BY session_id DESC, message_id ASC
		LIMIT ?
	`, pattern, limit)
	if err != nil {
		return nil, fmt.Errorf("searching archive: %w", err)
	}
	defer rows.Close()

	var hits []Hit
	for rows.Next() {
		var h Hit
		var role, content string
		if err := rows.Scan(&h.SessionID, &role, &h.Timestamp, &content); err != nil {
			return nil, err
		}
		h.Role = model.ParseRole(role)
		h.Snippet = snippet(content, term)
		hits = append(hits, h)
	}
	return hits, rows.Err()
}

// snippet trims content to a window around the first match of term.
func snippet(content, term string) string {
	runes := []rune(content)
	if len(runes) <= snippetRunes {
		return content
	}

	idx := strings.Index(strings.ToLower(content), strings.ToLower(term))
	if idx < 0 {
		return string(runes[:snippetRunes]) + "..."
	}

	// Convert the byte offset to a rune offset, then center the window.
	runeIdx := len([]rune(content[:idx]))
	start := runeIdx - snippetRunes/2
	if start < 0 {
		start = 0
	}
	end := start + snippetRunes
	if end > len(runes) {
		end = len(runes)
		start = end - snippetRunes
	}

	out := string(runes[start:end])
	if start > 0 {
		out = "..." + out
	}
	if end < len(runes) {
		out += "..."
	}
	return out
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
