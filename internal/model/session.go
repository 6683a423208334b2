// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import "strconv"

// SessionSummary is a lightweight list entry for a persisted conversation.
// It is used to render and select past sessions; it is not a transcript.
type SessionSummary struct {
	ID        int    `json:"id"`
	CreatedAt string `json:"created_at"`
	Title     string `json:"title"`
}

// DisplayTitle returns the title, or a fallback derived from the id when the
// backend has not assigned one.
func (s SessionSummary) DisplayTitle() string {
	if s.Title != "" {
		return s.Title
	}
	return "Session #" + strconv.Itoa(s.ID)
}
