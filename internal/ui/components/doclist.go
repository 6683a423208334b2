// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strconv"
	"strings"

	"github.com/jeranaias/nexus-tui/internal/model"
	"github.com/jeranaias/nexus-tui/internal/ui/styles"
	"github.com/jeranaias/nexus-tui/internal/util"
)

// maxDocNameWidth keeps long filenames from wrapping the list.
const maxDocNameWidth = 48

// RenderDocumentList formats the document collection for display.
func RenderDocumentList(theme *styles.Theme, docs []model.Document) string {
	if len(docs) == 0 {
		return "No documents in memory. Use /upload <path> to add one."
	}

	var b strings.Builder
	b.WriteString("Documents in memory:\n")
	for _, d := range docs {
		style := theme.DocIndexed
		switch d.Status {
		case model.DocProcessing:
			style = theme.DocProcessing
		case model.DocError:
			style = theme.DocError
		}
		b.WriteString("  ")
		b.WriteString(style.Render(d.Status.Symbol()))
		b.WriteString(" ")
		b.WriteString(util.TruncateWidth(d.Name, maxDocNameWidth))
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// RenderSessionList formats the session picker for display.
func RenderSessionList(theme *styles.Theme, sessions []model.SessionSummary, activeID *int) string {
	if len(sessions) == 0 {
		return "No saved sessions yet. Just start typing."
	}

	var b strings.Builder
	b.WriteString("Sessions (switch with /switch <id>):\n")
	for _, s := range sessions {
		marker := "  "
		if activeID != nil && *activeID == s.ID {
			marker = "* "
		}
		b.WriteString(marker)
		b.WriteString(theme.SessionID.Render(util.PadRight(strconv.Itoa(s.ID), 5)))
		b.WriteString(theme.SessionTitle.Render(util.TruncateWidth(s.DisplayTitle(), 60)))
		if s.CreatedAt != "" {
			b.WriteString("  ")
			b.WriteString(theme.Timestamp.Render(s.CreatedAt))
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
