// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package archive

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/jeranaias/nexus-tui/internal/model"
)

func openTestArchive(t *testing.T) *Archive {
	t.Helper()
	a, err := Open(filepath.Join(t.TempDir(), "archive.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { a.Close() })
	return a
}

func TestSaveAndSearch(t *testing.T) {
	a := openTestArchive(t)

	msgs := []*model.Message{
		model.NewMessage(0, model.RoleUser, "What is the refund policy?", "2:00 PM"),
		model.NewMessage(1, model.RoleAssistant, "Refunds are processed within 30 days.", "2:00 PM"),
	}
	msgs[1].Sources = []string{"policy.pdf"}

	if err := a.Save(42, msgs); err != nil {
		t.Fatalf("Save: %v", err)
	}

	hits, err := a.Search("refund", 0)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("got %d hits, want 2", len(hits))
	}
	if hits[0].SessionID != 42 {
		t.Errorf("hit session = %d, want 42", hits[0].SessionID)
	}
	if hits[0].Role != model.RoleUser || hits[1].Role != model.RoleAssistant {
		t.Errorf("hit roles = %v, %v", hits[0].Role, hits[1].Role)
	}
	if !strings.Contains(hits[1].Snippet, "30 days") {
		t.Errorf("snippet = %q", hits[1].Snippet)
	}
}

func TestSaveIsUpsert(t *testing.T) {
	a := openTestArchive(t)

	m := model.NewMessage(0, model.RoleAssistant, "draft answer", "1:00 PM")
	if err := a.Save(7, []*model.Message{m}); err != nil {
		t.Fatalf("first Save: %v", err)
	}

	m2 := model.NewMessage(0, model.RoleAssistant, "final answer", "1:00 PM")
	if err := a.Save(7, []*model.Message{m2}); err != nil {
		t.Fatalf("second Save: %v", err)
	}

	hits, err := a.Search("answer", 0)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 1 {
		t.Fatalf("re-saving duplicated the message: %d hits", len(hits))
	}
	if !strings.Contains(hits[0].Snippet, "final") {
		t.Errorf("snippet = %q, want updated content", hits[0].Snippet)
	}
}

func TestSaveSkipsStreamingPlaceholder(t *testing.T) {
	a := openTestArchive(t)

	placeholder := model.NewStreamingMessage(3, "1:00 PM")
	placeholder.AppendFragment("partial refund text")

	if err := a.Save(1, []*model.Message{placeholder}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	hits, err := a.Search("refund", 0)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 0 {
		t.Errorf("streaming placeholder was archived: %d hits", len(hits))
	}
}

func TestSearchIsCaseInsensitive(t *testing.T) {
	a := openTestArchive(t)
	m := model.NewMessage(0, model.RoleUser, "Tell me about REFUNDS", "1:00 PM")
	if err := a.Save(1, []*model.Message{m}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	hits, err := a.Search("refunds", 0)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 1 {
		t.Errorf("got %d hits, want 1", len(hits))
	}
}

func TestSearchEscapesLikeWildcards(t *testing.T) {
	a := openTestArchive(t)
	msgs := []*model.Message{
		model.NewMessage(0, model.RoleUser, "plain text", "1:00 PM"),
		model.NewMessage(1, model.RoleUser, "discount is 10% off", "1:00 PM"),
	}
	if err := a.Save(1, msgs); err != nil {
		t.Fatalf("Save: %v", err)
	}

	hits, err := a.Search("10%", 0)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 1 {
		t.Fatalf("%% treated as wildcard: %d hits", len(hits))
	}
	if !strings.Contains(hits[0].Snippet, "discount") {
		t.Errorf("snippet = %q", hits[0].Snippet)
	}
}

func TestSnippetTrimsLongContent(t *testing.T) {
	a := openTestArchive(t)
	long := strings.Repeat("lorem ipsum ", 50) + "NEEDLE" + strings.Repeat(" dolor sit", 50)
	m := model.NewMessage(0, model.RoleAssistant, long, "1:00 PM")
	if err := a.Save(1, []*model.Message{m}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	hits, err := a.Search("needle", 0)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 1 {
		t.Fatalf("got %d hits, want 1", len(hits))
	}
	if !strings.Contains(hits[0].Snippet, "NEEDLE") {
		t.Errorf("snippet lost the match: %q", hits[0].Snippet)
	}
	if got := len([]rune(hits[0].Snippet)); got > snippetRunes+6 {
		t.Errorf("snippet length = %d runes, want <= %d plus ellipses", got, snippetRunes)
	}
}
