// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"errors"
	"testing"

	"github.com/jeranaias/nexus-tui/internal/api"
	"github.com/jeranaias/nexus-tui/internal/registry"
	"github.com/jeranaias/nexus-tui/internal/transcript"
)

func TestSplitCommand(t *testing.T) {
	cases := []struct {
		line string
		name string
		arg  string
	}{
		{"/help", "/help", ""},
		{"/switch 42", "/switch", "42"},
		{"/upload /tmp/q3 report.pdf", "/upload", "/tmp/q3 report.pdf"},
		{"/RM notes.md", "/rm", "notes.md"},
		{"  /docs  ", "/docs", ""},
	}
	for _, tc := range cases {
		name, arg := splitCommand(tc.line)
		if name != tc.name || arg != tc.arg {
			t.Errorf("splitCommand(%q) = %q, %q; want %q, %q",
				tc.line, name, arg, tc.name, tc.arg)
		}
	}
}

func TestHumanizeErr(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{api.ErrUnreachable, "Backend unreachable. Is the Nexus server running?"},
		{api.ErrNotFound, "Not found."},
		{registry.ErrUnknownDocument, "No document by that name. See /docs."},
		{transcript.ErrBusy, "Still answering. Wait for the response to finish."},
		{&api.BackendError{Status: 503, Message: "model offline"}, "model offline"},
		{errors.New("some other failure"), "some other failure"},
	}
	for _, tc := range cases {
		if got := humanizeErr(tc.err); got != tc.want {
			t.Errorf("humanizeErr(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}
