// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the plain (non-TUI) interactive mode.
//
// It is the fallback for dumb terminals and pipes: a readline-style REPL
// over the same transcript, session, and registry components the TUI uses.
// Streaming output is printed as it arrives; the settled message is then
// re-rendered as markdown when the terminal supports it.
package cli
