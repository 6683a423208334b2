// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session tracks which backend conversation is active and persists
// that choice across restarts.
//
// The Store never invents session ids: a new conversation has no id until
// the backend assigns one mid-stream, at which point the controller hands it
// to Adopt. Switching sessions loads history from the backend and swaps the
// transcript wholesale; the swap is refused while a response is streaming.
package session
