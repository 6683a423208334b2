// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package archive keeps a local, searchable copy of past conversations.
//
// The backend holds the authoritative history; the archive exists so the
// user can grep their own transcripts offline with /search, without a round
// trip. It is written opportunistically after each completed exchange and is
// never read back into the live transcript.
package archive
