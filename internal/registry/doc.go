// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package registry mirrors the backend's document collection and runs
// uploads and deletions against it.
//
// Documents move through a one-way lifecycle: processing, then indexed or
// error. An upload appears in the list immediately with a provisional id and
// a processing status, so the user sees it before the backend finishes
// chunking; the provisional entry is reconciled with the backend's view on
// the next refresh. Outcomes are reported into the chat transcript as
// assistant notices.
package registry
