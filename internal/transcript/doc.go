// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package transcript owns the live message list and the send/receive cycle.
//
// The Controller is the only writer of message content. One cycle runs at a
// time: the user message and an empty assistant placeholder are appended
// optimistically, the backend stream is decoded record by record into the
// placeholder, and the placeholder is finalized (or turned into an error
// notice) when the stream ends. Session switching is rejected while a cycle
// is active so the placeholder can never be orphaned.
package transcript
