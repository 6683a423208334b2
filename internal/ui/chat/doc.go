// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the chat view component for the TUI.
//
// The Bubble Tea model here is a thin presentation layer: transcript,
// session, and document state live in their own packages, and this package
// reacts to their change hooks through an event channel. Slash commands are
// parsed here and dispatched to the owning component.
package chat
