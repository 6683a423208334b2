// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for the chat transcript,
// sessions, and uploaded documents.
package model

import (
	"strings"
)

// =============================================================================
// ROLE TYPE
// =============================================================================

// Role represents the sender of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// DisplayName returns a human-readable name for the role.
func (r Role) DisplayName() string {
	switch r {
	case RoleUser:
		return "You"
	case RoleAssistant:
		return "Nexus"
	default:
		return string(r)
	}
}

// ParseRole maps a wire-format role string to a Role. The backend history
// endpoint uses "ai" for assistant messages.
func ParseRole(s string) Role {
	switch s {
	case "ai", "assistant":
		return RoleAssistant
	default:
		return RoleUser
	}
}

// =============================================================================
// MESSAGE TYPE
// =============================================================================

// Message represents a single message in a transcript.
//
// IDs are client-assigned, monotonically increasing integers. Content is
// mutable only while the message is streaming; once finalized it never
// changes again.
type Message struct {
	ID        int      `json:"id"`
	Role      Role     `json:"role"`
	Content   string   `json:"content"`
	Timestamp string   `json:"timestamp"`
	Sources   []string `json:"sources,omitempty"`

	// Streaming state (not persisted).
	// PERFORMANCE: strings.Builder avoids quadratic allocations
	IsStreaming   bool            `json:"-"`
	streamContent strings.Builder `json:"-"`
}

// NewMessage creates a finalized message.
func NewMessage(id int, role Role, content, timestamp string) *Message {
	return &Message{
		ID:        id,
		Role:      role,
		Content:   content,
		Timestamp: timestamp,
	}
}

// NewStreamingMessage creates an empty assistant placeholder that will be
// filled incrementally.
func NewStreamingMessage(id int, timestamp string) *Message {
	return &Message{
		ID:          id,
		Role:        RoleAssistant,
		Timestamp:   timestamp,
		IsStreaming: true,
	}
}

// AppendFragment appends a content fragment to a streaming message.
// It is a no-op on finalized messages.
func (m *Message) AppendFragment(fragment string) {
	if m.IsStreaming {
		m.streamContent.WriteString(fragment)
	}
}

// SetContent replaces the content of a streaming message wholesale.
// Used for error notices when a cycle fails before any fragment arrives.
func (m *Message) SetContent(content string) {
	if m.IsStreaming {
		m.streamContent.Reset()
		m.streamContent.WriteString(content)
	}
}

// Finalize completes streaming; content and sources are immutable afterward.
func (m *Message) Finalize() {
	if !m.IsStreaming {
		return
	}
	m.Content = m.streamContent.String()
	m.streamContent.Reset()
	m.IsStreaming = false
}

// GetDisplayContent returns the content to display (streaming or final).
func (m *Message) GetDisplayContent() string {
	if m.IsStreaming {
		return m.streamContent.String()
	}
	return m.Content
}

// IsEmpty returns true if the message has no content.
func (m *Message) IsEmpty() bool {
	return len(m.Content) == 0 && m.streamContent.Len() == 0
}
