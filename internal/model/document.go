// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

// =============================================================================
// DOCUMENT STATUS
// =============================================================================

// DocStatus is the client-visible lifecycle state of an uploaded document.
//
// Per upload attempt the status is monotonic: processing transitions to
// indexed or error and never reverses. A full registry refresh may replace
// optimistic entries with backend ground truth.
type DocStatus string

const (
	DocProcessing DocStatus = "processing"
	DocIndexed    DocStatus = "indexed"
	DocError      DocStatus = "error"
)

// String returns the string representation of the status.
func (s DocStatus) String() string {
	return string(s)
}

// Symbol returns a single-character indicator for list rendering.
func (s DocStatus) Symbol() string {
	switch s {
	case DocProcessing:
		return "~"
	case DocIndexed:
		return "+"
	case DocError:
		return "!"
	default:
		return "?"
	}
}

// =============================================================================
// DOCUMENT TYPE
// =============================================================================

// Document is one entry in the document registry.
//
// ID is client-assigned at upload time and only correlates an in-flight
// upload with its outcome. Identity for delete and refresh purposes is the
// file name, matching the backend's DELETE contract.
type Document struct {
	ID     int       `json:"id"`
	Name   string    `json:"name"`
	Status DocStatus `json:"status"`
}
