// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"fmt"
)

// =============================================================================
// REQUEST TYPES
// =============================================================================

// ChatRequest is the request body for the chat endpoint.
//
// SessionID is nil when no conversation has been established yet; the
// backend creates one and reports its id back (in the response object, or in
// a meta record on the streaming variant).
type ChatRequest struct {
	Message   string `json:"message"`
	SessionID *int   `json:"session_id"`
	Stream    bool   `json:"stream,omitempty"`
}

// =============================================================================
// RESPONSE TYPES
// =============================================================================

// ChatResponse is the single-object response from the chat endpoint.
type ChatResponse struct {
	Response  string   `json:"response"`
	Sources   []string `json:"sources"`
	SessionID *int     `json:"session_id"`
}

// HistoryMessage is one persisted message as returned by the history
// endpoint. Role uses the backend's wire vocabulary ("user"/"ai").
type HistoryMessage struct {
	ID        int      `json:"id"`
	Role      string   `json:"role"`
	Content   string   `json:"content"`
	Timestamp string   `json:"timestamp"`
	Sources   []string `json:"sources,omitempty"`
}

// DocumentInfo is one entry from the document listing.
type DocumentInfo struct {
	ID       int    `json:"id"`
	Filename string `json:"filename"`
}

// UploadResult is the success body from the upload endpoint.
type UploadResult struct {
	Status        string `json:"status"`
	Filename      string `json:"filename"`
	ChunksCreated int    `json:"chunks_created"`
	Message       string `json:"message"`
}

// =============================================================================
// ERROR TYPES
// =============================================================================

// BackendError is a non-success HTTP response from the backend. Message
// carries the server-supplied detail when the error body was parseable.
type BackendError struct {
	Status  int
	Message string
}

// Error implements the error interface.
func (e *BackendError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("backend error (HTTP %d): %s", e.Status, e.Message)
	}
	return fmt.Sprintf("backend error (HTTP %d)", e.Status)
}

// errorBody is the JSON shape of backend failure responses. FastAPI uses
// "detail"; the upload endpoint also sets "message".
type errorBody struct {
	Message string `json:"message"`
	Detail  string `json:"detail"`
}
