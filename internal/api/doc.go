// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package api provides the HTTP client for the Nexus RAG backend.
//
// The backend owns document ingestion, vector retrieval, and model
// inference; this package only speaks its HTTP contract: session and
// document listings, per-session history, multipart uploads, deletes, and
// the chat endpoint in both its single-object and newline-delimited
// streaming forms. The streaming decoder lives in stream.go.
package api
