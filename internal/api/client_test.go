// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListSessions(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/chat/sessions", r.URL.Path)
		require.Equal(t, http.MethodGet, r.Method)
		assert.NotEmpty(t, r.Header.Get("X-Request-ID"))
		w.Write([]byte(`[{"id":1,"created_at":"2025-01-01","title":"First"},{"id":2,"created_at":"2025-01-02","title":""}]`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL + "/api/v1")
	sessions, err := c.ListSessions(context.Background())
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, 1, sessions[0].ID)
	assert.Equal(t, "First", sessions[0].Title)
}

func TestHistoryNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"detail":"session not found"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL + "/api/v1")
	_, err := c.History(context.Background(), 99)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestGetRetriesOnServerError(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL + "/api/v1")
	docs, err := c.ListDocuments(context.Background())
	require.NoError(t, err)
	assert.Empty(t, docs)
	assert.Equal(t, 3, attempts)
}

func TestWithTimeoutOverridesRequestClient(t *testing.T) {
	c := NewClient("").WithTimeout(5 * time.Second)

	assert.Equal(t, 5*time.Second, c.httpClient.Timeout)
	assert.Same(t, sharedHTTPClient.Transport, c.httpClient.Transport, "transport pool not shared")
	assert.Same(t, sharedStreamingClient, c.streaming, "streaming client must stay timeout-free")

	// Non-positive values keep the default.
	c = NewClient("").WithTimeout(0)
	assert.Equal(t, DefaultTimeout, c.httpClient.Timeout)
}

func TestUploadDocument(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/documents/upload", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))

		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()

		assert.Equal(t, "report.pdf", header.Filename)
		data, _ := io.ReadAll(file)
		assert.Equal(t, "fake pdf bytes", string(data))

		w.Write([]byte(`{"status":"success","filename":"report.pdf","chunks_created":7,"message":"indexed"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL + "/api/v1")
	result, err := c.UploadDocument(context.Background(), "report.pdf", strings.NewReader("fake pdf bytes"))
	require.NoError(t, err)
	assert.Equal(t, 7, result.ChunksCreated)
}

func TestUploadDocumentFailureCarriesServerMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"message":"unsupported file type"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL + "/api/v1")
	_, err := c.UploadDocument(context.Background(), "x.bin", strings.NewReader("x"))
	require.Error(t, err)

	var be *BackendError
	require.True(t, errors.As(err, &be))
	assert.Equal(t, http.StatusInternalServerError, be.Status)
	assert.Equal(t, "unsupported file type", be.Message)
}

func TestDeleteDocumentEscapesName(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		require.Equal(t, http.MethodDelete, r.Method)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient(srv.URL + "/api/v1")
	err := c.DeleteDocument(context.Background(), "q3 report.pdf")
	require.NoError(t, err)
	assert.Equal(t, "/api/v1/documents/q3%20report.pdf", gotPath)
}

func TestSendChatMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"message":"hello","session_id":null}`, string(body))
		w.Write([]byte(`{"response":"hi","sources":["a.pdf"],"session_id":5}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL + "/api/v1")
	resp, err := c.Send(context.Background(), "hello", nil)
	require.NoError(t, err)
	assert.Equal(t, "hi", resp.Response)
	require.NotNil(t, resp.SessionID)
	assert.Equal(t, 5, *resp.SessionID)
}

func TestStreamReturnsBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		assert.Contains(t, string(body), `"stream":true`)
		w.Write([]byte(sampleStream))
	}))
	defer srv.Close()

	c := NewClient(srv.URL + "/api/v1")
	body, err := c.Stream(context.Background(), "refund policy?", nil)
	require.NoError(t, err)
	defer body.Close()

	records := drain(t, NewDecoder(body))
	require.Len(t, records, 3)
}

func TestStreamHTTPErrorClosesBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte(`{"detail":"model offline"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL + "/api/v1")
	_, err := c.Stream(context.Background(), "hi", nil)
	require.Error(t, err)

	var be *BackendError
	require.True(t, errors.As(err, &be))
	assert.Equal(t, "model offline", be.Message)
}

func TestUnreachableBackend(t *testing.T) {
	// Port 1 is essentially guaranteed closed.
	c := NewClient("http://127.0.0.1:1/api/v1").WithMaxRetries(1)
	_, err := c.ListSessions(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnreachable))
}
