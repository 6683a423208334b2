// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package registry

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/nexus-tui/internal/api"
	"github.com/jeranaias/nexus-tui/internal/model"
)

type fakeBackend struct {
	listed    []api.DocumentInfo
	uploadErr error
	deleteErr error

	uploadedName string
	uploadedData string
	deletedName  string

	// midUpload and midDelete, when set, observe the registry while the
	// request is in flight.
	midUpload func()
	midDelete func()
}

func (f *fakeBackend) ListDocuments(context.Context) ([]api.DocumentInfo, error) {
	return f.listed, nil
}

func (f *fakeBackend) UploadDocument(_ context.Context, filename string, r io.Reader) (*api.UploadResult, error) {
	f.uploadedName = filename
	data, _ := io.ReadAll(r)
	f.uploadedData = string(data)
	if f.midUpload != nil {
		f.midUpload()
	}
	if f.uploadErr != nil {
		return nil, f.uploadErr
	}
	return &api.UploadResult{Status: "success", Filename: filename, ChunksCreated: 7}, nil
}

func (f *fakeBackend) DeleteDocument(_ context.Context, filename string) error {
	f.deletedName = filename
	if f.midDelete != nil {
		f.midDelete()
	}
	return f.deleteErr
}

type fakeNotifier struct {
	notices []string
}

func (f *fakeNotifier) Notice(content string) { f.notices = append(f.notices, content) }

func writeTempDoc(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func statusOf(docs []model.Document, name string) (model.DocStatus, bool) {
	for _, d := range docs {
		if d.Name == name {
			return d.Status, true
		}
	}
	return "", false
}

func TestUploadSuccess(t *testing.T) {
	backend := &fakeBackend{}
	notifier := &fakeNotifier{}
	reg := New(backend, notifier)

	var midStatus model.DocStatus
	backend.midUpload = func() {
		s, ok := statusOf(reg.Documents(), "policy.pdf")
		require.True(t, ok, "document missing from registry during upload")
		midStatus = s
	}

	path := writeTempDoc(t, "policy.pdf", "%PDF-1.4 refunds")
	require.NoError(t, reg.Upload(context.Background(), path))

	assert.Equal(t, model.DocProcessing, midStatus, "document not shown as processing during upload")
	assert.Equal(t, "policy.pdf", backend.uploadedName)
	assert.Equal(t, "%PDF-1.4 refunds", backend.uploadedData)

	require.Len(t, notifier.notices, 1)
	assert.Contains(t, notifier.notices[0], "policy.pdf")
	assert.Contains(t, notifier.notices[0], "7 chunks")
}

func TestUploadBackendFailure(t *testing.T) {
	backend := &fakeBackend{uploadErr: &api.BackendError{Status: 422, Message: "unsupported file type"}}
	notifier := &fakeNotifier{}
	reg := New(backend, notifier)

	path := writeTempDoc(t, "broken.pdf", "junk")
	require.NoError(t, reg.Upload(context.Background(), path))

	status, ok := statusOf(reg.Documents(), "broken.pdf")
	require.True(t, ok)
	assert.Equal(t, model.DocError, status)

	require.Len(t, notifier.notices, 1)
	assert.Contains(t, notifier.notices[0], "Error")
	assert.Contains(t, notifier.notices[0], "unsupported file type")
}

func TestUploadMissingLocalFile(t *testing.T) {
	reg := New(&fakeBackend{}, &fakeNotifier{})
	err := reg.Upload(context.Background(), filepath.Join(t.TempDir(), "nope.pdf"))
	require.Error(t, err)
	assert.Empty(t, reg.Documents(), "missing file must not leave a registry entry")
}

func TestUploadReusesEntryOnRetry(t *testing.T) {
	backend := &fakeBackend{uploadErr: errors.New("boom")}
	reg := New(backend, &fakeNotifier{})

	path := writeTempDoc(t, "report.txt", "q3 numbers")
	require.NoError(t, reg.Upload(context.Background(), path))
	require.Len(t, reg.Documents(), 1)

	backend.uploadErr = nil
	backend.listed = []api.DocumentInfo{{ID: 4, Filename: "report.txt"}}
	require.NoError(t, reg.Upload(context.Background(), path))

	docs := reg.Documents()
	require.Len(t, docs, 1, "retry duplicated the document entry")
	assert.Equal(t, model.DocIndexed, docs[0].Status)
}

func TestRefreshMergesBackendView(t *testing.T) {
	backend := &fakeBackend{
		uploadErr: errors.New("down"),
		listed: []api.DocumentInfo{
			{ID: 10, Filename: "policy.pdf"},
		},
	}
	reg := New(backend, &fakeNotifier{})

	// A failed upload leaves a local error entry the backend never saw.
	path := writeTempDoc(t, "broken.txt", "x")
	require.NoError(t, reg.Upload(context.Background(), path))

	require.NoError(t, reg.Refresh(context.Background()))

	docs := reg.Documents()
	require.Len(t, docs, 2)

	status, ok := statusOf(docs, "policy.pdf")
	require.True(t, ok)
	assert.Equal(t, model.DocIndexed, status)

	status, ok = statusOf(docs, "broken.txt")
	require.True(t, ok)
	assert.Equal(t, model.DocError, status, "error marker lost on refresh")
}

func TestRemove(t *testing.T) {
	backend := &fakeBackend{listed: []api.DocumentInfo{{ID: 3, Filename: "old notes.md"}}}
	notifier := &fakeNotifier{}
	reg := New(backend, notifier)
	require.NoError(t, reg.Refresh(context.Background()))

	require.NoError(t, reg.Remove(context.Background(), "old notes.md"))

	assert.Equal(t, "old notes.md", backend.deletedName)
	assert.Empty(t, reg.Documents())
	require.Len(t, notifier.notices, 1)
	assert.Contains(t, notifier.notices[0], "old notes.md")
}

func TestRemoveHidesEntryBeforeBackendConfirms(t *testing.T) {
	backend := &fakeBackend{listed: []api.DocumentInfo{{ID: 3, Filename: "old notes.md"}}}
	reg := New(backend, &fakeNotifier{})
	require.NoError(t, reg.Refresh(context.Background()))

	var visibleMidDelete bool
	backend.midDelete = func() {
		_, visibleMidDelete = statusOf(reg.Documents(), "old notes.md")
	}

	require.NoError(t, reg.Remove(context.Background(), "old notes.md"))
	assert.False(t, visibleMidDelete, "document still listed while the delete was in flight")
}

func TestRemoveUnknownDocument(t *testing.T) {
	reg := New(&fakeBackend{}, &fakeNotifier{})
	err := reg.Remove(context.Background(), "ghost.pdf")
	require.ErrorIs(t, err, ErrUnknownDocument)
}

func TestRemoveBackendFailureRestoresEntry(t *testing.T) {
	backend := &fakeBackend{
		listed:    []api.DocumentInfo{{ID: 3, Filename: "sticky.pdf"}},
		deleteErr: &api.BackendError{Status: 500, Message: "vector store locked"},
	}
	notifier := &fakeNotifier{}
	reg := New(backend, notifier)
	require.NoError(t, reg.Refresh(context.Background()))

	err := reg.Remove(context.Background(), "sticky.pdf")
	require.Error(t, err)

	// The optimistic removal is rolled back from the backend's list.
	status, ok := statusOf(reg.Documents(), "sticky.pdf")
	require.True(t, ok, "entry not restored after backend delete failure")
	assert.Equal(t, model.DocIndexed, status)
	require.Len(t, notifier.notices, 1)
	assert.Contains(t, notifier.notices[0], "vector store locked")
}

func TestStatusNeverLeavesTerminalState(t *testing.T) {
	reg := New(&fakeBackend{}, &fakeNotifier{})

	id := reg.beginUpload("doc.pdf")
	reg.completeUpload(id, model.DocIndexed)
	// A stale completion for the same upload must not flip the status.
	reg.completeUpload(id, model.DocError)

	status, ok := statusOf(reg.Documents(), "doc.pdf")
	require.True(t, ok)
	assert.Equal(t, model.DocIndexed, status)
}

func TestWatcherUploadsSettledFiles(t *testing.T) {
	backend := &fakeBackend{listed: []api.DocumentInfo{{ID: 1, Filename: "dropped.pdf"}}}
	notifier := &fakeNotifier{}
	reg := New(backend, notifier)

	dir := t.TempDir()
	w, err := NewWatcher(reg, dir, 50*time.Millisecond)
	require.NoError(t, err)
	require.NoError(t, w.Watch())
	defer w.Close()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "dropped.pdf"), []byte("pdf bytes"), 0o600))
	// Ignored extension: never uploaded.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "image.png"), []byte{0x89}, 0o600))

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if _, ok := statusOf(reg.Documents(), "dropped.pdf"); ok {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}

	status, ok := statusOf(reg.Documents(), "dropped.pdf")
	require.True(t, ok, "watched file was never uploaded")
	assert.Equal(t, model.DocIndexed, status)
	assert.Equal(t, "dropped.pdf", backend.uploadedName)
	assert.False(t, strings.Contains(backend.uploadedName, "png"))
}
