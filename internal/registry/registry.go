// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package registry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/jeranaias/nexus-tui/internal/api"
	"github.com/jeranaias/nexus-tui/internal/model"
	"github.com/jeranaias/nexus-tui/internal/util"
)

// Backend is the slice of the API client the registry needs.
type Backend interface {
	ListDocuments(ctx context.Context) ([]api.DocumentInfo, error)
	UploadDocument(ctx context.Context, filename string, r io.Reader) (*api.UploadResult, error)
	DeleteDocument(ctx context.Context, filename string) error
}

// Notifier receives upload and deletion outcomes as chat notices. The
// transcript controller satisfies it.
type Notifier interface {
	Notice(content string)
}

// ErrUnknownDocument is returned by Remove for a name the registry does not
// hold.
var ErrUnknownDocument = errors.New("registry: no such document")

// =============================================================================
// REGISTRY
// =============================================================================

// Registry holds the local view of the backend's document collection.
// Safe for concurrent use.
type Registry struct {
	mu sync.Mutex

	backend  Backend
	notifier Notifier

	docs []model.Document

	// nextTempID numbers in-flight uploads. Negative so provisional ids can
	// never collide with backend-assigned ones.
	nextTempID int

	onChange func()
}

// New creates a registry. notifier may be nil; outcomes are then silent.
func New(backend Backend, notifier Notifier) *Registry {
	return &Registry{
		backend:    backend,
		notifier:   notifier,
		nextTempID: -1,
	}
}

// SetOnChange registers a hook fired after every change to the document
// list. The hook must not block.
func (r *Registry) SetOnChange(fn func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onChange = fn
}

// Documents returns a snapshot of the document list.
func (r *Registry) Documents() []model.Document {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.Document, len(r.docs))
	copy(out, r.docs)
	return out
}

// Refresh replaces the registry with the backend's view. Entries still
// processing locally are kept; the backend does not know them yet.
func (r *Registry) Refresh(ctx context.Context) error {
	list, err := r.backend.ListDocuments(ctx)
	if err != nil {
		return fmt.Errorf("refreshing documents: %w", err)
	}

	r.mu.Lock()
	next := make([]model.Document, 0, len(list))
	for _, d := range list {
		next = append(next, model.Document{
			ID:     d.ID,
			Name:   util.NormalizeFilename(d.Filename),
			Status: model.DocIndexed,
		})
	}
	// Keep entries the backend does not know: uploads still processing, and
	// failed uploads whose error marker the user has not dismissed yet.
	for _, d := range r.docs {
		if d.Status != model.DocIndexed && !containsName(next, d.Name) {
			next = append(next, d)
		}
	}
	r.docs = next
	r.mu.Unlock()

	r.notify()
	return nil
}

// =============================================================================
// UPLOAD
// =============================================================================

// Upload sends the file at path to the backend for ingestion. The document
// is listed as processing for the duration and the outcome lands in the
// chat as a notice. Returns an error only when the file cannot be read
// locally; backend failures are absorbed into the document's error status.
func (r *Registry) Upload(ctx context.Context, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	name := util.NormalizeFilename(filepath.Base(path))
	id := r.beginUpload(name)

	result, err := r.backend.UploadDocument(ctx, name, f)
	if err != nil {
		r.completeUpload(id, model.DocError)
		r.notice(uploadFailureNotice(name, err))
		return nil
	}

	r.completeUpload(id, model.DocIndexed)
	r.notice(fmt.Sprintf("Ingest complete: **%s** (%d chunks indexed). Ask away.",
		name, result.ChunksCreated))

	// Best effort: swap the provisional entry for the backend's record.
	if err := r.Refresh(ctx); err != nil {
		return nil
	}
	return nil
}

// beginUpload appends a provisional processing entry and returns its id. An
// existing entry with the same name is reused instead, so re-uploading a
// document does not duplicate it.
func (r *Registry) beginUpload(name string) int {
	r.mu.Lock()
	defer func() {
		r.mu.Unlock()
		r.notify()
	}()

	for i := range r.docs {
		if r.docs[i].Name == name {
			r.docs[i].Status = model.DocProcessing
			return r.docs[i].ID
		}
	}

	id := r.nextTempID
	r.nextTempID--
	r.docs = append(r.docs, model.Document{ID: id, Name: name, Status: model.DocProcessing})
	return id
}

// completeUpload moves a processing entry to its terminal status. Terminal
// statuses never change again; a late call against an already settled entry
// is ignored.
func (r *Registry) completeUpload(id int, status model.DocStatus) {
	r.mu.Lock()
	for i := range r.docs {
		if r.docs[i].ID == id && r.docs[i].Status == model.DocProcessing {
			r.docs[i].Status = status
			break
		}
	}
	r.mu.Unlock()
	r.notify()
}

// =============================================================================
// REMOVE
// =============================================================================

// Remove deletes the named document. The entry disappears from the local
// list immediately; if the backend then refuses the delete, a refresh
// restores the authoritative view.
func (r *Registry) Remove(ctx context.Context, name string) error {
	name = util.NormalizeFilename(name)

	r.mu.Lock()
	if !containsName(r.docs, name) {
		r.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownDocument, name)
	}
	kept := r.docs[:0]
	for _, d := range r.docs {
		if d.Name != name {
			kept = append(kept, d)
		}
	}
	r.docs = kept
	r.mu.Unlock()
	r.notify()

	if err := r.backend.DeleteDocument(ctx, name); err != nil {
		r.notice(fmt.Sprintf("**Error** removing **%s**: %s", name, errText(err)))
		// The optimistic removal no longer matches reality; put the
		// backend's view back.
		if rerr := r.Refresh(ctx); rerr != nil {
			log.Printf("registry: refresh after failed delete: %v", rerr)
		}
		return err
	}

	r.notice(fmt.Sprintf("Removed **%s** from memory.", name))
	return nil
}

// =============================================================================
// HELPERS
// =============================================================================

func uploadFailureNotice(name string, err error) string {
	return fmt.Sprintf("**Error** processing **%s**: %s", name, errText(err))
}

func errText(err error) string {
	var be *api.BackendError
	if errors.As(err, &be) && be.Message != "" {
		return be.Message
	}
	if errors.Is(err, api.ErrUnreachable) {
		return "could not reach the Nexus backend"
	}
	return err.Error()
}

func containsName(docs []model.Document, name string) bool {
	for _, d := range docs {
		if d.Name == name {
			return true
		}
	}
	return false
}

func (r *Registry) notice(content string) {
	if r.notifier != nil {
		r.notifier.Notice(content)
	}
}

func (r *Registry) notify() {
	r.mu.Lock()
	fn := r.onChange
	r.mu.Unlock()
	if fn != nil {
		fn()
	}
}
