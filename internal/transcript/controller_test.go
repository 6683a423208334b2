// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package transcript

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jeranaias/nexus-tui/internal/api"
	"github.com/jeranaias/nexus-tui/internal/model"
)

const testClock = FixedClock("4:20 PM")

// fakeStreamer serves a fixed body, or an error, for every exchange.
type fakeStreamer struct {
	mu       sync.Mutex
	body     string
	err      error
	lastMsg  string
	lastSID  *int
	release  chan struct{} // when non-nil, Stream blocks until closed
	reader   io.Reader     // overrides body when non-nil
}

func (f *fakeStreamer) Stream(_ context.Context, message string, sessionID *int) (io.ReadCloser, error) {
	f.mu.Lock()
	f.lastMsg = message
	f.lastSID = sessionID
	release := f.release
	f.mu.Unlock()

	if release != nil {
		<-release
	}
	if f.err != nil {
		return nil, f.err
	}
	if f.reader != nil {
		return io.NopCloser(f.reader), nil
	}
	return io.NopCloser(strings.NewReader(f.body)), nil
}

// fakeBinder records adopted ids.
type fakeBinder struct {
	mu      sync.Mutex
	active  *int
	adopted []int
}

func (b *fakeBinder) ActiveID() *int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.active
}

func (b *fakeBinder) Adopt(id int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.adopted = append(b.adopted, id)
	b.active = &id
}

func TestControllerSeedsWelcome(t *testing.T) {
	c := NewController(&fakeStreamer{}, testClock)

	msgs := c.Messages()
	if len(msgs) != 1 {
		t.Fatalf("expected 1 seed message, got %d", len(msgs))
	}
	if msgs[0].Role != model.RoleAssistant {
		t.Errorf("welcome role = %v, want assistant", msgs[0].Role)
	}
	if !strings.Contains(msgs[0].Content, "Nexus RAG") {
		t.Errorf("welcome content = %q", msgs[0].Content)
	}
	if c.State() != StateIdle {
		t.Errorf("initial state = %v, want idle", c.State())
	}
}

func TestControllerSendCycle(t *testing.T) {
	streamer := &fakeStreamer{body: strings.Join([]string{
		`{"type":"content","data":"Refunds are "}`,
		`{"type":"content","data":"processed within "}`,
		`{"type":"content","data":"30 days."}`,
		`{"type":"meta","sessionId":42,"sources":["policy.pdf"]}`,
	}, "\n") + "\n"}
	binder := &fakeBinder{}

	c := NewController(streamer, testClock)
	c.SetSessionBinder(binder)

	var failed *bool
	c.SetOnCycleEnd(func(f bool) { failed = &f })

	if err := c.Send(context.Background(), "What is the refund policy?"); err != nil {
		t.Fatalf("Send: %v", err)
	}

	msgs := c.Messages()
	if len(msgs) != 3 { // welcome, user, assistant
		t.Fatalf("expected 3 messages, got %d", len(msgs))
	}

	user, reply := msgs[1], msgs[2]
	if user.Role != model.RoleUser || user.Content != "What is the refund policy?" {
		t.Errorf("user message = %v %q", user.Role, user.Content)
	}
	if reply.Content != "Refunds are processed within 30 days." {
		t.Errorf("reply content = %q", reply.Content)
	}
	if reply.IsStreaming {
		t.Error("reply still marked streaming after cycle end")
	}
	if len(reply.Sources) != 1 || reply.Sources[0] != "policy.pdf" {
		t.Errorf("reply sources = %v", reply.Sources)
	}
	if len(binder.adopted) != 1 || binder.adopted[0] != 42 {
		t.Errorf("adopted ids = %v, want [42]", binder.adopted)
	}
	if c.State() != StateIdle {
		t.Errorf("state after cycle = %v, want idle", c.State())
	}
	if failed == nil || *failed {
		t.Errorf("cycle end hook: failed = %v, want false", failed)
	}
	if streamer.lastMsg != "What is the refund policy?" {
		t.Errorf("streamer got message %q", streamer.lastMsg)
	}
}

func TestControllerSendsActiveSessionID(t *testing.T) {
	streamer := &fakeStreamer{body: "{\"type\":\"content\",\"data\":\"ok\"}\n"}
	seven := 7
	binder := &fakeBinder{active: &seven}

	c := NewController(streamer, testClock)
	c.SetSessionBinder(binder)

	if err := c.Send(context.Background(), "hi"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if streamer.lastSID == nil || *streamer.lastSID != 7 {
		t.Errorf("streamer session id = %v, want 7", streamer.lastSID)
	}
}

func TestControllerRejectsEmptyInput(t *testing.T) {
	c := NewController(&fakeStreamer{}, testClock)
	if err := c.Send(context.Background(), "   \n\t"); !errors.Is(err, ErrEmptyMessage) {
		t.Errorf("Send(blank) = %v, want ErrEmptyMessage", err)
	}
	if c.Len() != 1 {
		t.Errorf("blank input appended messages: len = %d", c.Len())
	}
}

func TestControllerBusyGuard(t *testing.T) {
	release := make(chan struct{})
	streamer := &fakeStreamer{
		body:    "{\"type\":\"content\",\"data\":\"done\"}\n",
		release: release,
	}
	c := NewController(streamer, testClock)

	done := make(chan error, 1)
	go func() { done <- c.Send(context.Background(), "first") }()

	// Wait until the optimistic pair has landed.
	for c.State() == StateIdle {
		time.Sleep(time.Millisecond)
	}

	if err := c.Send(context.Background(), "second"); !errors.Is(err, ErrBusy) {
		t.Errorf("concurrent Send = %v, want ErrBusy", err)
	}
	if err := c.Replace(nil); !errors.Is(err, ErrBusy) {
		t.Errorf("Replace during cycle = %v, want ErrBusy", err)
	}
	if err := c.Reset(); !errors.Is(err, ErrBusy) {
		t.Errorf("Reset during cycle = %v, want ErrBusy", err)
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("first Send: %v", err)
	}
	if c.State() != StateIdle {
		t.Errorf("state after release = %v, want idle", c.State())
	}
}

func TestControllerConnectFailureBecomesNotice(t *testing.T) {
	streamer := &fakeStreamer{err: api.ErrUnreachable}
	c := NewController(streamer, testClock)

	var failed bool
	c.SetOnCycleEnd(func(f bool) { failed = f })

	if err := c.Send(context.Background(), "hello?"); err != nil {
		t.Fatalf("Send: %v", err)
	}

	msgs := c.Messages()
	last := msgs[len(msgs)-1]
	if !strings.Contains(last.Content, "could not reach") {
		t.Errorf("failure notice = %q", last.Content)
	}
	if last.IsStreaming {
		t.Error("failure placeholder not finalized")
	}
	if !failed {
		t.Error("cycle end hook: failed = false, want true")
	}
	if c.State() != StateIdle {
		t.Errorf("state = %v, want idle", c.State())
	}
}

func TestControllerBackendErrorMessageSurfaces(t *testing.T) {
	streamer := &fakeStreamer{err: &api.BackendError{Status: 503, Message: "model offline"}}
	c := NewController(streamer, testClock)

	if err := c.Send(context.Background(), "hello?"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	msgs := c.Messages()
	if got := msgs[len(msgs)-1].Content; !strings.Contains(got, "model offline") {
		t.Errorf("notice = %q, want backend message surfaced", got)
	}
}

// errAfterReader yields its payload, then fails.
type errAfterReader struct {
	r    io.Reader
	done bool
}

func (e *errAfterReader) Read(p []byte) (int, error) {
	if !e.done {
		n, err := e.r.Read(p)
		if errors.Is(err, io.EOF) {
			e.done = true
			return n, nil
		}
		return n, err
	}
	return 0, errors.New("connection reset")
}

func TestControllerMidStreamFailureKeepsPartial(t *testing.T) {
	streamer := &fakeStreamer{reader: &errAfterReader{
		r: strings.NewReader("{\"type\":\"content\",\"data\":\"Refunds are \"}\n"),
	}}
	c := NewController(streamer, testClock)

	if err := c.Send(context.Background(), "refunds?"); err != nil {
		t.Fatalf("Send: %v", err)
	}

	msgs := c.Messages()
	if len(msgs) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(msgs))
	}
	last := msgs[2]
	if last.Content != "Refunds are " {
		t.Errorf("partial content = %q, want the fragment that arrived", last.Content)
	}
	if last.IsStreaming {
		t.Error("partial message not finalized")
	}
}

func TestControllerDropBeforeContentBecomesNotice(t *testing.T) {
	// Connection dies before any content record: there is no partial answer
	// to keep, so the placeholder carries the failure instead of finalizing
	// empty.
	streamer := &fakeStreamer{reader: &errAfterReader{r: strings.NewReader("")}}
	c := NewController(streamer, testClock)

	var failed *bool
	c.SetOnCycleEnd(func(f bool) { failed = &f })

	if err := c.Send(context.Background(), "refunds?"); err != nil {
		t.Fatalf("Send: %v", err)
	}

	msgs := c.Messages()
	last := msgs[len(msgs)-1]
	if last.IsStreaming {
		t.Error("placeholder not finalized")
	}
	if !strings.Contains(last.Content, "Error") || !strings.Contains(last.Content, "connection reset") {
		t.Errorf("content = %q, want an inline error notice", last.Content)
	}
	if failed == nil || !*failed {
		t.Error("cycle not reported as failed")
	}
}

func TestControllerReplaceRenumbers(t *testing.T) {
	c := NewController(&fakeStreamer{body: "{\"type\":\"content\",\"data\":\"x\"}\n"}, testClock)

	loaded := []*model.Message{
		model.NewMessage(0, model.RoleUser, "old question", "1:00 PM"),
		model.NewMessage(1, model.RoleAssistant, "old answer", "1:00 PM"),
	}
	if err := c.Replace(loaded); err != nil {
		t.Fatalf("Replace: %v", err)
	}
	if c.Len() != 2 {
		t.Fatalf("len after replace = %d", c.Len())
	}

	if err := c.Send(context.Background(), "new question"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	msgs := c.Messages()
	if msgs[2].ID != 2 || msgs[3].ID != 3 {
		t.Errorf("ids after replace = %d,%d; want 2,3", msgs[2].ID, msgs[3].ID)
	}
}

func TestControllerResetRestoresWelcome(t *testing.T) {
	c := NewController(&fakeStreamer{body: "{\"type\":\"content\",\"data\":\"x\"}\n"}, testClock)
	if err := c.Send(context.Background(), "hi"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if err := c.Reset(); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	msgs := c.Messages()
	if len(msgs) != 1 || !strings.Contains(msgs[0].Content, "Nexus RAG") {
		t.Errorf("after reset: %d messages, first = %q", len(msgs), msgs[0].Content)
	}
}

func TestControllerNotice(t *testing.T) {
	c := NewController(&fakeStreamer{}, testClock)
	c.Notice("Ingest complete: **policy.pdf** (12 chunks).")

	msgs := c.Messages()
	last := msgs[len(msgs)-1]
	if last.Role != model.RoleAssistant {
		t.Errorf("notice role = %v", last.Role)
	}
	if !strings.Contains(last.Content, "policy.pdf") {
		t.Errorf("notice content = %q", last.Content)
	}
}

func TestControllerOnChangeFires(t *testing.T) {
	c := NewController(&fakeStreamer{body: "{\"type\":\"content\",\"data\":\"x\"}\n"}, testClock)

	var mu sync.Mutex
	count := 0
	c.SetOnChange(func() {
		mu.Lock()
		count++
		mu.Unlock()
	})

	if err := c.Send(context.Background(), "hi"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	mu.Lock()
	defer mu.Unlock()
	if count == 0 {
		t.Error("onChange never fired during a send cycle")
	}
}
