// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package transcript

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/jeranaias/nexus-tui/internal/api"
	"github.com/jeranaias/nexus-tui/internal/model"
)

// =============================================================================
// ERRORS AND STATE
// =============================================================================

var (
	// ErrBusy is returned when a send or transcript replacement is attempted
	// while a send cycle is already running.
	ErrBusy = errors.New("transcript: a response is already in progress")

	// ErrEmptyMessage is returned when the trimmed input is empty.
	ErrEmptyMessage = errors.New("transcript: message is empty")
)

// State is the controller's position in the send cycle.
type State int

const (
	// StateIdle means no cycle is running; input is accepted.
	StateIdle State = iota

	// StateSending covers the window between appending the optimistic pair
	// and the arrival of the first stream record.
	StateSending

	// StateStreaming means content records are being appended to the
	// placeholder.
	StateStreaming
)

func (s State) String() string {
	switch s {
	case StateSending:
		return "sending"
	case StateStreaming:
		return "streaming"
	default:
		return "idle"
	}
}

// WelcomeContent is the canned assistant greeting shown when no session is
// loaded.
const WelcomeContent = "**Nexus RAG v3.3**\n\n" +
	"Hello. Upload a document and ask me anything about it, " +
	"or pick an earlier session to continue where you left off."

// =============================================================================
// COLLABORATOR INTERFACES
// =============================================================================

// Streamer opens a streaming chat exchange with the backend. *api.Client
// satisfies it.
type Streamer interface {
	Stream(ctx context.Context, message string, sessionID *int) (io.ReadCloser, error)
}

// SessionBinder is the controller's view of the session store: it supplies
// the id to send with each message and adopts the id the backend assigns.
type SessionBinder interface {
	ActiveID() *int
	Adopt(id int)
}

// =============================================================================
// CONTROLLER
// =============================================================================

// Controller owns the transcript. All mutation goes through it; readers get
// snapshots. Safe for concurrent use.
type Controller struct {
	mu sync.Mutex

	streamer Streamer
	binder   SessionBinder
	clock    Clock

	messages []*model.Message
	nextID   int
	state    State

	// placeholder is the single mutable streaming message, non-nil only
	// while state != StateIdle.
	placeholder *model.Message

	onChange   func()
	onCycleEnd func(failed bool)
}

// NewController creates a controller seeded with the welcome message.
func NewController(streamer Streamer, clock Clock) *Controller {
	if clock == nil {
		clock = SystemClock()
	}
	c := &Controller{
		streamer: streamer,
		clock:    clock,
	}
	c.resetLocked()
	return c
}

// SetSessionBinder wires the session store. Must be called before Send.
func (c *Controller) SetSessionBinder(b SessionBinder) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.binder = b
}

// SetOnChange registers a hook invoked after every transcript mutation. The
// hook runs outside the controller lock and must not block.
func (c *Controller) SetOnChange(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onChange = fn
}

// SetOnCycleEnd registers a hook invoked once per completed send cycle,
// after the placeholder is finalized. failed reports whether the cycle ended
// in an error notice rather than a model response.
func (c *Controller) SetOnCycleEnd(fn func(failed bool)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onCycleEnd = fn
}

// State returns the current cycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Busy reports whether a send cycle is running.
func (c *Controller) Busy() bool {
	return c.State() != StateIdle
}

// Messages returns a snapshot of the transcript. The slice is a copy; the
// messages themselves are shared, and only the controller mutates them.
func (c *Controller) Messages() []*model.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*model.Message, len(c.messages))
	copy(out, c.messages)
	return out
}

// Len returns the number of messages in the transcript.
func (c *Controller) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.messages)
}

// =============================================================================
// SEND CYCLE
// =============================================================================

// Send runs one full exchange: append the user message and an assistant
// placeholder, stream the response into the placeholder, finalize.
//
// It blocks until the cycle completes, so callers run it on their own
// goroutine. ErrBusy and ErrEmptyMessage are returned before anything is
// appended; every later failure is absorbed into the transcript as an error
// notice and Send returns nil.
func (c *Controller) Send(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyMessage
	}

	c.mu.Lock()
	if c.state != StateIdle {
		c.mu.Unlock()
		return ErrBusy
	}
	c.state = StateSending

	now := c.clock.Now()
	c.appendLocked(model.NewMessage(c.nextID, model.RoleUser, text, now))
	placeholder := model.NewStreamingMessage(c.nextID, now)
	c.appendLocked(placeholder)
	c.placeholder = placeholder

	var sessionID *int
	if c.binder != nil {
		sessionID = c.binder.ActiveID()
	}
	c.mu.Unlock()
	c.notify()

	body, err := c.streamer.Stream(ctx, text, sessionID)
	if err != nil {
		c.failCycle(err)
		return nil
	}
	defer body.Close()

	c.consume(ctx, api.NewDecoder(body))
	return nil
}

// consume drains the decoder into the placeholder. A mid-stream error keeps
// whatever content already arrived; the partial message is finalized as-is.
// A drop before the first fragment leaves nothing worth keeping, so that
// case gets an error notice instead of an empty bubble.
func (c *Controller) consume(ctx context.Context, dec *api.Decoder) {
	for {
		rec, err := dec.Next()
		if err != nil {
			// io.EOF is the normal end of stream. Any other error means
			// the connection dropped mid-response; the partial content
			// stays, which is more useful than discarding it.
			if !errors.Is(err, io.EOF) && c.placeholderEmpty() {
				c.failCycle(err)
				return
			}
			c.endCycle(false)
			return
		}
		if ctx.Err() != nil {
			c.endCycle(false)
			return
		}

		switch rec.Type {
		case api.RecordContent:
			c.mu.Lock()
			c.placeholder.AppendFragment(rec.Data)
			if c.state == StateSending {
				c.state = StateStreaming
			}
			c.mu.Unlock()
			c.notify()

		case api.RecordMeta:
			c.mu.Lock()
			if rec.Sources != nil {
				c.placeholder.Sources = rec.Sources
			}
			adopt := rec.SessionID
			binder := c.binder
			c.mu.Unlock()
			if adopt != nil && binder != nil {
				binder.Adopt(*adopt)
			}
			c.notify()
		}
	}
}

func (c *Controller) placeholderEmpty() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.placeholder != nil && c.placeholder.IsEmpty()
}

// failCycle turns the placeholder into an inline error notice. Used when the
// exchange fails before any stream content arrives.
func (c *Controller) failCycle(err error) {
	c.mu.Lock()
	if c.placeholder != nil {
		c.placeholder.SetContent(noticeFor(err))
	}
	c.mu.Unlock()
	c.endCycle(true)
}

// endCycle finalizes the placeholder and returns to idle.
func (c *Controller) endCycle(failed bool) {
	c.mu.Lock()
	if c.placeholder != nil {
		c.placeholder.Finalize()
		c.placeholder = nil
	}
	c.state = StateIdle
	hook := c.onCycleEnd
	c.mu.Unlock()
	c.notify()
	if hook != nil {
		hook(failed)
	}
}

// noticeFor maps a send failure to user-facing notice text.
func noticeFor(err error) string {
	if errors.Is(err, api.ErrUnreachable) {
		return "**Error:** could not reach the Nexus backend. Is it running?"
	}
	var be *api.BackendError
	if errors.As(err, &be) && be.Message != "" {
		return fmt.Sprintf("**Error:** %s", be.Message)
	}
	return fmt.Sprintf("**Error:** %v", err)
}

// =============================================================================
// TRANSCRIPT REPLACEMENT
// =============================================================================

// Replace swaps the transcript wholesale, renumbering ids so the next
// message continues past the highest id present. It is rejected while a
// cycle is running, which keeps the streaming placeholder from becoming
// orphaned in a transcript that no longer contains it.
func (c *Controller) Replace(msgs []*model.Message) error {
	c.mu.Lock()
	if c.state != StateIdle {
		c.mu.Unlock()
		return ErrBusy
	}
	c.messages = make([]*model.Message, len(msgs))
	copy(c.messages, msgs)
	c.nextID = 0
	for _, m := range c.messages {
		if m.ID >= c.nextID {
			c.nextID = m.ID + 1
		}
	}
	c.mu.Unlock()
	c.notify()
	return nil
}

// Reset clears the transcript back to the welcome message. Rejected while a
// cycle is running.
func (c *Controller) Reset() error {
	c.mu.Lock()
	if c.state != StateIdle {
		c.mu.Unlock()
		return ErrBusy
	}
	c.resetLocked()
	c.mu.Unlock()
	c.notify()
	return nil
}

func (c *Controller) resetLocked() {
	c.messages = nil
	c.nextID = 0
	c.appendLocked(model.NewMessage(c.nextID, model.RoleAssistant, WelcomeContent, c.clock.Now()))
}

// =============================================================================
// NOTICES
// =============================================================================

// Notice appends an assistant-authored informational message, e.g. a
// document ingest result. Notices are allowed while a cycle is running;
// they land after the placeholder, which stays mutable.
func (c *Controller) Notice(content string) {
	c.mu.Lock()
	c.appendLocked(model.NewMessage(c.nextID, model.RoleAssistant, content, c.clock.Now()))
	c.mu.Unlock()
	c.notify()
}

func (c *Controller) appendLocked(m *model.Message) {
	c.messages = append(c.messages, m)
	c.nextID = m.ID + 1
}

func (c *Controller) notify() {
	c.mu.Lock()
	fn := c.onChange
	c.mu.Unlock()
	if fn != nil {
		fn()
	}
}
