// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package controller

import (
	"context"
	"errors"
	"log"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/jeranaias/quill-tui/internal/protocol"
	"github.com/jeranaias/quill-tui/internal/transcript"
	"github.com/jeranaias/quill-tui/internal/util"
)

// =============================================================================
// STATE
// =============================================================================

// State is the controller's streaming lifecycle state.
type State int

const (
	// StateIdle means no exchange is in flight.
	StateIdle State = iota

	// StateAwaitingFirstByte means a request was sent but nothing has
	// arrived yet.
	StateAwaitingFirstByte

	// StateStreaming means events are arriving.
	StateStreaming
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingFirstByte:
		return "awaiting-first-byte"
	case StateStreaming:
		return "streaming"
	default:
		return "unknown"
	}
}

var (
	// ErrBusy indicates a message is already streaming. At most one
	// exchange is in flight per controller.
	ErrBusy = errors.New("a response is already streaming")

	// ErrEmptyMessage indicates the message was blank after trimming.
	ErrEmptyMessage = errors.New("message is empty")

	// ErrRateLimited indicates the outbound rate cap was hit.
	ErrRateLimited = errors.New("sending too fast, slow down")
)

// =============================================================================
// CONTROLLER
// =============================================================================

// Config tunes a controller.
type Config struct {
	// Streaming selects the streaming endpoint; false routes every
	// message through the non-streaming fallback.
	Streaming bool

	// RequestsPerMinute caps outbound messages (0 = unlimited).
	RequestsPerMinute int

	// Burst is the rate limiter burst allowance.
	Burst int
}

// Controller owns the streaming lifecycle for one session. All public
// methods are safe for concurrent use.
type Controller struct {
	client  *Client
	session *transcript.Session

	streaming bool
	limiter   *rate.Limiter
	cancelMgr *cancelManager

	// onUpdate, when set, is called after every transcript mutation so
	// the presentation layer can re-project. Called from the stream
	// goroutine.
	onUpdate func()

	mu         sync.Mutex
	state      State
	terminalAt time.Time
}

// New creates a controller for the given session.
func New(client *Client, session *transcript.Session, cfg Config) *Controller {
	var limiter *rate.Limiter
	if cfg.RequestsPerMinute > 0 {
		burst := cfg.Burst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerMinute)/60, burst)
	}

	return &Controller{
		client:    client,
		session:   session,
		streaming: cfg.Streaming,
		limiter:   limiter,
		cancelMgr: newCancelManager(),
		state:     StateIdle,
	}
}

// SetOnUpdate registers the transcript change callback.
func (c *Controller) SetOnUpdate(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onUpdate = fn
}

// State returns the current lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Busy reports whether an exchange is in flight.
func (c *Controller) Busy() bool {
	return c.State() != StateIdle
}

// SinceTerminal returns how long ago the last exchange ended. Zero
// duration when none has ended yet; the classifier treats it as inside
// the settle window either way.
func (c *Controller) SinceTerminal() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.terminalAt.IsZero() {
		return 0
	}
	return time.Since(c.terminalAt)
}

// Session returns the controller's live session. The returned pointer
// is only safe to read while no exchange is in flight; concurrent
// readers (views, pollers) must use SnapshotSession instead.
func (c *Controller) Session() *transcript.Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

// SnapshotSession returns a copy of the session that is safe to read
// while the stream goroutine is mutating the active turn. All turn
// mutations happen under the controller's lock, so snapshotting under
// the same lock yields a consistent frozen view.
func (c *Controller) SnapshotSession() *transcript.Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session.Snapshot()
}

// Reset swaps in a fresh session. Rejected while an exchange is in
// flight so the active stream can never write into the new transcript.
func (c *Controller) Reset(session *transcript.Session) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateIdle {
		return ErrBusy
	}
	c.session = session
	c.terminalAt = time.Time{}
	return nil
}

// =============================================================================
// SEND
// =============================================================================

// Send submits a user message. The user turn and a pending assistant
// turn are appended synchronously; the stream itself runs in a
// goroutine. Rejected outright when an exchange is already in flight.
func (c *Controller) Send(message string) error {
	message = util.NormalizeInput(message)
	if strings.TrimSpace(message) == "" {
		return ErrEmptyMessage
	}

	if c.limiter != nil && !c.limiter.Allow() {
		return ErrRateLimited
	}

	c.mu.Lock()
	if c.state != StateIdle {
		c.mu.Unlock()
		return ErrBusy
	}
	c.state = StateAwaitingFirstByte

	// History is captured before the new turns join the session.
	history := c.session.History()

	c.session.Append(transcript.NewUserTurn(message))
	c.session.Append(transcript.NewAssistantTurn())
	c.mu.Unlock()

	ctx, cancel := context.WithCancel(context.Background())
	c.cancelMgr.set(cancel)

	c.notify()
	go c.run(ctx, message, history)

	return nil
}

// run drives one exchange to a terminal state. Every exit path clears
// the cancel handle and returns the controller to idle.
func (c *Controller) run(ctx context.Context, message string, history []transcript.HistoryEntry) {
	defer func() {
		c.cancelMgr.clear()
		c.mu.Lock()
		c.state = StateIdle
		c.terminalAt = time.Now()
		c.mu.Unlock()
		c.notify()
	}()

	var err error
	if c.streaming {
		err = c.client.Stream(ctx, message, history, c.applyEvent)
	} else {
		err = c.runFallback(ctx, message, history)
	}

	c.finish(ctx, err)
}

// runFallback performs one non-streaming exchange and replays it as a
// content-plus-done pair so the transcript path is identical.
func (c *Controller) runFallback(ctx context.Context, message string, history []transcript.HistoryEntry) error {
	text, err := c.client.Chat(ctx, message, history)
	if err != nil {
		return err
	}
	c.applyEvent(protocol.Event{Kind: protocol.EventContent, Content: text})
	c.applyEvent(protocol.Event{Kind: protocol.EventDone})
	return nil
}

// applyEvent folds one stream event into the session.
func (c *Controller) applyEvent(ev protocol.Event) {
	c.mu.Lock()
	transcript.Apply(c.session, ev)
	if c.state == StateAwaitingFirstByte {
		c.state = StateStreaming
	}
	c.mu.Unlock()
	c.notify()
}

// finish settles the assistant turn when the stream ended without a
// terminal event of its own.
func (c *Controller) finish(ctx context.Context, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	turn := c.session.LastTurn()
	if turn == nil || turn.Status.Terminal() {
		// The stream delivered done/error, or Cancel already stopped
		// the turn. Nothing to settle.
		return
	}

	if ctx.Err() != nil {
		// Cancelled between Cancel() and the stream noticing; Cancel
		// already finalized the turn in the normal path, this covers
		// the request failing with context.Canceled first.
		transcript.Stop(c.session)
		return
	}

	if err != nil {
		log.Printf("CONTROLLER | stream failed: %v", err)
	} else {
		// EOF without a done event is a protocol violation; the turn
		// cannot be trusted as complete.
		log.Printf("CONTROLLER | stream ended without terminal event")
	}
	transcript.Fail(c.session)
}

// =============================================================================
// CANCEL
// =============================================================================

// Cancel stops the in-flight exchange. The assistant turn is finalized
// immediately with the partial text and stop annotation; anything the
// dying stream still delivers is dropped by the terminal-status guard.
// Idempotent and a no-op when nothing is streaming.
func (c *Controller) Cancel() {
	c.mu.Lock()
	if c.state == StateIdle {
		c.mu.Unlock()
		return
	}
	transcript.Stop(c.session)
	c.mu.Unlock()

	c.cancelMgr.cancel()
	log.Printf("CONTROLLER | stream cancelled by user")
	c.notify()
}

// notify invokes the update callback outside the state lock.
func (c *Controller) notify() {
	c.mu.Lock()
	fn := c.onUpdate
	c.mu.Unlock()
	if fn != nil {
		fn()
	}
}
