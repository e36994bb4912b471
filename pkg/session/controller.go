package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/killallgit/strand/pkg/api"
	"github.com/killallgit/strand/pkg/chat"
	"github.com/killallgit/strand/pkg/events"
	"github.com/killallgit/strand/pkg/logger"
	"github.com/killallgit/strand/pkg/transcript"
)

var (
	// ErrStreamActive is returned when a send arrives while a stream is
	// already running for the same conversation
	ErrStreamActive = errors.New("a stream is already active for this conversation")

	// ErrEmptyMessage is returned for blank input
	ErrEmptyMessage = errors.New("message content cannot be empty")

	// ErrControllerClosed is returned after Close
	ErrControllerClosed = errors.New("controller is closed")

	// ErrStreamInterrupted marks a stream that ended without a terminal event
	ErrStreamInterrupted = errors.New("stream ended without completion")
)

// UpdateHandler is invoked whenever a conversation's visible transcript
// changes (new tokens, tool transitions, canonical replacement)
type UpdateHandler func(conversationID string)

// ErrorHandler is invoked for user-visible failures (transport errors
// and mid-stream error events). Reconciliation-phase failures are
// logged, never surfaced here.
type ErrorHandler func(conversationID string, err error)

// Controller orchestrates stream sessions across conversations. Each
// conversation gets at most one active session at a time, its own
// message store, and its own transient accumulator and tracker.
type Controller struct {
	mu       sync.Mutex
	client   *api.Client
	parser   *events.Parser
	sessions map[string]*Session
	stores   map[string]*chat.Store
	rec      *reconciler
	senderID string
	onUpdate UpdateHandler
	onError  ErrorHandler
	closed   bool
	log      *logger.Logger
}

// ControllerOption configures a Controller
type ControllerOption func(*Controller)

// WithSenderID sets the sender id stamped onto optimistic user echoes
func WithSenderID(senderID string) ControllerOption {
	return func(c *Controller) {
		c.senderID = senderID
	}
}

// WithUpdateHandler registers the transcript-changed callback
func WithUpdateHandler(handler UpdateHandler) ControllerOption {
	return func(c *Controller) {
		c.onUpdate = handler
	}
}

// WithErrorHandler registers the user-visible failure callback
func WithErrorHandler(handler ErrorHandler) ControllerOption {
	return func(c *Controller) {
		c.onError = handler
	}
}

// WithReconcileTuning overrides the reconciliation delay, attempt
// count, and canonical fetch limit
func WithReconcileTuning(delay time.Duration, attempts, fetchLimit int) ControllerOption {
	return func(c *Controller) {
		c.rec.delay = delay
		c.rec.attempts = attempts
		c.rec.fetchLimit = fetchLimit
	}
}

// NewController creates a session controller backed by the given client
func NewController(client *api.Client, opts ...ControllerOption) *Controller {
	c := &Controller{
		client:   client,
		parser:   events.NewParser(),
		sessions: make(map[string]*Session),
		stores:   make(map[string]*chat.Store),
		log:      logger.WithComponent("session"),
	}
	c.rec = newReconciler(client)
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Store returns the message store for a conversation, creating it on
// first use
func (c *Controller) Store(conversationID string) *chat.Store {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.storeLocked(conversationID)
}

func (c *Controller) storeLocked(conversationID string) *chat.Store {
	store, ok := c.stores[conversationID]
	if !ok {
		store = chat.NewStore()
		c.stores[conversationID] = store
	}
	return store
}

// Active returns the running session for a conversation, if any
func (c *Controller) Active(conversationID string) (*Session, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	sess, ok := c.sessions[conversationID]
	return sess, ok
}

// Send opens a stream for one user turn. The user message is echoed
// optimistically before the stream opens and rolled back on failure.
// A second send while a stream is active for the conversation returns
// ErrStreamActive.
func (c *Controller) Send(ctx context.Context, conversationID, content string) (*Session, error) {
	if strings.TrimSpace(content) == "" {
		return nil, ErrEmptyMessage
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrControllerClosed
	}
	if _, active := c.sessions[conversationID]; active {
		c.mu.Unlock()
		return nil, ErrStreamActive
	}

	store := c.storeLocked(conversationID)
	echo := store.AppendLocal(c.senderID, content)

	streamCtx, cancel := context.WithCancel(ctx)
	sess := newSession(conversationID, echo.ID, cancel)
	c.sessions[conversationID] = sess
	c.mu.Unlock()

	c.notifyUpdate(conversationID)
	c.log.Info("Stream session starting", "conversation", conversationID)

	body, err := c.client.OpenStream(streamCtx, conversationID, content)
	if err != nil {
		// Transport error before any event: no partial content to keep
		store.Rollback(echo.ID)
		c.detach(conversationID, sess)
		sess.finish(StateFailed, err)
		c.notifyUpdate(conversationID)
		c.notifyError(conversationID, err)
		return nil, fmt.Errorf("failed to open stream: %w", err)
	}

	go c.run(streamCtx, sess, store, c.parser.Parse(streamCtx, body))

	return sess, nil
}

// run consumes the event stream for one session. Events are processed
// strictly in arrival order; the accumulator and tracker are only
// touched from this goroutine.
func (c *Controller) run(ctx context.Context, sess *Session, store *chat.Store, stream <-chan events.StreamEvent) {
	for ev := range stream {
		switch ev.Type {
		case events.EventToken:
			sess.mu.Lock()
			sess.acc.Append(ev.Content)
			sess.mu.Unlock()
			c.notifyUpdate(sess.conversationID)

		case events.EventToolStart:
			sess.mu.Lock()
			sess.tracker.OnStart(ev, sess.acc.Len())
			sess.mu.Unlock()
			c.notifyUpdate(sess.conversationID)

		case events.EventToolEnd:
			sess.mu.Lock()
			sess.tracker.OnEnd(ev)
			sess.mu.Unlock()
			c.notifyUpdate(sess.conversationID)

		case events.EventError:
			c.fail(sess, store, errors.New(ev.Message))
			return

		case events.EventDone:
			c.settle(ctx, sess, store)
			return
		}
	}

	// Channel closed without a terminal event: the transport dropped
	c.fail(sess, store, ErrStreamInterrupted)
}

// fail rolls back the optimistic echo, discards partial AI content, and
// surfaces the failure. A partially-streamed answer is never left
// visible.
func (c *Controller) fail(sess *Session, store *chat.Store, err error) {
	c.log.Error("Stream session failed", "conversation", sess.conversationID, "error", err)

	store.Rollback(sess.tempID)
	c.detach(sess.conversationID, sess)
	sess.finish(StateFailed, err)

	c.notifyUpdate(sess.conversationID)
	c.notifyError(sess.conversationID, err)
}

// settle runs the post-stream reconciliation and replaces the visible
// list with the canonical one. Reconciliation failures are recovered
// locally: the streamed content stays visible as the best available
// transcript.
func (c *Controller) settle(ctx context.Context, sess *Session, store *chat.Store) {
	sess.transition(StateReconciling)
	c.log.Info("Stream complete, reconciling", "conversation", sess.conversationID)

	content, calls := sess.Snapshot()
	sess.mu.Lock()
	positions := sess.tracker.PositionsByName()
	sess.mu.Unlock()

	err := c.rec.run(ctx, sess.conversationID, positions, store)
	if err != nil {
		// Canonical replacement did not happen; keep the streamed
		// transcript with the cursor removed
		c.log.Warn("Reconciliation fetch failed, keeping streamed transcript",
			"conversation", sess.conversationID, "error", err)
		store.Append(streamedMessage(content, calls))
	}

	c.detach(sess.conversationID, sess)
	sess.finish(StateSettled, nil)
	c.notifyUpdate(sess.conversationID)
}

// streamedMessage freezes the transient stream state into a local AI
// message for display when the canonical fetch never succeeded
func streamedMessage(content string, calls []transcript.ToolCall) chat.Message {
	usages := make([]chat.ToolUsage, 0, len(calls))
	for _, call := range calls {
		usage := chat.ToolUsage{
			ID:              call.ToolID,
			ToolName:        call.ToolName,
			Status:          call.Status,
			Input:           call.Input,
			Output:          call.Output,
			Error:           call.Error,
			ExecutionTimeMs: call.ExecutionTimeMs,
		}
		if call.InsertPosition != nil {
			pos := *call.InsertPosition
			usage.InsertPosition = &pos
		}
		usages = append(usages, usage)
	}

	msg := chat.Message{
		ID:         chat.TempIDPrefix + uuid.NewString(),
		Content:    content,
		SenderType: chat.SenderAI,
		CreatedAt:  time.Now(),
		ToolUsages: usages,
	}
	return msg
}

// Teardown cancels the active session for a conversation, if any. The
// underlying transport is aborted and pending reconcile timers die with
// the session context.
func (c *Controller) Teardown(conversationID string) {
	c.mu.Lock()
	sess, ok := c.sessions[conversationID]
	if ok {
		delete(c.sessions, conversationID)
	}
	c.mu.Unlock()

	if ok {
		c.log.Info("Tearing down session", "conversation", conversationID)
		c.Store(conversationID).Rollback(sess.tempID)
		sess.finish(StateFailed, context.Canceled)
	}
}

// Close tears down every active session. Subsequent sends fail with
// ErrControllerClosed.
func (c *Controller) Close() {
	c.mu.Lock()
	c.closed = true
	sessions := make([]*Session, 0, len(c.sessions))
	for id, sess := range c.sessions {
		sessions = append(sessions, sess)
		delete(c.sessions, id)
	}
	c.mu.Unlock()

	for _, sess := range sessions {
		sess.finish(StateFailed, ErrControllerClosed)
	}
}

// detach removes a session from the registry if it is still the
// registered one
func (c *Controller) detach(conversationID string, sess *Session) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if current, ok := c.sessions[conversationID]; ok && current == sess {
		delete(c.sessions, conversationID)
	}
}

func (c *Controller) notifyUpdate(conversationID string) {
	if c.onUpdate != nil {
		c.onUpdate(conversationID)
	}
}

func (c *Controller) notifyError(conversationID string, err error) {
	if c.onError != nil {
		c.onError(conversationID, err)
	}
}
