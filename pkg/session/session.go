package session

import (
	"context"
	"sync"

	"github.com/killallgit/strand/pkg/transcript"
)

// Session owns the transient state of one streaming exchange: the
// content accumulator, the tool call tracker, and the id of the
// optimistic user echo. Its accumulator and tracker are never shared
// across streams; a new exchange gets a new Session.
type Session struct {
	mu sync.Mutex

	conversationID string
	state          State
	acc            *transcript.Accumulator
	tracker        *transcript.Tracker
	tempID         string
	cancel         context.CancelFunc
	done           chan struct{}
	err            error
}

func newSession(conversationID, tempID string, cancel context.CancelFunc) *Session {
	return &Session{
		conversationID: conversationID,
		state:          StateStreaming,
		acc:            transcript.NewAccumulator(),
		tracker:        transcript.NewTracker(),
		tempID:         tempID,
		cancel:         cancel,
		done:           make(chan struct{}),
	}
}

// ConversationID returns the conversation this session belongs to
func (s *Session) ConversationID() string {
	return s.conversationID
}

// State returns the current session state
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Done is closed once the session reaches a terminal state
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Err returns the failure cause once the session is Failed
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Snapshot returns the streamed content and tool calls accumulated so
// far, for rendering mid-stream
func (s *Session) Snapshot() (string, []transcript.ToolCall) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.acc.String(), s.tracker.Calls()
}

// transition moves the session to a new state under lock
func (s *Session) transition(state State) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

// finish marks the session terminal and releases waiters
func (s *Session) finish(state State, err error) {
	s.mu.Lock()
	alreadyDone := s.state.Terminal()
	if !alreadyDone {
		s.state = state
		s.err = err
	}
	s.mu.Unlock()

	if !alreadyDone {
		close(s.done)
	}
	if s.cancel != nil {
		s.cancel()
	}
}
