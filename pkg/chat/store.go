package chat

import "sync"

// Store holds the visible message list for one conversation, including
// optimistic local echoes awaiting server confirmation. Mutations are
// serialized so the streaming goroutine and the caller's render loop can
// share it.
type Store struct {
	mu       sync.RWMutex
	messages []Message
}

// NewStore creates an empty message store
func NewStore() *Store {
	return &Store{
		messages: make([]Message, 0),
	}
}

// Append adds a message to the end of the visible list
func (s *Store) Append(msg Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, msg)
}

// AppendLocal synthesizes a temporary user message, appends it, and
// returns it so the caller can roll it back by id later
func (s *Store) AppendLocal(senderID, content string) Message {
	msg := NewTemporaryUserMessage(senderID, content)
	s.Append(msg)
	return msg
}

// Rollback removes the message with the given id from the visible list.
// Returns false if no such message exists.
func (s *Store) Rollback(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, msg := range s.messages {
		if msg.ID == id {
			s.messages = append(s.messages[:i], s.messages[i+1:]...)
			return true
		}
	}
	return false
}

// ReplaceAll swaps the entire visible list for the canonical one. The
// old list, temporary echoes included, is discarded.
func (s *Store) ReplaceAll(canonical []Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = make([]Message, len(canonical))
	copy(s.messages, canonical)
}

// Messages returns a snapshot copy of the visible list
func (s *Store) Messages() []Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]Message, len(s.messages))
	copy(result, s.messages)
	return result
}

// Last returns the most recent message, if any
func (s *Store) Last() (Message, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.messages) == 0 {
		return Message{}, false
	}
	return s.messages[len(s.messages)-1], true
}

// Len returns the number of visible messages
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.messages)
}

// Clear empties the visible list
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = s.messages[:0]
}
