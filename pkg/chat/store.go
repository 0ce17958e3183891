package chat

import "sync"

// Store is the append-only transcript of one session. It is mutated only by
// the session controller (inbound dispatch and the outbound composer); the
// mutex is required because transport callbacks arrive on their own
// goroutine.
type Store struct {
	mu       sync.Mutex
	messages []Message
}

func NewStore() *Store {
	return &Store{}
}

// Append adds a message to the end of the transcript.
func (s *Store) Append(msg Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, msg)
}

// Messages returns a snapshot of the transcript in append order.
func (s *Store) Messages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// Len returns the number of messages in the transcript.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.messages)
}

// Clear empties the transcript. Only called when a session reconnects from
// scratch with a new identity.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = nil
}
