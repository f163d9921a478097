// Package transcript holds the ordered conversation log shown to the user.
package transcript

import (
	"sync"
	"time"

	"docchat/internal/models"
)

// Store owns the append-only message sequence.
type Store struct {
	mu       sync.RWMutex
	messages []models.Message
	changes  chan struct{}
}

func NewStore() *Store {
	return &Store{changes: make(chan struct{}, 1)}
}

// Append adds msg at the end of the log and notifies observers.
// Messages without a known role or content are dropped.
func (s *Store) Append(msg models.Message) bool {
	if !msg.Valid() {
		return false
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}
	s.mu.Lock()
	s.messages = append(s.messages, msg)
	s.mu.Unlock()
	s.notify()
	return true
}

// Snapshot returns a copy of the log in order.
func (s *Store) Snapshot() []models.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Message, len(s.messages))
	copy(out, s.messages)
	return out
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.messages)
}

// Last returns the newest message, if any.
func (s *Store) Last() (models.Message, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.messages) == 0 {
		return models.Message{}, false
	}
	return s.messages[len(s.messages)-1], true
}

// Changes signals after appends. Signals coalesce: a pending one is never doubled.
func (s *Store) Changes() <-chan struct{} {
	return s.changes
}

func (s *Store) notify() {
	select {
	case s.changes <- struct{}{}:
	default:
	}
}
