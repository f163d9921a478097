package query

import (
	"strings"
	"sync"
)

// Session is the draft/in-flight pair of the question box.
// States: idle (inFlight=false) and in flight; there is no terminal state.
type Session struct {
	mu       sync.Mutex
	draft    string
	inFlight bool
}

func NewSession() *Session {
	return &Session{}
}

func (s *Session) Draft() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draft
}

// SetDraft replaces the draft verbatim.
func (s *Session) SetDraft(text string) {
	s.mu.Lock()
	s.draft = text
	s.mu.Unlock()
}

func (s *Session) InFlight() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inFlight
}

// tryBegin takes the single submission slot. It fails when a question is
// already in flight or text is blank; on success the draft is cleared.
func (s *Session) tryBegin(text string) bool {
	if strings.TrimSpace(text) == "" {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inFlight {
		return false
	}
	s.inFlight = true
	s.draft = ""
	return true
}

func (s *Session) settle() {
	s.mu.Lock()
	s.inFlight = false
	s.mu.Unlock()
}
