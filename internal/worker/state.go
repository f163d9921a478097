package worker

import (
	"sync"
	"time"
)

type JobStatus string

const (
	StatusQueued  JobStatus = "queued"
	StatusRunning JobStatus = "indexing"
	StatusIndexed JobStatus = "indexed"
	StatusFailed  JobStatus = "failed"
)

// JobState is the last known ingestion state of one document.
type JobState struct {
	DocumentID int64     `json:"document_id"`
	Status     JobStatus `json:"status"`
	Chunks     int       `json:"chunks,omitempty"`
	Error      string    `json:"error,omitempty"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type jobStates struct {
	mu     sync.RWMutex
	states map[int64]JobState
}

func newJobStates() *jobStates {
	return &jobStates{states: make(map[int64]JobState)}
}

func (s *jobStates) set(state JobState) {
	state.UpdatedAt = time.Now()
	s.mu.Lock()
	s.states[state.DocumentID] = state
	s.mu.Unlock()
}

func (s *jobStates) get(docID int64) (JobState, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.states[docID]
	return st, ok
}

func (s *jobStates) forget(docID int64) {
	s.mu.Lock()
	delete(s.states, docID)
	s.mu.Unlock()
}

func (s *jobStates) count(status JobStatus) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, st := range s.states {
		if st.Status == status {
			n++
		}
	}
	return n
}
