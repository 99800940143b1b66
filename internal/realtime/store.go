package realtime

import (
	"sync"
	"time"
)

// Status describes the last realtime update.
type Status struct {
	FeedTimestamp time.Time // header timestamp of the last applied feed
	AppliedAt     time.Time
	UpdateResult
	LastError string
}

// Store holds the realtime status in a thread-safe manner.
type Store struct {
	mu     sync.RWMutex
	status Status
}

// NewStore creates an empty realtime store.
func NewStore() *Store {
	return &Store{}
}

// SetApplied records a successfully applied feed and clears the last error.
func (s *Store) SetApplied(feedTimestamp time.Time, res UpdateResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = Status{
		FeedTimestamp: feedTimestamp,
		AppliedAt:     time.Now(),
		UpdateResult:  res,
	}
}

// SetError records a failed fetch. The last good update is kept.
func (s *Store) SetError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status.LastError = err.Error()
}

// Status returns a copy of the current status.
func (s *Store) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}
