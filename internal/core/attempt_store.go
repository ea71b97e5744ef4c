package core

import "sync"

// AttemptStore keeps the single in-progress level attempt per user.
// Attempts are session-local and never persisted; starting a new one
// replaces whatever was in flight.
type AttemptStore struct {
	mu     sync.Mutex
	byUser map[string]*Attempt
	byID   map[string]*Attempt
}

// NewAttemptStore creates an empty AttemptStore.
func NewAttemptStore() *AttemptStore {
	return &AttemptStore{
		byUser: make(map[string]*Attempt),
		byID:   make(map[string]*Attempt),
	}
}

// Put registers attempt as the user's current attempt, discarding any
// previous one.
func (s *AttemptStore) Put(attempt *Attempt) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if old, ok := s.byUser[attempt.UID]; ok {
		delete(s.byID, old.ID)
	}
	s.byUser[attempt.UID] = attempt
	s.byID[attempt.ID] = attempt
}

// Get returns the attempt with the given id, provided it belongs to
// uid; ownership is checked so one user can never drive another's
// attempt.
func (s *AttemptStore) Get(uid, attemptID string) (*Attempt, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	attempt, ok := s.byID[attemptID]
	if !ok || attempt.UID != uid {
		return nil, false
	}
	return attempt, true
}

// Remove drops the attempt with the given id.
func (s *AttemptStore) Remove(attemptID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if attempt, ok := s.byID[attemptID]; ok {
		delete(s.byUser, attempt.UID)
		delete(s.byID, attemptID)
	}
}

// RemoveForUser drops whatever attempt uid has in flight, if any.
func (s *AttemptStore) RemoveForUser(uid string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if attempt, ok := s.byUser[uid]; ok {
		delete(s.byID, attempt.ID)
		delete(s.byUser, uid)
	}
}
