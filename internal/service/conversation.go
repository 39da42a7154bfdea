package service

import "sync"

// Step identifies one stage of a multi-turn dialogue.
type Step string

// StepStore keeps in-progress dialogue data per user. It is process-local
// and ephemeral: a restart drops every conversation, never persisted data.
// Each user's session is only ever touched by that user's events, so the
// lock exists to isolate concurrent users from each other.
type StepStore struct {
	mu       sync.RWMutex
	sessions map[int64]*session
}

type session struct {
	step   Step
	fields map[string]string
}

// NewStepStore creates an empty conversation state store
func NewStepStore() *StepStore {
	return &StepStore{sessions: make(map[int64]*session)}
}

// Active reports whether the user has a dialogue in progress
func (s *StepStore) Active(userID int64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.sessions[userID]
	return ok
}

// Step returns the user's current step, if any
func (s *StepStore) Step(userID int64) (Step, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[userID]
	if !ok {
		return "", false
	}
	return sess.step, true
}

// SetStep moves the user to a step, starting a session when none exists
func (s *StepStore) SetStep(userID int64, step Step) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensure(userID).step = step
}

// Set stores one collected field for the user
func (s *StepStore) Set(userID int64, key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensure(userID).fields[key] = value
}

// Field returns one collected field, or the empty string
func (s *StepStore) Field(userID int64, key string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[userID]
	if !ok {
		return ""
	}
	return sess.fields[key]
}

// Fields returns a copy of everything collected so far
func (s *StepStore) Fields(userID int64) map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]string)
	if sess, ok := s.sessions[userID]; ok {
		for k, v := range sess.fields {
			out[k] = v
		}
	}
	return out
}

// Clear drops the user's session entirely
func (s *StepStore) Clear(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, userID)
}

func (s *StepStore) ensure(userID int64) *session {
	sess, ok := s.sessions[userID]
	if !ok {
		sess = &session{fields: make(map[string]string)}
		s.sessions[userID] = sess
	}
	return sess
}
