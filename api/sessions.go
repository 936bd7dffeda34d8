package api

import (
	"sync"

	"siteqa/retrieval"
)

// SessionStore keeps conversations in memory, keyed by session ID.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*retrieval.Session
}

func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: make(map[string]*retrieval.Session)}
}

func (s *SessionStore) Create() *retrieval.Session {
	session := retrieval.NewSession()
	s.mu.Lock()
	s.sessions[session.ID] = session
	s.mu.Unlock()
	return session
}

func (s *SessionStore) Get(id string) (*retrieval.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[id]
	return session, ok
}

func (s *SessionStore) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[id]; !ok {
		return false
	}
	delete(s.sessions, id)
	return true
}

func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
