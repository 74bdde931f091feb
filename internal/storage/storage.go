package storage

import (
	"sort"
	"sync"

	"github.com/lehigh-university-libraries/magma/internal/models"
	"github.com/lehigh-university-libraries/magma/internal/monitoring"
)

type SessionStore struct {
	sessions map[string]*models.ChatSession
	mu       sync.RWMutex
}

func New() *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*models.ChatSession),
	}
}

// Get returns a copy of the stored session
func (s *SessionStore) Get(sessionID string) (*models.ChatSession, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, exists := s.sessions[sessionID]
	if !exists {
		return nil, false
	}
	return session.Clone(), true
}

func (s *SessionStore) Set(sessionID string, session *models.ChatSession) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sessionID] = session
	monitoring.SetSessions(len(s.sessions))
}

// Update applies fn to the stored session under the write lock
func (s *SessionStore) Update(sessionID string, fn func(*models.ChatSession)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, exists := s.sessions[sessionID]
	if !exists {
		return false
	}
	fn(session)
	return true
}

// List returns copies of the sessions, oldest first
func (s *SessionStore) List() []*models.ChatSession {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*models.ChatSession, 0, len(s.sessions))
	for _, v := range s.sessions {
		result = append(result, v.Clone())
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result
}

func (s *SessionStore) Delete(sessionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, exists := s.sessions[sessionID]
	delete(s.sessions, sessionID)
	monitoring.SetSessions(len(s.sessions))
	return exists
}
