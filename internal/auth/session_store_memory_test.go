package auth

import (
	"context"
	"sync"
)

// NewInMemorySessionStore returns a SessionStore backed by an in-memory map.
func NewInMemorySessionStore() *InMemorySessionStore {
	return &InMemorySessionStore{sessions: make(map[string]Session)}
}

// InMemorySessionStore implements SessionStore in memory for tests.
type InMemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[string]Session
}

// Save persists the provided session record.
func (s *InMemorySessionStore) Save(_ context.Context, session Session) error {
	s.mu.Lock()
	s.sessions[session.TokenHash] = session
	s.mu.Unlock()
	return nil
}

// Find retrieves a session by refresh token hash.
func (s *InMemorySessionStore) Find(_ context.Context, tokenHash string) (Session, error) {
	s.mu.RLock()
	session, ok := s.sessions[tokenHash]
	s.mu.RUnlock()
	if !ok {
		return Session{}, ErrSessionNotFound
	}
	return session, nil
}

// Delete removes the session associated with the refresh token hash.
func (s *InMemorySessionStore) Delete(_ context.Context, tokenHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[tokenHash]; !ok {
		return ErrSessionNotFound
	}
	delete(s.sessions, tokenHash)
	return nil
}

// Has reports whether a raw refresh token has an active session.
func (s *InMemorySessionStore) Has(refreshToken string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.sessions[HashToken(refreshToken)]
	return ok
}
