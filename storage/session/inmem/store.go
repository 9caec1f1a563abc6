package inmemstore

import (
	"context"
	"sync"
	"time"

	"github.com/trezcool/academia/core/session"
)

type store struct {
	mu       sync.RWMutex
	sessions map[string]session.Session
}

var _ session.Store = (*store)(nil)

// NewStore returns a session.Store kept in memory. Expired sessions are dropped when read.
func NewStore() session.Store {
	return &store{sessions: make(map[string]session.Session)}
}

func (s *store) Save(_ context.Context, sess session.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.ID] = sess
	return nil
}

func (s *store) Get(_ context.Context, id string) (session.Session, error) {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()

	if !ok {
		return session.Session{}, session.ErrNotFound
	}
	if sess.Expired(time.Now()) {
		s.mu.Lock()
		delete(s.sessions, id)
		s.mu.Unlock()
		return session.Session{}, session.ErrNotFound
	}
	return sess, nil
}

func (s *store) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	return nil
}
