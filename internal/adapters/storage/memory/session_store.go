package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/PabloGalante/insight-agent/internal/domain"
)

var _ domain.SessionStore = (*SessionStore)(nil)

// SessionStore keeps sessions in a map. Sessions are copied on the way in and
// on the way out so callers never share a *domain.Session with the store.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[domain.SessionID]*domain.Session
}

func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[domain.SessionID]*domain.Session),
	}
}

func cloneSession(s *domain.Session) *domain.Session {
	cp := *s
	cp.View = s.View.Clone()
	return &cp
}

func (s *SessionStore) CreateSession(_ context.Context, session *domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.sessions[session.ID]; exists {
		return domain.ErrSessionExists
	}

	s.sessions[session.ID] = cloneSession(session)
	return nil
}

func (s *SessionStore) UpdateSession(_ context.Context, session *domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.sessions[session.ID]; !exists {
		return domain.ErrSessionNotFound
	}

	s.sessions[session.ID] = cloneSession(session)
	return nil
}

func (s *SessionStore) GetSession(_ context.Context, id domain.SessionID) (*domain.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}

	return cloneSession(sess), nil
}

// ListSessionsByUser returns the user's sessions, newest first.
func (s *SessionStore) ListSessionsByUser(_ context.Context, userID domain.UserID, limit int) ([]*domain.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Session
	for _, sess := range s.sessions {
		if sess.UserID == userID {
			result = append(result, cloneSession(sess))
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}

	return result, nil
}
