package memory

import (
	"context"
	"sync"

	"github.com/PabloGalante/insight-agent/internal/domain"
)

var _ domain.MessageStore = (*MessageStore)(nil)

type MessageStore struct {
	mu       sync.RWMutex
	messages map[domain.SessionID][]*domain.Message
}

func NewMessageStore() *MessageStore {
	return &MessageStore{
		messages: make(map[domain.SessionID][]*domain.Message),
	}
}

func (s *MessageStore) AppendMessage(_ context.Context, msg *domain.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m := *msg
	s.messages[msg.SessionID] = append(s.messages[msg.SessionID], &m)
	return nil
}

// GetMessagesBySession returns the last `limit` messages in insertion order.
// The slice is a fresh copy so callers can range over it as often as they like.
func (s *MessageStore) GetMessagesBySession(_ context.Context, sessionID domain.SessionID, limit int) ([]*domain.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	msgs := s.messages[sessionID]
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}

	out := make([]*domain.Message, 0, len(msgs))
	for _, m := range msgs {
		cp := *m
		out = append(out, &cp)
	}
	return out, nil
}
