package session

import (
	"context"
	"sync"

	"github.com/harunnryd/polaris/internal/model/contract"
)

// MemoryStore is an unbounded in-process Store without expiry.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string][]contract.Message
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string][]contract.Message)}
}

func (s *MemoryStore) Get(ctx context.Context, sessionID string) ([]contract.Message, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	messages, ok := s.sessions[sessionID]
	if !ok {
		return nil, false, nil
	}
	return contract.CloneMessages(messages), true, nil
}

func (s *MemoryStore) Append(ctx context.Context, sessionID string, messages ...contract.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[sessionID] = append(s.sessions[sessionID], contract.CloneMessages(messages)...)
	return nil
}

func (s *MemoryStore) Replace(ctx context.Context, sessionID string, messages ...contract.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[sessionID] = contract.CloneMessages(messages)
	return nil
}

func (s *MemoryStore) Clear(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, sessionID)
	return nil
}

func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
