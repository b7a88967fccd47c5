package state

import (
	"context"
	"strings"
	"sync"
)

// MemoryStore keeps sessions in process memory. Used for local runs and
// tests. Records are cloned on the way in and out so two turns never share a
// live pointer.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*Session),
	}
}

func (m *MemoryStore) Load(ctx context.Context, customerID string) (*Session, error) {
	if strings.TrimSpace(customerID) == "" {
		return nil, ErrInvalidCustomerID
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[customerID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s.Clone(), nil
}

func (m *MemoryStore) Save(ctx context.Context, s *Session) error {
	if s == nil {
		return ErrNilSession
	}
	if strings.TrimSpace(s.CustomerID) == "" {
		return ErrInvalidCustomerID
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.sessions[s.CustomerID] = s.Clone()
	return nil
}

func (m *MemoryStore) Delete(ctx context.Context, customerID string) error {
	if strings.TrimSpace(customerID) == "" {
		return ErrInvalidCustomerID
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.sessions, customerID)
	return nil
}
