package memory

import (
	"context"
	"sort"
	"sync"

	"agent-colony/internal/domain"
	"agent-colony/internal/storage"
)

// AgentStore is an in-memory implementation of storage.AgentStore.
type AgentStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Agent // keyed by agent_id
}

// NewAgentStore creates a new in-memory agent store.
func NewAgentStore() *AgentStore {
	return &AgentStore{
		data: make(map[string]*domain.Agent),
	}
}

// Compile-time interface check.
var _ storage.AgentStore = (*AgentStore)(nil)

// Insert adds a new agent. Returns ErrDuplicateKey if agent_id exists.
func (s *AgentStore) Insert(_ context.Context, a *domain.Agent) error {
	if a == nil || a.AgentID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[a.AgentID]; exists {
		return storage.ErrDuplicateKey
	}

	copy := *a
	s.data[a.AgentID] = &copy
	return nil
}

// GetByID retrieves an agent by its ID. Returns ErrNotFound if not exists.
func (s *AgentStore) GetByID(_ context.Context, agentID string) (*domain.Agent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.data[agentID]
	if !ok {
		return nil, storage.ErrNotFound
	}

	copy := *a
	return &copy, nil
}

// ListActive retrieves all agents with status active, ordered by agent_id.
func (s *AgentStore) ListActive(_ context.Context) ([]*domain.Agent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Agent
	for _, a := range s.data {
		if a.Status == domain.AgentActive {
			copy := *a
			result = append(result, &copy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].AgentID < result[j].AgentID
	})
	return result, nil
}

// Update rewrites an existing agent row. Returns ErrNotFound if not exists.
func (s *AgentStore) Update(_ context.Context, a *domain.Agent) error {
	if a == nil || a.AgentID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[a.AgentID]; !exists {
		return storage.ErrNotFound
	}

	copy := *a
	s.data[a.AgentID] = &copy
	return nil
}
