package memory

import (
	"context"
	"sort"
	"sync"

	"agent-colony/internal/domain"
	"agent-colony/internal/storage"
)

// MentionStore is an in-memory implementation of storage.MentionStore.
type MentionStore struct {
	mu   sync.RWMutex
	data map[string]map[string]*domain.ProcessedMention // agent_id → external_id → row
}

// NewMentionStore creates a new in-memory processed-mention registry.
func NewMentionStore() *MentionStore {
	return &MentionStore{
		data: make(map[string]map[string]*domain.ProcessedMention),
	}
}

// Compile-time interface check.
var _ storage.MentionStore = (*MentionStore)(nil)

// MarkProcessed records a processed mention. Returns ErrDuplicateKey if
// (agent_id, external_id) was already recorded.
func (s *MentionStore) MarkProcessed(_ context.Context, m *domain.ProcessedMention) error {
	if m == nil || m.AgentID == "" || m.ExternalID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	byAgent, ok := s.data[m.AgentID]
	if !ok {
		byAgent = make(map[string]*domain.ProcessedMention)
		s.data[m.AgentID] = byAgent
	}

	if _, exists := byAgent[m.ExternalID]; exists {
		return storage.ErrDuplicateKey
	}

	copy := *m
	byAgent[m.ExternalID] = &copy
	return nil
}

// IsProcessed reports whether (agent_id, external_id) was recorded.
func (s *MentionStore) IsProcessed(_ context.Context, agentID, externalID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byAgent, ok := s.data[agentID]
	if !ok {
		return false, nil
	}
	_, exists := byAgent[externalID]
	return exists, nil
}

// ListByAgent retrieves processed mentions for an agent, ordered by
// external id ascending.
func (s *MentionStore) ListByAgent(_ context.Context, agentID string) ([]*domain.ProcessedMention, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.ProcessedMention
	for _, m := range s.data[agentID] {
		copy := *m
		result = append(result, &copy)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].ExternalID < result[j].ExternalID
	})
	return result, nil
}
