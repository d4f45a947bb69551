package memory

import (
	"context"
	"sort"
	"sync"

	"agent-colony/internal/domain"
	"agent-colony/internal/storage"
)

// CredentialStore is an in-memory implementation of storage.CredentialStore.
type CredentialStore struct {
	mu   sync.RWMutex
	data map[string]*domain.CredentialRecord // keyed by agent_id
}

// NewCredentialStore creates a new in-memory credential store.
func NewCredentialStore() *CredentialStore {
	return &CredentialStore{
		data: make(map[string]*domain.CredentialRecord),
	}
}

// Compile-time interface check.
var _ storage.CredentialStore = (*CredentialStore)(nil)

// Upsert inserts or rewrites the credential record for an agent.
func (s *CredentialStore) Upsert(_ context.Context, c *domain.CredentialRecord) error {
	if c == nil || c.AgentID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	copy := *c
	copy.AccessTokenEnc = append([]byte(nil), c.AccessTokenEnc...)
	copy.RefreshTokenEnc = append([]byte(nil), c.RefreshTokenEnc...)
	s.data[c.AgentID] = &copy
	return nil
}

// GetByAgent retrieves credentials for an agent. Returns ErrNotFound if not exists.
func (s *CredentialStore) GetByAgent(_ context.Context, agentID string) (*domain.CredentialRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.data[agentID]
	if !ok {
		return nil, storage.ErrNotFound
	}

	copy := *c
	copy.AccessTokenEnc = append([]byte(nil), c.AccessTokenEnc...)
	copy.RefreshTokenEnc = append([]byte(nil), c.RefreshTokenEnc...)
	return &copy, nil
}

// ListExpiring retrieves all records with expires_at <= before, ordered by agent_id.
func (s *CredentialStore) ListExpiring(_ context.Context, before int64) ([]*domain.CredentialRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.CredentialRecord
	for _, c := range s.data {
		if c.ExpiresAt <= before {
			copy := *c
			copy.AccessTokenEnc = append([]byte(nil), c.AccessTokenEnc...)
			copy.RefreshTokenEnc = append([]byte(nil), c.RefreshTokenEnc...)
			result = append(result, &copy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].AgentID < result[j].AgentID
	})
	return result, nil
}
