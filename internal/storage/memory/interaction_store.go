package memory

import (
	"context"
	"sort"
	"sync"

	"agent-colony/internal/domain"
	"agent-colony/internal/storage"
)

// InteractionStore is an in-memory implementation of storage.InteractionStore.
type InteractionStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Interaction // keyed by interaction_id
}

// NewInteractionStore creates a new in-memory interaction store.
func NewInteractionStore() *InteractionStore {
	return &InteractionStore{
		data: make(map[string]*domain.Interaction),
	}
}

// Compile-time interface check.
var _ storage.InteractionStore = (*InteractionStore)(nil)

// Insert adds a new interaction. Returns ErrDuplicateKey if interaction_id exists.
func (s *InteractionStore) Insert(_ context.Context, i *domain.Interaction) error {
	if i == nil || i.InteractionID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[i.InteractionID]; exists {
		return storage.ErrDuplicateKey
	}

	copy := *i
	s.data[i.InteractionID] = &copy
	return nil
}

// ListByResponder retrieves interactions where the agent replied, ordered by created_at ASC.
func (s *InteractionStore) ListByResponder(_ context.Context, agentID string) ([]*domain.Interaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Interaction
	for _, i := range s.data {
		if i.ResponderID == agentID {
			copy := *i
			result = append(result, &copy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt != result[j].CreatedAt {
			return result[i].CreatedAt < result[j].CreatedAt
		}
		return result[i].InteractionID < result[j].InteractionID
	})
	return result, nil
}
