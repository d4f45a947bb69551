package memory

import (
	"context"
	"sort"
	"sync"

	"agent-colony/internal/domain"
	"agent-colony/internal/storage"
)

// PublishStore is an in-memory implementation of storage.PublishStore.
type PublishStore struct {
	mu   sync.RWMutex
	data map[string]*domain.PublishRecord // keyed by publish_id
	seq  int64                            // insertion order tiebreak
	ord  map[string]int64
}

// NewPublishStore creates a new in-memory publish store.
func NewPublishStore() *PublishStore {
	return &PublishStore{
		data: make(map[string]*domain.PublishRecord),
		ord:  make(map[string]int64),
	}
}

// Compile-time interface check.
var _ storage.PublishStore = (*PublishStore)(nil)

// Insert adds a new publish record. Returns ErrDuplicateKey if publish_id exists.
func (s *PublishStore) Insert(_ context.Context, p *domain.PublishRecord) error {
	if p == nil || p.PublishID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[p.PublishID]; exists {
		return storage.ErrDuplicateKey
	}

	copy := *p
	s.seq++
	s.data[p.PublishID] = &copy
	s.ord[p.PublishID] = s.seq
	return nil
}

// UpdateStatus moves a record to posted or failed.
func (s *PublishStore) UpdateStatus(_ context.Context, publishID string, status domain.PublishStatus, externalID string, now int64) error {
	if publishID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.data[publishID]
	if !ok {
		return storage.ErrNotFound
	}

	p.Status = status
	if externalID != "" {
		p.ExternalID = externalID
	}
	p.UpdatedAt = now
	return nil
}

// LastPosted retrieves the most recently posted record for an agent.
func (s *PublishStore) LastPosted(_ context.Context, agentID string) (*domain.PublishRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var best *domain.PublishRecord
	var bestOrd int64
	for id, p := range s.data {
		if p.AgentID != agentID || p.Status != domain.PublishPosted {
			continue
		}
		if best == nil || s.ord[id] > bestOrd {
			best = p
			bestOrd = s.ord[id]
		}
	}
	if best == nil {
		return nil, storage.ErrNotFound
	}

	copy := *best
	return &copy, nil
}

// RecentPosted retrieves up to limit posted records for an agent, newest first.
func (s *PublishStore) RecentPosted(_ context.Context, agentID string, limit int) ([]*domain.PublishRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	type row struct {
		p   *domain.PublishRecord
		ord int64
	}
	var rows []row
	for id, p := range s.data {
		if p.AgentID == agentID && p.Status == domain.PublishPosted {
			rows = append(rows, row{p: p, ord: s.ord[id]})
		}
	}

	sort.Slice(rows, func(i, j int) bool {
		return rows[i].ord > rows[j].ord
	})

	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}

	result := make([]*domain.PublishRecord, 0, len(rows))
	for _, r := range rows {
		copy := *r.p
		result = append(result, &copy)
	}
	return result, nil
}
