package memory

import (
	"context"
	"sort"
	"sync"

	"agent-colony/internal/domain"
	"agent-colony/internal/storage"
)

// TradeStore is an in-memory implementation of storage.TradeStore.
type TradeStore struct {
	mu   sync.RWMutex
	data map[string]*domain.TradeRecord // keyed by trade_id
}

// NewTradeStore creates a new in-memory trade store.
func NewTradeStore() *TradeStore {
	return &TradeStore{
		data: make(map[string]*domain.TradeRecord),
	}
}

// Compile-time interface check.
var _ storage.TradeStore = (*TradeStore)(nil)

// Insert adds a new trade record. Returns ErrDuplicateKey if trade_id exists.
func (s *TradeStore) Insert(_ context.Context, t *domain.TradeRecord) error {
	if t == nil || t.TradeID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[t.TradeID]; exists {
		return storage.ErrDuplicateKey
	}

	copy := *t
	s.data[t.TradeID] = &copy
	return nil
}

// GetByID retrieves a trade by its ID. Returns ErrNotFound if not exists.
func (s *TradeStore) GetByID(_ context.Context, tradeID string) (*domain.TradeRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.data[tradeID]
	if !ok {
		return nil, storage.ErrNotFound
	}

	copy := *t
	return &copy, nil
}

// SetAssetAddress resolves the placeholder asset reference.
func (s *TradeStore) SetAssetAddress(_ context.Context, tradeID, address string, now int64) error {
	if tradeID == "" || address == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.data[tradeID]
	if !ok {
		return storage.ErrNotFound
	}

	t.AssetAddress = address
	t.UpdatedAt = now
	return nil
}

// Finalize moves a pending trade to a terminal status. Returns
// ErrAlreadyFinal if the trade is already terminal.
func (s *TradeStore) Finalize(_ context.Context, tradeID string, status domain.TradeStatus, txRef, failReason string, now int64) error {
	if tradeID == "" || (status != domain.TradeCompleted && status != domain.TradeFailed) {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.data[tradeID]
	if !ok {
		return storage.ErrNotFound
	}
	if t.Status != domain.TradePending {
		return storage.ErrAlreadyFinal
	}

	t.Status = status
	t.TxRef = txRef
	t.FailReason = failReason
	t.UpdatedAt = now
	return nil
}

// ListByAgent retrieves all trades for an agent, ordered by created_at ASC.
func (s *TradeStore) ListByAgent(_ context.Context, agentID string) ([]*domain.TradeRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.TradeRecord
	for _, t := range s.data {
		if t.AgentID == agentID {
			copy := *t
			result = append(result, &copy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt != result[j].CreatedAt {
			return result[i].CreatedAt < result[j].CreatedAt
		}
		return result[i].TradeID < result[j].TradeID
	})
	return result, nil
}
