package memory

import (
	"context"
	"errors"
	"testing"

	"agent-colony/internal/domain"
	"agent-colony/internal/storage"
)

func TestTradeStore_InsertAndGet(t *testing.T) {
	store := NewTradeStore()
	ctx := context.Background()

	trade := &domain.TradeRecord{
		TradeID:      "trade1",
		AgentID:      "agent1",
		Action:       domain.TradeBuy,
		AssetAddress: domain.AssetPlaceholder,
		Symbol:       "FOO",
		AmountSOL:    0.5,
		Status:       domain.TradePending,
		CreatedAt:    1000,
	}

	if err := store.Insert(ctx, trade); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	got, err := store.GetByID(ctx, "trade1")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.AmountSOL != 0.5 {
		t.Errorf("AmountSOL mismatch: got %f, want %f", got.AmountSOL, 0.5)
	}
	if got.Status != domain.TradePending {
		t.Errorf("Status mismatch: got %s, want %s", got.Status, domain.TradePending)
	}
}

func TestTradeStore_DuplicateKey(t *testing.T) {
	store := NewTradeStore()
	ctx := context.Background()

	trade := &domain.TradeRecord{TradeID: "trade1", AgentID: "agent1", Status: domain.TradePending}

	if err := store.Insert(ctx, trade); err != nil {
		t.Fatalf("First insert failed: %v", err)
	}

	err := store.Insert(ctx, trade)
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey, got %v", err)
	}
}

func TestTradeStore_FinalizeExactlyOnce(t *testing.T) {
	store := NewTradeStore()
	ctx := context.Background()

	trade := &domain.TradeRecord{TradeID: "trade1", AgentID: "agent1", Status: domain.TradePending}
	if err := store.Insert(ctx, trade); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	if err := store.Finalize(ctx, "trade1", domain.TradeCompleted, "tx123", "", 2000); err != nil {
		t.Fatalf("Finalize failed: %v", err)
	}

	// Second finalization must be rejected, even with a different status.
	err := store.Finalize(ctx, "trade1", domain.TradeFailed, "", "late failure", 3000)
	if !errors.Is(err, storage.ErrAlreadyFinal) {
		t.Errorf("Expected ErrAlreadyFinal, got %v", err)
	}

	got, err := store.GetByID(ctx, "trade1")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Status != domain.TradeCompleted {
		t.Errorf("Status mutated after terminal: got %s", got.Status)
	}
	if got.TxRef != "tx123" {
		t.Errorf("TxRef mismatch: got %s", got.TxRef)
	}
}

func TestTradeStore_SetAssetAddress(t *testing.T) {
	store := NewTradeStore()
	ctx := context.Background()

	trade := &domain.TradeRecord{
		TradeID:      "trade1",
		AgentID:      "agent1",
		AssetAddress: domain.AssetPlaceholder,
		Status:       domain.TradePending,
	}
	if err := store.Insert(ctx, trade); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	addr := "So11111111111111111111111111111111111111112"
	if err := store.SetAssetAddress(ctx, "trade1", addr, 1500); err != nil {
		t.Fatalf("SetAssetAddress failed: %v", err)
	}

	got, _ := store.GetByID(ctx, "trade1")
	if got.AssetAddress != addr {
		t.Errorf("AssetAddress mismatch: got %s", got.AssetAddress)
	}
	if got.UpdatedAt != 1500 {
		t.Errorf("UpdatedAt mismatch: got %d", got.UpdatedAt)
	}
}

func TestTradeStore_NotFound(t *testing.T) {
	store := NewTradeStore()
	ctx := context.Background()

	if _, err := store.GetByID(ctx, "nonexistent"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
	if err := store.Finalize(ctx, "nonexistent", domain.TradeFailed, "", "x", 1); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}
