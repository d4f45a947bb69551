package memory

import (
	"context"
	"errors"
	"testing"

	"agent-colony/internal/domain"
	"agent-colony/internal/storage"
)

func TestInteractionStore_InsertAndList(t *testing.T) {
	store := NewInteractionStore()
	ctx := context.Background()

	interactions := []*domain.Interaction{
		{InteractionID: "i2", ResponderID: "agent1", TargetID: "agent3", Flavor: domain.FlavorAgree, CreatedAt: 2000},
		{InteractionID: "i1", ResponderID: "agent1", TargetID: "agent2", Flavor: domain.FlavorRoast, CreatedAt: 1000},
		{InteractionID: "i3", ResponderID: "agent2", TargetID: "agent1", Flavor: domain.FlavorFlex, CreatedAt: 1500},
	}
	for _, i := range interactions {
		if err := store.Insert(ctx, i); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}

	listed, err := store.ListByResponder(ctx, "agent1")
	if err != nil {
		t.Fatalf("ListByResponder failed: %v", err)
	}
	if len(listed) != 2 {
		t.Fatalf("Expected 2 interactions, got %d", len(listed))
	}
	if listed[0].InteractionID != "i1" || listed[1].InteractionID != "i2" {
		t.Errorf("Expected created_at order i1,i2, got %s,%s", listed[0].InteractionID, listed[1].InteractionID)
	}
	if listed[0].Flavor != domain.FlavorRoast {
		t.Errorf("Expected roast flavor, got %s", listed[0].Flavor)
	}
}

func TestInteractionStore_InsertDuplicate(t *testing.T) {
	store := NewInteractionStore()
	ctx := context.Background()

	i := &domain.Interaction{InteractionID: "i1", ResponderID: "agent1", TargetID: "agent2"}
	if err := store.Insert(ctx, i); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if err := store.Insert(ctx, i); !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey, got %v", err)
	}
}

func TestInteractionStore_InvalidInput(t *testing.T) {
	store := NewInteractionStore()
	ctx := context.Background()

	if err := store.Insert(ctx, nil); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput for nil interaction, got %v", err)
	}
	if err := store.Insert(ctx, &domain.Interaction{ResponderID: "agent1"}); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput for missing id, got %v", err)
	}
}
