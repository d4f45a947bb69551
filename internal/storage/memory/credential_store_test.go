package memory

import (
	"bytes"
	"context"
	"testing"

	"agent-colony/internal/domain"
)

func TestCredentialStore_UpsertRewrites(t *testing.T) {
	store := NewCredentialStore()
	ctx := context.Background()

	c := &domain.CredentialRecord{
		AgentID:         "agent1",
		AccessTokenEnc:  []byte{1, 2, 3},
		RefreshTokenEnc: []byte{4, 5, 6},
		ExpiresAt:       1000,
	}
	if err := store.Upsert(ctx, c); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	c.AccessTokenEnc = []byte{7, 8, 9}
	c.ExpiresAt = 2000
	if err := store.Upsert(ctx, c); err != nil {
		t.Fatalf("Second upsert failed: %v", err)
	}

	got, err := store.GetByAgent(ctx, "agent1")
	if err != nil {
		t.Fatalf("GetByAgent failed: %v", err)
	}
	if !bytes.Equal(got.AccessTokenEnc, []byte{7, 8, 9}) || got.ExpiresAt != 2000 {
		t.Errorf("Rewrite not applied: %+v", got)
	}
}

func TestCredentialStore_ListExpiring(t *testing.T) {
	store := NewCredentialStore()
	ctx := context.Background()

	rows := []*domain.CredentialRecord{
		{AgentID: "a", ExpiresAt: 500},
		{AgentID: "b", ExpiresAt: 1500},
		{AgentID: "c", ExpiresAt: 900},
	}
	for _, c := range rows {
		if err := store.Upsert(ctx, c); err != nil {
			t.Fatalf("Upsert(%s) failed: %v", c.AgentID, err)
		}
	}

	got, err := store.ListExpiring(ctx, 1000)
	if err != nil {
		t.Fatalf("ListExpiring failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Expected 2 expiring records, got %d", len(got))
	}
	if got[0].AgentID != "a" || got[1].AgentID != "c" {
		t.Errorf("Expected [a c], got [%s %s]", got[0].AgentID, got[1].AgentID)
	}
}
