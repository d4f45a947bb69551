package memory

import (
	"context"
	"errors"
	"testing"

	"agent-colony/internal/domain"
	"agent-colony/internal/storage"
)

func TestMentionStore_MarkAndCheck(t *testing.T) {
	store := NewMentionStore()
	ctx := context.Background()

	m := &domain.ProcessedMention{
		AgentID:      "agent1",
		ExternalID:   "100",
		AuthorHandle: "alice",
		Outcome:      domain.MentionReplied,
		ProcessedAt:  1000,
	}

	if err := store.MarkProcessed(ctx, m); err != nil {
		t.Fatalf("MarkProcessed failed: %v", err)
	}

	seen, err := store.IsProcessed(ctx, "agent1", "100")
	if err != nil {
		t.Fatalf("IsProcessed failed: %v", err)
	}
	if !seen {
		t.Error("Expected mention to be recorded")
	}

	// Same external id for a different agent is independent.
	seen, _ = store.IsProcessed(ctx, "agent2", "100")
	if seen {
		t.Error("Dedupe must be per agent")
	}
}

func TestMentionStore_Redelivery(t *testing.T) {
	store := NewMentionStore()
	ctx := context.Background()

	m := &domain.ProcessedMention{AgentID: "agent1", ExternalID: "100", Outcome: domain.MentionCommand}
	if err := store.MarkProcessed(ctx, m); err != nil {
		t.Fatalf("MarkProcessed failed: %v", err)
	}

	err := store.MarkProcessed(ctx, m)
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey on redelivery, got %v", err)
	}
}

func TestMentionStore_ListOrdered(t *testing.T) {
	store := NewMentionStore()
	ctx := context.Background()

	for _, id := range []string{"300", "100", "200"} {
		m := &domain.ProcessedMention{AgentID: "agent1", ExternalID: id, Outcome: domain.MentionSkipped}
		if err := store.MarkProcessed(ctx, m); err != nil {
			t.Fatalf("MarkProcessed(%s) failed: %v", id, err)
		}
	}

	got, err := store.ListByAgent(ctx, "agent1")
	if err != nil {
		t.Fatalf("ListByAgent failed: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("Expected 3 rows, got %d", len(got))
	}
	for i, want := range []string{"100", "200", "300"} {
		if got[i].ExternalID != want {
			t.Errorf("Row %d: got %s, want %s", i, got[i].ExternalID, want)
		}
	}
}
