package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agent-colony/internal/domain"
	"agent-colony/internal/storage"
)

func TestMentionStore_MarkAndCheck(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewMentionStore(pool)
	ctx := context.Background()

	m := &domain.ProcessedMention{
		AgentID:      "agent-001",
		ExternalID:   "1900000000000000001",
		AuthorHandle: "someone",
		Outcome:      domain.MentionReplied,
		ProcessedAt:  1700000000000,
	}
	require.NoError(t, store.MarkProcessed(ctx, m))

	processed, err := store.IsProcessed(ctx, "agent-001", "1900000000000000001")
	require.NoError(t, err)
	assert.True(t, processed)

	processed, err = store.IsProcessed(ctx, "agent-001", "1900000000000000002")
	require.NoError(t, err)
	assert.False(t, processed)
}

func TestMentionStore_MarkDuplicate(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewMentionStore(pool)
	ctx := context.Background()

	m := &domain.ProcessedMention{
		AgentID:      "agent-001",
		ExternalID:   "1900000000000000001",
		AuthorHandle: "someone",
		Outcome:      domain.MentionReplied,
		ProcessedAt:  1700000000000,
	}
	require.NoError(t, store.MarkProcessed(ctx, m))

	// Redelivery of the same mention id hits the composite primary key.
	err := store.MarkProcessed(ctx, m)
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestMentionStore_SameIDDifferentAgents(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewMentionStore(pool)
	ctx := context.Background()

	for _, agentID := range []string{"agent-a", "agent-b"} {
		m := &domain.ProcessedMention{
			AgentID:      agentID,
			ExternalID:   "1900000000000000001",
			AuthorHandle: "someone",
			Outcome:      domain.MentionReplied,
			ProcessedAt:  1700000000000,
		}
		require.NoError(t, store.MarkProcessed(ctx, m))
	}
}

func TestMentionStore_ListByAgentSnowflakeOrder(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewMentionStore(pool)
	ctx := context.Background()

	// "99" is numerically smaller than "100" despite sorting after it
	// lexicographically.
	for _, id := range []string{"100", "99", "101"} {
		m := &domain.ProcessedMention{
			AgentID:     "agent-001",
			ExternalID:  id,
			Outcome:     domain.MentionSkipped,
			ProcessedAt: 1700000000000,
		}
		require.NoError(t, store.MarkProcessed(ctx, m))
	}

	listed, err := store.ListByAgent(ctx, "agent-001")
	require.NoError(t, err)

	require.Len(t, listed, 3)
	assert.Equal(t, "99", listed[0].ExternalID)
	assert.Equal(t, "100", listed[1].ExternalID)
	assert.Equal(t, "101", listed[2].ExternalID)
}
