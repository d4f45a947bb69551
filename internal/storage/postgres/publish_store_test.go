package postgres

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agent-colony/internal/domain"
	"agent-colony/internal/storage"
)

func TestPublishStore_InsertAndUpdateStatus(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewPublishStore(pool)
	ctx := context.Background()

	record := &domain.PublishRecord{
		PublishID: "pub-001",
		AgentID:   "agent-001",
		Text:      "gm to everyone who bought the dip",
		Status:    domain.PublishPending,
		CreatedAt: 1700000000000,
		UpdatedAt: 1700000000000,
	}
	require.NoError(t, store.Insert(ctx, record))

	require.NoError(t, store.UpdateStatus(ctx, "pub-001", domain.PublishPosted, "ext-123", 1700000001000))

	last, err := store.LastPosted(ctx, "agent-001")
	require.NoError(t, err)
	assert.Equal(t, "pub-001", last.PublishID)
	assert.Equal(t, domain.PublishPosted, last.Status)
	assert.Equal(t, "ext-123", last.ExternalID)
}

func TestPublishStore_UpdateStatusNotFound(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewPublishStore(pool)

	err := store.UpdateStatus(context.Background(), "ghost", domain.PublishFailed, "", 1700000001000)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestPublishStore_LastPostedIgnoresFailedAndPending(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewPublishStore(pool)
	ctx := context.Background()

	records := []*domain.PublishRecord{
		{PublishID: "pub-posted", AgentID: "agent-001", Text: "posted", Status: domain.PublishPending, CreatedAt: 1000, UpdatedAt: 1000},
		{PublishID: "pub-failed", AgentID: "agent-001", Text: "failed", Status: domain.PublishPending, CreatedAt: 2000, UpdatedAt: 2000},
		{PublishID: "pub-pending", AgentID: "agent-001", Text: "pending", Status: domain.PublishPending, CreatedAt: 3000, UpdatedAt: 3000},
	}
	for _, r := range records {
		require.NoError(t, store.Insert(ctx, r))
	}
	require.NoError(t, store.UpdateStatus(ctx, "pub-posted", domain.PublishPosted, "ext-1", 4000))
	require.NoError(t, store.UpdateStatus(ctx, "pub-failed", domain.PublishFailed, "", 5000))

	last, err := store.LastPosted(ctx, "agent-001")
	require.NoError(t, err)
	assert.Equal(t, "pub-posted", last.PublishID)
}

func TestPublishStore_LastPostedNotFound(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewPublishStore(pool)

	_, err := store.LastPosted(context.Background(), "agent-001")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestPublishStore_RecentPostedNewestFirst(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewPublishStore(pool)
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		id := fmt.Sprintf("pub-%d", i)
		record := &domain.PublishRecord{
			PublishID: id,
			AgentID:   "agent-001",
			Text:      fmt.Sprintf("post %d", i),
			Status:    domain.PublishPending,
			CreatedAt: int64(i * 1000),
			UpdatedAt: int64(i * 1000),
		}
		require.NoError(t, store.Insert(ctx, record))
		require.NoError(t, store.UpdateStatus(ctx, id, domain.PublishPosted, fmt.Sprintf("ext-%d", i), int64(i*1000+500)))
	}

	recent, err := store.RecentPosted(ctx, "agent-001", 3)
	require.NoError(t, err)

	require.Len(t, recent, 3)
	assert.Equal(t, "pub-5", recent[0].PublishID)
	assert.Equal(t, "pub-4", recent[1].PublishID)
	assert.Equal(t, "pub-3", recent[2].PublishID)
}
