package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agent-colony/internal/domain"
	"agent-colony/internal/storage"
)

func TestCredentialStore_UpsertAndGet(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewCredentialStore(pool)
	ctx := context.Background()

	record := &domain.CredentialRecord{
		AgentID:         "agent-001",
		AccessTokenEnc:  []byte{0x01, 0x02, 0x03},
		RefreshTokenEnc: []byte{0x04, 0x05},
		ExpiresAt:       1700000100000,
		UpdatedAt:       1700000000000,
	}

	require.NoError(t, store.Upsert(ctx, record))

	retrieved, err := store.GetByAgent(ctx, "agent-001")
	require.NoError(t, err)
	assert.Equal(t, record.AccessTokenEnc, retrieved.AccessTokenEnc)
	assert.Equal(t, record.RefreshTokenEnc, retrieved.RefreshTokenEnc)
	assert.Equal(t, record.ExpiresAt, retrieved.ExpiresAt)
}

func TestCredentialStore_UpsertRewrites(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewCredentialStore(pool)
	ctx := context.Background()

	record := &domain.CredentialRecord{
		AgentID:         "agent-001",
		AccessTokenEnc:  []byte{0x01},
		RefreshTokenEnc: []byte{0x02},
		ExpiresAt:       1700000100000,
		UpdatedAt:       1700000000000,
	}
	require.NoError(t, store.Upsert(ctx, record))

	record.AccessTokenEnc = []byte{0x0a, 0x0b}
	record.ExpiresAt = 1700000200000
	record.UpdatedAt = 1700000150000
	require.NoError(t, store.Upsert(ctx, record))

	retrieved, err := store.GetByAgent(ctx, "agent-001")
	require.NoError(t, err)
	assert.Equal(t, []byte{0x0a, 0x0b}, retrieved.AccessTokenEnc)
	assert.Equal(t, int64(1700000200000), retrieved.ExpiresAt)
}

func TestCredentialStore_GetNotFound(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewCredentialStore(pool)

	_, err := store.GetByAgent(context.Background(), "nonexistent")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestCredentialStore_ListExpiring(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewCredentialStore(pool)
	ctx := context.Background()

	records := []*domain.CredentialRecord{
		{AgentID: "agent-late", AccessTokenEnc: []byte{1}, RefreshTokenEnc: []byte{1}, ExpiresAt: 5000},
		{AgentID: "agent-soon", AccessTokenEnc: []byte{1}, RefreshTokenEnc: []byte{1}, ExpiresAt: 1000},
		{AgentID: "agent-mid", AccessTokenEnc: []byte{1}, RefreshTokenEnc: []byte{1}, ExpiresAt: 2000},
	}
	for _, r := range records {
		require.NoError(t, store.Upsert(ctx, r))
	}

	// Inclusive threshold, ordered by expiry ascending.
	expiring, err := store.ListExpiring(ctx, 2000)
	require.NoError(t, err)

	require.Len(t, expiring, 2)
	assert.Equal(t, "agent-soon", expiring[0].AgentID)
	assert.Equal(t, "agent-mid", expiring[1].AgentID)
}
