package postgres

import (
	"context"
	"fmt"
	"time"

	"agent-colony/internal/domain"
	"agent-colony/internal/observability"
	"agent-colony/internal/storage"
)

// CredentialStore implements storage.CredentialStore using PostgreSQL.
// Only encrypted blobs cross this boundary.
type CredentialStore struct {
	pool *Pool
}

// NewCredentialStore creates a new CredentialStore.
func NewCredentialStore(pool *Pool) *CredentialStore {
	return &CredentialStore{pool: pool}
}

// Compile-time interface check.
var _ storage.CredentialStore = (*CredentialStore)(nil)

// Upsert inserts or rewrites the credential record for an agent.
func (s *CredentialStore) Upsert(ctx context.Context, c *domain.CredentialRecord) error {
	query := `
		INSERT INTO credentials (agent_id, access_token_enc, refresh_token_enc, expires_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (agent_id) DO UPDATE SET
			access_token_enc = EXCLUDED.access_token_enc,
			refresh_token_enc = EXCLUDED.refresh_token_enc,
			expires_at = EXCLUDED.expires_at,
			updated_at = EXCLUDED.updated_at
	`

	start := time.Now()
	_, err := s.pool.Exec(ctx, query,
		c.AgentID, c.AccessTokenEnc, c.RefreshTokenEnc, c.ExpiresAt, c.UpdatedAt,
	)
	observability.RecordDBQuery("postgres", "credentials_upsert", time.Since(start).Seconds(), err)
	if err != nil {
		return fmt.Errorf("upsert credentials: %w", err)
	}
	return nil
}

// GetByAgent retrieves credentials for an agent. Returns ErrNotFound if not exists.
func (s *CredentialStore) GetByAgent(ctx context.Context, agentID string) (*domain.CredentialRecord, error) {
	query := `
		SELECT agent_id, access_token_enc, refresh_token_enc, expires_at, updated_at
		FROM credentials WHERE agent_id = $1
	`

	var c domain.CredentialRecord
	start := time.Now()
	err := s.pool.QueryRow(ctx, query, agentID).Scan(
		&c.AgentID, &c.AccessTokenEnc, &c.RefreshTokenEnc, &c.ExpiresAt, &c.UpdatedAt,
	)
	observability.RecordDBQuery("postgres", "credentials_get", time.Since(start).Seconds(), err)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get credentials: %w", err)
	}
	return &c, nil
}

// ListExpiring retrieves all records with expires_at <= before (ms),
// ordered by expiry ascending.
func (s *CredentialStore) ListExpiring(ctx context.Context, before int64) ([]*domain.CredentialRecord, error) {
	query := `
		SELECT agent_id, access_token_enc, refresh_token_enc, expires_at, updated_at
		FROM credentials WHERE expires_at <= $1
		ORDER BY expires_at, agent_id
	`

	start := time.Now()
	rows, err := s.pool.Query(ctx, query, before)
	observability.RecordDBQuery("postgres", "credentials_list_expiring", time.Since(start).Seconds(), err)
	if err != nil {
		return nil, fmt.Errorf("list expiring credentials: %w", err)
	}
	defer rows.Close()

	var records []*domain.CredentialRecord
	for rows.Next() {
		var c domain.CredentialRecord
		if err := rows.Scan(&c.AgentID, &c.AccessTokenEnc, &c.RefreshTokenEnc, &c.ExpiresAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan credentials: %w", err)
		}
		records = append(records, &c)
	}
	return records, rows.Err()
}
