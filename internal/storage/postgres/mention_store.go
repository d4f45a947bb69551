package postgres

import (
	"context"
	"fmt"
	"time"

	"agent-colony/internal/domain"
	"agent-colony/internal/observability"
	"agent-colony/internal/storage"
)

// MentionStore implements storage.MentionStore using PostgreSQL. The
// (agent_id, external_id) primary key is the exactly-once barrier.
type MentionStore struct {
	pool *Pool
}

// NewMentionStore creates a new MentionStore.
func NewMentionStore(pool *Pool) *MentionStore {
	return &MentionStore{pool: pool}
}

// Compile-time interface check.
var _ storage.MentionStore = (*MentionStore)(nil)

// MarkProcessed records a processed mention. Returns ErrDuplicateKey if
// (agent_id, external_id) was already recorded.
func (s *MentionStore) MarkProcessed(ctx context.Context, m *domain.ProcessedMention) error {
	query := `
		INSERT INTO processed_mentions (agent_id, external_id, author_handle, outcome, processed_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	start := time.Now()
	_, err := s.pool.Exec(ctx, query,
		m.AgentID, m.ExternalID, m.AuthorHandle, m.Outcome, m.ProcessedAt,
	)
	observability.RecordDBQuery("postgres", "mentions_mark", time.Since(start).Seconds(), err)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("mark mention processed: %w", err)
	}
	return nil
}

// IsProcessed reports whether (agent_id, external_id) was recorded.
func (s *MentionStore) IsProcessed(ctx context.Context, agentID, externalID string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM processed_mentions WHERE agent_id = $1 AND external_id = $2)`

	var exists bool
	start := time.Now()
	err := s.pool.QueryRow(ctx, query, agentID, externalID).Scan(&exists)
	observability.RecordDBQuery("postgres", "mentions_is_processed", time.Since(start).Seconds(), err)
	if err != nil {
		return false, fmt.Errorf("check mention processed: %w", err)
	}
	return exists, nil
}

// ListByAgent retrieves processed mentions for an agent, ordered by
// external id ascending (numeric snowflake order).
func (s *MentionStore) ListByAgent(ctx context.Context, agentID string) ([]*domain.ProcessedMention, error) {
	query := `
		SELECT agent_id, external_id, author_handle, outcome, processed_at
		FROM processed_mentions WHERE agent_id = $1
		ORDER BY length(external_id), external_id
	`

	start := time.Now()
	rows, err := s.pool.Query(ctx, query, agentID)
	observability.RecordDBQuery("postgres", "mentions_list", time.Since(start).Seconds(), err)
	if err != nil {
		return nil, fmt.Errorf("list processed mentions: %w", err)
	}
	defer rows.Close()

	var out []*domain.ProcessedMention
	for rows.Next() {
		var m domain.ProcessedMention
		if err := rows.Scan(&m.AgentID, &m.ExternalID, &m.AuthorHandle, &m.Outcome, &m.ProcessedAt); err != nil {
			return nil, fmt.Errorf("scan processed mention: %w", err)
		}
		out = append(out, &m)
	}
	return out, rows.Err()
}
