package postgres

import (
	"context"
	"fmt"
	"time"

	"agent-colony/internal/domain"
	"agent-colony/internal/observability"
	"agent-colony/internal/storage"
)

// PublishStore implements storage.PublishStore using PostgreSQL.
type PublishStore struct {
	pool *Pool
}

// NewPublishStore creates a new PublishStore.
func NewPublishStore(pool *Pool) *PublishStore {
	return &PublishStore{pool: pool}
}

// Compile-time interface check.
var _ storage.PublishStore = (*PublishStore)(nil)

const publishColumns = `publish_id, agent_id, text, status, external_id, created_at, updated_at`

// Insert adds a new publish record. Returns ErrDuplicateKey if publish_id exists.
func (s *PublishStore) Insert(ctx context.Context, p *domain.PublishRecord) error {
	query := `
		INSERT INTO publish_records (` + publishColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	start := time.Now()
	_, err := s.pool.Exec(ctx, query,
		p.PublishID, p.AgentID, p.Text, p.Status, p.ExternalID, p.CreatedAt, p.UpdatedAt,
	)
	observability.RecordDBQuery("postgres", "publish_insert", time.Since(start).Seconds(), err)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert publish record: %w", err)
	}
	return nil
}

// UpdateStatus moves a record to posted or failed.
func (s *PublishStore) UpdateStatus(ctx context.Context, publishID string, status domain.PublishStatus, externalID string, now int64) error {
	query := `UPDATE publish_records SET status = $2, external_id = $3, updated_at = $4 WHERE publish_id = $1`

	start := time.Now()
	tag, err := s.pool.Exec(ctx, query, publishID, status, externalID, now)
	observability.RecordDBQuery("postgres", "publish_update_status", time.Since(start).Seconds(), err)
	if err != nil {
		return fmt.Errorf("update publish status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// LastPosted retrieves the most recently posted record for an agent.
func (s *PublishStore) LastPosted(ctx context.Context, agentID string) (*domain.PublishRecord, error) {
	query := `
		SELECT ` + publishColumns + ` FROM publish_records
		WHERE agent_id = $1 AND status = $2
		ORDER BY updated_at DESC, publish_id DESC
		LIMIT 1
	`

	var p domain.PublishRecord
	start := time.Now()
	err := s.pool.QueryRow(ctx, query, agentID, domain.PublishPosted).Scan(
		&p.PublishID, &p.AgentID, &p.Text, &p.Status, &p.ExternalID, &p.CreatedAt, &p.UpdatedAt,
	)
	observability.RecordDBQuery("postgres", "publish_last_posted", time.Since(start).Seconds(), err)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get last posted: %w", err)
	}
	return &p, nil
}

// RecentPosted retrieves up to limit posted records for an agent,
// newest first.
func (s *PublishStore) RecentPosted(ctx context.Context, agentID string, limit int) ([]*domain.PublishRecord, error) {
	query := `
		SELECT ` + publishColumns + ` FROM publish_records
		WHERE agent_id = $1 AND status = $2
		ORDER BY updated_at DESC, publish_id DESC
		LIMIT $3
	`

	start := time.Now()
	rows, err := s.pool.Query(ctx, query, agentID, domain.PublishPosted, limit)
	observability.RecordDBQuery("postgres", "publish_recent_posted", time.Since(start).Seconds(), err)
	if err != nil {
		return nil, fmt.Errorf("list recent posted: %w", err)
	}
	defer rows.Close()

	var out []*domain.PublishRecord
	for rows.Next() {
		var p domain.PublishRecord
		if err := rows.Scan(&p.PublishID, &p.AgentID, &p.Text, &p.Status, &p.ExternalID, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan publish record: %w", err)
		}
		out = append(out, &p)
	}
	return out, rows.Err()
}
