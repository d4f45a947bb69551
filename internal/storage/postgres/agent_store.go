package postgres

import (
	"context"
	"fmt"
	"time"

	"agent-colony/internal/domain"
	"agent-colony/internal/observability"
	"agent-colony/internal/storage"
)

// AgentStore implements storage.AgentStore using PostgreSQL.
type AgentStore struct {
	pool *Pool
}

// NewAgentStore creates a new AgentStore.
func NewAgentStore(pool *Pool) *AgentStore {
	return &AgentStore{pool: pool}
}

// Compile-time interface check.
var _ storage.AgentStore = (*AgentStore)(nil)

const agentColumns = `
	agent_id, handle, controller_handle, prompt, wallet_handle,
	status, last_published_at, mention_cursor, created_at, updated_at
`

// Insert adds a new agent. Returns ErrDuplicateKey if agent_id exists.
func (s *AgentStore) Insert(ctx context.Context, a *domain.Agent) error {
	query := `
		INSERT INTO agents (` + agentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	start := time.Now()
	_, err := s.pool.Exec(ctx, query,
		a.AgentID, a.Handle, a.ControllerHandle, a.Prompt, a.WalletHandle,
		a.Status, a.LastPublishedAt, a.MentionCursor, a.CreatedAt, a.UpdatedAt,
	)
	observability.RecordDBQuery("postgres", "agents_insert", time.Since(start).Seconds(), err)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert agent: %w", err)
	}
	return nil
}

// GetByID retrieves an agent by its ID. Returns ErrNotFound if not exists.
func (s *AgentStore) GetByID(ctx context.Context, agentID string) (*domain.Agent, error) {
	query := `SELECT ` + agentColumns + ` FROM agents WHERE agent_id = $1`

	var a domain.Agent
	start := time.Now()
	err := s.pool.QueryRow(ctx, query, agentID).Scan(
		&a.AgentID, &a.Handle, &a.ControllerHandle, &a.Prompt, &a.WalletHandle,
		&a.Status, &a.LastPublishedAt, &a.MentionCursor, &a.CreatedAt, &a.UpdatedAt,
	)
	observability.RecordDBQuery("postgres", "agents_get", time.Since(start).Seconds(), err)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get agent: %w", err)
	}
	return &a, nil
}

// ListActive retrieves all agents with status active, ordered by agent_id.
func (s *AgentStore) ListActive(ctx context.Context) ([]*domain.Agent, error) {
	query := `SELECT ` + agentColumns + ` FROM agents WHERE status = $1 ORDER BY agent_id`

	start := time.Now()
	rows, err := s.pool.Query(ctx, query, domain.AgentActive)
	observability.RecordDBQuery("postgres", "agents_list_active", time.Since(start).Seconds(), err)
	if err != nil {
		return nil, fmt.Errorf("list active agents: %w", err)
	}
	defer rows.Close()

	var agents []*domain.Agent
	for rows.Next() {
		var a domain.Agent
		if err := rows.Scan(
			&a.AgentID, &a.Handle, &a.ControllerHandle, &a.Prompt, &a.WalletHandle,
			&a.Status, &a.LastPublishedAt, &a.MentionCursor, &a.CreatedAt, &a.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan agent: %w", err)
		}
		agents = append(agents, &a)
	}
	return agents, rows.Err()
}

// Update rewrites an existing agent row. Returns ErrNotFound if not exists.
func (s *AgentStore) Update(ctx context.Context, a *domain.Agent) error {
	query := `
		UPDATE agents SET
			handle = $2, controller_handle = $3, prompt = $4, wallet_handle = $5,
			status = $6, last_published_at = $7, mention_cursor = $8, updated_at = $9
		WHERE agent_id = $1
	`

	start := time.Now()
	tag, err := s.pool.Exec(ctx, query,
		a.AgentID, a.Handle, a.ControllerHandle, a.Prompt, a.WalletHandle,
		a.Status, a.LastPublishedAt, a.MentionCursor, a.UpdatedAt,
	)
	observability.RecordDBQuery("postgres", "agents_update", time.Since(start).Seconds(), err)
	if err != nil {
		return fmt.Errorf("update agent: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}
