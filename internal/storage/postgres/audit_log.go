package postgres

import (
	"context"
	"fmt"
	"time"

	"agent-colony/internal/domain"
	"agent-colony/internal/observability"
	"agent-colony/internal/storage"
)

// AuditLog implements storage.AuditLog using PostgreSQL. Append-only.
type AuditLog struct {
	pool *Pool
}

// NewAuditLog creates a new AuditLog.
func NewAuditLog(pool *Pool) *AuditLog {
	return &AuditLog{pool: pool}
}

// Compile-time interface check.
var _ storage.AuditLog = (*AuditLog)(nil)

// Append adds an audit entry.
func (s *AuditLog) Append(ctx context.Context, e *domain.AuditEntry) error {
	query := `
		INSERT INTO audit_log (entry_id, agent_id, event, detail, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	start := time.Now()
	_, err := s.pool.Exec(ctx, query, e.EntryID, e.AgentID, e.Event, e.Detail, e.CreatedAt)
	observability.RecordDBQuery("postgres", "audit_append", time.Since(start).Seconds(), err)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("append audit entry: %w", err)
	}
	return nil
}

// ListByAgent retrieves entries for an agent, ordered by created_at ASC.
func (s *AuditLog) ListByAgent(ctx context.Context, agentID string) ([]*domain.AuditEntry, error) {
	query := `
		SELECT entry_id, agent_id, event, detail, created_at
		FROM audit_log WHERE agent_id = $1
		ORDER BY created_at, entry_id
	`

	start := time.Now()
	rows, err := s.pool.Query(ctx, query, agentID)
	observability.RecordDBQuery("postgres", "audit_list", time.Since(start).Seconds(), err)
	if err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	defer rows.Close()

	var out []*domain.AuditEntry
	for rows.Next() {
		var e domain.AuditEntry
		if err := rows.Scan(&e.EntryID, &e.AgentID, &e.Event, &e.Detail, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}
