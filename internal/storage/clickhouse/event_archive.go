package clickhouse

import (
	"context"
	"fmt"
	"time"

	"agent-colony/internal/domain"
	"agent-colony/internal/observability"
	"agent-colony/internal/storage"
)

// EventArchive implements storage.AuditLog against the audit_events
// MergeTree table. Intended as a mirror target behind a tee, not as the
// primary audit store.
type EventArchive struct {
	conn *Conn
}

// NewEventArchive creates a new EventArchive.
func NewEventArchive(conn *Conn) *EventArchive {
	return &EventArchive{conn: conn}
}

// Compile-time interface check.
var _ storage.AuditLog = (*EventArchive)(nil)

// Append adds an audit event to the archive.
func (a *EventArchive) Append(ctx context.Context, e *domain.AuditEntry) error {
	query := `INSERT INTO audit_events (entry_id, agent_id, event, detail, created_at) VALUES (?, ?, ?, ?, ?)`

	start := time.Now()
	err := a.conn.Exec(ctx, query, e.EntryID, e.AgentID, e.Event, e.Detail, e.CreatedAt)
	observability.RecordDBQuery("clickhouse", "audit_append", time.Since(start).Seconds(), err)
	if err != nil {
		return fmt.Errorf("archive audit event: %w", err)
	}
	return nil
}

// ListByAgent retrieves archived events for an agent, ordered by
// created_at ASC.
func (a *EventArchive) ListByAgent(ctx context.Context, agentID string) ([]*domain.AuditEntry, error) {
	query := `
		SELECT entry_id, agent_id, event, detail, created_at
		FROM audit_events WHERE agent_id = ?
		ORDER BY created_at, entry_id
	`

	start := time.Now()
	rows, err := a.conn.Query(ctx, query, agentID)
	observability.RecordDBQuery("clickhouse", "audit_list", time.Since(start).Seconds(), err)
	if err != nil {
		return nil, fmt.Errorf("list archived audit events: %w", err)
	}
	defer rows.Close()

	var out []*domain.AuditEntry
	for rows.Next() {
		var e domain.AuditEntry
		if err := rows.Scan(&e.EntryID, &e.AgentID, &e.Event, &e.Detail, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan archived audit event: %w", err)
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}
