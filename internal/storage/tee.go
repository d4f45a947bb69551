package storage

import (
	"context"
	"log"

	"agent-colony/internal/domain"
)

// TeeAuditLog writes every entry to a primary log and mirrors it to a
// secondary one (e.g. the ClickHouse archive). Mirror failures are
// logged, never surfaced: the primary write is the source of truth.
// Reads go to the primary only.
type TeeAuditLog struct {
	primary AuditLog
	mirror  AuditLog
	logger  *log.Logger
}

// NewTeeAuditLog creates a teeing audit log.
func NewTeeAuditLog(primary, mirror AuditLog, logger *log.Logger) *TeeAuditLog {
	if logger == nil {
		logger = log.Default()
	}
	return &TeeAuditLog{primary: primary, mirror: mirror, logger: logger}
}

// Compile-time interface check.
var _ AuditLog = (*TeeAuditLog)(nil)

// Append writes to the primary and best-effort mirrors.
func (t *TeeAuditLog) Append(ctx context.Context, e *domain.AuditEntry) error {
	if err := t.primary.Append(ctx, e); err != nil {
		return err
	}
	if t.mirror != nil {
		if err := t.mirror.Append(ctx, e); err != nil {
			t.logger.Printf("Error mirroring audit entry %s: %v", e.EntryID, err)
		}
	}
	return nil
}

// ListByAgent reads from the primary.
func (t *TeeAuditLog) ListByAgent(ctx context.Context, agentID string) ([]*domain.AuditEntry, error) {
	return t.primary.ListByAgent(ctx, agentID)
}
