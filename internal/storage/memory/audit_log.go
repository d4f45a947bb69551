package memory

import (
	"context"
	"sort"
	"sync"

	"agent-colony/internal/domain"
	"agent-colony/internal/storage"
)

// AuditLog is an in-memory implementation of storage.AuditLog.
type AuditLog struct {
	mu      sync.RWMutex
	entries []*domain.AuditEntry
}

// NewAuditLog creates a new in-memory audit log.
func NewAuditLog() *AuditLog {
	return &AuditLog{}
}

// Compile-time interface check.
var _ storage.AuditLog = (*AuditLog)(nil)

// Append adds an audit entry.
func (l *AuditLog) Append(_ context.Context, e *domain.AuditEntry) error {
	if e == nil || e.EntryID == "" {
		return storage.ErrInvalidInput
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	copy := *e
	l.entries = append(l.entries, &copy)
	return nil
}

// ListByAgent retrieves entries for an agent, ordered by created_at ASC.
func (l *AuditLog) ListByAgent(_ context.Context, agentID string) ([]*domain.AuditEntry, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var result []*domain.AuditEntry
	for _, e := range l.entries {
		if e.AgentID == agentID {
			copy := *e
			result = append(result, &copy)
		}
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].CreatedAt < result[j].CreatedAt
	})
	return result, nil
}
