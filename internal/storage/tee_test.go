package storage

import (
	"context"
	"errors"
	"io"
	"log"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agent-colony/internal/domain"
)

type fakeAuditLog struct {
	entries []*domain.AuditEntry
	err     error
}

func (f *fakeAuditLog) Append(_ context.Context, e *domain.AuditEntry) error {
	if f.err != nil {
		return f.err
	}
	f.entries = append(f.entries, e)
	return nil
}

func (f *fakeAuditLog) ListByAgent(_ context.Context, agentID string) ([]*domain.AuditEntry, error) {
	var out []*domain.AuditEntry
	for _, e := range f.entries {
		if e.AgentID == agentID {
			out = append(out, e)
		}
	}
	return out, nil
}

func TestTeeAuditLog_MirrorsWrites(t *testing.T) {
	ctx := context.Background()
	primary := &fakeAuditLog{}
	mirror := &fakeAuditLog{}
	tee := NewTeeAuditLog(primary, mirror, log.New(io.Discard, "", 0))

	require.NoError(t, tee.Append(ctx, &domain.AuditEntry{EntryID: "e1", AgentID: "a1"}))
	assert.Len(t, primary.entries, 1)
	assert.Len(t, mirror.entries, 1)
}

func TestTeeAuditLog_MirrorFailureSwallowed(t *testing.T) {
	ctx := context.Background()
	primary := &fakeAuditLog{}
	mirror := &fakeAuditLog{err: errors.New("archive down")}
	tee := NewTeeAuditLog(primary, mirror, log.New(io.Discard, "", 0))

	require.NoError(t, tee.Append(ctx, &domain.AuditEntry{EntryID: "e1", AgentID: "a1"}))
	assert.Len(t, primary.entries, 1)
}

func TestTeeAuditLog_PrimaryFailureSurfaces(t *testing.T) {
	ctx := context.Background()
	primary := &fakeAuditLog{err: errors.New("db down")}
	tee := NewTeeAuditLog(primary, &fakeAuditLog{}, log.New(io.Discard, "", 0))

	assert.Error(t, tee.Append(ctx, &domain.AuditEntry{EntryID: "e1"}))
}
