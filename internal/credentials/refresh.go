package credentials

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"agent-colony/internal/domain"
	"agent-colony/internal/observability"
	"agent-colony/internal/storage"
)

// Default refresh policy.
const (
	DefaultLookahead   = 30 * time.Minute
	DefaultMaxAttempts = 3
	DefaultRetryDelay  = 2 * time.Second
)

// Refresher keeps per-agent access tokens valid. One cycle fetches all
// credentials expiring within the lookahead window and refreshes each
// with bounded retries; exhaustion pauses the agent and appends a single
// audit entry. A failure on one agent never blocks the others.
type Refresher struct {
	agents      storage.AgentStore
	provider    *Provider
	audit       storage.AuditLog
	lookahead   time.Duration
	maxAttempts int
	retryDelay  time.Duration
	logger      *log.Logger
	now         func() time.Time
	sleep       func(ctx context.Context, d time.Duration)
}

// RefresherOptions contains configuration for creating a Refresher.
type RefresherOptions struct {
	Agents      storage.AgentStore
	Provider    *Provider
	Audit       storage.AuditLog
	Lookahead   time.Duration // default 30m
	MaxAttempts int           // default 3
	RetryDelay  time.Duration // default 2s, grows linearly per attempt
	Logger      *log.Logger
	Now         func() time.Time
}

// NewRefresher creates a credential refresher.
func NewRefresher(opts RefresherOptions) *Refresher {
	lookahead := opts.Lookahead
	if lookahead == 0 {
		lookahead = DefaultLookahead
	}
	maxAttempts := opts.MaxAttempts
	if maxAttempts == 0 {
		maxAttempts = DefaultMaxAttempts
	}
	retryDelay := opts.RetryDelay
	if retryDelay == 0 {
		retryDelay = DefaultRetryDelay
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	return &Refresher{
		agents:      opts.Agents,
		provider:    opts.Provider,
		audit:       opts.Audit,
		lookahead:   lookahead,
		maxAttempts: maxAttempts,
		retryDelay:  retryDelay,
		logger:      logger,
		now:         now,
		sleep: func(ctx context.Context, d time.Duration) {
			select {
			case <-ctx.Done():
			case <-time.After(d):
			}
		},
	}
}

// RunCycle refreshes all credentials expiring within the lookahead
// window. Errors are handled per-agent; the cycle itself never fails.
func (r *Refresher) RunCycle(ctx context.Context) {
	before := r.now().Add(r.lookahead).UnixMilli()
	expiring, err := r.provider.creds.ListExpiring(ctx, before)
	if err != nil {
		r.logger.Printf("Error listing expiring credentials: %v", err)
		return
	}

	for _, rec := range expiring {
		if ctx.Err() != nil {
			return
		}
		r.refreshAgent(ctx, rec.AgentID)
	}
}

// refreshAgent attempts one agent's refresh with bounded retries and
// increasing backoff, pausing the agent on exhaustion.
func (r *Refresher) refreshAgent(ctx context.Context, agentID string) {
	var lastErr error
	for attempt := 1; attempt <= r.maxAttempts; attempt++ {
		if attempt > 1 {
			r.sleep(ctx, time.Duration(attempt-1)*r.retryDelay)
			if ctx.Err() != nil {
				return
			}
		}

		if _, err := r.provider.RefreshAndStore(ctx, agentID); err != nil {
			lastErr = err
			observability.RecordCredentialRefresh("failure")
			r.logger.Printf("Refresh attempt %d/%d failed for agent %s: %v", attempt, r.maxAttempts, agentID, err)
			continue
		}
		observability.RecordCredentialRefresh("success")
		return
	}

	r.pauseAgent(ctx, agentID, lastErr)
}

// pauseAgent transitions the agent to paused and appends one audit
// entry describing the cause. Requires operator intervention to resume.
func (r *Refresher) pauseAgent(ctx context.Context, agentID string, cause error) {
	agent, err := r.agents.GetByID(ctx, agentID)
	if err != nil {
		r.logger.Printf("Error loading agent %s to pause: %v", agentID, err)
		return
	}

	agent.Status = domain.AgentPaused
	agent.UpdatedAt = r.now().UnixMilli()
	if err := r.agents.Update(ctx, agent); err != nil {
		r.logger.Printf("Error pausing agent %s: %v", agentID, err)
		return
	}

	detail := "credential refresh exhausted"
	if cause != nil {
		detail = "credential refresh exhausted: " + cause.Error()
	}
	entry := &domain.AuditEntry{
		EntryID:   uuid.NewString(),
		AgentID:   agentID,
		Event:     domain.AuditAgentPaused,
		Detail:    detail,
		CreatedAt: r.now().UnixMilli(),
	}
	if err := r.audit.Append(ctx, entry); err != nil {
		r.logger.Printf("Error appending audit entry for agent %s: %v", agentID, err)
	}

	observability.RecordAgentPaused()
	r.logger.Printf("Agent %s paused after %d failed refresh attempts", agentID, r.maxAttempts)
}
