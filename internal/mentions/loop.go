package mentions

import (
	"context"
	"errors"
	"log"
	"time"

	"agent-colony/internal/domain"
	"agent-colony/internal/observability"
	"agent-colony/internal/platform"
	"agent-colony/internal/snowflake"
	"agent-colony/internal/storage"
)

// Processor consumes one discovered mention. An empty outcome with a
// nil error means the mention was deferred for a later cycle.
type Processor interface {
	Process(ctx context.Context, agent *domain.Agent, m platform.Mention, allowReply bool) (domain.MentionOutcome, error)
}

// Loop is the mention discovery cycle: fetch a batch from the selected
// source, then walk each agent's mentions in ascending id order through
// the processor, enforcing the dedupe registry, the single
// conversational reply per cycle, and monotonic cursor advance.
type Loop struct {
	agents    storage.AgentStore
	registry  storage.MentionStore
	source    Source
	processor Processor
	logger    *log.Logger
	now       func() time.Time
}

// LoopOptions contains configuration for creating a discovery Loop.
type LoopOptions struct {
	Agents    storage.AgentStore
	Registry  storage.MentionStore
	Source    Source
	Processor Processor
	Logger    *log.Logger
	Now       func() time.Time
}

// NewLoop creates a discovery loop.
func NewLoop(opts LoopOptions) *Loop {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	return &Loop{
		agents:    opts.Agents,
		registry:  opts.Registry,
		source:    opts.Source,
		processor: opts.Processor,
		logger:    logger,
		now:       now,
	}
}

// RunCycle performs one discovery pass over all active agents. Errors
// are handled per-agent; the cycle itself never fails.
func (l *Loop) RunCycle(ctx context.Context) {
	active, err := l.agents.ListActive(ctx)
	if err != nil {
		l.logger.Printf("Error listing active agents: %v", err)
		return
	}
	if len(active) == 0 {
		return
	}

	queries := make([]AgentQuery, len(active))
	for i, a := range active {
		queries[i] = AgentQuery{AgentID: a.AgentID, Handle: a.Handle, Cursor: a.MentionCursor}
	}

	batch, err := l.source.Fetch(ctx, queries)
	if err != nil {
		l.logger.Printf("Mention fetch failed: %v", err)
		return
	}
	discovered := 0
	for _, ms := range batch {
		discovered += len(ms)
	}
	observability.RecordMentionsDiscovered(l.source.Name(), discovered)

	for _, agent := range active {
		if ctx.Err() != nil {
			return
		}
		l.processAgent(ctx, agent, batch[agent.AgentID])
	}
}

// processAgent walks one agent's mentions oldest-first. Processing
// stops at the first failure or deferral so the cursor never advances
// past an unhandled mention.
func (l *Loop) processAgent(ctx context.Context, agent *domain.Agent, ms []platform.Mention) {
	maxSeen := agent.MentionCursor
	replied := false

	for _, m := range ms {
		if ctx.Err() != nil {
			break
		}
		// Only ids strictly beyond the cursor are new.
		if !snowflake.Less(agent.MentionCursor, m.ID) {
			continue
		}

		if domain.NormalizeHandle(m.AuthorHandle) == domain.NormalizeHandle(agent.Handle) {
			l.markSelf(ctx, agent.AgentID, m)
			maxSeen = snowflake.Max(maxSeen, m.ID)
			continue
		}

		seen, err := l.registry.IsProcessed(ctx, agent.AgentID, m.ID)
		if err != nil {
			l.logger.Printf("Error checking mention %s for agent %s: %v", m.ID, agent.AgentID, err)
			break
		}
		if seen {
			maxSeen = snowflake.Max(maxSeen, m.ID)
			continue
		}

		outcome, err := l.processor.Process(ctx, agent, m, !replied)
		if err != nil {
			l.logger.Printf("Error processing mention %s for agent %s: %v", m.ID, agent.AgentID, err)
			break
		}
		if outcome == "" {
			// Deferred; retry from here next cycle.
			break
		}
		observability.RecordMentionProcessed(string(outcome))
		if outcome == domain.MentionReplied {
			replied = true
		}
		maxSeen = snowflake.Max(maxSeen, m.ID)
	}

	if maxSeen != agent.MentionCursor {
		agent.MentionCursor = maxSeen
		agent.UpdatedAt = l.now().UnixMilli()
		if err := l.agents.Update(ctx, agent); err != nil {
			l.logger.Printf("Error advancing cursor for agent %s: %v", agent.AgentID, err)
		}
	}
}

// markSelf records a filtered self-mention so it is never refetched.
func (l *Loop) markSelf(ctx context.Context, agentID string, m platform.Mention) {
	err := l.registry.MarkProcessed(ctx, &domain.ProcessedMention{
		AgentID:      agentID,
		ExternalID:   m.ID,
		AuthorHandle: m.AuthorHandle,
		Outcome:      domain.MentionSelf,
		ProcessedAt:  l.now().UnixMilli(),
	})
	if err != nil && !errors.Is(err, storage.ErrDuplicateKey) {
		l.logger.Printf("Error recording self-mention %s for agent %s: %v", m.ID, agentID, err)
	}
}
