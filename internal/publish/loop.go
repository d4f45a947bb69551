// Package publish implements the auto-publish loop: autonomous content
// generation and posting on a per-agent randomized cadence with a daily
// cap. Randomization exists to avoid synchronized, bot-like posting
// patterns across the fleet.
package publish

import (
	"context"
	"errors"
	"log"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"agent-colony/internal/credentials"
	"agent-colony/internal/domain"
	"agent-colony/internal/generation"
	"agent-colony/internal/observability"
	"agent-colony/internal/platform"
	"agent-colony/internal/storage"
)

// Publish policy defaults.
const (
	DefaultDailyCap        = 8
	DefaultMinInterval     = 90 * time.Minute
	DefaultMaxInterval     = 4 * time.Hour
	DefaultFailureCooldown = 5 * time.Minute
	DefaultHistoryLimit    = 5
)

// Loop is the auto-publish cycle. Per-agent nextPublishAt is lazily
// initialized from the last known publish time plus a random interval;
// the daily counter is keyed by agent and calendar day (UTC) and resets
// on rollover.
type Loop struct {
	agents   storage.AgentStore
	records  storage.PublishStore
	gen      generation.Client
	platform platform.Client
	tokens   *credentials.Provider

	dailyCap     int
	cooldown     time.Duration
	historyLimit int
	interval     func() time.Duration
	logger       *log.Logger
	now          func() time.Time

	mu            sync.Mutex
	nextPublishAt map[string]time.Time
	daily         map[string]int
	dailyDate     string
}

// LoopOptions contains configuration for creating a publish Loop.
type LoopOptions struct {
	Agents   storage.AgentStore
	Records  storage.PublishStore
	Gen      generation.Client
	Platform platform.Client
	Tokens   *credentials.Provider

	DailyCap        int                  // default 8
	MinInterval     time.Duration        // default 90m
	MaxInterval     time.Duration        // default 4h
	FailureCooldown time.Duration        // default 5m
	HistoryLimit    int                  // default 5
	Interval        func() time.Duration // overrides the randomized interval
	Logger          *log.Logger
	Now             func() time.Time
}

// NewLoop creates an auto-publish loop.
func NewLoop(opts LoopOptions) *Loop {
	dailyCap := opts.DailyCap
	if dailyCap == 0 {
		dailyCap = DefaultDailyCap
	}
	cooldown := opts.FailureCooldown
	if cooldown == 0 {
		cooldown = DefaultFailureCooldown
	}
	historyLimit := opts.HistoryLimit
	if historyLimit == 0 {
		historyLimit = DefaultHistoryLimit
	}
	minIv := opts.MinInterval
	if minIv == 0 {
		minIv = DefaultMinInterval
	}
	maxIv := opts.MaxInterval
	if maxIv == 0 {
		maxIv = DefaultMaxInterval
	}
	interval := opts.Interval
	if interval == nil {
		interval = func() time.Duration {
			return minIv + time.Duration(rand.Int63n(int64(maxIv-minIv)+1))
		}
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	return &Loop{
		agents:        opts.Agents,
		records:       opts.Records,
		gen:           opts.Gen,
		platform:      opts.Platform,
		tokens:        opts.Tokens,
		dailyCap:      dailyCap,
		cooldown:      cooldown,
		historyLimit:  historyLimit,
		interval:      interval,
		logger:        logger,
		now:           now,
		nextPublishAt: make(map[string]time.Time),
		daily:         make(map[string]int),
	}
}

// RunCycle publishes for every active agent that is due and under the
// daily cap. Errors are handled per-agent; the cycle itself never fails.
func (l *Loop) RunCycle(ctx context.Context) {
	active, err := l.agents.ListActive(ctx)
	if err != nil {
		l.logger.Printf("Error listing active agents: %v", err)
		return
	}

	l.rollover()

	for _, agent := range active {
		if ctx.Err() != nil {
			return
		}
		if !l.due(agent) {
			continue
		}
		if l.dailyCount(agent.AgentID) >= l.dailyCap {
			continue
		}
		l.publishAgent(ctx, agent)
	}
}

// rollover resets the daily counters when the UTC calendar day changes.
func (l *Loop) rollover() {
	l.mu.Lock()
	defer l.mu.Unlock()

	today := l.now().UTC().Format("2006-01-02")
	if l.dailyDate != today {
		l.dailyDate = today
		l.daily = make(map[string]int)
	}
}

// due reports whether the agent's nextPublishAt has elapsed, lazily
// initializing it from the last known publish time on first sight.
func (l *Loop) due(agent *domain.Agent) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	next, ok := l.nextPublishAt[agent.AgentID]
	if !ok {
		if agent.LastPublishedAt > 0 {
			next = time.UnixMilli(agent.LastPublishedAt).Add(l.interval())
		} else {
			next = l.now()
		}
		l.nextPublishAt[agent.AgentID] = next
	}
	return !l.now().Before(next)
}

func (l *Loop) dailyCount(agentID string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.daily[agentID]
}

func (l *Loop) reschedule(agentID string, d time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.nextPublishAt[agentID] = l.now().Add(d)
}

// publishAgent runs one generate-and-post attempt for the agent.
func (l *Loop) publishAgent(ctx context.Context, agent *domain.Agent) {
	history, err := l.recentTexts(ctx, agent.AgentID)
	if err != nil {
		l.logger.Printf("Error loading publish history for agent %s: %v", agent.AgentID, err)
		l.reschedule(agent.AgentID, l.cooldown)
		return
	}

	text, err := l.gen.Generate(ctx, agent.Prompt, history)
	if err != nil {
		l.logger.Printf("Error generating content for agent %s: %v", agent.AgentID, err)
		l.reschedule(agent.AgentID, l.cooldown)
		return
	}
	if text == "" {
		// No usable output; try again after the short cooldown.
		l.reschedule(agent.AgentID, l.cooldown)
		return
	}

	nowMs := l.now().UnixMilli()
	rec := &domain.PublishRecord{
		PublishID: uuid.NewString(),
		AgentID:   agent.AgentID,
		Text:      text,
		Status:    domain.PublishPending,
		CreatedAt: nowMs,
		UpdatedAt: nowMs,
	}
	if err := l.records.Insert(ctx, rec); err != nil {
		l.logger.Printf("Error inserting publish record for agent %s: %v", agent.AgentID, err)
		l.reschedule(agent.AgentID, l.cooldown)
		return
	}

	res, err := l.post(ctx, agent, text)
	nowMs = l.now().UnixMilli()
	if err != nil {
		l.logger.Printf("Error publishing for agent %s: %v", agent.AgentID, err)
		if uerr := l.records.UpdateStatus(ctx, rec.PublishID, domain.PublishFailed, "", nowMs); uerr != nil {
			l.logger.Printf("Error marking publish %s failed: %v", rec.PublishID, uerr)
		}
		observability.RecordPublish(string(domain.PublishFailed))
		// Short cooldown instead of the full random interval.
		l.reschedule(agent.AgentID, l.cooldown)
		return
	}

	if err := l.records.UpdateStatus(ctx, rec.PublishID, domain.PublishPosted, res.ExternalID, nowMs); err != nil {
		l.logger.Printf("Error marking publish %s posted: %v", rec.PublishID, err)
	}
	observability.RecordPublish(string(domain.PublishPosted))

	agent.LastPublishedAt = nowMs
	agent.UpdatedAt = nowMs
	if err := l.agents.Update(ctx, agent); err != nil {
		l.logger.Printf("Error updating last publish time for agent %s: %v", agent.AgentID, err)
	}

	l.mu.Lock()
	l.daily[agent.AgentID]++
	l.nextPublishAt[agent.AgentID] = l.now().Add(l.interval())
	l.mu.Unlock()
}

// recentTexts returns the agent's latest posted texts as
// negative-context for generation.
func (l *Loop) recentTexts(ctx context.Context, agentID string) ([]string, error) {
	recent, err := l.records.RecentPosted(ctx, agentID, l.historyLimit)
	if err != nil {
		return nil, err
	}
	texts := make([]string, len(recent))
	for i, r := range recent {
		texts[i] = r.Text
	}
	return texts, nil
}

// post publishes with the agent's token, attempting exactly one
// refresh-and-retry on an auth-expired signal.
func (l *Loop) post(ctx context.Context, agent *domain.Agent, text string) (*platform.PostResult, error) {
	token, err := l.tokens.AccessToken(ctx, agent.AgentID)
	if err != nil {
		return nil, err
	}

	res, err := l.platform.Publish(ctx, token, text)
	if errors.Is(err, platform.ErrAuthExpired) {
		token, err = l.tokens.RefreshAndStore(ctx, agent.AgentID)
		if err != nil {
			return nil, err
		}
		res, err = l.platform.Publish(ctx, token, text)
	}
	return res, err
}
