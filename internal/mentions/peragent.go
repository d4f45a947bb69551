package mentions

import (
	"context"
	"errors"
	"log"
	"math/rand"
	"sync"
	"time"

	"agent-colony/internal/credentials"
	"agent-colony/internal/domain"
	"agent-colony/internal/platform"
)

// Per-agent polling policy defaults.
const (
	DefaultMinInterval      = 5 * time.Minute
	DefaultMaxInterval      = 10 * time.Minute
	DefaultRateLimitBackoff = 15 * time.Minute
	DefaultStagger          = 1 * time.Second
)

// PerAgentSource polls each agent's own mention timeline with that
// agent's token. Each agent carries a randomized next-check time so the
// fleet's polls spread out, plus a fixed stagger between consecutive
// API calls within one fetch. A rate-limited agent is backed off for a
// longer window without affecting the others. Fetch never fails
// wholesale.
type PerAgentSource struct {
	client   platform.Client
	tokens   *credentials.Provider
	backoff  time.Duration
	stagger  time.Duration
	interval func() time.Duration
	logger   *log.Logger
	now      func() time.Time
	sleep    func(ctx context.Context, d time.Duration)

	mu           sync.Mutex
	nextCheck    map[string]time.Time
	backoffUntil map[string]time.Time
}

// PerAgentSourceOptions contains configuration for creating a
// PerAgentSource.
type PerAgentSourceOptions struct {
	Client           platform.Client
	Tokens           *credentials.Provider
	MinInterval      time.Duration        // default 5m
	MaxInterval      time.Duration        // default 10m
	RateLimitBackoff time.Duration        // default 15m
	Stagger          time.Duration        // default 1s
	Interval         func() time.Duration // overrides the randomized interval
	Logger           *log.Logger
	Now              func() time.Time
}

// NewPerAgentSource creates the per-agent discovery provider.
func NewPerAgentSource(opts PerAgentSourceOptions) *PerAgentSource {
	minIv := opts.MinInterval
	if minIv == 0 {
		minIv = DefaultMinInterval
	}
	maxIv := opts.MaxInterval
	if maxIv == 0 {
		maxIv = DefaultMaxInterval
	}
	backoff := opts.RateLimitBackoff
	if backoff == 0 {
		backoff = DefaultRateLimitBackoff
	}
	stagger := opts.Stagger
	if stagger == 0 {
		stagger = DefaultStagger
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

	return &PerAgentSource{
		client:   opts.Client,
		tokens:   opts.Tokens,
		backoff:  backoff,
		stagger:  stagger,
		interval: interval,
		logger:   logger,
		now:      now,
		sleep: func(ctx context.Context, d time.Duration) {
			select {
			case <-ctx.Done():
			case <-time.After(d):
			}
		},
		nextCheck:    make(map[string]time.Time),
		backoffUntil: make(map[string]time.Time),
	}
}

// Compile-time interface check.
var _ Source = (*PerAgentSource)(nil)

// Name identifies the provider in logs and metrics.
func (s *PerAgentSource) Name() string {
	return string(domain.MentionSourcePerAgent)
}

// Fetch polls every agent whose next-check time has arrived. Errors are
// isolated per agent; the fetch itself never fails.
func (s *PerAgentSource) Fetch(ctx context.Context, agents []AgentQuery) (Batch, error) {
	batch := make(Batch)
	called := false

	for _, a := range agents {
		if ctx.Err() != nil {
			break
		}
		if !s.due(a.AgentID) {
			continue
		}
		if called {
			s.sleep(ctx, s.stagger)
		}
		called = true

		hits, ok := s.poll(ctx, a)
		s.reschedule(a.AgentID)
		if ok && len(hits) > 0 {
			sortMentions(hits)
			batch[a.AgentID] = hits
		}
	}
	return batch, nil
}

// poll fetches one agent's mentions, attempting exactly one
// refresh-and-retry on auth expiry and backing the agent off on a rate
// limit.
func (s *PerAgentSource) poll(ctx context.Context, a AgentQuery) ([]platform.Mention, bool) {
	token, err := s.tokens.AccessToken(ctx, a.AgentID)
	if err != nil {
		s.logger.Printf("Error loading token for agent %s: %v", a.AgentID, err)
		return nil, false
	}

	hits, err := s.client.HandleMentions(ctx, token, a.Handle, a.Cursor)
	if errors.Is(err, platform.ErrAuthExpired) {
		token, err = s.tokens.RefreshAndStore(ctx, a.AgentID)
		if err == nil {
			hits, err = s.client.HandleMentions(ctx, token, a.Handle, a.Cursor)
		}
	}

	if err != nil {
		var rl *platform.RateLimitError
		if errors.As(err, &rl) {
			until := s.now().Add(s.backoffDuration(rl))
			s.mu.Lock()
			s.backoffUntil[a.AgentID] = until
			s.mu.Unlock()
			s.logger.Printf("Agent %s rate limited, backing off until %s", a.AgentID, until.Format(time.RFC3339))
			return nil, false
		}
		s.logger.Printf("Error polling mentions for agent %s: %v", a.AgentID, err)
		return nil, false
	}
	return hits, true
}

func (s *PerAgentSource) backoffDuration(rl *platform.RateLimitError) time.Duration {
	if rl.RetryAfter > s.backoff {
		return rl.RetryAfter
	}
	return s.backoff
}

// due reports whether the agent's next-check time has arrived and it is
// not rate-limit backed off.
func (s *PerAgentSource) due(agentID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if until, ok := s.backoffUntil[agentID]; ok {
		if now.Before(until) {
			return false
		}
		delete(s.backoffUntil, agentID)
	}
	return !now.Before(s.nextCheck[agentID])
}

func (s *PerAgentSource) reschedule(agentID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextCheck[agentID] = s.now().Add(s.interval())
}
