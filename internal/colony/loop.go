// Package colony implements the colony interaction loop: pairing active
// agents so one replies to another's recent content, manufacturing
// cross-agent social activity.
package colony

import (
	"context"
	"errors"
	"fmt"
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

// Interaction policy defaults.
const (
	DefaultQuotaWindow    = time.Hour
	DefaultRecentPairsCap = 64
)

// Loop is the colony interaction cycle. Pair freshness is tracked in a
// bounded recent-pairs set that is cleared when it outgrows its cap;
// each responding agent is limited to one interaction per rolling quota
// window.
type Loop struct {
	agents       storage.AgentStore
	interactions storage.InteractionStore
	publishes    storage.PublishStore
	gen          generation.Client
	platform     platform.Client
	tokens       *credentials.Provider

	quotaWindow time.Duration
	recentCap   int
	pick        func(n int) int // random index source
	logger      *log.Logger
	now         func() time.Time

	mu          sync.Mutex
	recentPairs map[string]bool
	lastReplied map[string]time.Time // responder -> last interaction time
}

// LoopOptions contains configuration for creating a colony Loop.
type LoopOptions struct {
	Agents       storage.AgentStore
	Interactions storage.InteractionStore
	Publishes    storage.PublishStore
	Gen          generation.Client
	Platform     platform.Client
	Tokens       *credentials.Provider

	QuotaWindow    time.Duration   // default 1h
	RecentPairsCap int             // default 64
	Pick           func(n int) int // overrides the random index source
	Logger         *log.Logger
	Now            func() time.Time
}

// NewLoop creates a colony interaction loop.
func NewLoop(opts LoopOptions) *Loop {
	quotaWindow := opts.QuotaWindow
	if quotaWindow == 0 {
		quotaWindow = DefaultQuotaWindow
	}
	recentCap := opts.RecentPairsCap
	if recentCap == 0 {
		recentCap = DefaultRecentPairsCap
	}
	pick := opts.Pick
	if pick == nil {
		pick = rand.Intn
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
		agents:       opts.Agents,
		interactions: opts.Interactions,
		publishes:    opts.Publishes,
		gen:          opts.Gen,
		platform:     opts.Platform,
		tokens:       opts.Tokens,
		quotaWindow:  quotaWindow,
		recentCap:    recentCap,
		pick:         pick,
		logger:       logger,
		now:          now,
		recentPairs:  make(map[string]bool),
		lastReplied:  make(map[string]time.Time),
	}
}

// RunCycle attempts one colony interaction. It needs at least two
// eligible agents and a target with successfully published content;
// otherwise it is a no-op.
func (l *Loop) RunCycle(ctx context.Context) {
	active, err := l.agents.ListActive(ctx)
	if err != nil {
		l.logger.Printf("Error listing active agents: %v", err)
		return
	}

	eligible := l.underQuota(active)
	if len(eligible) < 2 {
		return
	}

	responder, target, post := l.selectPair(ctx, eligible)
	if responder == nil {
		return
	}

	flavor := domain.ReplyFlavors[l.pick(len(domain.ReplyFlavors))]
	prompt := fmt.Sprintf("%s\n\nReply in a %s tone.", responder.Prompt, flavor)
	text, err := l.gen.GenerateReply(ctx, prompt, post.Text, target.Handle)
	if err != nil {
		l.logger.Printf("Error generating colony reply for agent %s: %v", responder.AgentID, err)
		return
	}
	if text == "" {
		return
	}

	res, err := l.reply(ctx, responder, text, post.ExternalID)
	if err != nil {
		l.logger.Printf("Error posting colony reply for agent %s: %v", responder.AgentID, err)
		return
	}

	nowTime := l.now()
	record := &domain.Interaction{
		InteractionID: uuid.NewString(),
		ResponderID:   responder.AgentID,
		TargetID:      target.AgentID,
		TargetPostID:  post.ExternalID,
		ReplyID:       res.ExternalID,
		Flavor:        flavor,
		CreatedAt:     nowTime.UnixMilli(),
	}
	if err := l.interactions.Insert(ctx, record); err != nil {
		l.logger.Printf("Error recording interaction %s: %v", record.InteractionID, err)
	}

	l.mu.Lock()
	l.markPair(responder.AgentID, target.AgentID)
	l.lastReplied[responder.AgentID] = nowTime
	l.mu.Unlock()

	observability.RecordInteraction(string(flavor))
	l.logger.Printf("Colony interaction: %s %s-replied to %s", responder.Handle, flavor, target.Handle)
}

// underQuota filters agents that have not interacted within the quota
// window.
func (l *Loop) underQuota(agents []*domain.Agent) []*domain.Agent {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.now().Add(-l.quotaWindow)
	var out []*domain.Agent
	for _, a := range agents {
		if last, ok := l.lastReplied[a.AgentID]; ok && last.After(cutoff) {
			continue
		}
		out = append(out, a)
	}
	return out
}

// selectPair picks a responder/target pair, preferring pairs whose key
// is not in the recent set, and requiring the target to have posted
// content. Returns nils when no usable pair exists.
func (l *Loop) selectPair(ctx context.Context, eligible []*domain.Agent) (*domain.Agent, *domain.Agent, *domain.PublishRecord) {
	type candidate struct {
		responder, target *domain.Agent
		post              *domain.PublishRecord
	}
	var fresh, stale []candidate

	for _, target := range eligible {
		post, err := l.publishes.LastPosted(ctx, target.AgentID)
		if errors.Is(err, storage.ErrNotFound) {
			continue
		}
		if err != nil {
			l.logger.Printf("Error loading last post for agent %s: %v", target.AgentID, err)
			continue
		}
		for _, responder := range eligible {
			if responder.AgentID == target.AgentID {
				continue
			}
			c := candidate{responder: responder, target: target, post: post}
			if l.pairUsed(responder.AgentID, target.AgentID) {
				stale = append(stale, c)
			} else {
				fresh = append(fresh, c)
			}
		}
	}

	pool := fresh
	if len(pool) == 0 {
		pool = stale
	}
	if len(pool) == 0 {
		return nil, nil, nil
	}
	c := pool[l.pick(len(pool))]
	return c.responder, c.target, c.post
}

func (l *Loop) pairUsed(a, b string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.recentPairs[pairKey(a, b)]
}

// markPair records the pair as recently used, clearing the set once it
// outgrows the cap. Caller holds the mutex.
func (l *Loop) markPair(a, b string) {
	if len(l.recentPairs) >= l.recentCap {
		l.recentPairs = make(map[string]bool)
	}
	l.recentPairs[pairKey(a, b)] = true
}

// pairKey is order-independent.
func pairKey(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return a + "|" + b
}

// reply posts with the responder's token, attempting exactly one
// refresh-and-retry on an auth-expired signal.
func (l *Loop) reply(ctx context.Context, agent *domain.Agent, text, targetID string) (*platform.PostResult, error) {
	token, err := l.tokens.AccessToken(ctx, agent.AgentID)
	if err != nil {
		return nil, err
	}

	res, err := l.platform.Reply(ctx, token, text, targetID)
	if errors.Is(err, platform.ErrAuthExpired) {
		token, err = l.tokens.RefreshAndStore(ctx, agent.AgentID)
		if err != nil {
			return nil, err
		}
		res, err = l.platform.Reply(ctx, token, text, targetID)
	}
	return res, err
}
