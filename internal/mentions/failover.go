package mentions

import (
	"context"
	"log"
	"sync"
	"time"

	"agent-colony/internal/observability"
)

// Failover policy defaults.
const (
	DefaultFailureThreshold = 3
	DefaultCooldown         = 5 * time.Minute
)

// Selector wraps a primary provider with health-based failover to a
// fallback. Any primary error fails the current fetch over immediately;
// consecutive failures crossing the threshold open a cooldown window
// during which the primary is not tried at all. One primary success
// resets the counter. With no primary configured, every fetch goes to
// the fallback.
type Selector struct {
	primary   Source // nil when bulk search is not configured
	fallback  Source
	threshold int
	cooldown  time.Duration
	logger    *log.Logger
	now       func() time.Time

	mu            sync.Mutex
	failures      int
	cooldownUntil time.Time
}

// SelectorOptions contains configuration for creating a Selector.
type SelectorOptions struct {
	Primary   Source // optional
	Fallback  Source
	Threshold int           // default 3
	Cooldown  time.Duration // default 5m
	Logger    *log.Logger
	Now       func() time.Time
}

// NewSelector creates a failover selector.
func NewSelector(opts SelectorOptions) *Selector {
	threshold := opts.Threshold
	if threshold == 0 {
		threshold = DefaultFailureThreshold
	}
	cooldown := opts.Cooldown
	if cooldown == 0 {
		cooldown = DefaultCooldown
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	return &Selector{
		primary:   opts.Primary,
		fallback:  opts.Fallback,
		threshold: threshold,
		cooldown:  cooldown,
		logger:    logger,
		now:       now,
	}
}

// Compile-time interface check.
var _ Source = (*Selector)(nil)

// Name identifies the provider in logs and metrics.
func (s *Selector) Name() string {
	return "failover"
}

// Fetch tries the primary when it is healthy and falls back otherwise.
func (s *Selector) Fetch(ctx context.Context, agents []AgentQuery) (Batch, error) {
	if s.primary == nil || s.coolingDown() {
		return s.fallback.Fetch(ctx, agents)
	}

	batch, err := s.primary.Fetch(ctx, agents)
	if err == nil {
		s.mu.Lock()
		s.failures = 0
		s.mu.Unlock()
		return batch, nil
	}

	s.recordFailure(err)
	return s.fallback.Fetch(ctx, agents)
}

func (s *Selector) coolingDown() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cooldownUntil.IsZero() {
		return false
	}
	if s.now().Before(s.cooldownUntil) {
		return true
	}
	// Cooldown over; give the primary a clean slate.
	s.cooldownUntil = time.Time{}
	s.failures = 0
	return false
}

func (s *Selector) recordFailure(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.failures++
	observability.RecordSourceFailure(s.primary.Name())
	s.logger.Printf("Primary mention source %s failed (%d/%d): %v", s.primary.Name(), s.failures, s.threshold, err)
	if s.failures >= s.threshold {
		s.cooldownUntil = s.now().Add(s.cooldown)
		observability.RecordFailoverActivation()
		s.logger.Printf("Primary mention source %s cooling down until %s", s.primary.Name(), s.cooldownUntil.Format(time.RFC3339))
	}
}
