package trade

import (
	"sync"
	"time"

	"agent-colony/internal/domain"
)

// DefaultTTL is how long a pending trade request stays confirmable.
const DefaultTTL = 30 * time.Minute

// PendingRequests holds the per-agent step-1 state of the two-step
// trade protocol. At most one request exists per agent; a new command
// overwrites it. Expiry is checked on lookup, not by a reaper, so a
// stale entry lingers harmlessly until the next Get.
type PendingRequests struct {
	mu   sync.Mutex
	ttl  time.Duration
	data map[string]*domain.PendingTradeRequest // keyed by agent_id
	now  func() time.Time
}

// NewPendingRequests creates the pending request map. ttl of 0 means
// DefaultTTL.
func NewPendingRequests(ttl time.Duration) *PendingRequests {
	if ttl == 0 {
		ttl = DefaultTTL
	}
	return &PendingRequests{
		ttl:  ttl,
		data: make(map[string]*domain.PendingTradeRequest),
		now:  time.Now,
	}
}

// Get returns the agent's unexpired pending request, or nil. An expired
// request is dropped on lookup.
func (p *PendingRequests) Get(agentID string) *domain.PendingTradeRequest {
	p.mu.Lock()
	defer p.mu.Unlock()

	req, ok := p.data[agentID]
	if !ok {
		return nil
	}
	if p.now().UnixMilli()-req.CreatedAt > p.ttl.Milliseconds() {
		delete(p.data, agentID)
		return nil
	}

	copy := *req
	return &copy
}

// Put registers a request, overwriting any prior one for the agent.
func (p *PendingRequests) Put(agentID string, req *domain.PendingTradeRequest) {
	p.mu.Lock()
	defer p.mu.Unlock()

	copy := *req
	p.data[agentID] = &copy
}

// Clear drops the agent's pending request, if any.
func (p *PendingRequests) Clear(agentID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.data, agentID)
}
