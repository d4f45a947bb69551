// Package mentions implements mention discovery: two interchangeable
// providers (application-wide bulk search and per-agent timeline polls),
// health-based failover between them, and the discovery loop that feeds
// discovered mentions to the trade processor.
package mentions

import (
	"context"

	"agent-colony/internal/platform"
)

// AgentQuery is the per-agent input to a discovery fetch: who to look
// for and where their cursor stands.
type AgentQuery struct {
	AgentID string
	Handle  string
	Cursor  string // highest processed external id, "" if none
}

// Batch maps agent id to that agent's newly discovered mentions, sorted
// ascending by external id.
type Batch map[string][]platform.Mention

// Source is a mention discovery provider. A provider-level error aborts
// the whole fetch (the bulk provider); per-agent failures are isolated
// internally and never surface as a fetch error (the per-agent
// provider).
type Source interface {
	Name() string
	Fetch(ctx context.Context, agents []AgentQuery) (Batch, error)
}
