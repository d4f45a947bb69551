package mentions

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"agent-colony/internal/domain"
	"agent-colony/internal/platform"
	"agent-colony/internal/snowflake"
)

// Bulk search policy defaults.
const (
	DefaultQueryLimit   = 450 // max characters per search query
	DefaultMaxPages     = 5   // pagination bound per query
	DefaultFetchTimeout = 15 * time.Second
)

// BulkSource discovers mentions for the whole fleet with the
// application credential: handles are batched into "@a OR @b" queries
// under the query-length cap, each query paginates up to a fixed bound,
// and results are deduplicated by external id before regrouping per
// agent. The since watermark is the minimum cursor across agents, so an
// agent with no cursor forces an unbounded (but page-capped) fetch.
type BulkSource struct {
	client       platform.Client
	queryLimit   int
	maxPages     int
	fetchTimeout time.Duration
	logger       *log.Logger
}

// BulkSourceOptions contains configuration for creating a BulkSource.
type BulkSourceOptions struct {
	Client       platform.Client
	QueryLimit   int           // default 450
	MaxPages     int           // default 5
	FetchTimeout time.Duration // default 15s
	Logger       *log.Logger
}

// NewBulkSource creates the bulk discovery provider.
func NewBulkSource(opts BulkSourceOptions) *BulkSource {
	queryLimit := opts.QueryLimit
	if queryLimit == 0 {
		queryLimit = DefaultQueryLimit
	}
	maxPages := opts.MaxPages
	if maxPages == 0 {
		maxPages = DefaultMaxPages
	}
	fetchTimeout := opts.FetchTimeout
	if fetchTimeout == 0 {
		fetchTimeout = DefaultFetchTimeout
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	return &BulkSource{
		client:       opts.Client,
		queryLimit:   queryLimit,
		maxPages:     maxPages,
		fetchTimeout: fetchTimeout,
		logger:       logger,
	}
}

// Compile-time interface check.
var _ Source = (*BulkSource)(nil)

// Name identifies the provider in logs and metrics.
func (s *BulkSource) Name() string {
	return string(domain.MentionSourceBulk)
}

// Fetch runs the batched search and regroups hits per agent. Any
// provider error aborts the fetch so the caller can fail over.
func (s *BulkSource) Fetch(ctx context.Context, agents []AgentQuery) (Batch, error) {
	if len(agents) == 0 {
		return Batch{}, nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.fetchTimeout)
	defer cancel()

	since := sinceWatermark(agents)
	seen := make(map[string]platform.Mention)

	for _, query := range buildQueries(agents, s.queryLimit) {
		pageToken := ""
		for page := 0; page < s.maxPages; page++ {
			res, err := s.client.SearchMentions(ctx, query, since, pageToken)
			if err != nil {
				return nil, fmt.Errorf("bulk search page %d: %w", page+1, err)
			}
			for _, m := range res.Mentions {
				if _, dup := seen[m.ID]; !dup {
					seen[m.ID] = m
				}
			}
			if res.NextPageToken == "" {
				break
			}
			pageToken = res.NextPageToken
		}
	}

	return regroup(seen, agents), nil
}

// sinceWatermark returns the minimum cursor across agents. Any agent
// without a cursor collapses the watermark to "" (no lower bound).
func sinceWatermark(agents []AgentQuery) string {
	min := agents[0].Cursor
	for _, a := range agents[1:] {
		min = snowflake.Min(min, a.Cursor)
	}
	return min
}

// buildQueries packs "@handle" terms into OR queries under the length
// cap, preserving agent order.
func buildQueries(agents []AgentQuery, limit int) []string {
	var queries []string
	var b strings.Builder

	for _, a := range agents {
		term := "@" + a.Handle
		if b.Len() > 0 && b.Len()+len(" OR ")+len(term) > limit {
			queries = append(queries, b.String())
			b.Reset()
		}
		if b.Len() > 0 {
			b.WriteString(" OR ")
		}
		b.WriteString(term)
	}
	if b.Len() > 0 {
		queries = append(queries, b.String())
	}
	return queries
}

// regroup assigns each deduplicated hit to every agent it mentions,
// dropping the agent's own posts. Structured mention entities win; when
// the platform returns none, a case-insensitive substring match on the
// handle is the fallback.
func regroup(seen map[string]platform.Mention, agents []AgentQuery) Batch {
	batch := make(Batch, len(agents))
	for _, a := range agents {
		handle := domain.NormalizeHandle(a.Handle)
		var hits []platform.Mention
		for _, m := range seen {
			if domain.NormalizeHandle(m.AuthorHandle) == handle {
				continue
			}
			if mentionsHandle(m, handle) {
				hits = append(hits, m)
			}
		}
		sortMentions(hits)
		if len(hits) > 0 {
			batch[a.AgentID] = hits
		}
	}
	return batch
}

func mentionsHandle(m platform.Mention, normalizedHandle string) bool {
	if len(m.MentionedHandles) > 0 {
		for _, h := range m.MentionedHandles {
			if domain.NormalizeHandle(h) == normalizedHandle {
				return true
			}
		}
		return false
	}
	return strings.Contains(strings.ToLower(m.Text), normalizedHandle)
}

func sortMentions(ms []platform.Mention) {
	ids := make([]string, len(ms))
	byID := make(map[string]platform.Mention, len(ms))
	for i, m := range ms {
		ids[i] = m.ID
		byID[m.ID] = m
	}
	snowflake.Sort(ids)
	for i, id := range ids {
		ms[i] = byID[id]
	}
}
