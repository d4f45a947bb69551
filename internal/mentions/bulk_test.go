package mentions

import (
	"context"
	"errors"
	"io"
	"log"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agent-colony/internal/platform"
	platformstub "agent-colony/internal/platform/stub"
)

func discard() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func TestBuildQueries_PacksUnderLimit(t *testing.T) {
	agents := []AgentQuery{
		{Handle: "alpha"},
		{Handle: "bravo"},
		{Handle: "charlie"},
	}

	// Everything fits in one query.
	queries := buildQueries(agents, DefaultQueryLimit)
	require.Len(t, queries, 1)
	assert.Equal(t, "@alpha OR @bravo OR @charlie", queries[0])

	// A tight limit splits, preserving order.
	queries = buildQueries(agents, 16)
	require.Len(t, queries, 2)
	assert.Equal(t, "@alpha OR @bravo", queries[0])
	assert.Equal(t, "@charlie", queries[1])
}

func TestSinceWatermark_MinimumCursorWins(t *testing.T) {
	assert.Equal(t, "100", sinceWatermark([]AgentQuery{
		{Cursor: "100"}, {Cursor: "250"}, {Cursor: "9000"},
	}))

	// A cursorless agent collapses the watermark.
	assert.Equal(t, "", sinceWatermark([]AgentQuery{
		{Cursor: "100"}, {Cursor: ""},
	}))
}

func TestBulkSource_RegroupsAndDeduplicates(t *testing.T) {
	ctx := context.Background()
	pc := &platformstub.Client{
		BulkPages: []*platform.SearchResult{
			{
				Mentions: []platform.Mention{
					{ID: "11", AuthorHandle: "fan", Text: "gm @Alpha", MentionedHandles: []string{"alpha"}},
					{ID: "12", AuthorHandle: "fan", Text: "@alpha @bravo both of you", MentionedHandles: []string{"alpha", "bravo"}},
					// Redelivered hit: must appear once.
					{ID: "11", AuthorHandle: "fan", Text: "gm @Alpha", MentionedHandles: []string{"alpha"}},
					// Self-post: dropped from alpha's batch.
					{ID: "13", AuthorHandle: "alpha", Text: "@alpha testing myself", MentionedHandles: []string{"alpha"}},
					// No structured entities: substring fallback.
					{ID: "10", AuthorHandle: "fan", Text: "yo @BRAVO nice one"},
				},
			},
		},
	}

	src := NewBulkSource(BulkSourceOptions{Client: pc, Logger: discard()})
	batch, err := src.Fetch(ctx, []AgentQuery{
		{AgentID: "a1", Handle: "alpha"},
		{AgentID: "a2", Handle: "bravo"},
	})
	require.NoError(t, err)

	require.Len(t, batch["a1"], 2)
	assert.Equal(t, "11", batch["a1"][0].ID)
	assert.Equal(t, "12", batch["a1"][1].ID)

	require.Len(t, batch["a2"], 2)
	assert.Equal(t, "10", batch["a2"][0].ID, "ascending id order")
	assert.Equal(t, "12", batch["a2"][1].ID)
}

func TestBulkSource_PaginationBounded(t *testing.T) {
	ctx := context.Background()

	// Every page claims there is another one.
	pages := make([]*platform.SearchResult, 10)
	for i := range pages {
		pages[i] = &platform.SearchResult{NextPageToken: "more"}
	}
	pc := &platformstub.Client{BulkPages: pages}

	src := NewBulkSource(BulkSourceOptions{Client: pc, MaxPages: 3, Logger: discard()})
	_, err := src.Fetch(ctx, []AgentQuery{{AgentID: "a1", Handle: "alpha"}})
	require.NoError(t, err)
	assert.Equal(t, 3, pc.BulkCalls)
}

func TestBulkSource_ErrorAbortsFetch(t *testing.T) {
	ctx := context.Background()
	pc := &platformstub.Client{BulkErr: errors.New("search down")}

	src := NewBulkSource(BulkSourceOptions{Client: pc, Logger: discard()})
	_, err := src.Fetch(ctx, []AgentQuery{{AgentID: "a1", Handle: "alpha"}})
	assert.Error(t, err)
}
