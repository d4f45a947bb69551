package colony

import (
	"context"
	"io"
	"log"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agent-colony/internal/credentials"
	"agent-colony/internal/domain"
	genstub "agent-colony/internal/generation/stub"
	platformstub "agent-colony/internal/platform/stub"
	"agent-colony/internal/storage/memory"
)

type fixture struct {
	agents       *memory.AgentStore
	interactions *memory.InteractionStore
	publishes    *memory.PublishStore
	pc           *platformstub.Client
	gen          *genstub.Client
	loop         *Loop
	now          time.Time
}

// newFixture seeds the named agents, each with credentials; agents in
// posted have one successfully posted publication ("post by <id>").
func newFixture(t *testing.T, agentIDs []string, posted []string) *fixture {
	t.Helper()
	ctx := context.Background()

	key := make([]byte, credentials.KeySize)
	for i := range key {
		key[i] = byte(i)
	}
	cipher, err := credentials.NewCipher(key)
	require.NoError(t, err)

	f := &fixture{
		agents:       memory.NewAgentStore(),
		interactions: memory.NewInteractionStore(),
		publishes:    memory.NewPublishStore(),
		pc:           &platformstub.Client{},
		gen:          &genstub.Client{},
		now:          time.UnixMilli(1_000_000),
	}

	creds := memory.NewCredentialStore()
	for _, id := range agentIDs {
		require.NoError(t, f.agents.Insert(ctx, &domain.Agent{
			AgentID: id,
			Handle:  "h_" + id,
			Prompt:  "persona " + id,
			Status:  domain.AgentActive,
		}))
		accessEnc, err := cipher.Seal("tok-" + id)
		require.NoError(t, err)
		refreshEnc, err := cipher.Seal("ref-" + id)
		require.NoError(t, err)
		require.NoError(t, creds.Upsert(ctx, &domain.CredentialRecord{
			AgentID:         id,
			AccessTokenEnc:  accessEnc,
			RefreshTokenEnc: refreshEnc,
			ExpiresAt:       f.now.UnixMilli() + 3600_000,
		}))
	}

	for _, id := range posted {
		rec := &domain.PublishRecord{
			PublishID: "pub-" + id,
			AgentID:   id,
			Text:      "post by " + id,
			Status:    domain.PublishPending,
			CreatedAt: f.now.UnixMilli(),
		}
		require.NoError(t, f.publishes.Insert(ctx, rec))
		require.NoError(t, f.publishes.UpdateStatus(ctx, rec.PublishID, domain.PublishPosted, "ext-"+id, f.now.UnixMilli()))
	}

	f.loop = NewLoop(LoopOptions{
		Agents:       f.agents,
		Interactions: f.interactions,
		Publishes:    f.publishes,
		Gen:          f.gen,
		Platform:     f.pc,
		Tokens:       credentials.NewProvider(creds, f.pc, cipher),
		Pick:         func(n int) int { return 0 },
		Logger:       log.New(io.Discard, "", 0),
		Now:          func() time.Time { return f.now },
	})
	return f
}

func TestLoop_RepliesToTargetPost(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, []string{"a1", "a2"}, []string{"a1"})

	f.loop.RunCycle(ctx)

	require.Equal(t, 1, f.pc.PostCount())
	post := f.pc.LastPost()
	assert.Equal(t, "ext-a1", post.ReplyTo, "reply targets a1's post")
	assert.Equal(t, "tok-a2", post.Token, "a2 responds; only a1 has content")

	rows, err := f.interactions.ListByResponder(ctx, "a2")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "a1", rows[0].TargetID)
	assert.Equal(t, "ext-a1", rows[0].TargetPostID)
	assert.Equal(t, domain.FlavorRoast, rows[0].Flavor, "pick(0) selects the first flavor")

	assert.Contains(t, f.gen.LastPrompt, "roast", "flavor steers the prompt")
	assert.Equal(t, "post by a1", f.gen.LastIncoming)
}

func TestLoop_NoInteractionWithoutTargetContent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, []string{"a1", "a2"}, nil)

	f.loop.RunCycle(ctx)

	assert.Zero(t, f.pc.PostCount())
	rows, err := f.interactions.ListByResponder(ctx, "a2")
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestLoop_NeedsTwoEligibleAgents(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, []string{"a1"}, []string{"a1"})

	f.loop.RunCycle(ctx)
	assert.Zero(t, f.pc.PostCount())
}

func TestLoop_HourlyQuotaPerResponder(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, []string{"a1", "a2"}, []string{"a1"})

	f.loop.RunCycle(ctx)
	require.Equal(t, 1, f.pc.PostCount())

	// a2 spent its quota; a1 has no eligible peer left.
	f.now = f.now.Add(10 * time.Minute)
	f.loop.RunCycle(ctx)
	assert.Equal(t, 1, f.pc.PostCount())

	// Quota window elapsed.
	f.now = f.now.Add(55 * time.Minute)
	f.loop.RunCycle(ctx)
	assert.Equal(t, 2, f.pc.PostCount())
}

func TestLoop_PrefersFreshPairs(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, []string{"a1", "a2", "a3"}, []string{"a1", "a2", "a3"})

	f.loop.RunCycle(ctx)
	require.Equal(t, 1, f.pc.PostCount())

	// With pick always 0 the first candidate pair repeats unless the
	// recent-pairs set filters it out.
	f.now = f.now.Add(2 * time.Hour)
	f.loop.RunCycle(ctx)
	require.Equal(t, 2, f.pc.PostCount())

	first := pairKeyOf(t, f, 0)
	second := pairKeyOf(t, f, 1)
	assert.NotEqual(t, first, second, "same pair not selected twice while fresh pairs remain")
}

func TestLoop_FallsBackToStalePairs(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, []string{"a1", "a2"}, []string{"a1", "a2"})

	f.loop.RunCycle(ctx)
	require.Equal(t, 1, f.pc.PostCount())

	// Both orientations of the only pair share one pair key, so nothing
	// is fresh; the loop still interacts.
	f.now = f.now.Add(2 * time.Hour)
	f.loop.RunCycle(ctx)
	assert.Equal(t, 2, f.pc.PostCount())
}

func TestPairKey_OrderIndependent(t *testing.T) {
	assert.Equal(t, pairKey("a", "b"), pairKey("b", "a"))
	assert.NotEqual(t, pairKey("a", "b"), pairKey("a", "c"))
}

// pairKeyOf returns the order-independent key of the nth interaction
// across all responders.
func pairKeyOf(t *testing.T, f *fixture, n int) string {
	t.Helper()
	ctx := context.Background()

	var all []*domain.Interaction
	for _, id := range []string{"a1", "a2", "a3"} {
		rows, err := f.interactions.ListByResponder(ctx, id)
		require.NoError(t, err)
		all = append(all, rows...)
	}
	require.Greater(t, len(all), n)

	// Order by creation time.
	for i := 0; i < len(all); i++ {
		for j := i + 1; j < len(all); j++ {
			if all[j].CreatedAt < all[i].CreatedAt {
				all[i], all[j] = all[j], all[i]
			}
		}
	}
	return pairKey(all[n].ResponderID, all[n].TargetID)
}
