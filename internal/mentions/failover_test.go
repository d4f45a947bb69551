package mentions

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedSource is a Source with a fixed batch or error per call.
type scriptedSource struct {
	name  string
	batch Batch
	err   error
	calls int
}

func (s *scriptedSource) Name() string { return s.name }

func (s *scriptedSource) Fetch(context.Context, []AgentQuery) (Batch, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.batch, nil
}

func TestSelector_PrefersHealthyPrimary(t *testing.T) {
	ctx := context.Background()
	primary := &scriptedSource{name: "bulk", batch: Batch{"a1": nil}}
	fallback := &scriptedSource{name: "per-agent"}

	sel := NewSelector(SelectorOptions{Primary: primary, Fallback: fallback, Logger: discard()})
	_, err := sel.Fetch(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, primary.calls)
	assert.Zero(t, fallback.calls)
}

func TestSelector_ErrorFallsBackImmediately(t *testing.T) {
	ctx := context.Background()
	primary := &scriptedSource{name: "bulk", err: errors.New("search down")}
	fallback := &scriptedSource{name: "per-agent", batch: Batch{"a1": nil}}

	sel := NewSelector(SelectorOptions{Primary: primary, Fallback: fallback, Logger: discard()})
	batch, err := sel.Fetch(ctx, nil)
	require.NoError(t, err)
	assert.Contains(t, batch, "a1")
	assert.Equal(t, 1, fallback.calls)
}

func TestSelector_ThresholdOpensCooldown(t *testing.T) {
	ctx := context.Background()
	now := time.UnixMilli(1_000_000)
	primary := &scriptedSource{name: "bulk", err: errors.New("search down")}
	fallback := &scriptedSource{name: "per-agent"}

	sel := NewSelector(SelectorOptions{
		Primary:  primary,
		Fallback: fallback,
		Logger:   discard(),
		Now:      func() time.Time { return now },
	})

	for i := 0; i < DefaultFailureThreshold; i++ {
		_, err := sel.Fetch(ctx, nil)
		require.NoError(t, err)
	}
	assert.Equal(t, DefaultFailureThreshold, primary.calls)

	// Inside the cooldown window the primary is not tried at all.
	_, err := sel.Fetch(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultFailureThreshold, primary.calls)
	assert.Equal(t, DefaultFailureThreshold+1, fallback.calls)

	// After the cooldown the primary gets a clean slate.
	now = now.Add(DefaultCooldown + time.Second)
	primary.err = nil
	primary.batch = Batch{}
	_, err = sel.Fetch(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultFailureThreshold+1, primary.calls)
}

func TestSelector_SuccessResetsFailureCount(t *testing.T) {
	ctx := context.Background()
	primary := &scriptedSource{name: "bulk", err: errors.New("flaky")}
	fallback := &scriptedSource{name: "per-agent"}
	now := time.UnixMilli(1_000_000)

	sel := NewSelector(SelectorOptions{
		Primary:  primary,
		Fallback: fallback,
		Logger:   discard(),
		Now:      func() time.Time { return now },
	})

	// Two failures, then a success, then two more failures: never
	// crosses the threshold of three consecutive.
	for i := 0; i < 2; i++ {
		_, _ = sel.Fetch(ctx, nil)
	}
	primary.err = nil
	_, _ = sel.Fetch(ctx, nil)
	primary.err = errors.New("flaky")
	for i := 0; i < 2; i++ {
		_, _ = sel.Fetch(ctx, nil)
	}

	assert.Equal(t, 5, primary.calls, "primary still being tried")
}

func TestSelector_NoPrimaryGoesStraightToFallback(t *testing.T) {
	ctx := context.Background()
	fallback := &scriptedSource{name: "per-agent"}

	sel := NewSelector(SelectorOptions{Fallback: fallback, Logger: discard()})
	_, err := sel.Fetch(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, fallback.calls)
}
