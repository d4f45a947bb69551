// Package engine schedules the orchestration loops. Each loop runs on
// its own ticker in its own goroutine; a panicking cycle is recovered
// and logged so no failure is process-fatal. The trade processor has no
// ticker of its own: it runs inside the mention discovery cycle.
package engine

import (
	"context"
	"log"
	"sync"
	"time"

	"agent-colony/internal/observability"
)

// Tick defaults per loop.
const (
	DefaultRefreshInterval   = 10 * time.Minute
	DefaultPublishInterval   = time.Minute
	DefaultDiscoveryInterval = time.Minute
	DefaultColonyInterval    = 5 * time.Minute
)

// Cycler is one schedulable loop. RunCycle handles its own errors and
// never returns them; the engine only provides timing and recovery.
type Cycler interface {
	RunCycle(ctx context.Context)
}

type loop struct {
	name     string
	interval time.Duration
	cycler   Cycler
}

// Engine owns the loop goroutines. Start and Stop are idempotent; Stop
// waits for in-flight cycles to finish.
type Engine struct {
	loops  []loop
	logger *log.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
}

// Options contains configuration for creating an Engine. A nil loop is
// skipped (e.g. no colony loop in a single-agent deployment).
type Options struct {
	Refresher Cycler
	Publish   Cycler
	Discovery Cycler
	Colony    Cycler

	RefreshInterval   time.Duration // default 10m
	PublishInterval   time.Duration // default 1m
	DiscoveryInterval time.Duration // default 1m
	ColonyInterval    time.Duration // default 5m
	Logger            *log.Logger
}

// New creates an engine from the configured loops.
func New(opts Options) *Engine {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	e := &Engine{logger: logger}
	e.add("refresh", opts.Refresher, opts.RefreshInterval, DefaultRefreshInterval)
	e.add("publish", opts.Publish, opts.PublishInterval, DefaultPublishInterval)
	e.add("discovery", opts.Discovery, opts.DiscoveryInterval, DefaultDiscoveryInterval)
	e.add("colony", opts.Colony, opts.ColonyInterval, DefaultColonyInterval)
	return e
}

func (e *Engine) add(name string, c Cycler, interval, fallback time.Duration) {
	if c == nil {
		return
	}
	if interval == 0 {
		interval = fallback
	}
	e.loops = append(e.loops, loop{name: name, interval: interval, cycler: c})
}

// Start launches all loop goroutines. Calling Start on a running engine
// is a no-op.
func (e *Engine) Start() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.running {
		return
	}
	e.running = true

	ctx, cancel := context.WithCancel(context.Background())
	e.cancel = cancel

	for _, l := range e.loops {
		e.wg.Add(1)
		go e.run(ctx, l)
	}
	e.logger.Printf("Engine started with %d loops", len(e.loops))
}

// Stop cancels future ticks and waits for in-flight cycles. Calling
// Stop on a stopped engine is a no-op.
func (e *Engine) Stop() {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return
	}
	e.running = false
	e.cancel()
	e.mu.Unlock()

	e.wg.Wait()
	e.logger.Println("Engine stopped")
}

// run drives one loop: an immediate first cycle, then the ticker.
func (e *Engine) run(ctx context.Context, l loop) {
	defer e.wg.Done()

	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	e.runSafe(ctx, l)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.runSafe(ctx, l)
		}
	}
}

// runSafe executes one cycle, recovering panics.
func (e *Engine) runSafe(ctx context.Context, l loop) {
	defer func() {
		if r := recover(); r != nil {
			observability.RecordCyclePanic(l.name)
			e.logger.Printf("Recovered panic in %s loop: %v", l.name, r)
		}
	}()

	start := time.Now()
	l.cycler.RunCycle(ctx)
	observability.RecordCycle(l.name, time.Since(start).Seconds())
}
