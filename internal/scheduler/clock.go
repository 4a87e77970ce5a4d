package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Clock stands in for the APIC timer: a single source of tick events
// broadcast to every registered Core. Cores use it both to learn the
// current tick (for quantum and sleep-wake comparisons) and to receive the
// onTick callback that drives their own housekeeping.
type Clock struct {
	interval time.Duration
	tick     atomic.Int64

	mu    sync.Mutex
	cores []*Core
}

// NewClock returns a Clock that advances one tick every interval once Run
// is called.
func NewClock(interval time.Duration) *Clock {
	return &Clock{interval: interval}
}

func (c *Clock) register(core *Core) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cores = append(c.cores, core)
}

// Now returns the current tick count.
func (c *Clock) Now() int64 { return c.tick.Load() }

// Run drives the tick loop until ctx is cancelled. Each tick is applied to
// every registered core in turn; cores do only cheap slice scans and ring
// drains in onTick, so this stays well within one tick interval for any
// reasonable actor count.
func (c *Clock) Run(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t := c.tick.Add(1)
			c.mu.Lock()
			cores := make([]*Core, len(c.cores))
			copy(cores, c.cores)
			c.mu.Unlock()
			for _, core := range cores {
				core.onTick(t)
			}
		}
	}
}

// Advance is a test hook: it applies n ticks synchronously, without
// waiting on the real timer, so scheduler tests run instantly.
func (c *Clock) Advance(n int64) {
	for i := int64(0); i < n; i++ {
		t := c.tick.Add(1)
		c.mu.Lock()
		cores := make([]*Core, len(c.cores))
		copy(cores, c.cores)
		c.mu.Unlock()
		for _, core := range cores {
			core.onTick(t)
		}
	}
}
