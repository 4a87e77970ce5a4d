package scheduler

import (
	"context"

	"golang.org/x/sync/errgroup"

	"nanokern/internal/process"
)

// Scheduler owns every Core and the shared Clock, and is the process.Waker
// the message router calls into. It is the only piece of code that knows
// how many cores exist, so that a wake can be routed to whichever core a
// target process happens to be resident on.
type Scheduler struct {
	Clock *Clock
	cores []*Core
}

// New builds a Scheduler with n cores, each ticking from clock at the
// given quantum.
func New(n int, quantumTicks int64, clock *Clock) *Scheduler {
	s := &Scheduler{Clock: clock}
	for i := 0; i < n; i++ {
		s.cores = append(s.cores, NewCore(i, quantumTicks, clock))
	}
	return s
}

// Core returns the core with the given id. Panics if id is out of range,
// matching the teacher pack's convention that core topology is fixed at
// boot and never speculatively probed.
func (s *Scheduler) Core(id int) *Core { return s.cores[id] }

// NumCores reports how many cores this scheduler manages.
func (s *Scheduler) NumCores() int { return len(s.cores) }

// PlaceRoundRobin admits p to the least-loaded core, approximated by
// round-robin over ActorID. Good enough for initial placement; spec
// section 3 does not require load balancing or migration afterward.
func (s *Scheduler) PlaceRoundRobin(p *process.Process) {
	core := s.cores[int(p.ID)%len(s.cores)]
	core.Place(p)
}

// Wake implements process.Waker. A same-core wake (the sender
// and the woken process share a core) is applied to the ready queue
// immediately, since the core's own driver loop already serializes ready-
// queue access from that goroutine's perspective once the mutex is taken.
// A cross-core wake is deferred to the target core's pending-wake ring,
// bounding its visible latency to the target core's next tick.
func (s *Scheduler) Wake(p *process.Process, fromCoreID int) {
	target := s.cores[p.CoreID]
	if fromCoreID == p.CoreID {
		target.enqueueReady(p)
		return
	}
	target.postWake(p)
}

// Run starts every core's driver loop and the shared clock, and blocks
// until ctx is cancelled or a core's loop returns an error (none of them
// currently do, but errgroup keeps the door open for one that detects a
// fatal scheduling inconsistency).
func (s *Scheduler) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.Clock.Run(ctx)
		return nil
	})
	for _, core := range s.cores {
		core := core
		g.Go(func() error {
			core.Run(ctx)
			return nil
		})
	}
	return g.Wait()
}
