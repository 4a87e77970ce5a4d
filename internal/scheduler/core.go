// Package scheduler implements the preemptive per-core scheduler (spec
// section 4, components E/F/G): one ready queue per simulated CPU core,
// a shared tick source standing in for the APIC timer, and the context
// switch itself expressed as a buffered channel handoff between a core's
// driver loop and each resident process's dedicated goroutine.
package scheduler

import (
	"context"
	"sync"

	"nanokern/internal/process"
)

// Reason is why a process's goroutine handed control back to its core.
type Reason int

const (
	// ReasonQuantumExpired means the process voluntarily checked in at a
	// host-call boundary and found its quantum used up; it remains Ready
	// and goes to the back of the queue (spec 4.G round-robin).
	ReasonQuantumExpired Reason = iota
	// ReasonBlocked means the process is waiting on an empty mailbox or a
	// futex address; something else must promote it back to Ready.
	ReasonBlocked
	// ReasonSleeping means the process called sleep and is waiting for a
	// wake tick.
	ReasonSleeping
	// ReasonExited means the process is Dead and will never run again.
	ReasonExited
)

type coreEvent struct {
	proc   *process.Process
	reason Reason
}

// Core is one simulated CPU: a FIFO ready queue, a notion of which process
// is currently running, and the goroutine that drives the schedule loop.
// Processes never migrate between cores once placed, matching spec
// section 3.
type Core struct {
	ID           int
	quantumTicks int64
	clock        *Clock

	mu       sync.Mutex
	ready    []*process.Process
	sleeping []*process.Process
	current  *process.Process

	events chan coreEvent
	notify chan struct{}
	ring   *pendingWakeRing
}

// NewCore builds a Core with the given quantum, expressed in ticks of
// clock, and registers itself with clock so it receives tick callbacks.
func NewCore(id int, quantumTicks int64, clock *Clock) *Core {
	c := &Core{
		ID:           id,
		quantumTicks: quantumTicks,
		clock:        clock,
		events:       make(chan coreEvent, 1),
		notify:       make(chan struct{}, 1),
		ring:         newPendingWakeRing(),
	}
	clock.register(c)
	return c
}

// Place admits p to this core's ready queue for the first time, starts its
// goroutine, and records its residency. Callers must do this exactly once
// per process, after the process is fully provisioned (capabilities
// granted) and before any router can reach it.
func (c *Core) Place(p *process.Process) {
	p.CoreID = c.ID
	p.SetState(process.Ready)
	p.Run()
	c.mu.Lock()
	c.ready = append(c.ready, p)
	c.mu.Unlock()
	c.signal()
}

func (c *Core) signal() {
	select {
	case c.notify <- struct{}{}:
	default:
	}
}

// enqueueReady appends p to the tail of the ready queue and wakes the
// driver loop if it is idle waiting for work.
func (c *Core) enqueueReady(p *process.Process) {
	p.SetState(process.Ready)
	c.mu.Lock()
	c.ready = append(c.ready, p)
	c.mu.Unlock()
	c.signal()
}

// onTick is called by Clock on every tick. It promotes any Sleeping
// process whose wake tick has arrived and drains this core's pending-wake
// ring (cross-core wakes deferred here since they were posted).
func (c *Core) onTick(tick int64) {
	c.mu.Lock()
	var stillSleeping []*process.Process
	var woken []*process.Process
	for _, p := range c.sleeping {
		if p.WakeTick.Load() <= tick {
			woken = append(woken, p)
		} else {
			stillSleeping = append(stillSleeping, p)
		}
	}
	c.sleeping = stillSleeping
	c.mu.Unlock()
	for _, p := range woken {
		c.enqueueReady(p)
	}
	drained := 0
	for {
		p, ok := c.ring.drain()
		if !ok {
			break
		}
		// Wakers move the process Blocked->Ready before posting it here.
		if p.State() == process.Ready || p.CompareAndSwapState(process.Blocked, process.Ready) {
			c.mu.Lock()
			c.ready = append(c.ready, p)
			c.mu.Unlock()
			drained++
		}
	}
	if len(woken) > 0 || drained > 0 {
		c.signal()
	}
}

// postWake is the cross-core half of a wake: it only enqueues onto the
// ring, to be applied at this core's own next tick, bounding cross-core
// wake latency to "observed by the target core's next timer tick" exactly
// as spec section 5 requires.
func (c *Core) postWake(p *process.Process) {
	c.ring.push(p)
}

// Run drives the schedule loop until ctx is cancelled: pick the head of
// the ready queue, hand it the resume baton, block until it yields back,
// and act on why it yielded. This is the eight-step schedule algorithm of
// spec 4.E collapsed into Go control flow: steps 1-3 (tick housekeeping)
// happen in onTick above; steps 4-8 (pick, dispatch, switch, requeue) are
// the body of this loop.
func (c *Core) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		c.mu.Lock()
		if len(c.ready) == 0 {
			c.mu.Unlock()
			select {
			case <-ctx.Done():
				return
			case <-c.notify:
			}
			continue
		}
		next := c.ready[0]
		c.ready = c.ready[1:]
		c.mu.Unlock()

		next.SetState(process.Running)
		next.ScheduledUntilTick.Store(c.clock.Now() + c.quantumTicks)
		c.current = next
		next.ResumeChan() <- struct{}{}

		ev := <-c.events
		c.current = nil

		switch ev.reason {
		case ReasonQuantumExpired:
			c.mu.Lock()
			c.ready = append(c.ready, ev.proc)
			c.mu.Unlock()
			ev.proc.SetState(process.Ready)
		case ReasonSleeping:
			c.mu.Lock()
			c.sleeping = append(c.sleeping, ev.proc)
			c.mu.Unlock()
		case ReasonBlocked, ReasonExited:
			// Blocked: the process is parked until a router send or a
			// futex wake calls back in through Scheduler.Wake /
			// futex.Table. Exited: nothing further to schedule for it.
		}
	}
}

// Current returns the process presently occupying this core, or nil if
// idle.
func (c *Core) Current() *process.Process {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// ReadyLen reports the number of processes waiting for their turn, for
// introspection and tests.
func (c *Core) ReadyLen() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.ready)
}

// Yield is called by a process's own goroutine, at a host-call boundary,
// to hand control back to its core with the given reason. For
// ReasonQuantumExpired it blocks until the core grants the process its
// next turn; for the other reasons the caller is expected to never run
// again without a separate wake (Blocked, Sleeping) or at all (Exited).
func (c *Core) Yield(p *process.Process, reason Reason) {
	c.events <- coreEvent{proc: p, reason: reason}
	if reason == ReasonQuantumExpired {
		<-p.ResumeChan()
	}
}

// Preempt is the voluntary-yield / quantum-expiry-check entry point used
// by the syscall gateway's sys_yield and by any host-call boundary that
// finds QuantumExpired true: it hands control back to the core and blocks
// until the core grants p its next turn, exactly like a natural
// ReasonQuantumExpired yield.
func (c *Core) Preempt(p *process.Process) {
	c.Yield(p, ReasonQuantumExpired)
}

// Suspend implements process.Suspender: park p as Blocked and wait for a
// future resume. Used by both component D's blocking receive contract and
// the futex table's wait contract.
func (c *Core) Suspend(p *process.Process) {
	c.events <- coreEvent{proc: p, reason: ReasonBlocked}
	<-p.ResumeChan()
}

// QuantumExpired reports whether p has used its allotted ticks on this
// core. Checked at host-call boundaries (the guest bridge's checkQuantum
// and chaosguest's busy loop), since
// a wazero-hosted guest call cannot be preempted mid-instruction (spec
// design notes, "actor code must be interruptible").
func (c *Core) QuantumExpired(p *process.Process) bool {
	return c.clock.Now() >= p.ScheduledUntilTick.Load()
}
