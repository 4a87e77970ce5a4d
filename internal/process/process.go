// Package process implements the Process Control Block (spec section 3,
// component D) and the Message Router (component C) and Recv contract
// (component 4.D) that operate on it. It depends on capability and ipc but
// never on scheduler: the scheduling actions a process needs (suspend until
// resumed, promote a blocked peer to ready) are expressed as the Suspender
// and Waker interfaces below and satisfied by package scheduler, keeping
// the dependency graph one-directional.
package process

import (
	"sync/atomic"

	"nanokern/internal/capability"
	"nanokern/internal/ipc"
)

// GuestEnv is the process's owned guest environment (a compiled+instantiated
// WASM module, see package guest). Process only needs to release it on
// death; it never reaches back into guest internals.
type GuestEnv interface {
	Close() error
}

// Entry is the trampoline's guest entry point: it runs once, on the
// process's dedicated goroutine, after the process's first scheduler
// dispatch enables it to proceed — mirroring the hand-crafted first-entry
// frame described in spec section 4.F.
type Entry func(p *Process)

// Process is one actor's kernel-owned bookkeeping: identity, state,
// capability table, IPC queue, and guest environment. Every process
// exclusively owns its own stacks and per-actor tables; nothing is shared
// between processes except through the router.
type Process struct {
	ID   capability.ActorID
	Name string

	state atomicState

	CapTable *capability.Table
	Queue    *ipc.Queue

	GuestEnv GuestEnv

	// AddressSpaceRoot stands in for CR3: an opaque comparison key the
	// scheduler uses to decide whether a core's "page table" needs
	// swapping (spec 4.E step 7). This repository uses a single shared
	// address space (spec 4.I.5), so in practice this is constant, but the
	// field is real and compared on every switch, not hard-coded away.
	AddressSpaceRoot uint64

	// CoreID is the core this process is resident on; processes never
	// migrate once placed (spec section 3: "migration is not required").
	CoreID int

	// WakeTick is the tick at or after which a Sleeping process becomes
	// Ready. Zero when not sleeping.
	WakeTick atomic.Int64

	// WaitAddr is the address a Blocked-on-futex process is waiting on.
	WaitAddr atomic.Uint64

	// ScheduledUntilTick bounds how long this process may run on its core
	// before the next host-call boundary treats it as having used its
	// quantum (spec 4.G / 5: "Actor code must therefore be interruptible");
	// see package scheduler's quantum check.
	ScheduledUntilTick atomic.Int64

	// CPUTicks is a soft accounting counter, mirrored from the teacher's
	// per-actor CpuOps field.
	CPUTicks atomic.Uint64

	entry Entry

	// resume is the context-switch baton: exactly one token is ever
	// in flight for this process. The scheduler sends on it to hand the
	// process its turn; the process's own goroutine blocks receiving on
	// it between turns. This is package scheduler's write side; Process
	// exposes it so scheduler can implement Suspender/Waker without this
	// package importing scheduler.
	resume chan struct{}
}

// New constructs a Process in the Ready state, not yet resident on any
// core. entry is invoked exactly once, on the process's dedicated
// goroutine, the first time the scheduler hands it the resume token.
func New(id capability.ActorID, name string, entry Entry) *Process {
	p := &Process{
		ID:       id,
		Name:     name,
		CapTable: capability.NewTable(),
		Queue:    ipc.NewQueue(),
		entry:    entry,
		resume:   make(chan struct{}, 1),
	}
	p.state.store(Ready)
	return p
}

// State returns the process's current lifecycle state.
func (p *Process) State() State { return p.state.load() }

// SetState unconditionally stores a new state.
func (p *Process) SetState(s State) { p.state.store(s) }

// CompareAndSwapState is the primitive the scheduler and futex table use to
// avoid racing a wake against a concurrent self-transition.
func (p *Process) CompareAndSwapState(old, new_ State) bool {
	return p.state.cas(old, new_)
}

// ResumeChan exposes the baton channel to package scheduler. It is not
// meant for any other caller.
func (p *Process) ResumeChan() chan struct{} { return p.resume }

// Run starts the process's dedicated goroutine. It blocks immediately on
// the resume baton — the "hand-crafted fake frame" of spec 4.F — until the
// scheduler first dispatches it.
func (p *Process) Run() {
	go func() {
		<-p.resume
		p.entry(p)
	}()
}

// Close releases the process's owned guest environment, if any. Safe to
// call multiple times.
func (p *Process) Close() error {
	if p.GuestEnv != nil {
		return p.GuestEnv.Close()
	}
	return nil
}
