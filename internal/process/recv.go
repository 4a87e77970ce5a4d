package process

import "nanokern/internal/ipc"

// Suspender is implemented by the scheduler. Recv and the futex table call
// Suspend when a process must give up its core to wait for something; the
// scheduler is responsible for actually parking the process's goroutine
// (via its resume baton) and picking the next Ready process to run in its
// place.
type Suspender interface {
	Suspend(p *Process)
}

// Recv implements the blocking receive contract (spec 4.D): if p's queue
// already holds a message, it is returned immediately with no state change.
// Otherwise p transitions Running->Blocked and s.Suspend is called,
// which does not return to this goroutine until the scheduler has handed p
// its resume token again. Recv then pops again; if the queue is still empty
// (a spurious wake) it blocks once more, so it only ever returns a message.
func Recv(p *Process, s Suspender) ipc.Message {
	if m, ok := p.Queue.Pop(); ok {
		return m
	}
	p.SetState(Blocked)
	s.Suspend(p)
	m, ok := p.Queue.Pop()
	for !ok {
		// Spurious wake (spec invariant 8 forbids this in the scheduler's
		// own wake path, but a futex wake racing a message wake can still
		// land here with an already-drained queue); go back to sleep.
		p.SetState(Blocked)
		s.Suspend(p)
		m, ok = p.Queue.Pop()
	}
	return m
}
