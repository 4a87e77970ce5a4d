package process

import "sync/atomic"

// State is a process's position in the lifecycle described in spec section
// 3: new->Ready; Ready->Running (scheduler pick); Running->Ready
// (preempt/yield); Running->Sleeping (sleep); Running->Blocked (recv on
// empty queue, futex wait); Sleeping->Ready (tick>=wake_tick);
// Blocked->Ready (message arrival, futex wake, irq); any->Dead (exit).
type State int32

const (
	Ready State = iota
	Running
	Blocked
	Sleeping
	Dead
)

func (s State) String() string {
	switch s {
	case Ready:
		return "Ready"
	case Running:
		return "Running"
	case Blocked:
		return "Blocked"
	case Sleeping:
		return "Sleeping"
	case Dead:
		return "Dead"
	default:
		return "Unknown"
	}
}

// atomicState is a lock-free State cell; State transitions on a live
// process happen far more often than they're read by a foreign goroutine
// (the scheduler scanning a core's ready list), so this avoids taking the
// Process's own mutex on every scan.
type atomicState struct {
	v atomic.Int32
}

func (a *atomicState) load() State     { return State(a.v.Load()) }
func (a *atomicState) store(s State)   { a.v.Store(int32(s)) }
func (a *atomicState) cas(old, new_ State) bool {
	return a.v.CompareAndSwap(int32(old), int32(new_))
}
