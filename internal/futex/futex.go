// Package futex implements component H: fast userspace-style wait/wake on
// an arbitrary guest memory address, the primitive the guest SDK builds
// mutexes and condition variables on top of.
package futex

import (
	"sync"

	"nanokern/internal/kernelerr"
	"nanokern/internal/process"
)

// Table tracks, per address, the processes waiting on it. It never reads
// guest memory itself: the caller supplies a check function evaluated
// under the table's own lock, so the "does the value still match what I
// expect" test and "register as a waiter" step happen atomically and a
// wake issued between the two can never be missed (the classic futex
// lost-wakeup hazard).
type Table struct {
	mu      sync.Mutex
	waiters map[uint64][]*process.Process
}

// NewTable returns an empty futex table.
func NewTable() *Table {
	return &Table{waiters: make(map[uint64][]*process.Process)}
}

// Wait blocks p until either another process calls Wake(addr, ...) for the
// same addr, or check no longer holds at the moment Wait is called. check
// is invoked once, under the table's lock, and must read the word at addr
// and compare it against the caller's expected value; if it returns false,
// Wait returns kernelerr.ErrAlreadyChanged immediately without blocking,
// matching the standard futex "value changed before we could wait"
// contract (spec invariant: a wait never blocks on a value that has
// already changed).
func (t *Table) Wait(p *process.Process, s process.Suspender, addr uint64, check func() bool) error {
	t.mu.Lock()
	if !check() {
		t.mu.Unlock()
		return kernelerr.ErrAlreadyChanged
	}
	t.waiters[addr] = append(t.waiters[addr], p)
	p.WaitAddr.Store(addr)
	p.SetState(process.Blocked)
	t.mu.Unlock()

	s.Suspend(p)
	return nil
}

// Wake promotes up to n waiters on addr back to Ready and reports how many
// it woke. Waking more processes than are actually waiting is a no-op
// beyond that count; waking zero processes is not an error (spec: a wake
// with no waiters is valid and simply has no effect).
func (t *Table) Wake(addr uint64, n int, waker process.Waker, fromCoreID int) int {
	t.mu.Lock()
	queue := t.waiters[addr]
	if len(queue) == 0 {
		t.mu.Unlock()
		return 0
	}
	if n > len(queue) || n < 0 {
		n = len(queue)
	}
	woken := queue[:n]
	t.waiters[addr] = queue[n:]
	if len(t.waiters[addr]) == 0 {
		delete(t.waiters, addr)
	}
	t.mu.Unlock()

	count := 0
	for _, p := range woken {
		if p.CompareAndSwapState(process.Blocked, process.Ready) {
			waker.Wake(p, fromCoreID)
			count++
		}
	}
	return count
}

// WaitingCount reports how many processes are currently parked on addr,
// for introspection and tests.
func (t *Table) WaitingCount(addr uint64) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.waiters[addr])
}
