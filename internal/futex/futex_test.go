package futex

import (
	"errors"
	"testing"

	"nanokern/internal/capability"
	"nanokern/internal/kernelerr"
	"nanokern/internal/process"
)

type fakeSuspender struct {
	suspended chan *process.Process
	resumed   chan struct{}
}

func newFakeSuspender() *fakeSuspender {
	return &fakeSuspender{suspended: make(chan *process.Process, 1), resumed: make(chan struct{}, 1)}
}

func (f *fakeSuspender) Suspend(p *process.Process) {
	f.suspended <- p
	<-f.resumed
}

type fakeWaker struct{ woke []*process.Process }

func (w *fakeWaker) Wake(p *process.Process, fromCoreID int) { w.woke = append(w.woke, p) }

func TestWaitRejectsChangedValue(t *testing.T) {
	table := NewTable()
	p := process.New(capability.ActorID(1), "p", func(*process.Process) {})
	s := newFakeSuspender()
	err := table.Wait(p, s, 0x1000, func() bool { return false })
	if !errors.Is(err, kernelerr.ErrAlreadyChanged) {
		t.Fatalf("expected ErrAlreadyChanged, got %v", err)
	}
	if table.WaitingCount(0x1000) != 0 {
		t.Fatalf("expected no waiters registered on a rejected wait")
	}
}

func TestWakeWithNoWaitersIsNoop(t *testing.T) {
	table := NewTable()
	woken := table.Wake(0x2000, 1, &fakeWaker{}, 0)
	if woken != 0 {
		t.Fatalf("expected 0 woken, got %d", woken)
	}
}

func TestWaitThenWakePromotesToReady(t *testing.T) {
	table := NewTable()
	p := process.New(capability.ActorID(1), "p", func(*process.Process) {})
	p.SetState(process.Running)
	s := newFakeSuspender()

	done := make(chan error, 1)
	go func() { done <- table.Wait(p, s, 0x3000, func() bool { return true }) }()

	<-s.suspended // Wait has registered and parked.
	if table.WaitingCount(0x3000) != 1 {
		t.Fatalf("expected 1 waiter registered")
	}

	waker := &fakeWaker{}
	woken := table.Wake(0x3000, 1, waker, 0)
	if woken != 1 {
		t.Fatalf("expected 1 woken, got %d", woken)
	}
	if p.State() != process.Ready {
		t.Fatalf("expected process Ready after wake, got %v", p.State())
	}
	if len(waker.woke) != 1 || waker.woke[0] != p {
		t.Fatalf("expected waker notified for p")
	}
	s.resumed <- struct{}{}
	if err := <-done; err != nil {
		t.Fatalf("Wait returned error: %v", err)
	}
}

func TestWakeLimitsCount(t *testing.T) {
	table := NewTable()
	s := newFakeSuspender()
	const n = 3
	procs := make([]*process.Process, n)
	doneCh := make([]chan error, n)
	for i := 0; i < n; i++ {
		p := process.New(capability.ActorID(i+1), "p", func(*process.Process) {})
		p.SetState(process.Running)
		procs[i] = p
		doneCh[i] = make(chan error, 1)
		go func(p *process.Process, done chan error) {
			done <- table.Wait(p, s, 0x4000, func() bool { return true })
		}(p, doneCh[i])
		<-s.suspended
	}
	if table.WaitingCount(0x4000) != n {
		t.Fatalf("expected %d waiters, got %d", n, table.WaitingCount(0x4000))
	}
	waker := &fakeWaker{}
	woken := table.Wake(0x4000, 2, waker, 0)
	if woken != 2 {
		t.Fatalf("expected 2 woken, got %d", woken)
	}
	if table.WaitingCount(0x4000) != 1 {
		t.Fatalf("expected 1 waiter left, got %d", table.WaitingCount(0x4000))
	}
	for range procs {
		s.resumed <- struct{}{}
	}
	for _, done := range doneCh {
		<-done
	}
}
