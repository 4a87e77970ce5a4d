package process

import (
	"errors"
	"testing"

	"nanokern/internal/capability"
	"nanokern/internal/ipc"
	"nanokern/internal/kernelerr"
)

type noopWaker struct{ woke []*Process }

func (w *noopWaker) Wake(p *Process, fromCoreID int) { w.woke = append(w.woke, p) }

func newLinkedPair(t *testing.T, reg *Registry) (sender, target *Process, endpointHandle capability.Handle) {
	t.Helper()
	sender = reg.Spawn("sender", func(*Process) {})
	target = reg.Spawn("target", func(*Process) {})
	h, err := sender.CapTable.Insert(capability.Object{Kind: capability.KindEndpoint, Target: target.ID}, capability.Write)
	if err != nil {
		t.Fatalf("insert endpoint: %v", err)
	}
	return sender, target, h
}

func TestSendDeliversInOrder(t *testing.T) {
	reg := NewRegistry()
	sender, target, ep := newLinkedPair(t, reg)
	router := NewRouter(reg, &noopWaker{})

	for i := uint64(0); i < 5; i++ {
		if err := router.Send(sender, ep, ipc.Message{Label: i}); err != nil {
			t.Fatalf("send %d: %v", i, err)
		}
	}
	for i := uint64(0); i < 5; i++ {
		m, ok := target.Queue.Pop()
		if !ok || m.Label != i {
			t.Fatalf("expected label %d, got %+v ok=%v", i, m, ok)
		}
	}
}

func TestSendBadHandle(t *testing.T) {
	reg := NewRegistry()
	sender, _, _ := newLinkedPair(t, reg)
	router := NewRouter(reg, &noopWaker{})
	if err := router.Send(sender, capability.Handle(0xFFFFFFFF), ipc.Message{}); !errors.Is(err, kernelerr.ErrBadHandle) {
		t.Fatalf("expected ErrBadHandle, got %v", err)
	}
}

func TestSendWrongKind(t *testing.T) {
	reg := NewRegistry()
	sender := reg.Spawn("sender", func(*Process) {})
	h, _ := sender.CapTable.Insert(capability.Object{Kind: capability.KindLog}, capability.Write)
	router := NewRouter(reg, &noopWaker{})
	if err := router.Send(sender, h, ipc.Message{}); !errors.Is(err, kernelerr.ErrWrongKind) {
		t.Fatalf("expected ErrWrongKind, got %v", err)
	}
}

func TestSendMissingWriteRight(t *testing.T) {
	reg := NewRegistry()
	sender, target, _ := newLinkedPair(t, reg)
	ro, _ := sender.CapTable.Insert(capability.Object{Kind: capability.KindEndpoint, Target: target.ID}, capability.Read)
	router := NewRouter(reg, &noopWaker{})
	if err := router.Send(sender, ro, ipc.Message{}); !errors.Is(err, kernelerr.ErrMissingPermission) {
		t.Fatalf("expected ErrMissingPermission, got %v", err)
	}
}

func TestSendNoSuchTarget(t *testing.T) {
	reg := NewRegistry()
	sender := reg.Spawn("sender", func(*Process) {})
	h, _ := sender.CapTable.Insert(capability.Object{Kind: capability.KindEndpoint, Target: 999}, capability.Write)
	router := NewRouter(reg, &noopWaker{})
	if err := router.Send(sender, h, ipc.Message{}); !errors.Is(err, kernelerr.ErrNoSuchTarget) {
		t.Fatalf("expected ErrNoSuchTarget, got %v", err)
	}
}

// TestCapabilityTransferIsAtomic is invariant 3 from spec section 8: a
// capability named in a send either (a) leaves the sender's table and
// appears, narrowed, in the target's table, with the message in the
// target's queue, or (b) the sender's table, target's table, and target's
// queue are all left exactly as they started. There is no state where the
// cap has left the sender but not arrived in the target, or vice versa.
func TestCapabilityTransferIsAtomic(t *testing.T) {
	reg := NewRegistry()
	sender, target, ep := newLinkedPair(t, reg)
	router := NewRouter(reg, &noopWaker{})

	memHandle, err := sender.CapTable.Insert(capability.Object{Kind: capability.KindMemory, PhysBase: 0x1000, PageCount: 4}, capability.Read|capability.Write|capability.Grant)
	if err != nil {
		t.Fatalf("insert memory cap: %v", err)
	}

	msg := ipc.Message{Label: 42, CapGrant: uint64(memHandle), CapPerms: uint32(capability.Read)}
	if err := router.Send(sender, ep, msg); err != nil {
		t.Fatalf("send with grant: %v", err)
	}

	if _, ok := sender.CapTable.Lookup(memHandle); ok {
		t.Fatalf("sender still holds the transferred capability")
	}

	got, ok := target.Queue.Pop()
	if !ok {
		t.Fatalf("target queue empty after grant send")
	}
	newHandle := capability.Handle(got.CapGrant)
	resolved, ok := target.CapTable.Lookup(newHandle)
	if !ok {
		t.Fatalf("target does not hold the rewritten handle")
	}
	if resolved.Object.Kind != capability.KindMemory || resolved.Object.PhysBase != 0x1000 {
		t.Fatalf("transferred object mismatch: %+v", resolved.Object)
	}
	if resolved.Rights != capability.Read {
		t.Fatalf("expected narrowed rights Read only, got %v", resolved.Rights)
	}
}

// TestCapabilityTransferRollsBackOnFullQueue exercises the abort path: if
// the grant succeeds in the target's table but the target's queue then
// turns out to be full, the grant must be undone rather than leaking a
// capability the message never announced.
func TestCapabilityTransferRollsBackOnFullQueue(t *testing.T) {
	reg := NewRegistry()
	sender, target, ep := newLinkedPair(t, reg)
	router := NewRouter(reg, &noopWaker{})

	for i := uint64(0); i < ipc.Capacity; i++ {
		if err := router.Send(sender, ep, ipc.Message{Label: i}); err != nil {
			t.Fatalf("fill queue %d: %v", i, err)
		}
	}

	memHandle, _ := sender.CapTable.Insert(capability.Object{Kind: capability.KindMemory}, capability.Grant)
	err := router.Send(sender, ep, ipc.Message{CapGrant: uint64(memHandle), CapPerms: uint32(capability.Read)})
	if !errors.Is(err, kernelerr.ErrQueueFull) {
		t.Fatalf("expected ErrQueueFull, got %v", err)
	}

	if _, ok := sender.CapTable.Lookup(memHandle); !ok {
		t.Fatalf("sender should still hold the capability after a rolled-back send")
	}
	snap := target.CapTable.Snapshot()
	for h, r := range snap {
		if r.Object.Kind == capability.KindMemory {
			t.Fatalf("target retained a leaked grant at handle %v: %+v", h, r)
		}
	}
}

func TestSendWakesBlockedReceiver(t *testing.T) {
	reg := NewRegistry()
	sender, target, ep := newLinkedPair(t, reg)
	waker := &noopWaker{}
	router := NewRouter(reg, waker)

	target.SetState(Blocked)
	if err := router.Send(sender, ep, ipc.Message{Label: 1}); err != nil {
		t.Fatalf("send: %v", err)
	}
	if target.State() != Ready {
		t.Fatalf("expected target Ready after send, got %v", target.State())
	}
	if len(waker.woke) != 1 || waker.woke[0] != target {
		t.Fatalf("expected waker notified for target, got %+v", waker.woke)
	}
}
