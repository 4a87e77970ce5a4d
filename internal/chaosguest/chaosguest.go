// Package chaosguest is an optional, guest-visible fault injector gated
// behind config.Config.ChaosMonkey, grounded on original_source's
// actors/chaos: it runs the same four attacks against the live kernel
// (integer-overflow memory offset, negative/wrapping offset, an IPC flood
// against a target endpoint, and a CPU-bound loop that only ever yields at
// a host-call boundary) and logs BLOCKED/BREACHED per attack, so a
// liveness test can assert a healthy actor sharing a core with it is never
// starved. It runs as a directly hosted Go kernel-thread actor, like
// vfsactor, rather than as a WASM guest, since the point is to probe the
// gateway's own bounds checks and the scheduler's preemption guarantee
// directly.
package chaosguest

import (
	"fmt"

	"nanokern/internal/capability"
	"nanokern/internal/ipc"
	"nanokern/internal/process"
	"nanokern/internal/syscall"
)

// loopIterations bounds the busy loop so the test suite terminates; a
// real deployment would loop until externally stopped, exactly as
// original_source's chaos actor does; the bound here is the adaptation
// needed to make the attack's liveness property testable in finite time.
const loopIterations = 200_000

// Config names what the chaos actor attacks: MemHandle must resolve to a
// Memory capability (whose backing arena is at least one page) in the
// chaos actor's own table, and FloodTarget must resolve to an Endpoint
// capability with Write rights. Config is taken by pointer because the
// handles it names live in a CapTable that does not exist until after
// process.Registry.Spawn constructs the process around this very Entry —
// the caller fills Config in after Spawn, before the scheduler first
// dispatches the process, the same boot-time seeding order AllocateMemory's
// doc comment describes.
type Config struct {
	MemHandle   capability.Handle
	FloodTarget capability.Handle
}

// NewEntry builds the chaos actor's Entry. coreByID resolves the actor's
// resident core for the preemption-probing loop, exactly as vfsactor and
// the guest loader do for their own blocking calls.
func NewEntry(gw *syscall.Gateway, cfg *Config, coreByID func(int) syscall.Core) process.Entry {
	return func(p *process.Process) {
		core := coreByID(p.CoreID)
		gw.Log(p, "chaos: adversarial actor started")

		attackOverflowRead(gw, p, cfg.MemHandle)
		attackNegativeOffsetRead(gw, p, cfg.MemHandle)
		attackIPCFlood(gw, p, cfg.FloodTarget)
		attackBusyLoop(gw, p, core)

		gw.Log(p, "chaos: attack sequence complete")
		core.Exit(p)
	}
}

// attackOverflowRead tries an offset near the uint64 max that would wrap
// past a naive "offset+len overflows" check if that check used signed
// arithmetic or skipped the wraparound case; memobj.Arena.ReadAt rejects
// it outright (see its own overflow test), so this should always log
// BLOCKED against this kernel.
func attackOverflowRead(gw *syscall.Gateway, p *process.Process, mem capability.Handle) {
	buf := make([]byte, 32)
	err := gw.MemRead(p, mem, ^uint64(0)-0x10, buf)
	if err != nil {
		gw.Log(p, fmt.Sprintf("chaos: [1/4] overflow read BLOCKED (%v)", err))
		return
	}
	gw.Log(p, "chaos: [1/4] overflow read BREACHED")
}

// attackNegativeOffsetRead probes the same bounds check at the other
// extreme: the largest representable uint64, which a signed-to-unsigned
// cast bug elsewhere in the ABI might have produced from a guest-supplied
// -1.
func attackNegativeOffsetRead(gw *syscall.Gateway, p *process.Process, mem capability.Handle) {
	buf := make([]byte, 16)
	err := gw.MemRead(p, mem, ^uint64(0), buf)
	if err != nil {
		gw.Log(p, fmt.Sprintf("chaos: [2/4] wraparound offset read BLOCKED (%v)", err))
		return
	}
	gw.Log(p, "chaos: [2/4] wraparound offset read BREACHED")
}

// attackIPCFlood sends 20 messages at a 16-slot mailbox in a tight loop,
// exercising the router's ErrQueueFull path under contention rather than
// in a single-shot unit test.
func attackIPCFlood(gw *syscall.Gateway, p *process.Process, target capability.Handle) {
	var sent, rejected int
	for i := uint64(0); i < 20; i++ {
		msg := ipc.Message{Label: 0xDEAD, Data: [3]uint64{i, 0, 0}}
		if err := gw.CapSend(p, target, msg); err != nil {
			rejected++
			continue
		}
		sent++
	}
	gw.Log(p, fmt.Sprintf("chaos: [3/4] flood sent=%d rejected=%d", sent, rejected))
}

// attackBusyLoop spins without ever issuing a blocking syscall, checking
// QuantumExpired and calling Preempt exactly at the cadence a compiled
// guest's host-call boundaries would, the only place this kernel can
// reclaim a core from a CPU-bound actor (spec 4.G / 5's cooperative-
// preemption carve-out: "pure guest computation is not" a suspension
// point by itself).
func attackBusyLoop(gw *syscall.Gateway, p *process.Process, core syscall.Core) {
	gw.Log(p, "chaos: [4/4] entering busy loop — kernel must keep preempting me")
	var counter uint64
	for i := 0; i < loopIterations; i++ {
		counter++
		if core.QuantumExpired(p) {
			core.Preempt(p)
		}
	}
	_ = counter
}
